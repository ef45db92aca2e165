package project

import (
	"fmt"
	"strings"
	"time"
)

type edge struct {
	from, to Status
}

// guard decides whether a may take an edge on p. It returns ErrForbidden or
// ErrConflict wrapped with a reason.
type guard func(p *Project, a Actor) error

var transitions = buildTransitions()

func buildTransitions() map[edge]guard {
	t := make(map[edge]guard)
	for i := 0; i+1 < len(pipeline); i++ {
		t[edge{pipeline[i], pipeline[i+1]}] = ownerOrAdmin
	}
	// A failed check sends the submission back to the wizard.
	t[edge{StatusAIScoring, StatusDraft}] = ownerOrAdmin
	t[edge{StatusDuplicateCheck, StatusDraft}] = ownerOrAdmin

	for _, s := range pipeline {
		t[edge{s, StatusRejected}] = adminOnly
		if s != StatusActive {
			t[edge{s, StatusAppealPending}] = appealer
		}
	}
	t[edge{StatusRejected, StatusAppealPending}] = appealer
	t[edge{StatusAppealPending, StatusActive}] = adminOnly
	t[edge{StatusAppealPending, StatusRejected}] = adminOnly
	t[edge{StatusActive, StatusSuccess}] = boundPartner
	t[edge{StatusNGOPartnered, StatusSuccess}] = boundPartner
	return t
}

func ownerOrAdmin(p *Project, a Actor) error {
	if a.Owns(p) || a.IsAdmin() {
		return nil
	}
	return fmt.Errorf("%w: only the initiator or an admin may advance this project", ErrForbidden)
}

func adminOnly(_ *Project, a Actor) error {
	if a.IsAdmin() {
		return nil
	}
	return fmt.Errorf("%w: admin role required", ErrForbidden)
}

func appealer(p *Project, a Actor) error {
	if !a.Owns(p) {
		return fmt.Errorf("%w: only the initiator may appeal", ErrForbidden)
	}
	if p.Status == StatusRejected && p.AppealDenied {
		return fmt.Errorf("%w: the appeal for this project was already denied", ErrConflict)
	}
	return nil
}

func boundPartner(p *Project, a Actor) error {
	if a.Partners(p) {
		return nil
	}
	return fmt.Errorf("%w: only the partner NPO may complete the project", ErrForbidden)
}

// Allowed reports whether a may move p to status to right now.
func Allowed(p *Project, a Actor, to Status) bool {
	return checkTransition(p, a, to) == nil
}

func checkTransition(p *Project, a Actor, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}
	if p.Status.Terminal() {
		return fmt.Errorf("%w: project is completed", ErrConflict)
	}
	if to == StatusNGOPartnered {
		return fmt.Errorf("%w: partnership is established through the partner endpoint", ErrConflict)
	}
	if to == p.Status {
		return fmt.Errorf("%w: project is already %s", ErrConflict, to)
	}
	g, ok := transitions[edge{p.Status, to}]
	if !ok {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrConflict, p.Status, to)
	}
	return g(p, a)
}

// Transition moves p to status to on behalf of a, applying the side effects
// of the edge. p is left untouched on error.
func (p *Project) Transition(a Actor, to Status, now time.Time) error {
	if err := checkTransition(p, a, to); err != nil {
		return err
	}
	from := p.Status
	p.Status = to
	switch {
	case to == StatusAppealPending:
		at := now.UTC()
		p.AppealedAt = &at
	case from == StatusAppealPending && to == StatusRejected:
		p.AppealDenied = true
	case from == StatusAppealPending && to == StatusActive:
		p.RejectionReason = ""
	}
	p.touch(now)
	return nil
}

// Reject moves p to rejected and records reason.
func (p *Project) Reject(a Actor, reason string, now time.Time) error {
	if err := p.Transition(a, StatusRejected, now); err != nil {
		return err
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		p.RejectionReason = reason
	}
	return nil
}

// ReturnToDraft sends a submission back to the wizard after a failed check.
func (p *Project) ReturnToDraft(a Actor, reason string, now time.Time) error {
	if err := p.Transition(a, StatusDraft, now); err != nil {
		return err
	}
	p.RejectionReason = strings.TrimSpace(reason)
	return nil
}

// FileAppeal is the initiator contesting a rejection or a pipeline outcome.
func (p *Project) FileAppeal(a Actor, reason string, now time.Time) error {
	if err := p.Transition(a, StatusAppealPending, now); err != nil {
		return err
	}
	p.AppealReason = strings.TrimSpace(reason)
	return nil
}
