package project

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cityinit.org/internal/auth"
	"cityinit.org/internal/estimate"
)

func canRequestJoin(p *Project, a Actor) error {
	if a.Role != auth.RoleInitiator {
		return fmt.Errorf("%w: only citizens may join projects", ErrForbidden)
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: requester name is required", ErrValidation)
	}
	if p.Status.Terminal() {
		return fmt.Errorf("%w: project is completed", ErrConflict)
	}
	if a.Owns(p) {
		return errInitiatorParticipates
	}
	return nil
}

// errInitiatorParticipates is returned for the owner, who is a participant by
// construction whatever their current display name.
var errInitiatorParticipates = fmt.Errorf("%w: the initiator already participates", ErrConflict)

// RequestJoin queues a's name for the initiator's decision. It reports false
// when a already participates or is already queued; that is not an error.
func (p *Project) RequestJoin(a Actor, now time.Time) (bool, error) {
	if err := canRequestJoin(p, a); err != nil {
		if errors.Is(err, errInitiatorParticipates) {
			return false, nil
		}
		return false, err
	}
	if p.IsParticipant(a.Name) || p.HasPendingJoin(a.Name) {
		return false, nil
	}
	p.PendingJoinRequests = append(p.PendingJoinRequests, a.Name)
	p.touch(now)
	return true, nil
}

func canResolveJoin(p *Project, a Actor) error {
	if !a.Owns(p) {
		return fmt.Errorf("%w: only the initiator resolves join requests", ErrForbidden)
	}
	if p.Status.Terminal() {
		return fmt.Errorf("%w: project is completed", ErrConflict)
	}
	return nil
}

// ResolveJoin approves or declines the pending request of name.
func (p *Project) ResolveJoin(a Actor, name string, approve bool, now time.Time) error {
	if err := canResolveJoin(p, a); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if !p.HasPendingJoin(name) {
		return fmt.Errorf("%w: no pending join request from %q", ErrNotFound, name)
	}
	p.PendingJoinRequests = remove(p.PendingJoinRequests, name)
	if approve && !p.IsParticipant(name) {
		p.Participants = append(p.Participants, name)
	}
	p.touch(now)
	return nil
}

func approvedNPO(a Actor, npoID string) error {
	if a.Role != auth.RoleNPO {
		return fmt.Errorf("%w: NPO role required", ErrForbidden)
	}
	if !a.ApprovedNPO {
		return fmt.Errorf("%w: NPO is not verified", ErrForbidden)
	}
	if npoID != a.ID {
		return fmt.Errorf("%w: npoId must be the caller", ErrForbidden)
	}
	return nil
}

func canRequestPartnership(p *Project, a Actor) error {
	if err := approvedNPO(a, a.ID); err != nil {
		return err
	}
	if p.Status.Terminal() {
		return fmt.Errorf("%w: project is completed", ErrConflict)
	}
	if p.NPOID != "" {
		return fmt.Errorf("%w: project already has a partner", ErrConflict)
	}
	return nil
}

// RequestPartnership records an NPO's offer. A second request from the same
// NPO is a no-op reported as false.
func (p *Project) RequestPartnership(a Actor, req PartnerRequest, now time.Time) (bool, error) {
	req.NPOID = strings.TrimSpace(req.NPOID)
	if req.NPOID == "" {
		req.NPOID = a.ID
	}
	if err := approvedNPO(a, req.NPOID); err != nil {
		return false, err
	}
	if err := canRequestPartnership(p, a); err != nil {
		return false, err
	}
	if p.HasPartnerRequest(req.NPOID) {
		return false, nil
	}
	if strings.TrimSpace(req.NPOName) == "" {
		req.NPOName = a.Name
	}
	req.Message = strings.TrimSpace(req.Message)
	req.SentAt = now.UTC()
	p.PartnerRequests = append(p.PartnerRequests, req)
	p.touch(now)
	return true, nil
}

func canBecomePartner(p *Project, a Actor) error {
	if err := approvedNPO(a, a.ID); err != nil {
		return err
	}
	if p.Status.Terminal() {
		return fmt.Errorf("%w: project is completed", ErrConflict)
	}
	if p.NPOID != "" {
		return fmt.Errorf("%w: project already has a partner", ErrConflict)
	}
	if p.Status != StatusActive {
		return fmt.Errorf("%w: only active projects accept a partner (status %s)", ErrConflict, p.Status)
	}
	return nil
}

// BecomePartner binds npoID to p and moves it to ngo_partnered. Binding is
// first-come: once npoId is set every later attempt is a conflict.
func (p *Project) BecomePartner(a Actor, npoID string, now time.Time) error {
	npoID = strings.TrimSpace(npoID)
	if npoID == "" {
		npoID = a.ID
	}
	if err := approvedNPO(a, npoID); err != nil {
		return err
	}
	if err := canBecomePartner(p, a); err != nil {
		return err
	}
	p.NPOID = npoID
	p.Status = StatusNGOPartnered
	p.touch(now)
	return nil
}

func canEditEstimate(p *Project, a Actor) error {
	switch {
	case p.NPOID != "" && !a.Partners(p):
		return fmt.Errorf("%w: only the partner NPO edits the estimate", ErrForbidden)
	case p.NPOID == "" && !a.Owns(p):
		return fmt.Errorf("%w: only the initiator edits the estimate", ErrForbidden)
	}
	if p.Status.Terminal() {
		return fmt.Errorf("%w: project is completed", ErrConflict)
	}
	return nil
}

// ReplaceEstimate swaps the whole estimate and sets the budget to its total.
// maxBudget of zero means unlimited.
func (p *Project) ReplaceEstimate(a Actor, items estimate.Ledger, maxBudget float64, now time.Time) error {
	if err := canEditEstimate(p, a); err != nil {
		return err
	}
	if err := items.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	items = items.Normalize()
	total := items.Total()
	if maxBudget > 0 && total > maxBudget {
		return fmt.Errorf("%w: estimate total %.2f exceeds the limit of %.2f", ErrValidation, total, maxBudget)
	}
	p.Resources = items
	p.Budget = total
	p.touch(now)
	return nil
}
