// Package appeal holds the admin side of the appeal workflow: the review
// queue and the approve/reject decision.
package appeal

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"cityinit.org/internal/project"
)

// Decision is an admin verdict on a pending appeal.
type Decision string

const (
	Approve Decision = "approve"
	Reject  Decision = "reject"
)

// ParseDecision accepts approve/reject and the status names active/rejected.
func ParseDecision(raw string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approve", "approved", string(project.StatusActive):
		return Approve, nil
	case "reject", "rejected", "deny", "denied":
		return Reject, nil
	}
	return "", fmt.Errorf("%w: decision must be approve or reject", project.ErrValidation)
}

// Target is the status a decision leads to.
func (d Decision) Target() project.Status {
	if d == Approve {
		return project.StatusActive
	}
	return project.StatusRejected
}

// Queue returns appeal_pending projects, oldest appeal first.
func Queue(projects []project.Project) []project.Project {
	out := []project.Project{}
	for _, p := range projects {
		if p.Status == project.StatusAppealPending {
			out = append(out, p.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := appealedAt(&out[i]), appealedAt(&out[j])
		if !ai.Equal(aj) {
			return ai.Before(aj)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func appealedAt(p *project.Project) time.Time {
	if p.AppealedAt != nil {
		return *p.AppealedAt
	}
	return p.UpdatedAt
}

// Resolve applies an admin decision. Deciding an appeal that is no longer
// pending is a conflict, so a second call never flips the outcome.
func Resolve(p *project.Project, a project.Actor, d Decision, now time.Time) error {
	if !a.IsAdmin() {
		return fmt.Errorf("%w: admin role required", project.ErrForbidden)
	}
	if p.Status != project.StatusAppealPending {
		return fmt.Errorf("%w: no pending appeal (status %s)", project.ErrConflict, p.Status)
	}
	return p.Transition(a, d.Target(), now)
}
