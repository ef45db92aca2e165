package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"cityinit.org/internal/appeal"
	"cityinit.org/internal/auth"
	"cityinit.org/internal/estimate"
	"cityinit.org/internal/obs"
	"cityinit.org/internal/partner"
	"cityinit.org/internal/project"
)

// ListQuery narrows a project listing.
type ListQuery struct {
	project.Filter
	// DisplayStatus matches the rendered status, so active also returns
	// ngo_partnered projects.
	DisplayStatus project.Status
}

// ListProjects returns matching projects, newest first, rendered for the caller.
func (s *Service) ListProjects(ctx context.Context, q ListQuery) ([]project.View, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	if q.Near != nil && q.RadiusMeters <= 0 {
		q.RadiusMeters = s.searchRadius
	}
	projects, err := s.store.ListProjects(ctx, q.Filter)
	if err != nil {
		return nil, err
	}
	out := make([]project.View, 0, len(projects))
	for _, p := range projects {
		if q.DisplayStatus != "" && p.Status.Display() != q.DisplayStatus {
			continue
		}
		out = append(out, project.NewView(p, a))
	}
	return out, nil
}

// Project returns one project rendered for the caller.
func (s *Service) Project(ctx context.Context, id string) (project.View, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return project.View{}, err
	}
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return project.View{}, err
	}
	return project.NewView(p, a), nil
}

// Details returns the expanded project card.
func (s *Service) Details(ctx context.Context, id string) (project.Details, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return project.Details{}, err
	}
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return project.Details{}, err
	}
	var initiatorName, partnerName string
	if u, err := s.store.FindUser(ctx, p.InitiatorID); err == nil {
		initiatorName = u.Name
	} else if !errors.Is(err, auth.ErrNotFound) {
		return project.Details{}, err
	}
	if p.NPOID != "" {
		if n, err := s.store.GetNPO(ctx, p.NPOID); err == nil {
			partnerName = n.Name
		} else if !errors.Is(err, partner.ErrNotFound) {
			return project.Details{}, err
		}
	}
	return project.NewDetails(p, a, initiatorName, partnerName), nil
}

// CreateProject publishes a submission. When in.DraftID is set the draft is
// marked converted first so it can be turned into a project at most once.
func (s *Service) CreateProject(ctx context.Context, in project.NewProject) (project.View, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return project.View{}, err
	}
	now := s.now()
	p, err := project.New(a, s.newID(), in, now)
	if err != nil {
		return project.View{}, err
	}
	if err := s.checkBudget(p.Budget); err != nil {
		return project.View{}, err
	}

	if p.DraftID != "" {
		_, err := s.store.UpdateDraft(ctx, a.ID, p.DraftID, func(d *project.Draft) error {
			return d.MarkConverted(p.ID, now)
		})
		if err != nil {
			if errors.Is(err, project.ErrConflict) {
				obs.ObserveConflict("create")
			}
			return project.View{}, err
		}
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		if p.DraftID != "" {
			s.releaseDraft(ctx, a.ID, p.DraftID, p.ID)
		}
		return project.View{}, err
	}
	obs.ObserveTransition("", string(p.Status))
	s.audit(ctx, "project.create", map[string]any{"project_id": p.ID, "status": string(p.Status), "draft_id": p.DraftID})
	return project.NewView(p, a), nil
}

// releaseDraft undoes MarkConverted after the project insert failed.
func (s *Service) releaseDraft(ctx context.Context, ownerID, draftID, projectID string) {
	_, err := s.store.UpdateDraft(ctx, ownerID, draftID, func(d *project.Draft) error {
		if d.ProjectID == projectID {
			d.ProjectID = ""
		}
		return nil
	})
	if err != nil {
		obs.Logger().Warn("draft release failed",
			zap.String("draft_id", draftID),
			zap.String("project_id", projectID),
			zap.Error(err),
		)
	}
}

// StatusChange is the body of a status transition request.
type StatusChange struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// ChangeStatus applies a transition. Leaving appeal_pending goes through the
// same adjudication rules as ResolveAppeal.
func (s *Service) ChangeStatus(ctx context.Context, id string, req StatusChange) (project.View, error) {
	to, err := project.ParseStatus(req.Status)
	if err != nil {
		return project.View{}, err
	}
	return s.mutate(ctx, id, "status", func(p *project.Project, a project.Actor, now time.Time) error {
		switch {
		case p.Status == project.StatusAppealPending && (to == project.StatusActive || to == project.StatusRejected):
			d := appeal.Approve
			if to == project.StatusRejected {
				d = appeal.Reject
			}
			return appeal.Resolve(p, a, d, now)
		case to == project.StatusRejected:
			return p.Reject(a, req.Reason, now)
		case to == project.StatusDraft:
			return p.ReturnToDraft(a, req.Reason, now)
		case to == project.StatusAppealPending:
			return p.FileAppeal(a, req.Reason, now)
		default:
			return p.Transition(a, to, now)
		}
	})
}

// ReplaceEstimate overwrites the estimate and recomputes the budget.
func (s *Service) ReplaceEstimate(ctx context.Context, id string, items estimate.Ledger) (project.View, error) {
	return s.mutate(ctx, id, "estimate", func(p *project.Project, a project.Actor, now time.Time) error {
		return p.ReplaceEstimate(a, items, s.settings.MaxBudget, now)
	})
}

// RequestJoin queues the caller. The bool is false when nothing changed.
func (s *Service) RequestJoin(ctx context.Context, id string) (project.View, bool, error) {
	var added bool
	v, err := s.mutate(ctx, id, "join", func(p *project.Project, a project.Actor, now time.Time) error {
		var err error
		added, err = p.RequestJoin(a, now)
		return err
	})
	return v, added, err
}

// ParseJoinAction accepts approve and reject.
func ParseJoinAction(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approve":
		return true, nil
	case "reject":
		return false, nil
	}
	return false, fmt.Errorf("%w: action must be approve or reject", project.ErrValidation)
}

// ResolveJoin approves or rejects a pending join request.
func (s *Service) ResolveJoin(ctx context.Context, id, name, action string) (project.View, error) {
	approve, err := ParseJoinAction(action)
	if err != nil {
		return project.View{}, err
	}
	return s.mutate(ctx, id, "join_resolve", func(p *project.Project, a project.Actor, now time.Time) error {
		return p.ResolveJoin(a, name, approve, now)
	})
}

// RequestPartnership records an NPO's advisory offer.
func (s *Service) RequestPartnership(ctx context.Context, id string, req project.PartnerRequest) (project.View, error) {
	return s.mutate(ctx, id, "partner_request", func(p *project.Project, a project.Actor, now time.Time) error {
		_, err := p.RequestPartnership(a, req, now)
		return err
	})
}

// BecomePartner binds the calling NPO. Exactly one concurrent caller wins.
func (s *Service) BecomePartner(ctx context.Context, id, npoID string) (project.View, error) {
	return s.mutate(ctx, id, "partner", func(p *project.Project, a project.Actor, now time.Time) error {
		return p.BecomePartner(a, npoID, now)
	})
}

// FileAppeal contests a rejection on behalf of the initiator.
func (s *Service) FileAppeal(ctx context.Context, id, reason string) (project.View, error) {
	return s.mutate(ctx, id, "appeal_file", func(p *project.Project, a project.Actor, now time.Time) error {
		return p.FileAppeal(a, reason, now)
	})
}

// ResolveAppeal is the admin decision on a pending appeal.
func (s *Service) ResolveAppeal(ctx context.Context, id, action string) (project.View, error) {
	d, err := appeal.ParseDecision(action)
	if err != nil {
		return project.View{}, err
	}
	return s.mutate(ctx, id, "appeal_resolve", func(p *project.Project, a project.Actor, now time.Time) error {
		return appeal.Resolve(p, a, d, now)
	})
}

// AppealQueue lists pending appeals, oldest first. Admins only.
func (s *Service) AppealQueue(ctx context.Context) ([]project.View, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	if !a.IsAdmin() {
		return nil, fmt.Errorf("%w: admin role required", project.ErrForbidden)
	}
	projects, err := s.store.ListProjects(ctx, project.Filter{Status: project.StatusAppealPending})
	if err != nil {
		return nil, err
	}
	queue := appeal.Queue(projects)
	out := make([]project.View, 0, len(queue))
	for _, p := range queue {
		out = append(out, project.NewView(p, a))
	}
	return out, nil
}
