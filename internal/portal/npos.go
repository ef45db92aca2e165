package portal

import (
	"context"
	"fmt"

	"cityinit.org/internal/auth"
	"cityinit.org/internal/partner"
	"cityinit.org/internal/project"
)

// ListNPOs returns the directory with derived counters. Only admins see
// unverified entries.
func (s *Service) ListNPOs(ctx context.Context) ([]partner.NPO, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	npos, err := s.store.ListNPOs(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := s.store.ListProjects(ctx, project.Filter{})
	if err != nil {
		return nil, err
	}
	return partner.WithCounters(partner.Visible(npos, a.IsAdmin()), projects), nil
}

// VerifyNPO records the admin verdict on an NPO.
func (s *Service) VerifyNPO(ctx context.Context, id, status string) (partner.NPO, error) {
	if _, err := auth.RequireRole(ctx, auth.RoleAdmin); err != nil {
		return partner.NPO{}, err
	}
	verdict, err := partner.ParseVerdict(status)
	if err != nil {
		return partner.NPO{}, err
	}
	var prev partner.Status
	n, err := s.store.UpdateNPO(ctx, id, func(n *partner.NPO) error {
		prev = n.Status
		n.Status = verdict
		return nil
	})
	if err != nil {
		return partner.NPO{}, err
	}
	s.audit(ctx, "npo.verify", map[string]any{"npo_id": id, "from": string(prev), "to": string(verdict)})
	return n, nil
}

// Opportunities is the calling NPO's worklist.
func (s *Service) Opportunities(ctx context.Context) ([]partner.Opportunity, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	if a.Role != auth.RoleNPO {
		return nil, fmt.Errorf("%w: NPO role required", project.ErrForbidden)
	}
	projects, err := s.store.ListProjects(ctx, project.Filter{})
	if err != nil {
		return nil, err
	}
	out := partner.Worklist(a.ID, projects)
	for i := range out {
		out[i].Project = project.NewView(out[i].Project, a).Project
	}
	return out, nil
}

// RecommendedPartners ranks approved NPOs for a project. limit <= 0 means all.
func (s *Service) RecommendedPartners(ctx context.Context, id string, limit int) ([]partner.NPO, error) {
	if _, err := s.actor(ctx); err != nil {
		return nil, err
	}
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	npos, err := s.store.ListNPOs(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := s.store.ListProjects(ctx, project.Filter{})
	if err != nil {
		return nil, err
	}
	return partner.Recommend(&p, partner.WithCounters(npos, projects), limit), nil
}
