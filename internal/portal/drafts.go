package portal

import (
	"context"
	"fmt"
	"time"

	"cityinit.org/internal/ai"
	"cityinit.org/internal/project"
)

// Wizard steps reached by the automated stages.
const (
	stepAnalyzed  = 2
	stepResources = 3
)

// Analysis is the outcome of an AI review of a draft.
type Analysis struct {
	Draft   project.Draft  `json:"draft"`
	Passed  bool           `json:"passed"`
	AIScore float64        `json:"ai_score"`
	Similar []project.View `json:"similar"`
}

// ListDrafts returns the caller's unsubmitted drafts.
func (s *Service) ListDrafts(ctx context.Context) ([]project.Draft, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.ListDrafts(ctx, a.ID)
}

// Draft returns one of the caller's drafts, converted ones included.
func (s *Service) Draft(ctx context.Context, id string) (project.Draft, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return project.Draft{}, err
	}
	return s.store.GetDraft(ctx, a.ID, id)
}

// CreateDraft starts a wizard session.
func (s *Service) CreateDraft(ctx context.Context, patch project.DraftPatch) (project.Draft, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return project.Draft{}, err
	}
	d, err := project.NewDraft(a, s.newID(), patch, s.now())
	if err != nil {
		return project.Draft{}, err
	}
	if err := s.store.CreateDraft(ctx, d); err != nil {
		return project.Draft{}, err
	}
	s.audit(ctx, "draft.create", map[string]any{"draft_id": d.ID})
	return d, nil
}

// UpdateDraft merges a wizard step into the draft.
func (s *Service) UpdateDraft(ctx context.Context, id string, patch project.DraftPatch) (project.Draft, error) {
	return s.updateDraft(ctx, id, "draft.update", func(d *project.Draft, now time.Time) error {
		return d.Apply(patch, now)
	})
}

// DeleteDraft discards a draft.
func (s *Service) DeleteDraft(ctx context.Context, id string) error {
	a, err := s.actor(ctx)
	if err != nil {
		return err
	}
	if err := s.store.DeleteDraft(ctx, a.ID, id); err != nil {
		return err
	}
	s.audit(ctx, "draft.delete", map[string]any{"draft_id": id})
	return nil
}

// AnalyzeDraft runs the adequacy check and the duplicate scan. A failed review
// sends the wizard back to step one and returns the *ai.Failure.
func (s *Service) AnalyzeDraft(ctx context.Context, id string) (Analysis, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return Analysis{}, err
	}
	d, err := s.store.GetDraft(ctx, a.ID, id)
	if err != nil {
		return Analysis{}, err
	}
	if d.Converted() {
		return Analysis{}, fmt.Errorf("%w: draft was already submitted", project.ErrConflict)
	}
	nearby, err := s.store.ListProjects(ctx, project.Filter{})
	if err != nil {
		return Analysis{}, err
	}
	c := ai.Candidate{Draft: d, Nearby: nearby}
	runErr := ai.Analysis(s.searchRadius).Run(ctx, &c)
	if _, failed := ai.AsFailure(runErr); runErr != nil && !failed {
		return Analysis{}, runErr
	}

	d, err = s.updateDraft(ctx, id, "draft.analyze", func(d *project.Draft, now time.Time) error {
		step := d.Step
		switch {
		case runErr != nil:
			step = project.MinStep
		case step < stepAnalyzed:
			step = stepAnalyzed
		}
		return d.Apply(project.DraftPatch{Step: &step}, now)
	})
	if err != nil {
		return Analysis{}, err
	}
	if runErr != nil {
		return Analysis{Draft: d}, runErr
	}
	// Matches belong to other initiators; render them as the caller sees them.
	similar := make([]project.View, 0, len(c.Similar))
	for _, p := range c.Similar {
		similar = append(similar, project.NewView(p, a))
	}
	return Analysis{Draft: d, Passed: true, AIScore: project.DefaultAIScore, Similar: similar}, nil
}

// GenerateResources fills an empty estimate from the catalog for the draft's type.
func (s *Service) GenerateResources(ctx context.Context, id string) (project.Draft, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return project.Draft{}, err
	}
	d, err := s.store.GetDraft(ctx, a.ID, id)
	if err != nil {
		return project.Draft{}, err
	}
	c := ai.Candidate{Draft: d}
	if err := ai.Generation(s.catalog).Run(ctx, &c); err != nil {
		return project.Draft{}, err
	}
	return s.updateDraft(ctx, id, "draft.generate", func(d *project.Draft, now time.Time) error {
		step := d.Step
		if step < stepResources {
			step = stepResources
		}
		patch := project.DraftPatch{Step: &step}
		if len(d.Resources) == 0 {
			patch.Resources = &c.Suggested
		}
		return d.Apply(patch, now)
	})
}

// SubmitDraft turns the draft into a project.
func (s *Service) SubmitDraft(ctx context.Context, id string) (project.View, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return project.View{}, err
	}
	d, err := s.store.GetDraft(ctx, a.ID, id)
	if err != nil {
		return project.View{}, err
	}
	if d.Converted() {
		return project.View{}, fmt.Errorf("%w: draft was already submitted", project.ErrConflict)
	}
	return s.CreateProject(ctx, d.Submission())
}

func (s *Service) updateDraft(ctx context.Context, id, event string, fn func(d *project.Draft, now time.Time) error) (project.Draft, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return project.Draft{}, err
	}
	d, err := s.store.UpdateDraft(ctx, a.ID, id, func(d *project.Draft) error {
		return fn(d, s.now())
	})
	if err != nil {
		return project.Draft{}, err
	}
	s.audit(ctx, event, map[string]any{"draft_id": id, "step": d.Step})
	return d, nil
}
