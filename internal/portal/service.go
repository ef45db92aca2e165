// Package portal is the application layer of the initiatives portal. It turns
// the authenticated caller into a domain actor, runs guarded mutations through
// the store's per-project serialisation, and records audit entries and metrics.
package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cityinit.org/internal/audit"
	"cityinit.org/internal/auth"
	"cityinit.org/internal/estimate"
	"cityinit.org/internal/ids"
	"cityinit.org/internal/library"
	"cityinit.org/internal/obs"
	"cityinit.org/internal/partner"
	"cityinit.org/internal/project"
)

// Store is everything the service persists.
type Store interface {
	auth.UserStore
	partner.Directory
	project.Repository
	project.DraftRepository
	Ping(ctx context.Context) error
}

// Settings are the admin-visible budget limits. Zero disables a bound.
type Settings struct {
	MinBudget float64 `json:"minBudget"`
	MaxBudget float64 `json:"maxBudget"`
}

// Service implements the portal use cases.
type Service struct {
	store        Store
	catalog      estimate.Catalog
	library      library.Library
	settings     Settings
	searchRadius float64
	now          func() time.Time
	newID        func() string
}

// Option configures Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithIDs overrides id generation.
func WithIDs(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithBudget sets the budget limits.
func WithBudget(minBudget, maxBudget float64) Option {
	return func(s *Service) {
		s.settings = Settings{MinBudget: minBudget, MaxBudget: maxBudget}
	}
}

// WithCatalog sets the resource catalog used for suggestions.
func WithCatalog(c estimate.Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

// WithLibrary sets the legal templates and knowledge base.
func WithLibrary(l library.Library) Option {
	return func(s *Service) { s.library = l }
}

// NewService wires the service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		searchRadius: project.DefaultSearchRadius,
		now:          time.Now,
		newID:        ids.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready reports whether the store answers.
func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Settings returns the budget limits.
func (s *Service) Settings(ctx context.Context) (Settings, error) {
	if _, err := auth.RequireRole(ctx, auth.RoleAdmin); err != nil {
		return Settings{}, err
	}
	return s.settings, nil
}

// Catalog lists the standard estimate lines.
func (s *Service) Catalog() estimate.Catalog {
	out := make(estimate.Catalog, len(s.catalog))
	copy(out, s.catalog)
	return out
}

// Templates lists legal templates, optionally narrowed to category. Initiators
// read them while refining a submission.
func (s *Service) Templates(ctx context.Context, category string) ([]library.Template, error) {
	if _, err := s.actor(ctx); err != nil {
		return nil, err
	}
	return s.library.TemplatesIn(category), nil
}

// KnowledgeBase lists past initiatives, optionally only those tagged tag.
func (s *Service) KnowledgeBase(ctx context.Context, tag string) ([]library.Entry, error) {
	if _, err := auth.RequireRole(ctx, auth.RoleAdmin); err != nil {
		return nil, err
	}
	return s.library.Tagged(tag), nil
}

// OnRegister creates the pending directory entry of a newly registered NPO.
func (s *Service) OnRegister(ctx context.Context, u auth.User) error {
	if u.Role != auth.RoleNPO {
		return nil
	}
	name := u.Organization
	if name == "" {
		name = u.Name
	}
	return s.store.CreateNPO(ctx, partner.NPO{
		ID:               u.ID,
		Name:             name,
		Expertise:        []string{},
		Status:           partner.StatusPending,
		RegistrationDate: u.CreatedAt,
	})
}

// actor resolves the caller. NPO verification is read from the directory on
// every call so an admin verdict applies immediately.
func (s *Service) actor(ctx context.Context) (project.Actor, error) {
	p, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return project.Actor{}, auth.ErrUnauthorized
	}
	a := project.Actor{ID: p.ID(), Name: p.User.Name, Role: p.Role()}
	if a.Role == auth.RoleNPO {
		n, err := s.store.GetNPO(ctx, a.ID)
		switch {
		case err == nil:
			a.ApprovedNPO = n.Approved()
			if n.Name != "" {
				a.Name = n.Name
			}
		case errors.Is(err, partner.ErrNotFound):
		default:
			return project.Actor{}, err
		}
	}
	return a, nil
}

func (s *Service) checkBudget(total float64) error {
	if s.settings.MaxBudget > 0 && total > s.settings.MaxBudget {
		return fmt.Errorf("%w: budget %.2f exceeds the limit of %.2f", project.ErrValidation, total, s.settings.MaxBudget)
	}
	if s.settings.MinBudget > 0 && total < s.settings.MinBudget {
		return fmt.Errorf("%w: budget %.2f is below the minimum of %.2f", project.ErrValidation, total, s.settings.MinBudget)
	}
	return nil
}

// mutate runs fn against the latest state of project id. The store serialises
// writers per project; a losing writer gets project.ErrConflict.
func (s *Service) mutate(ctx context.Context, id, op string, fn func(p *project.Project, a project.Actor, now time.Time) error) (project.View, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return project.View{}, err
	}
	var from project.Status
	p, err := s.store.UpdateProject(ctx, id, func(p *project.Project) error {
		from = p.Status
		return fn(p, a, s.now())
	})
	if err != nil {
		if errors.Is(err, project.ErrConflict) {
			obs.ObserveConflict(op)
		}
		return project.View{}, err
	}
	fields := map[string]any{"project_id": id}
	if p.Status != from {
		obs.ObserveTransition(string(from), string(p.Status))
		fields["from"] = string(from)
		fields["to"] = string(p.Status)
	}
	s.audit(ctx, "project."+op, fields)
	return project.NewView(p, a), nil
}

func (s *Service) audit(ctx context.Context, event string, fields map[string]any) {
	if err := audit.LogEvent(ctx, event, fields); err != nil {
		obs.Logger().Warn("audit failed", zap.String("event", event), zap.Error(err))
	}
}
