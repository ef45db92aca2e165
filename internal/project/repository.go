package project

import "context"

// Filter narrows project listings. Zero fields match everything.
type Filter struct {
	InitiatorID string
	NPOID       string
	Status      Status
	// Near with RadiusMeters > 0 keeps projects within the radius.
	Near         *Coordinates
	RadiusMeters float64
}

// Match reports whether p passes the filter.
func (f Filter) Match(p *Project) bool {
	if f.InitiatorID != "" && p.InitiatorID != f.InitiatorID {
		return false
	}
	if f.NPOID != "" && p.NPOID != f.NPOID {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Near != nil && f.RadiusMeters > 0 && Distance(*f.Near, p.Coordinates) > f.RadiusMeters {
		return false
	}
	return true
}

// Repository persists projects. UpdateProject serialises read-modify-write per
// project: fn runs against the latest stored state and nothing is written
// when it returns an error.
type Repository interface {
	CreateProject(ctx context.Context, p Project) error
	GetProject(ctx context.Context, id string) (Project, error)
	ListProjects(ctx context.Context, f Filter) ([]Project, error)
	UpdateProject(ctx context.Context, id string, fn func(*Project) error) (Project, error)
}

// DraftRepository persists drafts scoped to their owner. Drafts of other
// initiators are reported as ErrNotFound.
type DraftRepository interface {
	CreateDraft(ctx context.Context, d Draft) error
	GetDraft(ctx context.Context, ownerID, id string) (Draft, error)
	// ListDrafts omits converted drafts.
	ListDrafts(ctx context.Context, ownerID string) ([]Draft, error)
	UpdateDraft(ctx context.Context, ownerID, id string, fn func(*Draft) error) (Draft, error)
	DeleteDraft(ctx context.Context, ownerID, id string) error
}
