// Package memory keeps all portal state in process. It backs development runs
// and tests; every read hands out deep copies.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"cityinit.org/internal/auth"
	"cityinit.org/internal/partner"
	"cityinit.org/internal/project"
)

// Store implements the user, NPO, project and draft repositories.
type Store struct {
	mu       sync.RWMutex
	users    map[string]auth.User
	emails   map[string]string // email -> user id
	npos     map[string]partner.NPO
	projects map[string]project.Project
	drafts   map[string]project.Draft
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:    make(map[string]auth.User),
		emails:   make(map[string]string),
		npos:     make(map[string]partner.NPO),
		projects: make(map[string]project.Project),
		drafts:   make(map[string]project.Draft),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// --- users ---

func (s *Store) CreateUser(_ context.Context, u auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, ok := s.emails[key]; ok {
		return auth.ErrAlreadyExists
	}
	if _, ok := s.users[u.ID]; ok {
		return auth.ErrAlreadyExists
	}
	s.users[u.ID] = u
	s.emails[key] = u.ID
	return nil
}

func (s *Store) FindUser(_ context.Context, id string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return auth.User{}, auth.ErrNotFound
	}
	return u, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return auth.User{}, auth.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) UpdateUser(_ context.Context, id string, fn func(*auth.User) error) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return auth.User{}, auth.ErrNotFound
	}
	if err := fn(&u); err != nil {
		return auth.User{}, err
	}
	s.users[id] = u
	return u, nil
}

// --- npos ---

func (s *Store) CreateNPO(_ context.Context, n partner.NPO) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.npos[n.ID]; ok {
		return project.ErrConflict
	}
	s.npos[n.ID] = cloneNPO(n)
	return nil
}

func (s *Store) GetNPO(_ context.Context, id string) (partner.NPO, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.npos[id]
	if !ok {
		return partner.NPO{}, partner.ErrNotFound
	}
	return cloneNPO(n), nil
}

func (s *Store) ListNPOs(context.Context) ([]partner.NPO, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]partner.NPO, 0, len(s.npos))
	for _, n := range s.npos {
		out = append(out, cloneNPO(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateNPO(_ context.Context, id string, fn func(*partner.NPO) error) (partner.NPO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.npos[id]
	if !ok {
		return partner.NPO{}, partner.ErrNotFound
	}
	n = cloneNPO(n)
	if err := fn(&n); err != nil {
		return partner.NPO{}, err
	}
	s.npos[id] = n
	return cloneNPO(n), nil
}

func cloneNPO(n partner.NPO) partner.NPO {
	if n.Expertise != nil {
		n.Expertise = append([]string(nil), n.Expertise...)
	}
	return n
}

// --- projects ---

func (s *Store) CreateProject(_ context.Context, p project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; ok {
		return project.ErrConflict
	}
	s.projects[p.ID] = p.Clone()
	return nil
}

func (s *Store) GetProject(_ context.Context, id string) (project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return project.Project{}, project.ErrNotFound
	}
	return p.Clone(), nil
}

// ListProjects returns matches newest first.
func (s *Store) ListProjects(_ context.Context, f project.Filter) ([]project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []project.Project{}
	for _, p := range s.projects {
		if f.Match(&p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// UpdateProject runs fn under the store's write lock.
func (s *Store) UpdateProject(_ context.Context, id string, fn func(*project.Project) error) (project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.projects[id]
	if !ok {
		return project.Project{}, project.ErrNotFound
	}
	next := cur.Clone()
	if err := fn(&next); err != nil {
		return project.Project{}, err
	}
	s.projects[id] = next
	return next.Clone(), nil
}

// --- drafts ---

func (s *Store) CreateDraft(_ context.Context, d project.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[d.ID]; ok {
		return project.ErrConflict
	}
	s.drafts[d.ID] = d.Clone()
	return nil
}

func (s *Store) GetDraft(_ context.Context, ownerID, id string) (project.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[id]
	if !ok || d.InitiatorID != ownerID {
		return project.Draft{}, project.ErrNotFound
	}
	return d.Clone(), nil
}

// ListDrafts returns the owner's open drafts, most recently edited first.
func (s *Store) ListDrafts(_ context.Context, ownerID string) ([]project.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []project.Draft{}
	for _, d := range s.drafts {
		if d.InitiatorID == ownerID && !d.Converted() {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastModified.Equal(out[j].LastModified) {
			return out[i].LastModified.After(out[j].LastModified)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateDraft(_ context.Context, ownerID, id string, fn func(*project.Draft) error) (project.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[id]
	if !ok || d.InitiatorID != ownerID {
		return project.Draft{}, project.ErrNotFound
	}
	next := d.Clone()
	if err := fn(&next); err != nil {
		return project.Draft{}, err
	}
	s.drafts[id] = next
	return next.Clone(), nil
}

func (s *Store) DeleteDraft(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[id]
	if !ok || d.InitiatorID != ownerID {
		return project.ErrNotFound
	}
	delete(s.drafts, id)
	return nil
}
