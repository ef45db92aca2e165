package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cityinit.org/internal/auth"
	"cityinit.org/internal/partner"
	"cityinit.org/internal/project"
)

var t0 = time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)

func TestUsers(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := auth.User{ID: "u1", Email: "a@b.org", Role: auth.RoleInitiator, Name: "A"}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.ErrorIs(t, s.CreateUser(ctx, auth.User{ID: "u2", Email: "A@B.org"}), auth.ErrAlreadyExists)

	got, err := s.FindUserByEmail(ctx, "a@b.org")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	_, err = s.FindUser(ctx, "ghost")
	assert.ErrorIs(t, err, auth.ErrNotFound)

	updated, err := s.UpdateUser(ctx, "u1", func(u *auth.User) error { u.Bio = "hi"; return nil })
	require.NoError(t, err)
	assert.Equal(t, "hi", updated.Bio)
}

func TestUpdateProjectDiscardsOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateProject(ctx, project.Project{ID: "p1", Status: project.StatusActive, Participants: []string{"A"}}))
	assert.ErrorIs(t, s.CreateProject(ctx, project.Project{ID: "p1"}), project.ErrConflict)

	boom := errors.New("boom")
	_, err := s.UpdateProject(ctx, "p1", func(p *project.Project) error {
		p.Participants = append(p.Participants, "B")
		p.Status = project.StatusSuccess
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, project.StatusActive, got.Status)
	assert.Equal(t, []string{"A"}, got.Participants)

	got.Participants[0] = "mutated"
	again, _ := s.GetProject(ctx, "p1")
	assert.Equal(t, "A", again.Participants[0])

	_, err = s.UpdateProject(ctx, "nope", func(*project.Project) error { return nil })
	assert.ErrorIs(t, err, project.ErrNotFound)
}

func TestListProjects(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateProject(ctx, project.Project{ID: "a", InitiatorID: "u1", Status: project.StatusActive, CreatedAt: t0}))
	require.NoError(t, s.CreateProject(ctx, project.Project{ID: "b", InitiatorID: "u2", Status: project.StatusActive, CreatedAt: t0.Add(time.Hour)}))
	require.NoError(t, s.CreateProject(ctx, project.Project{ID: "c", InitiatorID: "u1", Status: project.StatusRejected, CreatedAt: t0}))

	all, err := s.ListProjects(ctx, project.Filter{})
	require.NoError(t, err)
	assert.Equal(t, "b", all[0].ID)
	assert.Len(t, all, 3)

	mine, err := s.ListProjects(ctx, project.Filter{InitiatorID: "u1", Status: project.StatusActive})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "a", mine[0].ID)
}

func TestDraftsAreOwnerScoped(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateDraft(ctx, project.Draft{ID: "d1", InitiatorID: "u1", Step: 1, LastModified: t0}))
	require.NoError(t, s.CreateDraft(ctx, project.Draft{ID: "d2", InitiatorID: "u1", Step: 1, LastModified: t0, ProjectID: "p9"}))

	_, err := s.GetDraft(ctx, "u2", "d1")
	assert.ErrorIs(t, err, project.ErrNotFound)
	assert.ErrorIs(t, s.DeleteDraft(ctx, "u2", "d1"), project.ErrNotFound)

	list, err := s.ListDrafts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1, "converted drafts are hidden")
	assert.Equal(t, "d1", list[0].ID)

	require.NoError(t, s.DeleteDraft(ctx, "u1", "d1"))
	_, err = s.GetDraft(ctx, "u1", "d1")
	assert.ErrorIs(t, err, project.ErrNotFound)
}

func TestNPOs(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateNPO(ctx, partner.NPO{ID: "n1", Name: "Green", Status: partner.StatusPending, Expertise: []string{"ecology"}}))

	n, err := s.UpdateNPO(ctx, "n1", func(n *partner.NPO) error { n.Status = partner.StatusApproved; return nil })
	require.NoError(t, err)
	assert.True(t, n.Approved())

	_, err = s.GetNPO(ctx, "n2")
	assert.ErrorIs(t, err, partner.ErrNotFound)
	assert.ErrorIs(t, err, project.ErrNotFound)

	list, err := s.ListNPOs(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	list[0].Expertise[0] = "mutated"
	again, _ := s.GetNPO(ctx, "n1")
	assert.Equal(t, "ecology", again.Expertise[0])
}
