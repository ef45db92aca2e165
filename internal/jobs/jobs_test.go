package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cityinit.org/internal/project"
	"cityinit.org/internal/store/memory"
)

func TestRefreshGaugesCountsEveryStatus(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	for id, st := range map[string]project.Status{
		"a": project.StatusActive,
		"b": project.StatusActive,
		"c": project.StatusAppealPending,
		"d": project.StatusNGOPartnered,
	} {
		require.NoError(t, s.CreateProject(ctx, project.Project{ID: id, Status: st}))
	}

	snap, err := RefreshGauges(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.ByStatus["active"])
	assert.Equal(t, 1, snap.ByStatus["ngo_partnered"])
	assert.Equal(t, 0, snap.ByStatus["success"], "statuses without projects are reported as zero")
	assert.Len(t, snap.ByStatus, len(project.Statuses))
	assert.Equal(t, 1, snap.Appeals)
}

type failingLister struct{}

func (failingLister) ListProjects(context.Context, project.Filter) ([]project.Project, error) {
	return nil, errors.New("db down")
}

func TestRefreshGaugesPropagatesErrors(t *testing.T) {
	_, err := RefreshGauges(context.Background(), failingLister{})
	assert.ErrorContains(t, err, "db down")
}

type countingLister struct{ calls atomic.Int32 }

func (c *countingLister) ListProjects(context.Context, project.Filter) ([]project.Project, error) {
	c.calls.Add(1)
	return nil, nil
}

func TestManagerRunsJobsImmediately(t *testing.T) {
	lister := &countingLister{}
	var pings atomic.Int32
	m, err := NewManager(time.Hour, lister, func(context.Context) error {
		pings.Add(1)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, m.Start())
	t.Cleanup(func() { _ = m.Stop() })

	require.Eventually(t, func() bool {
		return lister.calls.Load() >= 1 && pings.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}
