package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cityinit.org/internal/estimate"
	"cityinit.org/internal/project"
)

func TestAdequacyFailure(t *testing.T) {
	c := &Candidate{Draft: project.Draft{Title: "Bench", Description: "x"}}
	err := Analysis(500).Run(context.Background(), c)
	require.Error(t, err)
	assert.ErrorIs(t, err, project.ErrValidation)

	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, "adequacy", f.Stage)
	assert.Equal(t, project.AdequacyReason, f.Reason)
}

func TestDuplicateScan(t *testing.T) {
	here := project.Coordinates{Lat: 56.8389, Lng: 60.6057}
	c := &Candidate{
		Draft: project.Draft{Title: "Riverbank CLEANUP", Description: "Collect litter", Coordinates: &here},
		Nearby: []project.Project{
			{ID: "same", Title: "riverbank cleanup", Coordinates: project.Coordinates{Lat: 56.8390, Lng: 60.6058}},
			{ID: "far", Title: "Riverbank cleanup", Coordinates: project.Coordinates{Lat: 57.5, Lng: 61}},
			{ID: "longer", Title: "Big riverbank cleanup day", Coordinates: here},
			{ID: "unrelated", Title: "Mural", Coordinates: here},
		},
	}
	require.NoError(t, Analysis(500).Run(context.Background(), c))

	var ids []string
	for _, p := range c.Similar {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"same", "longer"}, ids)
}

func TestResourceSuggestion(t *testing.T) {
	catalog, err := estimate.DefaultCatalog()
	require.NoError(t, err)

	c := &Candidate{Draft: project.Draft{Title: "Trees", Description: "Plant trees", Type: "ecology"}}
	require.NoError(t, Generation(catalog).Run(context.Background(), c))
	require.NotEmpty(t, c.Suggested)
	for _, it := range c.Suggested {
		assert.NotEmpty(t, it.ID)
		assert.Equal(t, 1.0, it.Quantity)
	}

	own := estimate.Ledger{{ID: "x", Name: "Shovels", Quantity: 5, UnitPrice: 800}}
	c = &Candidate{Draft: project.Draft{Description: "Plant trees", Type: "ecology", Resources: own}}
	require.NoError(t, Generation(catalog).Run(context.Background(), c))
	assert.Equal(t, own, c.Suggested)
}

type stageFunc func(ctx context.Context, c *Candidate) error

func (f stageFunc) Name() string                                { return "func" }
func (f stageFunc) Run(ctx context.Context, c *Candidate) error { return f(ctx, c) }

func TestPipelineStopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	ran := 0
	p := Pipeline{Stages: []Stage{
		stageFunc(func(context.Context, *Candidate) error { ran++; return boom }),
		stageFunc(func(context.Context, *Candidate) error { ran++; return nil }),
	}}
	assert.ErrorIs(t, p.Run(context.Background(), &Candidate{}), boom)
	assert.Equal(t, 1, ran)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Run(ctx, &Candidate{}), context.Canceled)
}
