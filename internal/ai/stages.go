package ai

import (
	"context"
	"strings"

	"golang.org/x/text/cases"

	"cityinit.org/internal/estimate"
	"cityinit.org/internal/project"
)

// Adequacy fails descriptions that are too short to analyse.
type Adequacy struct{}

func (Adequacy) Name() string { return "adequacy" }

func (Adequacy) Run(_ context.Context, c *Candidate) error {
	if project.CheckAdequacy(c.Draft.Description) != nil {
		return &Failure{Stage: "adequacy", Reason: project.AdequacyReason}
	}
	return nil
}

// DuplicateScan flags nearby projects with a similar title. It never fails;
// the result is advisory.
type DuplicateScan struct {
	RadiusMeters float64
}

func (DuplicateScan) Name() string { return "duplicate_scan" }

func (s DuplicateScan) Run(_ context.Context, c *Candidate) error {
	fold := cases.Fold()
	title := fold.String(strings.TrimSpace(c.Draft.Title))
	if title == "" {
		return nil
	}
	for _, p := range c.Nearby {
		if c.Draft.Coordinates != nil && s.RadiusMeters > 0 && !p.Coordinates.IsZero() {
			if project.Distance(*c.Draft.Coordinates, p.Coordinates) > s.RadiusMeters {
				continue
			}
		}
		other := fold.String(strings.TrimSpace(p.Title))
		if other == "" {
			continue
		}
		if other == title || strings.Contains(other, title) || strings.Contains(title, other) {
			c.Similar = append(c.Similar, p.Clone())
		}
	}
	return nil
}

// ResourceSuggestion proposes catalog items for the draft's project type when
// the draft has no estimate yet.
type ResourceSuggestion struct {
	Catalog estimate.Catalog
}

func (ResourceSuggestion) Name() string { return "resource_suggestion" }

func (s ResourceSuggestion) Run(_ context.Context, c *Candidate) error {
	if len(c.Draft.Resources) > 0 {
		c.Suggested = c.Draft.Resources.Clone()
		return nil
	}
	var out estimate.Ledger
	for _, e := range s.Catalog.ForType(c.Draft.Type) {
		out = append(out, e.Item(1))
	}
	c.Suggested = out.Normalize()
	return nil
}
