// Package ai runs the automated review a submission goes through before it is
// published: adequacy, duplicate scan and resource suggestions.
package ai

import (
	"context"
	"errors"
	"fmt"

	"cityinit.org/internal/estimate"
	"cityinit.org/internal/project"
)

// Candidate is the submission under review plus what the stages learn about it.
type Candidate struct {
	Draft project.Draft
	// Nearby holds published projects the duplicate scan compares against.
	Nearby []project.Project

	Similar   []project.Project
	Suggested estimate.Ledger
}

// Stage is one review step.
type Stage interface {
	Name() string
	Run(ctx context.Context, c *Candidate) error
}

// Failure is a negative review outcome that sends the submission back to the wizard.
type Failure struct {
	Stage  string
	Reason string
}

func (f *Failure) Error() string { return fmt.Sprintf("%s: %s", f.Stage, f.Reason) }

// Is lets callers match failures against project.ErrValidation.
func (f *Failure) Is(target error) bool { return target == project.ErrValidation }

// AsFailure extracts a review failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Pipeline runs stages in order, stopping at the first failure.
type Pipeline struct {
	Stages []Stage
}

// Run executes every stage against c.
func (p Pipeline) Run(ctx context.Context, c *Candidate) error {
	for _, s := range p.Stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Run(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// Analysis is the pipeline run when the wizard asks for an AI review.
func Analysis(radiusMeters float64) Pipeline {
	return Pipeline{Stages: []Stage{
		Adequacy{},
		DuplicateScan{RadiusMeters: radiusMeters},
	}}
}

// Generation is the pipeline that proposes resources for a draft.
func Generation(catalog estimate.Catalog) Pipeline {
	return Pipeline{Stages: []Stage{
		Adequacy{},
		ResourceSuggestion{Catalog: catalog},
	}}
}
