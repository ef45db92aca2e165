package project

import (
	"fmt"
	"strings"
	"time"

	"cityinit.org/internal/auth"
	"cityinit.org/internal/estimate"
)

// Wizard steps.
const (
	MinStep = 1
	MaxStep = 5
)

// Draft is an initiator's unfinished submission. Once submitted it keeps a
// reference to the project it became and leaves the draft list.
type Draft struct {
	ID           string          `json:"id"`
	InitiatorID  string          `json:"initiatorId"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Type         string          `json:"type"`
	Location     string          `json:"location"`
	Coordinates  *Coordinates    `json:"coordinates,omitempty"`
	Step         int             `json:"step"`
	Resources    estimate.Ledger `json:"resources"`
	Photos       []string        `json:"photos"`
	LastModified time.Time       `json:"lastModified"`
	ProjectID    string          `json:"projectId,omitempty"`
}

// DraftPatch carries the fields a wizard step changes; nil leaves a field as is.
type DraftPatch struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Type        *string          `json:"type,omitempty"`
	Location    *string          `json:"location,omitempty"`
	Coordinates *Coordinates     `json:"coordinates,omitempty"`
	Step        *int             `json:"step,omitempty"`
	Resources   *estimate.Ledger `json:"resources,omitempty"`
	Photos      *[]string        `json:"photos,omitempty"`
}

// Converted reports whether the draft was already submitted.
func (d *Draft) Converted() bool { return d.ProjectID != "" }

// Clone returns a deep copy.
func (d Draft) Clone() Draft {
	d.Resources = d.Resources.Clone()
	d.Photos = cloneStrings(d.Photos)
	if d.Coordinates != nil {
		c := *d.Coordinates
		d.Coordinates = &c
	}
	return d
}

// NewDraft starts a wizard session for an initiator.
func NewDraft(a Actor, id string, patch DraftPatch, now time.Time) (Draft, error) {
	if a.Role != auth.RoleInitiator {
		return Draft{}, fmt.Errorf("%w: only initiators keep drafts", ErrForbidden)
	}
	d := Draft{
		ID:           id,
		InitiatorID:  a.ID,
		Step:         MinStep,
		Resources:    estimate.Ledger{},
		Photos:       []string{},
		LastModified: now.UTC(),
	}
	if err := d.apply(patch); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// Apply merges patch into d.
func (d *Draft) Apply(patch DraftPatch, now time.Time) error {
	if d.Converted() {
		return fmt.Errorf("%w: draft was already submitted", ErrConflict)
	}
	next := d.Clone()
	if err := next.apply(patch); err != nil {
		return err
	}
	next.LastModified = now.UTC()
	*d = next
	return nil
}

func (d *Draft) apply(patch DraftPatch) error {
	if patch.Step != nil {
		if *patch.Step < MinStep || *patch.Step > MaxStep {
			return fmt.Errorf("%w: step must be between %d and %d", ErrValidation, MinStep, MaxStep)
		}
		d.Step = *patch.Step
	}
	if patch.Resources != nil {
		if err := patch.Resources.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		d.Resources = patch.Resources.Normalize()
	}
	if patch.Title != nil {
		d.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		d.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Type != nil {
		d.Type = strings.TrimSpace(*patch.Type)
	}
	if patch.Location != nil {
		d.Location = strings.TrimSpace(*patch.Location)
	}
	if patch.Coordinates != nil {
		c := *patch.Coordinates
		d.Coordinates = &c
	}
	if patch.Photos != nil {
		d.Photos = cloneStrings(*patch.Photos)
	}
	return nil
}

// MarkConverted links d to the project created from it. A draft converts once.
func (d *Draft) MarkConverted(projectID string, now time.Time) error {
	if d.Converted() {
		return fmt.Errorf("%w: draft was already submitted", ErrConflict)
	}
	d.ProjectID = projectID
	d.LastModified = now.UTC()
	return nil
}

// Submission turns the draft content into project input.
func (d *Draft) Submission() NewProject {
	in := NewProject{
		Title:       d.Title,
		Description: d.Description,
		Type:        d.Type,
		Location:    d.Location,
		Coordinates: d.Coordinates,
		Resources:   d.Resources.Clone(),
		DraftID:     d.ID,
	}
	if len(d.Photos) > 0 {
		in.Image = d.Photos[0]
	}
	return in
}
