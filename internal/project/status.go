package project

import (
	"fmt"
	"strings"
)

// Status is a lifecycle stage of a project.
type Status string

const (
	StatusDraft              Status = "draft"
	StatusAIScoring          Status = "ai_scoring"
	StatusDuplicateCheck     Status = "duplicate_check"
	StatusResourceGeneration Status = "resource_generation"
	StatusRefinement         Status = "refinement"
	StatusActive             Status = "active"
	StatusNGOPartnered       Status = "ngo_partnered"
	StatusSuccess            Status = "success"
	StatusRejected           Status = "rejected"
	StatusAppealPending      Status = "appeal_pending"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusDraft,
	StatusAIScoring,
	StatusDuplicateCheck,
	StatusResourceGeneration,
	StatusRefinement,
	StatusActive,
	StatusNGOPartnered,
	StatusSuccess,
	StatusRejected,
	StatusAppealPending,
}

// pipeline is the forward path a submission walks before going public.
var pipeline = []Status{
	StatusDraft,
	StatusAIScoring,
	StatusDuplicateCheck,
	StatusResourceGeneration,
	StatusRefinement,
	StatusActive,
}

// ParseStatus accepts any letter case; legacy clients send upper case.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if s.Valid() {
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool { return s == StatusSuccess }

// PreActive reports whether s is a pipeline stage before publication.
func (s Status) PreActive() bool {
	for _, p := range pipeline[:len(pipeline)-1] {
		if s == p {
			return true
		}
	}
	return false
}

// Public reports whether the project is visible as a live initiative.
func (s Status) Public() bool {
	return s == StatusActive || s == StatusNGOPartnered
}

// Display maps ngo_partnered to active; clients render both the same way.
func (s Status) Display() Status {
	if s == StatusNGOPartnered {
		return StatusActive
	}
	return s
}
