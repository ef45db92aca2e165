package project

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"cityinit.org/internal/auth"
	"cityinit.org/internal/estimate"
)

const (
	// MinDescriptionLength is the shortest description the adequacy check accepts.
	MinDescriptionLength = 2

	DefaultAIScore      = 100
	DefaultSearchRadius = 500
)

// AdequacyReason is returned to the wizard when a description is too short.
var AdequacyReason = fmt.Sprintf("description is too short for AI analysis (minimum %d characters)", MinDescriptionLength)

// PartnerRequest is an NPO's offer to take over a project.
type PartnerRequest struct {
	NPOID   string    `json:"npoId"`
	NPOName string    `json:"npoName"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sentAt"`
}

// Project is a civic initiative tracked through its lifecycle.
type Project struct {
	ID                  string           `json:"id"`
	Title               string           `json:"title"`
	Description         string           `json:"description"`
	Type                string           `json:"type"`
	Location            string           `json:"location"`
	Coordinates         Coordinates      `json:"coordinates"`
	Image               string           `json:"image"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
	Status              Status           `json:"status"`
	InitiatorID         string           `json:"initiatorId"`
	NPOID               string           `json:"npoId,omitempty"`
	Budget              float64          `json:"budget"`
	Resources           estimate.Ledger  `json:"resources"`
	Participants        []string         `json:"participants"`
	PendingJoinRequests []string         `json:"pendingJoinRequests"`
	PartnerRequests     []PartnerRequest `json:"ngoPartnerRequests"`
	DraftID             string           `json:"draftId,omitempty"`
	AIScore             float64          `json:"ai_score"`
	RejectionReason     string           `json:"rejection_reason,omitempty"`
	SearchRadius        int              `json:"search_radius"`
	AppealedAt          *time.Time       `json:"appealedAt,omitempty"`
	AppealReason        string           `json:"appealReason,omitempty"`
	AppealDenied        bool             `json:"appealDenied,omitempty"`
	Version             int64            `json:"version"`
}

// DisplayBudget is the stored budget when positive, otherwise the estimate total.
func (p *Project) DisplayBudget() float64 {
	return estimate.DisplayBudget(p.Budget, p.Resources)
}

// IsParticipant reports whether name already takes part.
func (p *Project) IsParticipant(name string) bool {
	return contains(p.Participants, name)
}

// HasPendingJoin reports whether name waits for the initiator's decision.
func (p *Project) HasPendingJoin(name string) bool {
	return contains(p.PendingJoinRequests, name)
}

// HasPartnerRequest reports whether npoID already asked to partner.
func (p *Project) HasPartnerRequest(npoID string) bool {
	for _, r := range p.PartnerRequests {
		if r.NPOID == npoID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so stores can hand out values safely.
func (p Project) Clone() Project {
	p.Resources = p.Resources.Clone()
	p.Participants = cloneStrings(p.Participants)
	p.PendingJoinRequests = cloneStrings(p.PendingJoinRequests)
	if p.PartnerRequests != nil {
		reqs := make([]PartnerRequest, len(p.PartnerRequests))
		copy(reqs, p.PartnerRequests)
		p.PartnerRequests = reqs
	}
	if p.AppealedAt != nil {
		t := *p.AppealedAt
		p.AppealedAt = &t
	}
	return p
}

func (p *Project) touch(now time.Time) {
	p.UpdatedAt = now.UTC()
	p.Version++
}

// Actor is the caller as seen by the lifecycle rules.
type Actor struct {
	ID   string
	Name string
	Role auth.Role
	// ApprovedNPO is set when Role is npo and the directory entry is approved.
	ApprovedNPO bool
}

// IsAdmin reports whether the actor administers the portal.
func (a Actor) IsAdmin() bool { return a.Role == auth.RoleAdmin }

// Owns reports whether the actor initiated p.
func (a Actor) Owns(p *Project) bool {
	return a.Role == auth.RoleInitiator && a.ID != "" && a.ID == p.InitiatorID
}

// Partners reports whether the actor is the NPO bound to p.
func (a Actor) Partners(p *Project) bool {
	return a.Role == auth.RoleNPO && p.NPOID != "" && a.ID == p.NPOID
}

// NewProject is the input of project creation.
type NewProject struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Type         string          `json:"type"`
	Location     string          `json:"location"`
	Coordinates  *Coordinates    `json:"coordinates,omitempty"`
	Image        string          `json:"image"`
	Status       string          `json:"status,omitempty"`
	Budget       float64         `json:"budget"`
	Resources    estimate.Ledger `json:"resources"`
	DraftID      string          `json:"draftId,omitempty"`
	SearchRadius int             `json:"search_radius,omitempty"`
	AIScore      *float64        `json:"ai_score,omitempty"`
}

// CheckAdequacy rejects descriptions too short to analyse.
func CheckAdequacy(description string) error {
	if utf8.RuneCountInString(strings.TrimSpace(description)) < MinDescriptionLength {
		return fmt.Errorf("%w: %s", ErrValidation, AdequacyReason)
	}
	return nil
}

// New validates in and builds a project owned by a. Only initiators create projects.
func New(a Actor, id string, in NewProject, now time.Time) (Project, error) {
	if a.Role != auth.RoleInitiator {
		return Project{}, fmt.Errorf("%w: only initiators create projects", ErrForbidden)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Project{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if err := CheckAdequacy(in.Description); err != nil {
		return Project{}, err
	}

	status := StatusActive
	if strings.TrimSpace(in.Status) != "" {
		s, err := ParseStatus(in.Status)
		if err != nil {
			return Project{}, err
		}
		if !s.PreActive() && s != StatusActive {
			return Project{}, fmt.Errorf("%w: a new project cannot start as %s", ErrValidation, s)
		}
		status = s
	}

	if err := in.Resources.Validate(); err != nil {
		return Project{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if in.Budget < 0 {
		return Project{}, fmt.Errorf("%w: budget must be >= 0", ErrValidation)
	}
	resources := in.Resources.Normalize()
	budget := resources.Total()
	if budget == 0 {
		budget = in.Budget
	}

	p := Project{
		ID:                  id,
		Title:               title,
		Description:         strings.TrimSpace(in.Description),
		Type:                strings.TrimSpace(in.Type),
		Location:            strings.TrimSpace(in.Location),
		Image:               strings.TrimSpace(in.Image),
		CreatedAt:           now.UTC(),
		UpdatedAt:           now.UTC(),
		Status:              status,
		InitiatorID:         a.ID,
		Budget:              budget,
		Resources:           resources,
		Participants:        []string{a.Name},
		PendingJoinRequests: []string{},
		PartnerRequests:     []PartnerRequest{},
		DraftID:             strings.TrimSpace(in.DraftID),
		AIScore:             DefaultAIScore,
		SearchRadius:        DefaultSearchRadius,
		Version:             1,
	}
	if in.Coordinates != nil {
		p.Coordinates = *in.Coordinates
	}
	if in.SearchRadius > 0 {
		p.SearchRadius = in.SearchRadius
	}
	if in.AIScore != nil {
		p.AIScore = *in.AIScore
	}
	return p, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
