package project

import (
	"cityinit.org/internal/auth"
	"cityinit.org/internal/estimate"
)

// Capability names an action the caller may take on a project right now.
type Capability string

const (
	CapAdvance             Capability = "advance"
	CapEditEstimate        Capability = "edit_estimate"
	CapRequestJoin         Capability = "request_join"
	CapResolveJoinRequests Capability = "resolve_join_requests"
	CapRequestPartnership  Capability = "request_partnership"
	CapBecomePartner       Capability = "become_partner"
	CapMarkSuccess         Capability = "mark_success"
	CapFileAppeal          Capability = "file_appeal"
	CapResolveAppeal       Capability = "resolve_appeal"
	CapReject              Capability = "reject"
)

// Capabilities derives the caller's permitted actions from the same guards the
// mutations use, so the two never disagree.
func Capabilities(p *Project, a Actor) []Capability {
	caps := []Capability{}
	add := func(c Capability, err error) {
		if err == nil {
			caps = append(caps, c)
		}
	}
	if next, ok := nextPipelineStatus(p.Status); ok {
		add(CapAdvance, checkTransition(p, a, next))
	}
	add(CapEditEstimate, canEditEstimate(p, a))
	if canRequestJoin(p, a) == nil && !p.IsParticipant(a.Name) && !p.HasPendingJoin(a.Name) {
		caps = append(caps, CapRequestJoin)
	}
	if canResolveJoin(p, a) == nil && len(p.PendingJoinRequests) > 0 {
		caps = append(caps, CapResolveJoinRequests)
	}
	if canRequestPartnership(p, a) == nil && !p.HasPartnerRequest(a.ID) {
		caps = append(caps, CapRequestPartnership)
	}
	add(CapBecomePartner, canBecomePartner(p, a))
	add(CapMarkSuccess, checkTransition(p, a, StatusSuccess))
	add(CapFileAppeal, checkTransition(p, a, StatusAppealPending))
	if p.Status == StatusAppealPending {
		add(CapResolveAppeal, checkTransition(p, a, StatusActive))
	} else {
		add(CapReject, checkTransition(p, a, StatusRejected))
	}
	return caps
}

func nextPipelineStatus(s Status) (Status, bool) {
	for i := 0; i+1 < len(pipeline); i++ {
		if pipeline[i] == s {
			return pipeline[i+1], true
		}
	}
	return "", false
}

// View is a project as rendered for one caller.
type View struct {
	Project
	DisplayStatus Status       `json:"displayStatus"`
	DisplayBudget float64      `json:"displayBudget"`
	Capabilities  []Capability `json:"capabilities"`
}

// NewView renders p for a. Partner requests are shown in full to the initiator
// and admins; an NPO sees only its own request; everyone else sees none.
func NewView(p Project, a Actor) View {
	p = p.Clone()
	switch {
	case a.Owns(&p) || a.IsAdmin():
	case a.Role == auth.RoleNPO:
		own := []PartnerRequest{}
		for _, r := range p.PartnerRequests {
			if r.NPOID == a.ID {
				own = append(own, r)
			}
		}
		p.PartnerRequests = own
	default:
		p.PartnerRequests = []PartnerRequest{}
	}
	normalizeSlices(&p)
	return View{
		Project:       p,
		DisplayStatus: p.Status.Display(),
		DisplayBudget: p.DisplayBudget(),
		Capabilities:  Capabilities(&p, a),
	}
}

func normalizeSlices(p *Project) {
	if p.Resources == nil {
		p.Resources = []estimate.Item{}
	}
	if p.Participants == nil {
		p.Participants = []string{}
	}
	if p.PendingJoinRequests == nil {
		p.PendingJoinRequests = []string{}
	}
	if p.PartnerRequests == nil {
		p.PartnerRequests = []PartnerRequest{}
	}
}
