package partner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"cityinit.org/internal/project"
)

// ErrNotFound is returned for unknown NPO ids.
var ErrNotFound = fmt.Errorf("npo %w", project.ErrNotFound)

// Status is the verification state of an NPO.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseVerdict accepts the admin decisions approved and rejected.
func ParseVerdict(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusApproved, StatusRejected:
		return s, nil
	}
	return "", fmt.Errorf("%w: status must be approved or rejected", project.ErrValidation)
}

// NPO is a directory entry. Its id is the id of the NPO's user account.
type NPO struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Expertise        []string  `json:"expertise"`
	Rating           float64   `json:"rating"`
	Avatar           string    `json:"avatar"`
	ActiveProjects   int       `json:"activeProjects"`
	PendingRequests  int       `json:"pendingRequests"`
	Status           Status    `json:"status"`
	RegistrationDate time.Time `json:"registrationDate"`
	Description      string    `json:"description"`
}

// Approved reports whether the NPO passed verification.
func (n NPO) Approved() bool { return n.Status == StatusApproved }

// Directory persists NPO entries.
type Directory interface {
	CreateNPO(ctx context.Context, n NPO) error
	GetNPO(ctx context.Context, id string) (NPO, error)
	ListNPOs(ctx context.Context) ([]NPO, error)
	UpdateNPO(ctx context.Context, id string, fn func(*NPO) error) (NPO, error)
}

// Visible filters the directory for a caller. Admins see every entry; others
// only approved ones.
func Visible(npos []NPO, admin bool) []NPO {
	if admin {
		return npos
	}
	out := make([]NPO, 0, len(npos))
	for _, n := range npos {
		if n.Approved() {
			out = append(out, n)
		}
	}
	return out
}

// WithCounters fills ActiveProjects and PendingRequests from projects.
func WithCounters(npos []NPO, projects []project.Project) []NPO {
	active := make(map[string]int)
	requests := make(map[string]int)
	for i := range projects {
		p := &projects[i]
		if p.NPOID != "" && p.Status.Public() {
			active[p.NPOID]++
		}
		if p.NPOID == "" {
			for _, r := range p.PartnerRequests {
				requests[r.NPOID]++
			}
		}
	}
	out := make([]NPO, len(npos))
	for i, n := range npos {
		n.ActiveProjects = active[n.ID]
		n.PendingRequests = requests[n.ID]
		out[i] = n
	}
	return out
}

// Opportunity is a project an NPO may take on.
type Opportunity struct {
	project.Project
	// Direct is set when the NPO already asked to partner on the project.
	Direct bool `json:"direct"`
}

// Eligible reports whether p belongs on npoID's worklist: no partner yet and
// either live or already asked about by npoID.
func Eligible(p *project.Project, npoID string) bool {
	if p.NPOID != "" || p.Status.Terminal() {
		return false
	}
	return p.Status == project.StatusActive || p.HasPartnerRequest(npoID)
}

// Worklist returns npoID's opportunities, direct requests first, newest first.
func Worklist(npoID string, projects []project.Project) []Opportunity {
	out := []Opportunity{}
	for i := range projects {
		p := &projects[i]
		if !Eligible(p, npoID) {
			continue
		}
		out = append(out, Opportunity{Project: p.Clone(), Direct: p.HasPartnerRequest(npoID)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Direct != out[j].Direct {
			return out[i].Direct
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Recommend ranks approved NPOs for p: matching expertise first, then rating.
func Recommend(p *project.Project, npos []NPO, limit int) []NPO {
	fold := cases.Fold()
	kind := fold.String(strings.TrimSpace(p.Type))

	type scored struct {
		npo   NPO
		match bool
	}
	var ranked []scored
	for _, n := range npos {
		if !n.Approved() {
			continue
		}
		match := false
		for _, e := range n.Expertise {
			if kind != "" && fold.String(strings.TrimSpace(e)) == kind {
				match = true
				break
			}
		}
		ranked = append(ranked, scored{npo: n, match: match})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.match != b.match {
			return a.match
		}
		if a.npo.Rating != b.npo.Rating {
			return a.npo.Rating > b.npo.Rating
		}
		return a.npo.Name < b.npo.Name
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]NPO, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, s.npo)
	}
	return out
}
