package project

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cityinit.org/internal/auth"
)

func TestCapabilityMatrix(t *testing.T) {
	actors := []struct {
		name  string
		actor Actor
	}{
		{"owner", owner},
		{"citizen", citizen},
		{"npo", npo},
		{"admin", admin},
		{"partner", partner},
	}

	var buf bytes.Buffer
	for _, s := range Statuses {
		p := withStatus(s)
		for _, a := range actors {
			if a.name == "partner" && p.NPOID == "" {
				continue
			}
			caps := Capabilities(&p, a.actor)
			names := make([]string, 0, len(caps))
			for _, c := range caps {
				names = append(names, string(c))
			}
			line := strings.Join(names, ",")
			if line == "" {
				line = "-"
			}
			fmt.Fprintf(&buf, "%s %s: %s\n", s, a.name, line)
		}
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "capabilities", buf.Bytes())
}

func TestViewPartnerRequestVisibility(t *testing.T) {
	p := newActive()
	_, err := p.RequestPartnership(npo, PartnerRequest{NPOID: npo.ID}, t0)
	assert.NoError(t, err)
	_, err = p.RequestPartnership(partner, PartnerRequest{NPOID: partner.ID}, t0)
	assert.NoError(t, err)

	assert.Len(t, NewView(p, owner).PartnerRequests, 2)
	assert.Len(t, NewView(p, admin).PartnerRequests, 2)
	own := NewView(p, npo).PartnerRequests
	if assert.Len(t, own, 1) {
		assert.Equal(t, npo.ID, own[0].NPOID)
	}
	assert.Empty(t, NewView(p, citizen).PartnerRequests)
	assert.Len(t, p.PartnerRequests, 2, "view must not mutate the project")
}

func TestViewDisplayFields(t *testing.T) {
	p := withStatus(StatusNGOPartnered)
	p.Budget = 0
	v := NewView(p, citizen)
	assert.Equal(t, StatusActive, v.DisplayStatus)
	assert.Equal(t, StatusNGOPartnered, v.Status)
	assert.Equal(t, p.Resources.Total(), v.DisplayBudget)

	d := NewDetails(p, partner, owner.Name, "Green NPO")
	assert.Equal(t, 1, d.ParticipantCount)
	assert.Equal(t, 2, d.ResourceCount)
	assert.Equal(t, "Green NPO", d.Partner)
	assert.Contains(t, d.Capabilities, CapMarkSuccess)
	assert.Equal(t, "In progress", d.Stage)
	assert.Equal(t, 75, d.Progress)
	assert.Equal(t, BudgetSummary{Spent: 0, Remaining: d.DisplayBudget, Total: d.DisplayBudget}, d.BudgetSummary)
	require.Len(t, d.Collaborators, 2)
	assert.Equal(t, Collaborator{ID: partner.ID, Name: "Green NPO", Role: auth.RoleNPO}, d.Collaborators[1])
}

func TestDetailsBudgetSpentOnSuccess(t *testing.T) {
	p := withStatus(StatusSuccess)
	p.Image = "/static/uploads/cover.png"
	p.Participants = append(p.Participants, "Boris")
	d := NewDetails(p, citizen, owner.Name, "")
	assert.Equal(t, 100, d.Progress)
	assert.Empty(t, d.NextMilestone)
	assert.Equal(t, d.BudgetSummary.Total, d.BudgetSummary.Spent)
	assert.Zero(t, d.BudgetSummary.Remaining)
	assert.Equal(t, []string{"/static/uploads/cover.png"}, d.Documents)
	assert.Len(t, d.Collaborators, 3)
}

func TestEveryStatusHasStageInfo(t *testing.T) {
	for _, s := range Statuses {
		_, ok := stages[s]
		assert.True(t, ok, s)
	}
}
