package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cityinit.org/internal/estimate"
)

func TestJoinLifecycle(t *testing.T) {
	p := newActive()

	added, err := p.RequestJoin(citizen, t0)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{"Citizen"}, p.PendingJoinRequests)

	added, err = p.RequestJoin(citizen, t0)
	require.NoError(t, err)
	assert.False(t, added, "second request is a no-op")
	assert.Len(t, p.PendingJoinRequests, 1)

	added, err = p.RequestJoin(owner, t0)
	require.NoError(t, err)
	assert.False(t, added, "participants are not queued")

	_, err = p.RequestJoin(npo, t0)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.ErrorIs(t, p.ResolveJoin(citizen, "Citizen", true, t0), ErrForbidden)
	assert.ErrorIs(t, p.ResolveJoin(owner, "Stranger", true, t0), ErrNotFound)

	require.NoError(t, p.ResolveJoin(owner, "Citizen", true, t0))
	assert.Empty(t, p.PendingJoinRequests)
	assert.Equal(t, []string{"Owner", "Citizen"}, p.Participants)

	added, err = p.RequestJoin(citizen, t0)
	require.NoError(t, err)
	assert.False(t, added)
}

func TestRenamedInitiatorCannotJoinOwnProject(t *testing.T) {
	p := newActive()
	renamed := owner
	renamed.Name = "Owner K."

	added, err := p.RequestJoin(renamed, t0)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Empty(t, p.PendingJoinRequests)
	assert.Equal(t, []string{"Owner"}, p.Participants)
	assert.NotContains(t, Capabilities(&p, renamed), CapRequestJoin)
}

func TestJoinDecline(t *testing.T) {
	p := newActive()
	_, err := p.RequestJoin(citizen, t0)
	require.NoError(t, err)
	require.NoError(t, p.ResolveJoin(owner, "Citizen", false, t0))
	assert.Empty(t, p.PendingJoinRequests)
	assert.Equal(t, []string{"Owner"}, p.Participants)
}

func TestPartnerRequests(t *testing.T) {
	p := newActive()

	added, err := p.RequestPartnership(npo, PartnerRequest{NPOID: npo.ID, Message: " we can help "}, t0)
	require.NoError(t, err)
	assert.True(t, added)
	require.Len(t, p.PartnerRequests, 1)
	assert.Equal(t, "Blue NPO", p.PartnerRequests[0].NPOName)
	assert.Equal(t, "we can help", p.PartnerRequests[0].Message)

	added, err = p.RequestPartnership(npo, PartnerRequest{NPOID: npo.ID}, t0)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Len(t, p.PartnerRequests, 1)

	_, err = p.RequestPartnership(npo, PartnerRequest{NPOID: partner.ID}, t0)
	assert.ErrorIs(t, err, ErrForbidden, "cannot speak for another NPO")
	_, err = p.RequestPartnership(pending, PartnerRequest{}, t0)
	assert.ErrorIs(t, err, ErrForbidden, "unverified NPO")
	_, err = p.RequestPartnership(citizen, PartnerRequest{}, t0)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestBecomePartner(t *testing.T) {
	p := newActive()
	assert.ErrorIs(t, p.BecomePartner(pending, pending.ID, t0), ErrForbidden)
	assert.ErrorIs(t, p.BecomePartner(npo, partner.ID, t0), ErrForbidden)

	require.NoError(t, p.BecomePartner(partner, partner.ID, t0))
	assert.Equal(t, partner.ID, p.NPOID)
	assert.Equal(t, StatusNGOPartnered, p.Status)
	assert.Equal(t, StatusActive, p.Status.Display())

	assert.ErrorIs(t, p.BecomePartner(npo, npo.ID, t0), ErrConflict)
	assert.ErrorIs(t, p.BecomePartner(partner, partner.ID, t0), ErrConflict)
	_, err := p.RequestPartnership(npo, PartnerRequest{}, t0)
	assert.ErrorIs(t, err, ErrConflict)

	draft := withStatus(StatusRefinement)
	assert.ErrorIs(t, draft.BecomePartner(npo, npo.ID, t0), ErrConflict)
}

func TestReplaceEstimate(t *testing.T) {
	p := newActive()
	items := estimate.Ledger{
		{Name: "Paint", Quantity: 2, UnitPrice: 100},
		{Name: "Brushes", Quantity: 3, UnitPrice: 50},
	}

	assert.ErrorIs(t, p.ReplaceEstimate(citizen, items, 0, t0), ErrForbidden)
	assert.ErrorIs(t, p.ReplaceEstimate(owner, estimate.Ledger{{Name: "x", Quantity: -1}}, 0, t0), ErrValidation)
	assert.ErrorIs(t, p.ReplaceEstimate(owner, items, 300, t0), ErrValidation)

	require.NoError(t, p.ReplaceEstimate(owner, items, 0, t0))
	assert.Equal(t, 350.0, p.Budget)
	assert.Equal(t, 350.0, p.DisplayBudget())
	assert.Equal(t, p.Resources.Total(), p.Budget)

	require.NoError(t, p.BecomePartner(partner, partner.ID, t0))
	assert.ErrorIs(t, p.ReplaceEstimate(owner, items, 0, t0), ErrForbidden, "initiator loses the estimate after partnering")
	require.NoError(t, p.ReplaceEstimate(partner, items[:1], 0, t0))
	assert.Equal(t, 200.0, p.Budget)

	require.NoError(t, p.ReplaceEstimate(partner, estimate.Ledger{}, 0, t0))
	assert.Equal(t, 0.0, p.Budget)
	assert.Equal(t, 0.0, p.DisplayBudget())
}
