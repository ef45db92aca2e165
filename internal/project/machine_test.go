package project

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineWalk(t *testing.T) {
	p := newActive()
	p.Status = StatusDraft
	for _, next := range []Status{StatusAIScoring, StatusDuplicateCheck, StatusResourceGeneration, StatusRefinement, StatusActive} {
		require.NoError(t, p.Transition(owner, next, t0), "to %s", next)
		assert.Equal(t, next, p.Status)
	}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from  Status
		to    Status
		actor Actor
		want  error
	}{
		{StatusDraft, StatusAIScoring, owner, nil},
		{StatusDraft, StatusAIScoring, admin, nil},
		{StatusDraft, StatusAIScoring, citizen, ErrForbidden},
		{StatusDraft, StatusActive, owner, ErrConflict},
		{StatusAIScoring, StatusDraft, owner, nil},
		{StatusDuplicateCheck, StatusDraft, owner, nil},
		{StatusResourceGeneration, StatusDraft, owner, ErrConflict},
		{StatusRefinement, StatusRejected, admin, nil},
		{StatusRefinement, StatusRejected, owner, ErrForbidden},
		{StatusActive, StatusRejected, admin, nil},
		{StatusActive, StatusAppealPending, owner, ErrConflict},
		{StatusActive, StatusSuccess, owner, ErrForbidden},
		{StatusActive, StatusNGOPartnered, partner, ErrConflict},
		{StatusNGOPartnered, StatusSuccess, partner, nil},
		{StatusNGOPartnered, StatusSuccess, npo, ErrForbidden},
		{StatusNGOPartnered, StatusRejected, admin, ErrConflict},
		{StatusRejected, StatusAppealPending, owner, nil},
		{StatusRejected, StatusAppealPending, citizen, ErrForbidden},
		{StatusRejected, StatusActive, admin, ErrConflict},
		{StatusAppealPending, StatusActive, admin, nil},
		{StatusAppealPending, StatusRejected, admin, nil},
		{StatusAppealPending, StatusActive, owner, ErrForbidden},
		{StatusAppealPending, StatusAppealPending, owner, ErrConflict},
		{StatusActive, Status("bogus"), admin, ErrValidation},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			p := withStatus(tc.from)
			if tc.from == StatusActive && tc.to == StatusSuccess {
				p.NPOID = ""
			}
			before := p.Clone()
			err := p.Transition(tc.actor, tc.to, t0.Add(time.Hour))
			if tc.want == nil {
				require.NoError(t, err)
				assert.Equal(t, tc.to, p.Status)
				assert.Equal(t, before.Version+1, p.Version)
				return
			}
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, before, p, "state must not change on error")
		})
	}
}

func TestSuccessIsTerminal(t *testing.T) {
	p := withStatus(StatusSuccess)
	for _, to := range Statuses {
		for _, a := range []Actor{owner, partner, admin} {
			err := p.Transition(a, to, t0)
			assert.Error(t, err, "%s by %s", to, a.ID)
		}
	}

	_, err := p.RequestJoin(citizen, t0)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = p.RequestPartnership(npo, PartnerRequest{NPOID: npo.ID}, t0)
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, p.BecomePartner(npo, npo.ID, t0), ErrConflict)
	assert.ErrorIs(t, p.ReplaceEstimate(partner, nil, 0, t0), ErrConflict)
	assert.ErrorIs(t, p.ReplaceEstimate(owner, nil, 0, t0), ErrForbidden)
	assert.Equal(t, StatusSuccess, p.Status)
}

func TestAppealRoundTrip(t *testing.T) {
	p := newActive()
	require.NoError(t, p.Reject(admin, "duplicate of p-0", t0))
	assert.Equal(t, "duplicate of p-0", p.RejectionReason)

	appealAt := t0.Add(time.Hour)
	require.NoError(t, p.FileAppeal(owner, "not a duplicate", appealAt))
	assert.Equal(t, StatusAppealPending, p.Status)
	require.NotNil(t, p.AppealedAt)
	assert.Equal(t, appealAt, *p.AppealedAt)
	assert.Equal(t, "not a duplicate", p.AppealReason)

	require.NoError(t, p.Transition(admin, StatusRejected, t0.Add(2*time.Hour)))
	assert.True(t, p.AppealDenied)

	err := p.FileAppeal(owner, "again", t0.Add(3*time.Hour))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAppealApprovedClearsRejection(t *testing.T) {
	p := newActive()
	require.NoError(t, p.Reject(admin, "spam", t0))
	require.NoError(t, p.FileAppeal(owner, "", t0))
	require.NoError(t, p.Transition(admin, StatusActive, t0))
	assert.Equal(t, StatusActive, p.Status)
	assert.Empty(t, p.RejectionReason)
	assert.False(t, p.AppealDenied)
}

func TestReturnToDraft(t *testing.T) {
	p := withStatus(StatusAIScoring)
	require.NoError(t, p.ReturnToDraft(owner, AdequacyReason, t0))
	assert.Equal(t, StatusDraft, p.Status)
	assert.Equal(t, AdequacyReason, p.RejectionReason)
}

func TestAllowed(t *testing.T) {
	p := withStatus(StatusAppealPending)
	assert.True(t, Allowed(&p, admin, StatusActive))
	assert.False(t, Allowed(&p, owner, StatusActive))
}
