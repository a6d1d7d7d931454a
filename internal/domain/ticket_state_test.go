package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/did4510/Nexon/pkg/util/errorutil"
)

func TestNextStateFollowsTable(t *testing.T) {
	cases := []struct {
		from   TicketState
		action TicketAction
		to     TicketState
	}{
		{TicketStateOpen, ActionClaim, TicketStateClaimed},
		{TicketStateClaimed, ActionSetPending, TicketStatePending},
		{TicketStateClaimed, ActionTransfer, TicketStateClaimed},
		{TicketStateClaimed, ActionResolve, TicketStateResolved},
		{TicketStatePending, ActionResume, TicketStateClaimed},
		{TicketStatePending, ActionTransfer, TicketStatePending},
		{TicketStatePending, ActionResolve, TicketStateResolved},
		{TicketStateResolved, ActionClose, TicketStateClosed},
		{TicketStateClosed, ActionReopen, TicketStateOpen},
	}
	for _, tc := range cases {
		ticket := &Ticket{State: tc.from}
		next, err := ticket.NextState(tc.action)
		require.NoError(t, err, "%s/%s", tc.from, tc.action)
		assert.Equal(t, tc.to, next)
		assert.True(t, CanApply(tc.from, tc.action))
	}
}

func TestNextStateRejectsEveryOtherPair(t *testing.T) {
	staff := "alice"
	for _, state := range AllTicketStates {
		for _, action := range AllTicketActions {
			if CanApply(state, action) {
				continue
			}
			ticket := &Ticket{ID: 7, State: state}
			if state.HoldsAssignment() {
				ticket.AssignedStaff = &staff
			}
			before := ticket.Clone()

			next, err := ticket.NextState(action)
			require.Error(t, err, "%s/%s", state, action)
			assert.Equal(t, state, next)
			assert.Equal(t, before, ticket, "ticket must be unchanged")

			if action == ActionClaim && state.HoldsAssignment() {
				assert.True(t, errors.Is(err, apperrors.ErrAlreadyClaimed))
				continue
			}
			assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
			domainErr := apperrors.ToDomainError(err)
			assert.Equal(t, string(state), domainErr.Details["current_state"])
			assert.Equal(t, string(action), domainErr.Details["attempted"])
		}
	}
}

func TestAssignmentHoldingStates(t *testing.T) {
	assert.False(t, TicketStateOpen.HoldsAssignment())
	assert.True(t, TicketStateResolved.HoldsAssignment())
	assert.False(t, TicketStateResolved.CountsTowardWorkload())
	assert.True(t, TicketStatePending.CountsTowardWorkload())
	assert.False(t, TicketStateClosed.HoldsAssignment())
}

func TestTicketCloneIsDeep(t *testing.T) {
	staff := "alice"
	paused := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	window := time.Hour
	original := &Ticket{
		AssignedStaff: &staff,
		Policy:        &SLAPolicy{CategoryID: "billing", ReopenWindow: &window},
		LinkedTickets: []int64{2},
		Timers:        []SLATimer{{ID: "t1", PausedAt: &paused}},
	}

	clone := original.Clone()
	*clone.AssignedStaff = "bob"
	*clone.Policy.ReopenWindow = time.Minute
	clone.LinkedTickets[0] = 9
	*clone.Timers[0].PausedAt = paused.Add(time.Hour)

	assert.Equal(t, "alice", *original.AssignedStaff)
	assert.Equal(t, time.Hour, *original.Policy.ReopenWindow)
	assert.Equal(t, int64(2), original.LinkedTickets[0])
	assert.Equal(t, paused, *original.Timers[0].PausedAt)
}

func TestNewTicketLinkNormalizesOrder(t *testing.T) {
	assert.Equal(t, NewTicketLink(3, 8), NewTicketLink(8, 3))
	assert.Equal(t, int64(3), NewTicketLink(8, 3).A)
}
