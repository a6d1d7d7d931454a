package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/did4510/Nexon/internal/config"
	"github.com/did4510/Nexon/internal/domain"
	apperrors "github.com/did4510/Nexon/pkg/util/errorutil"
)

func TestCreateTicketStartsResponseTimer(t *testing.T) {
	h := newHarness(t, config.SLAConfig{})
	h.policy("billing", 30*time.Minute, 4*time.Hour)

	ticket := h.create("billing")

	assert.Equal(t, domain.TicketStateOpen, ticket.State)
	assert.Equal(t, int64(1), ticket.Number)
	assert.True(t, ticket.PolicyApplied)
	require.Len(t, ticket.Timers, 1)
	timer := ticket.Timers[0]
	assert.Equal(t, domain.TimerKindResponse, timer.Kind)
	assert.Equal(t, t0.Add(24*time.Minute), timer.WarningAt)
	assert.Equal(t, t0.Add(30*time.Minute), timer.Deadline)
	assert.Equal(t, []domain.TicketEventKind{domain.EventCreated}, h.eventKinds(ticket.ID))

	second := h.create("billing")
	assert.Equal(t, int64(2), second.Number)
}

func TestCreateTicketWithoutPolicyWarns(t *testing.T) {
	h := newHarness(t, config.SLAConfig{})

	created, err := h.tickets.CreateTicket(h.ctx, CreateTicketInput{GuildID: guild, CategoryID: "general", CreatorID: "user-1"})
	require.NoError(t, err)
	require.Len(t, created.Warnings, 1)
	assert.ErrorIs(t, created.Warnings[0], apperrors.ErrPolicyNotFound)
	assert.False(t, created.Ticket.PolicyApplied)
	assert.Empty(t, created.Ticket.Timers)

	stored := h.load(created.Ticket.ID)
	assert.Equal(t, domain.TicketStateOpen, stored.State)
	assert.Equal(t, domain.TicketPriorityMedium, stored.Priority)
}

func TestCreateTicketValidatesInput(t *testing.T) {
	h := newHarness(t, config.SLAConfig{})

	_, err := h.tickets.CreateTicket(h.ctx, CreateTicketInput{GuildID: guild, CreatorID: "user-1"})
	assert.Equal(t, apperrors.CodeValidation, apperrors.Code(err))

	_, err = h.tickets.CreateTicket(h.ctx, CreateTicketInput{GuildID: guild, CategoryID: "billing", CreatorID: "user-1", Priority: "urgent"})
	assert.Equal(t, apperrors.CodeValidation, apperrors.Code(err))
}

func TestClaimStopsResponseTimerAndCountsWorkload(t *testing.T) {
	h := newHarness(t, config.SLAConfig{})
	h.policy("billing", 30*time.Minute, 4*time.Hour)
	h.member("alice", true, "billing")
	ticket := h.create("billing")

	h.clock.Advance(10 * time.Minute)
	claimed, err := h.tickets.Claim(h.ctx, ticket.ID, "alice")
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStateClaimed, claimed.State)
	assert.Equal(t, "alice", claimed.Assignee())
	assert.Nil(t, claimed.ActiveTimer(domain.TimerKindResponse))
	resolution := claimed.ActiveTimer(domain.TimerKindResolution)
	require.NotNil(t, resolution)
	assert.Equal(t, t0.Add(10*time.Minute+4*time.Hour), resolution.Deadline)
	assert.Equal(t, 1, h.activeCount("alice"))

	event := h.lastEvent(ticket.ID, domain.EventClaimed)
	assert.Equal(t, 10*time.Minute, event.Elapsed)
	assert.Equal(t, "alice", event.StaffID)
	assert.Equal(t, "billing", event.CategoryID)

	_, err = h.tickets.Claim(h.ctx, ticket.ID, "alice")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyClaimed)
	assert.Equal(t, 1, h.activeCount("alice"))
}

func TestClaimRequiresOnDutyStaff(t *testing.T) {
	h := newHarness(t, config.SLAConfig{})
	h.policy("billing", 30*time.Minute, 4*time.Hour)
	h.member("bob", false)
	ticket := h.create("billing")

	_, err := h.tickets.Claim(h.ctx, ticket.ID, "bob")
	assert.ErrorIs(t, err, apperrors.ErrStaffOffDuty)

	_, err = h.tickets.Claim(h.ctx, ticket.ID, "nobody")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	stored := h.load(ticket.ID)
	assert.Equal(t, domain.TicketStateOpen, stored.State)
	assert.Equal(t, ticket.Version, stored.Version)
	assert.Equal(t, 0, h.activeCount("bob"))
}

func TestClaimRejectsStaffFromAnotherGuild(t *testing.T) {
	h := newHarness(t, config.SLAConfig{})
	onDuty := true
	_, err := h.staff.UpsertStaff(h.ctx, StaffInput{ID: "mallory", GuildID: "other", OnDuty: &onDuty})
	require.NoError(t, err)
	ticket := h.create("billing")

	_, err = h.tickets.Claim(h.ctx, ticket.ID, "mallory")
	assert.Equal(t, apperrors.CodeForbidden, apperrors.Code(err))
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	h := newHarness(t, config.SLAConfig{})
	h.policy("billing", 30*time.Minute, 4*time.Hour)
	const contenders = 8
	for i := 0; i < contenders; i++ {
		h.member(fmt.Sprintf("staff-%d", i), true)
	}
	ticket := h.create("billing")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		claimed int
	)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := h.tickets.Claim(h.ctx, ticket.ID, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case apperrors.Code(err) == apperrors.CodeAlreadyClaimed:
				claimed++
			}
		}(fmt.Sprintf("staff-%d", i))
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, contenders-1, claimed)

	total := 0
	for i := 0; i < contenders; i++ {
		total += h.activeCount(fmt.Sprintf("staff-%d", i))
	}
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, countKind(h.eventKinds(ticket.ID), domain.EventClaimed))
}

func TestTransferMovesWorkload(t *testing.T) {
	h := newHarness(t, config.SLAConfig{})
	h.policy("billing", 30*time.Minute, 4*time.Hour)
	h.member("alice", true)
	h.member("bob", true)
	ticket := h.create("billing")
	_, err := h.tickets.Claim(h.ctx, ticket.ID, "alice")
	require.NoError(t, err)

	moved, err := h.tickets.Transfer(h.ctx, ticket.ID, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateClaimed, moved.State)
	assert.Equal(t, "bob", moved.Assignee())
	assert.Equal(t, 0, h.activeCount("alice"))
	assert.Equal(t, 1, h.activeCount("bob"))

	event := h.lastEvent(ticket.ID, domain.EventTransferred)
	assert.Equal(t, "bob", event.StaffID)
	assert.Equal(t, "alice", event.Detail)

	_, err = h.tickets.Transfer(h.ctx, ticket.ID, "bob", "alice")
	assert.Equal(t, apperrors.CodeConflict, apperrors.Code(err))
	assert.Equal(t, 1, h.activeCount("bob"))
}

func TestTransferOfOpenTicketIsRejected(t *testing.T) {
	h := newHarness(t, config.SLAConfig{})
	h.member("bob", true)
	ticket := h.create("billing")

	_, err := h.tickets.Transfer(h.ctx, ticket.ID, "bob", "bob")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Equal(t, 0, h.activeCount("bob"))
}

func TestPendingPausesResolutionTimerWhenConfigured(t *testing.T) {
	h := newHarness(t, config.SLAConfig{PauseOnPending: true})
	h.policy("billing", 30*time.Minute, 4*time.Hour)
	h.member("alice", true)
	ticket := h.create("billing")
	_, err := h.tickets.Claim(h.ctx, ticket.ID, "alice")
	require.NoError(t, err)

	h.clock.Advance(time.Hour)
	pending, err := h.tickets.SetPending(h.ctx, ticket.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatePending, pending.State)
	require.NotNil(t, pending.ActiveTimer(domain.TimerKindResolution))
	assert.True(t, pending.ActiveTimer(domain.TimerKindResolution).Paused())
	assert.Equal(t, 1, h.activeCount("alice"))

	h.clock.Advance(2 * time.Hour)
	resumed, err := h.tickets.Resume(h.ctx, ticket.ID, "alice")
	require.NoError(t, err)
	timer := resumed.ActiveTimer(domain.TimerKindResolution)
	require.NotNil(t, timer)
	assert.False(t, timer.Paused())
	assert.Equal(t, 2*time.Hour, timer.PausedFor)
	assert.Equal(t, t0.Add(6*time.Hour), timer.Deadline)

	h.clock.Advance(30 * time.Minute)
	_, err = h.tickets.Resolve(h.ctx, ticket.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, h.lastEvent(ticket.ID, domain.EventResolved).Elapsed)
}

func TestPendingKeepsTimerRunningByDefault(t *testing.T) {
	h := newHarness(t, config.SLAConfig{})
	h.policy("billing", 30*time.Minute, 4*time.Hour)
	h.member("alice", true)
	ticket := h.create("billing")
	_, err := h.tickets.Claim(h.ctx, ticket.ID, "alice")
	require.NoError(t, err)

	pending, err := h.tickets.SetPending(h.ctx, ticket.ID, "alice")
	require.NoError(t, err)
	timer := pending.ActiveTimer(domain.TimerKindResolution)
	require.NotNil(t, timer)
	assert.False(t, timer.Paused())
}

func TestResolveCloseReopenStartsFreshTimer(t *testing.T) {
	h := newHarness(t, config.SLAConfig{ReopenWindow: durationPtr(24 * time.Hour)})
	h.policy("billing", 30*time.Minute, 4*time.Hour)
	h.member("alice", true)
	ticket := h.create("billing")
	_, err := h.tickets.Claim(h.ctx, ticket.ID, "alice")
	require.NoError(t, err)

	resolved, err := h.tickets.Resolve(h.ctx, ticket.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateResolved, resolved.State)
	assert.Equal(t, "alice", resolved.Assignee())
	assert.Equal(t, 0, h.activeCount("alice"))

	closed, err := h.tickets.Close(h.ctx, ticket.ID, "alice", " fixed ")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateClosed, closed.State)
	assert.Nil(t, closed.AssignedStaff)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, "fixed", closed.ClosureReason)
	for _, timer := range closed.Timers {
		assert.True(t, timer.Stopped)
	}
	assert.Equal(t, "alice", h.lastEvent(ticket.ID, domain.EventClosed).StaffID)

	now := h.clock.Advance(time.Hour)
	reopened, err := h.tickets.Reopen(h.ctx, ticket.ID, "user-1", false)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateOpen, reopened.State)
	assert.Nil(t, reopened.ClosedAt)
	require.Len(t, reopened.Timers, 3)
	fresh := reopened.ActiveTimer(domain.TimerKindResponse)
	require.NotNil(t, fresh)
	assert.Equal(t, now, fresh.StartedAt)
	assert.Equal(t, now.Add(30*time.Minute), fresh.Deadline)
	assert.True(t, reopened.Timers[0].Stopped)
	assert.True(t, reopened.Timers[1].Stopped)
	assert.Equal(t, 0, h.activeCount("alice"))
}

func TestReopenOutsideWindowNeedsStaffOverride(t *testing.T) {
	h := newHarness(t, config.SLAConfig{ReopenWindow: durationPtr(time.Hour)})
	h.policy("billing", 30*time.Minute, 4*time.Hour)
	h.member("alice", true)
	ticket := h.create("billing")
	_, err := h.tickets.Claim(h.ctx, ticket.ID, "alice")
	require.NoError(t, err)
	_, err = h.tickets.Resolve(h.ctx, ticket.ID, "alice")
	require.NoError(t, err)
	_, err = h.tickets.Close(h.ctx, ticket.ID, "alice", "")
	require.NoError(t, err)

	h.clock.Advance(2 * time.Hour)
	_, err = h.tickets.Reopen(h.ctx, ticket.ID, "user-1", false)
	assert.ErrorIs(t, err, apperrors.ErrReopenWindowExpired)

	_, err = h.tickets.Reopen(h.ctx, ticket.ID, "user-1", true)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.Code(err))
	assert.Equal(t, domain.TicketStateClosed, h.load(ticket.ID).State)

	reopened, err := h.tickets.Reopen(h.ctx, ticket.ID, "alice", true)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateOpen, reopened.State)
	assert.Equal(t, "override", h.lastEvent(ticket.ID, domain.EventReopened).Detail)
}

func TestReopenWithoutWindowRequiresOverride(t *testing.T) {
	h := newHarness(t, config.SLAConfig{})
	h.member("alice", true)
	ticket := h.create("general")
	_, err := h.tickets.Claim(h.ctx, ticket.ID, "alice")
	require.NoError(t, err)
	_, err = h.tickets.Resolve(h.ctx, ticket.ID, "alice")
	require.NoError(t, err)
	_, err = h.tickets.Close(h.ctx, ticket.ID, "alice", "")
	require.NoError(t, err)

	_, err = h.tickets.Reopen(h.ctx, ticket.ID, "user-1", false)
	assert.ErrorIs(t, err, apperrors.ErrReopenWindowExpired)
}

func TestInvalidTransitionLeavesTicketUntouched(t *testing.T) {
	h := newHarness(t, config.SLAConfig{})
	h.policy("billing", 30*time.Minute, 4*time.Hour)
	ticket := h.create("billing")

	_, err := h.tickets.Resolve(h.ctx, ticket.ID, "alice")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	_, err = h.tickets.Close(h.ctx, ticket.ID, "alice", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	_, err = h.tickets.SetPending(h.ctx, ticket.ID, "alice")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	stored := h.load(ticket.ID)
	assert.Equal(t, ticket.Version, stored.Version)
	assert.Equal(t, domain.TicketStateOpen, stored.State)
	assert.False(t, stored.Timers[0].Stopped)
	assert.Equal(t, []domain.TicketEventKind{domain.EventCreated}, h.eventKinds(ticket.ID))
}

// ticketIn drives a fresh billing ticket into state with alice as the assignee.
func (h *harness) ticketIn(state domain.TicketState) *domain.Ticket {
	h.t.Helper()
	ticket := h.create("billing")
	if state != domain.TicketStateOpen {
		_, err := h.tickets.Claim(h.ctx, ticket.ID, "alice")
		require.NoError(h.t, err)
	}
	if state == domain.TicketStatePending {
		_, err := h.tickets.SetPending(h.ctx, ticket.ID, "alice")
		require.NoError(h.t, err)
	}
	if state == domain.TicketStateResolved || state == domain.TicketStateClosed {
		_, err := h.tickets.Resolve(h.ctx, ticket.ID, "alice")
		require.NoError(h.t, err)
	}
	if state == domain.TicketStateClosed {
		_, err := h.tickets.Close(h.ctx, ticket.ID, "alice", "done")
		require.NoError(h.t, err)
	}
	loaded := h.load(ticket.ID)
	require.Equal(h.t, state, loaded.State)
	return loaded
}

func (h *harness) apply(ticketID int64, action domain.TicketAction) error {
	var err error
	switch action {
	case domain.ActionClaim:
		_, err = h.tickets.Claim(h.ctx, ticketID, "bob")
	case domain.ActionSetPending:
		_, err = h.tickets.SetPending(h.ctx, ticketID, "alice")
	case domain.ActionResume:
		_, err = h.tickets.Resume(h.ctx, ticketID, "alice")
	case domain.ActionTransfer:
		_, err = h.tickets.Transfer(h.ctx, ticketID, "bob", "alice")
	case domain.ActionResolve:
		_, err = h.tickets.Resolve(h.ctx, ticketID, "alice")
	case domain.ActionClose:
		_, err = h.tickets.Close(h.ctx, ticketID, "alice", "done")
	case domain.ActionReopen:
		_, err = h.tickets.Reopen(h.ctx, ticketID, "alice", true)
	default:
		h.t.Fatalf("unknown action %s", action)
	}
	return err
}

func TestEveryRejectedActionLeavesTicketUntouched(t *testing.T) {
	states := []domain.TicketState{
		domain.TicketStateOpen,
		domain.TicketStateClaimed,
		domain.TicketStatePending,
		domain.TicketStateResolved,
		domain.TicketStateClosed,
	}
	for _, state := range states {
		for _, action := range domain.AllTicketActions {
			if domain.CanApply(state, action) {
				continue
			}
			t.Run(fmt.Sprintf("%s/%s", state, action), func(t *testing.T) {
				h := newHarness(t, config.SLAConfig{PauseOnPending: true})
				h.policy("billing", 30*time.Minute, 4*time.Hour)
				h.member("alice", true)
				h.member("bob", true)
				before := h.ticketIn(state)
				kinds := h.eventKinds(before.ID)
				aliceLoad, bobLoad := h.activeCount("alice"), h.activeCount("bob")
				h.clock.Advance(time.Minute)

				err := h.apply(before.ID, action)
				if action == domain.ActionClaim && state.HoldsAssignment() {
					assert.ErrorIs(t, err, apperrors.ErrAlreadyClaimed)
				} else {
					assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
				}

				after := h.load(before.ID)
				assert.Equal(t, before, after)
				assert.Equal(t, kinds, h.eventKinds(before.ID))
				assert.Equal(t, aliceLoad, h.activeCount("alice"))
				assert.Equal(t, bobLoad, h.activeCount("bob"))
			})
		}
	}
}

func TestNotesAndFollowups(t *testing.T) {
	h := newHarness(t, config.SLAConfig{})
	ticket := h.create("general")

	noted, err := h.tickets.AddNote(h.ctx, ticket.ID, "alice", "  customer called back ")
	require.NoError(t, err)
	require.Len(t, noted.Notes, 1)
	assert.Equal(t, "customer called back", noted.Notes[0].Text)
	assert.NotEmpty(t, noted.Notes[0].ID)

	_, err = h.tickets.AddNote(h.ctx, ticket.ID, "alice", "   ")
	assert.Equal(t, apperrors.CodeValidation, apperrors.Code(err))

	_, err = h.tickets.ScheduleFollowup(h.ctx, ticket.ID, t0.Add(-time.Minute), "alice")
	assert.Equal(t, apperrors.CodeValidation, apperrors.Code(err))

	scheduled, err := h.tickets.ScheduleFollowup(h.ctx, ticket.ID, t0.Add(time.Hour), "alice")
	require.NoError(t, err)
	require.NotNil(t, scheduled.FollowupAt)
	assert.Equal(t, t0.Add(time.Hour), *scheduled.FollowupAt)
}

func TestLinkIsSymmetricAndIdempotent(t *testing.T) {
	h := newHarness(t, config.SLAConfig{})
	a := h.create("general")
	b := h.create("general")

	created, err := h.tickets.Link(h.ctx, a.ID, b.ID, "alice")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = h.tickets.Link(h.ctx, b.ID, a.ID, "alice")
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, []int64{b.ID}, h.load(a.ID).LinkedTickets)
	assert.Equal(t, []int64{a.ID}, h.load(b.ID).LinkedTickets)
	assert.Equal(t, 1, countKind(h.eventKinds(a.ID), domain.EventLinked))
	assert.Equal(t, 1, countKind(h.eventKinds(b.ID), domain.EventLinked))

	_, err = h.tickets.Link(h.ctx, a.ID, a.ID, "alice")
	assert.Equal(t, apperrors.CodeValidation, apperrors.Code(err))

	_, err = h.tickets.Link(h.ctx, a.ID, 999, "alice")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSubmitFeedback(t *testing.T) {
	h := newHarness(t, config.SLAConfig{})
	h.policy("billing", 30*time.Minute, 4*time.Hour)
	h.member("alice", true)
	ticket := h.create("billing")

	_, err := h.tickets.SubmitFeedback(h.ctx, ticket.ID, "user-1", 5, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = h.tickets.Claim(h.ctx, ticket.ID, "alice")
	require.NoError(t, err)
	_, err = h.tickets.Resolve(h.ctx, ticket.ID, "alice")
	require.NoError(t, err)
	_, err = h.tickets.Close(h.ctx, ticket.ID, "alice", "")
	require.NoError(t, err)

	_, err = h.tickets.SubmitFeedback(h.ctx, ticket.ID, "someone-else", 5, "")
	assert.Equal(t, apperrors.CodeForbidden, apperrors.Code(err))

	_, err = h.tickets.SubmitFeedback(h.ctx, ticket.ID, "user-1", 6, "")
	assert.Equal(t, apperrors.CodeValidation, apperrors.Code(err))

	feedback, err := h.tickets.SubmitFeedback(h.ctx, ticket.ID, "user-1", 4, " quick help ")
	require.NoError(t, err)
	assert.Equal(t, "alice", feedback.StaffID)
	assert.Equal(t, "billing", feedback.CategoryID)
	assert.Equal(t, "quick help", feedback.Comment)

	_, err = h.tickets.SubmitFeedback(h.ctx, ticket.ID, "user-1", 2, "")
	assert.Equal(t, apperrors.CodeConflict, apperrors.Code(err))
	assert.Equal(t, 1, countKind(h.eventKinds(ticket.ID), domain.EventFeedbackSubmitted))
}

func TestAutoAssignPrefersSpecialistWithLowestLoad(t *testing.T) {
	h := newHarness(t, config.SLAConfig{})
	h.policy("billing", 30*time.Minute, 4*time.Hour)
	h.member("alice", true, "billing")
	h.member("bob", true, "billing")
	h.member("carol", true)

	first := h.create("billing")
	assigned, err := h.tickets.AutoAssign(h.ctx, first.ID, "gateway")
	require.NoError(t, err)
	assert.Equal(t, "alice", assigned.Assignee())

	second := h.create("billing")
	assigned, err = h.tickets.AutoAssign(h.ctx, second.ID, "gateway")
	require.NoError(t, err)
	assert.Equal(t, "bob", assigned.Assignee())
	assert.Equal(t, "gateway", h.lastEvent(second.ID, domain.EventClaimed).ActorID)

	_, err = h.tickets.AutoAssign(h.ctx, second.ID, "gateway")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyClaimed)
}

func TestAutoAssignWithoutStaffConflicts(t *testing.T) {
	h := newHarness(t, config.SLAConfig{})
	h.member("alice", false)
	ticket := h.create("billing")

	_, err := h.tickets.AutoAssign(h.ctx, ticket.ID, "gateway")
	assert.Equal(t, apperrors.CodeConflict, apperrors.Code(err))
	assert.Equal(t, domain.TicketStateOpen, h.load(ticket.ID).State)
}

func TestBillingScenarioMeetsSLA(t *testing.T) {
	h := newHarness(t, config.SLAConfig{})
	h.policy("billing", 30*time.Minute, 4*time.Hour)
	h.member("alice", true, "billing")
	ticket := h.create("billing")

	h.clock.Advance(5 * time.Minute)
	_, err := h.tickets.Claim(h.ctx, ticket.ID, "alice")
	require.NoError(t, err)
	_, err = h.scheduler.RunTick(h.ctx)
	require.NoError(t, err)

	h.clock.Advance(2 * time.Hour)
	_, err = h.tickets.Resolve(h.ctx, ticket.ID, "alice")
	require.NoError(t, err)
	_, err = h.tickets.Close(h.ctx, ticket.ID, "alice", "refund issued")
	require.NoError(t, err)

	h.clock.Advance(5 * time.Hour)
	report, err := h.scheduler.RunTick(h.ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Warnings)
	assert.Zero(t, report.Breaches)
	assert.Empty(t, h.notifications())

	perf := NewPerformanceService(h.repo, 0)
	snapshot, err := perf.ComputePerformance(h.ctx, domain.ScopeCategory, "billing", domain.Window{})
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Tickets)
	assert.Zero(t, snapshot.BreachCount)
	assert.Zero(t, snapshot.BreachRate)
	assert.Equal(t, 5*time.Minute, snapshot.ResponseTime.Mean)
	assert.Equal(t, 2*time.Hour, snapshot.ResolutionTime.Mean)
}
