package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/did4510/Nexon/internal/config"
	"github.com/did4510/Nexon/internal/domain"
	"github.com/did4510/Nexon/internal/notify"
	"github.com/did4510/Nexon/internal/repository"
	apperrors "github.com/did4510/Nexon/pkg/util/errorutil"
)

// faultyRepo wraps the memory store and fails selected calls.
type faultyRepo struct {
	*repository.Memory

	mu        sync.Mutex
	loadErr   map[int64]error
	commitErr error
}

func newFaultyRepo(m *repository.Memory) *faultyRepo {
	return &faultyRepo{Memory: m, loadErr: make(map[int64]error)}
}

func (r *faultyRepo) failLoad(ticketID int64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.loadErr, ticketID)
		return
	}
	r.loadErr[ticketID] = err
}

func (r *faultyRepo) failCommit(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commitErr = err
}

func (r *faultyRepo) LoadTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	r.mu.Lock()
	err := r.loadErr[id]
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.Memory.LoadTicket(ctx, id)
}

// InTx hands fn a Tx whose AppendEvent fails, so the ticket save and workload
// adjustments are already staged when the commit is abandoned.
func (r *faultyRepo) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	r.mu.Lock()
	err := r.commitErr
	r.mu.Unlock()
	return r.Memory.InTx(ctx, func(tx repository.Tx) error {
		if err == nil {
			return fn(tx)
		}
		return fn(failingTx{Tx: tx, err: err})
	})
}

type failingTx struct {
	repository.Tx
	err error
}

func (tx failingTx) AppendEvent(context.Context, *domain.TicketEvent) error {
	return tx.err
}

func newFaultyHarness(t *testing.T) (*harness, *faultyRepo) {
	t.Helper()
	var faulty *faultyRepo
	h := newHarnessWith(t, config.SLAConfig{}, func(m *repository.Memory) repository.Repository {
		faulty = newFaultyRepo(m)
		return faulty
	})
	return h, faulty
}

func TestFailedCommitLeavesNoPartialWrite(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "unavailable", err: errors.New("connection reset by peer"), want: apperrors.ErrRepositoryDown},
		{name: "timeout", err: context.DeadlineExceeded, want: apperrors.ErrRepositoryTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, faulty := newFaultyHarness(t)
			h.policy("billing", 30*time.Minute, 4*time.Hour)
			h.member("alice", true)
			ticket := h.create("billing")

			faulty.failCommit(tc.err)
			_, err := h.tickets.Claim(h.ctx, ticket.ID, "alice")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)

			stored := h.load(ticket.ID)
			assert.Equal(t, domain.TicketStateOpen, stored.State)
			assert.Nil(t, stored.AssignedStaff)
			assert.Equal(t, ticket.Version, stored.Version)
			assert.Len(t, stored.Timers, 1)
			assert.False(t, stored.Timers[0].Stopped)
			assert.Equal(t, 0, h.activeCount("alice"))
			assert.Equal(t, []domain.TicketEventKind{domain.EventCreated}, h.eventKinds(ticket.ID))

			faulty.failCommit(nil)
			claimed, err := h.tickets.Claim(h.ctx, ticket.ID, "alice")
			require.NoError(t, err)
			assert.Equal(t, domain.TicketStateClaimed, claimed.State)
			assert.Equal(t, 1, h.activeCount("alice"))
		})
	}
}

func TestLoadTimeoutSurfacesAsRepositoryTimeout(t *testing.T) {
	h, faulty := newFaultyHarness(t)
	ticket := h.create("general")

	faulty.failLoad(ticket.ID, context.DeadlineExceeded)
	_, err := h.tickets.GetTicket(h.ctx, ticket.ID)
	assert.ErrorIs(t, err, apperrors.ErrRepositoryTimeout)
	assert.Equal(t, apperrors.CodeRepositoryTimeout, apperrors.Code(err))

	faulty.failLoad(ticket.ID, errors.New("dial tcp: connection refused"))
	_, err = h.tickets.Resolve(h.ctx, ticket.ID, "alice")
	assert.ErrorIs(t, err, apperrors.ErrRepositoryDown)
}

func TestTickIsolatesRepositoryFailurePerTicket(t *testing.T) {
	h, faulty := newFaultyHarness(t)
	h.policy("billing", 30*time.Minute, 4*time.Hour)
	broken := h.create("billing")
	healthy := h.create("billing")

	faulty.failLoad(broken.ID, errors.New("connection refused"))
	h.clock.Set(t0.Add(25 * time.Minute))
	report, err := h.scheduler.RunTick(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failures)
	assert.Equal(t, 1, report.Warnings)
	sent := h.notifications()
	require.Len(t, sent, 1)
	assert.Equal(t, healthy.ID, sent[0].TicketID)

	faulty.failLoad(broken.ID, nil)
	assert.False(t, h.load(broken.ID).Timers[0].WarningFired)
	h.clock.Set(t0.Add(26 * time.Minute))
	report, err = h.scheduler.RunTick(h.ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Failures)
	assert.Equal(t, 1, report.Warnings)
	sent = h.notifications()
	require.Len(t, sent, 2)
	assert.Equal(t, broken.ID, sent[1].TicketID)
	assert.Equal(t, notify.KindWarning, sent[1].Kind)
}

func TestTickCommitFailureIsRetriedNextTick(t *testing.T) {
	h, faulty := newFaultyHarness(t)
	h.policy("billing", 30*time.Minute, 4*time.Hour)
	ticket := h.create("billing")

	faulty.failCommit(errors.New("connection reset by peer"))
	h.clock.Set(t0.Add(25 * time.Minute))
	report, err := h.scheduler.RunTick(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failures)
	assert.Zero(t, report.Warnings)
	assert.Empty(t, h.notifications())
	assert.Zero(t, countKind(h.eventKinds(ticket.ID), domain.EventWarningFired))

	faulty.failCommit(nil)
	report, err = h.scheduler.RunTick(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Warnings)
	assert.Equal(t, 1, countKind(h.eventKinds(ticket.ID), domain.EventWarningFired))
}
