package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/did4510/Nexon/internal/clock"
	"github.com/did4510/Nexon/internal/config"
	"github.com/did4510/Nexon/internal/domain"
	"github.com/did4510/Nexon/internal/events"
	"github.com/did4510/Nexon/internal/notify"
	"github.com/did4510/Nexon/internal/repository"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

const guild = "g1"

type harness struct {
	t         *testing.T
	ctx       context.Context
	clock     *clock.Manual
	repo      *repository.Memory
	store     *TicketStore
	tickets   *TicketService
	staff     *StaffService
	policies  *PolicyService
	workload  *WorkloadTracker
	scheduler *EscalationScheduler

	mu        sync.Mutex
	sent      []notify.Notification
	escalated []int64
	sinkErr   error
	// onBreach replaces the default recording escalation when set.
	onBreach notify.EscalationAction
}

func newHarness(t *testing.T, sla config.SLAConfig) *harness {
	t.Helper()
	return newHarnessWith(t, sla, nil)
}

// newHarnessWith lets wrap put a repository between the services and the memory
// store. h.repo always reads the memory store directly.
func newHarnessWith(t *testing.T, sla config.SLAConfig, wrap func(*repository.Memory) repository.Repository) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	h := &harness{
		t:     t,
		ctx:   context.Background(),
		clock: clock.NewManual(t0),
		repo:  repository.NewMemory(),
	}
	var repo repository.Repository = h.repo
	if wrap != nil {
		repo = wrap(h.repo)
	}
	h.store = NewTicketStore(StoreDependencies{
		Repo:       repo,
		Clock:      h.clock,
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     logger,
	})
	h.workload = NewWorkloadTracker(WorkloadDependencies{Repo: repo, Logger: logger})
	h.tickets = NewTicketService(TicketDependencies{
		Store:    h.store,
		Engine:   NewSLAEngine(sla),
		Workload: h.workload,
		Logger:   logger,
	})
	h.staff = NewStaffService(StaffDependencies{Repo: repo, Clock: h.clock, Logger: logger})
	h.policies = NewPolicyService(repo, h.clock, logger, 0)
	h.scheduler = NewEscalationScheduler(EscalationDependencies{
		Store:      h.store,
		Sink:       notify.SinkFunc(h.record),
		Escalation: notify.EscalationFunc(h.escalate),
		Logger:     logger,
	})
	return h
}

func (h *harness) record(_ context.Context, n notify.Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, n)
	return h.sinkErr
}

func (h *harness) escalate(ctx context.Context, ticketID int64, kind domain.TimerKind) error {
	h.mu.Lock()
	h.escalated = append(h.escalated, ticketID)
	action := h.onBreach
	h.mu.Unlock()
	if action != nil {
		return action.Escalate(ctx, ticketID, kind)
	}
	return nil
}

func (h *harness) notifications() []notify.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]notify.Notification(nil), h.sent...)
}

func (h *harness) policy(category string, response, resolution time.Duration) {
	h.t.Helper()
	_, err := h.policies.PutPolicy(h.ctx, domain.SLAPolicy{
		CategoryID:         category,
		ResponseDuration:   response,
		ResolutionDuration: resolution,
		WarningFraction:    0.8,
	})
	require.NoError(h.t, err)
}

func (h *harness) member(id string, onDuty bool, tags ...string) {
	h.t.Helper()
	_, err := h.staff.UpsertStaff(h.ctx, StaffInput{
		ID:              id,
		GuildID:         guild,
		OnDuty:          &onDuty,
		Specializations: tags,
	})
	require.NoError(h.t, err)
}

func (h *harness) create(category string) *domain.Ticket {
	h.t.Helper()
	created, err := h.tickets.CreateTicket(h.ctx, CreateTicketInput{
		GuildID:    guild,
		CategoryID: category,
		CreatorID:  "user-1",
	})
	require.NoError(h.t, err)
	return created.Ticket
}

func (h *harness) load(id int64) *domain.Ticket {
	h.t.Helper()
	ticket, err := h.tickets.GetTicket(h.ctx, id)
	require.NoError(h.t, err)
	return ticket
}

func (h *harness) activeCount(staffID string) int {
	h.t.Helper()
	member, err := h.repo.LoadStaff(h.ctx, staffID)
	require.NoError(h.t, err)
	return member.ActiveCount
}

func (h *harness) eventKinds(ticketID int64) []domain.TicketEventKind {
	h.t.Helper()
	list, err := h.tickets.ListEvents(h.ctx, ticketID)
	require.NoError(h.t, err)
	kinds := make([]domain.TicketEventKind, 0, len(list))
	for _, event := range list {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

func (h *harness) lastEvent(ticketID int64, kind domain.TicketEventKind) domain.TicketEvent {
	h.t.Helper()
	list, err := h.tickets.ListEvents(h.ctx, ticketID)
	require.NoError(h.t, err)
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Kind == kind {
			return list[i]
		}
	}
	h.t.Fatalf("no %s event on ticket %d", kind, ticketID)
	return domain.TicketEvent{}
}

func countKind(kinds []domain.TicketEventKind, kind domain.TicketEventKind) int {
	n := 0
	for _, k := range kinds {
		if k == kind {
			n++
		}
	}
	return n
}

func durationPtr(d time.Duration) *time.Duration {
	return &d
}
