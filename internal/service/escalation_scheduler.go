package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/did4510/Nexon/internal/domain"
	"github.com/did4510/Nexon/internal/notify"
	apperrors "github.com/did4510/Nexon/pkg/util/errorutil"
)

// SystemActor is recorded as the actor of events raised by the periodic sweeps.
const SystemActor = "system"

// EscalationScheduler evaluates SLA timers on demand. It has no timer of its own;
// a periodic driver calls RunTick.
type EscalationScheduler struct {
	store      *TicketStore
	sink       notify.Sink
	escalation notify.EscalationAction
	logger     *zap.Logger
}

// EscalationDependencies bundles scheduler collaborators.
type EscalationDependencies struct {
	Store      *TicketStore
	Sink       notify.Sink
	Escalation notify.EscalationAction
	Logger     *zap.Logger
}

// TickReport summarizes one sweep.
type TickReport struct {
	At       time.Time
	Timers   int
	Tickets  int
	Warnings int
	Breaches int
	// Skipped counts tickets whose timers were stopped or already fired on re-check.
	Skipped  int
	Failures int
}

// FollowupReport summarizes one follow-up sweep.
type FollowupReport struct {
	At       time.Time
	Due      int
	Notified int
	Skipped  int
	Failures int
}

type firedThreshold struct {
	kind      notify.Kind
	timerKind domain.TimerKind
	remaining time.Duration
}

// NewEscalationScheduler constructs the scheduler.
func NewEscalationScheduler(deps EscalationDependencies) *EscalationScheduler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationScheduler{
		store:      deps.Store,
		sink:       deps.Sink,
		escalation: deps.Escalation,
		logger:     logger,
	}
}

// RunTick fires every warning and breach that is due now, at most once per
// threshold. Each ticket is evaluated under its own lock and a failure on one
// ticket does not stop the others; it is simply retried by the next tick.
func (s *EscalationScheduler) RunTick(ctx context.Context) (TickReport, error) {
	now := s.store.Now()
	report := TickReport{At: now}

	rctx, cancel := s.store.repoContext(ctx)
	refs, err := s.store.repo.LoadActiveTimers(rctx, now)
	cancel()
	if err != nil {
		err = mapRepoError(err, "timers", nil)
		s.logger.Error("escalation tick could not load timers", zap.Error(err))
		return report, err
	}
	report.Timers = len(refs)

	for _, ticketID := range distinctTickets(refs) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Tickets++

		ticket, fired, err := s.evaluate(ctx, ticketID, now)
		if err != nil {
			report.Failures++
			s.logger.Warn("escalation evaluation failed",
				zap.Int64("ticket_id", ticketID),
				zap.String("code", apperrors.Code(err)),
				zap.Error(err))
			continue
		}
		if len(fired) == 0 {
			report.Skipped++
			continue
		}

		// Delivery runs after the flags commit and outside the ticket lock, so a
		// resolve that commits in between is still notified and escalated once.
		for _, f := range fired {
			s.notify(ctx, ticket, f, now)
			switch f.kind {
			case notify.KindWarning:
				report.Warnings++
			case notify.KindBreach:
				report.Breaches++
				s.escalate(ctx, ticketID, f.timerKind)
			}
		}
	}

	s.logger.Info("escalation tick",
		zap.Time("at", now),
		zap.Int("evaluated", report.Tickets),
		zap.Int("warnings", report.Warnings),
		zap.Int("breaches", report.Breaches),
		zap.Int("skipped", report.Skipped),
		zap.Int("failures", report.Failures))
	return report, nil
}

// evaluate re-checks the ticket's timers under the ticket lock and commits the
// fired flags together with their events.
func (s *EscalationScheduler) evaluate(ctx context.Context, ticketID int64, now time.Time) (*domain.Ticket, []firedThreshold, error) {
	var fired []firedThreshold
	ticket, err := s.store.mutate(ctx, ticketID, func(c *change) error {
		fired = fired[:0]
		t := c.ticket
		for i := range t.Timers {
			timer := &t.Timers[i]
			if timer.WarningDue(now) {
				timer.WarningFired = true
				fired = append(fired, firedThreshold{kind: notify.KindWarning, timerKind: timer.Kind, remaining: timer.Deadline.Sub(now)})
				c.emit(domain.TicketEvent{
					Kind:      domain.EventWarningFired,
					At:        now,
					ActorID:   SystemActor,
					StaffID:   t.Assignee(),
					TimerKind: timer.Kind,
					Detail:    timer.ID,
				})
			}
			if timer.BreachDue(now) {
				timer.BreachFired = true
				fired = append(fired, firedThreshold{kind: notify.KindBreach, timerKind: timer.Kind, remaining: timer.Deadline.Sub(now)})
				c.emit(domain.TicketEvent{
					Kind:      domain.EventBreachFired,
					At:        now,
					ActorID:   SystemActor,
					StaffID:   t.Assignee(),
					TimerKind: timer.Kind,
					Detail:    timer.ID,
				})
			}
		}
		if len(fired) == 0 {
			c.save = false
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return ticket, fired, nil
}

// ProcessDueFollowups notifies every scheduled follow-up that has come due on a
// ticket that is not Closed, and clears the schedule.
func (s *EscalationScheduler) ProcessDueFollowups(ctx context.Context) (FollowupReport, error) {
	now := s.store.Now()
	report := FollowupReport{At: now}

	rctx, cancel := s.store.repoContext(ctx)
	ids, err := s.store.repo.ListDueFollowups(rctx, now)
	cancel()
	if err != nil {
		err = mapRepoError(err, "tickets", nil)
		s.logger.Error("follow-up sweep could not list tickets", zap.Error(err))
		return report, err
	}

	for _, ticketID := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Due++

		due := false
		ticket, err := s.store.mutate(ctx, ticketID, func(c *change) error {
			t := c.ticket
			due = t.FollowupAt != nil && !t.FollowupAt.After(now) && t.State != domain.TicketStateClosed
			if !due {
				c.save = false
				return nil
			}
			scheduled := *t.FollowupAt
			t.FollowupAt = nil
			c.emit(domain.TicketEvent{
				Kind:    domain.EventFollowupDue,
				At:      now,
				ActorID: SystemActor,
				StaffID: t.Assignee(),
				Detail:  scheduled.Format(time.RFC3339),
			})
			return nil
		})
		if err != nil {
			report.Failures++
			s.logger.Warn("follow-up processing failed", zap.Int64("ticket_id", ticketID), zap.Error(err))
			continue
		}
		if !due {
			report.Skipped++
			continue
		}
		s.notify(ctx, ticket, firedThreshold{kind: notify.KindFollowup}, now)
		report.Notified++
	}

	if report.Due > 0 {
		s.logger.Info("follow-up sweep",
			zap.Int("due", report.Due),
			zap.Int("notified", report.Notified),
			zap.Int("failures", report.Failures))
	}
	return report, nil
}

func (s *EscalationScheduler) notify(ctx context.Context, ticket *domain.Ticket, f firedThreshold, now time.Time) {
	if s.sink == nil {
		return
	}
	n := notify.Notification{
		Kind:          f.kind,
		TicketID:      ticket.ID,
		GuildID:       ticket.GuildID,
		Number:        ticket.Number,
		CategoryID:    ticket.CategoryID,
		AssignedStaff: ticket.Assignee(),
		TimerKind:     f.timerKind,
		Remaining:     f.remaining,
		At:            now,
	}
	if err := s.sink.Notify(ctx, n); err != nil {
		s.logger.Warn("notification delivery failed",
			zap.Int64("ticket_id", ticket.ID),
			zap.String("kind", string(f.kind)),
			zap.Error(err))
	}
}

func (s *EscalationScheduler) escalate(ctx context.Context, ticketID int64, kind domain.TimerKind) {
	if s.escalation == nil {
		return
	}
	if err := s.escalation.Escalate(ctx, ticketID, kind); err != nil {
		s.logger.Warn("escalation action failed",
			zap.Int64("ticket_id", ticketID),
			zap.String("timer_kind", string(kind)),
			zap.Error(err))
	}
}

func distinctTickets(refs []domain.TimerRef) []int64 {
	seen := make(map[int64]struct{}, len(refs))
	ids := make([]int64, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref.TicketID]; ok {
			continue
		}
		seen[ref.TicketID] = struct{}{}
		ids = append(ids, ref.TicketID)
	}
	return ids
}

// AutoReassign is an escalation action that moves a breached ticket to the best
// available staff member.
type AutoReassign struct {
	tickets *TicketService
}

// NewAutoReassign creates the action.
func NewAutoReassign(tickets *TicketService) *AutoReassign {
	return &AutoReassign{tickets: tickets}
}

func (a *AutoReassign) Escalate(ctx context.Context, ticketID int64, _ domain.TimerKind) error {
	_, err := a.tickets.Reassign(ctx, ticketID, SystemActor)
	return err
}
