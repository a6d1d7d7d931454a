package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/did4510/Nexon/internal/clock"
	"github.com/did4510/Nexon/internal/domain"
	"github.com/did4510/Nexon/internal/events"
	"github.com/did4510/Nexon/internal/repository"
	apperrors "github.com/did4510/Nexon/pkg/util/errorutil"
)

const (
	defaultRepositoryTimeout = 5 * time.Second
	defaultMaxAttempts       = 3
)

// TicketStore runs every read-modify-write on a ticket as one atomic unit: a
// per-ticket lock in this process, a version check in the repository across
// processes, and a single repository transaction for all resulting writes.
// TicketService and EscalationScheduler must share one store.
type TicketStore struct {
	repo        repository.Repository
	clock       clock.Clock
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	locks       *ticketLocks
	timeout     time.Duration
	maxAttempts int
}

// StoreDependencies bundles the store collaborators.
type StoreDependencies struct {
	Repo        repository.Repository
	Clock       clock.Clock
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	RepoTimeout time.Duration
	MaxAttempts int
}

// NewTicketStore constructs the store.
func NewTicketStore(deps StoreDependencies) *TicketStore {
	store := &TicketStore{
		repo:        deps.Repo,
		clock:       deps.Clock,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
		locks:       newTicketLocks(),
		timeout:     deps.RepoTimeout,
		maxAttempts: deps.MaxAttempts,
	}
	if store.clock == nil {
		store.clock = clock.System{}
	}
	if store.logger == nil {
		store.logger = zap.NewNop()
	}
	if store.timeout <= 0 {
		store.timeout = defaultRepositoryTimeout
	}
	if store.maxAttempts <= 0 {
		store.maxAttempts = defaultMaxAttempts
	}
	return store
}

// Now returns the store clock reading.
func (s *TicketStore) Now() time.Time {
	return s.clock.Now()
}

// Repository exposes the underlying repository for read paths.
func (s *TicketStore) Repository() repository.Repository {
	return s.repo
}

func (s *TicketStore) repoContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// change collects everything one mutation wants to commit.
type change struct {
	ticket   *domain.Ticket
	now      time.Time
	save     bool
	events   []domain.TicketEvent
	workload map[string]int
	writes   []func(ctx context.Context, tx repository.Tx) error
}

func (c *change) emit(event domain.TicketEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.At.IsZero() {
		event.At = c.now
	}
	event.TicketID = c.ticket.ID
	event.CategoryID = c.ticket.CategoryID
	event.PolicyApplied = c.ticket.PolicyApplied
	c.events = append(c.events, event)
}

func (c *change) adjustWorkload(staffID string, delta int) {
	if staffID == "" || delta == 0 {
		return
	}
	c.workload[staffID] += delta
}

func (c *change) write(fn func(ctx context.Context, tx repository.Tx) error) {
	c.writes = append(c.writes, fn)
}

// mutate loads the ticket, lets fn validate and modify it, and commits the result.
// fn must not have side effects outside c: it is re-run on a version conflict.
// When fn fails nothing is written.
func (s *TicketStore) mutate(ctx context.Context, ticketID int64, fn func(c *change) error) (*domain.Ticket, error) {
	unlock, err := s.locks.acquire(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewRepositoryTimeout(err)
	}
	defer unlock()

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		ticket, err := s.load(ctx, ticketID)
		if err != nil {
			return nil, err
		}

		c := &change{
			ticket:   ticket,
			now:      s.clock.Now(),
			save:     true,
			workload: make(map[string]int),
		}
		if err := fn(c); err != nil {
			return nil, err
		}
		if !c.save && len(c.events) == 0 && len(c.writes) == 0 {
			return ticket, nil
		}
		if c.save {
			ticket.UpdatedAt = c.now
		}

		err = s.commit(ctx, c)
		if errors.Is(err, repository.ErrVersionConflict) {
			s.logger.Debug("ticket version conflict, retrying",
				zap.Int64("ticket_id", ticketID),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, mapRepoError(err, "ticket", ticketID)
		}

		s.publish(ctx, ticket, c.events)
		return ticket, nil
	}
	return nil, apperrors.NewVersionConflict(ticketID)
}

func (s *TicketStore) load(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	rctx, cancel := s.repoContext(ctx)
	defer cancel()
	ticket, err := s.repo.LoadTicket(rctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}
	return ticket, nil
}

func (s *TicketStore) commit(ctx context.Context, c *change) error {
	rctx, cancel := s.repoContext(ctx)
	defer cancel()
	return s.repo.InTx(rctx, func(tx repository.Tx) error {
		if c.save {
			if err := tx.SaveTicket(rctx, c.ticket); err != nil {
				return err
			}
		}
		for _, write := range c.writes {
			if err := write(rctx, tx); err != nil {
				return err
			}
		}
		for _, staffID := range sortedKeys(c.workload) {
			delta := c.workload[staffID]
			if delta == 0 {
				continue
			}
			if err := tx.AdjustStaffWorkload(rctx, staffID, delta); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apperrors.NewNotFound("staff", map[string]any{"staff_id": staffID})
				}
				return err
			}
		}
		for i := range c.events {
			if err := tx.AppendEvent(rctx, &c.events[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *TicketStore) publish(ctx context.Context, ticket *domain.Ticket, committed []domain.TicketEvent) {
	if s.dispatcher == nil {
		return
	}
	for _, event := range committed {
		if err := s.dispatcher.Publish(ctx, events.NewEvent(event, ticket)); err != nil {
			s.logger.Warn("event subscriber failed",
				zap.Int64("ticket_id", event.TicketID),
				zap.String("kind", string(event.Kind)),
				zap.Error(err))
		}
	}
}

// mapRepoError translates storage failures into the error taxonomy. Domain errors
// pass through unchanged.
func mapRepoError(err error, resource string, id any) error {
	var domainErr *apperrors.DomainError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperrors.NewRepositoryTimeout(err)
	default:
		return apperrors.NewRepositoryUnavailable(err)
	}
}

// sortedKeys fixes the row-lock order of workload updates across transactions.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
