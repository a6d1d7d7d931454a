package repository

import (
	"context"
	"errors"
	"time"

	"github.com/did4510/Nexon/internal/domain"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when a conditional ticket save loses a race.
	ErrVersionConflict = errors.New("ticket version conflict")
	// ErrDuplicate is returned when a unique record already exists.
	ErrDuplicate = errors.New("duplicate record")
)

// StaffFilter defines query params for staff listing.
type StaffFilter struct {
	GuildID string
	OnDuty  *bool
}

// EventFilter narrows event log reads. Zero values are unbounded.
type EventFilter struct {
	TicketID   *int64
	CategoryID string
	Kinds      []domain.TicketEventKind
	Until      time.Time
}

// WorkloadCorrection is one staff counter rewritten by ReconcileWorkload.
type WorkloadCorrection struct {
	StaffID string
	Stored  int
	Actual  int
}

// Repository is the storage contract consumed by the core. Reads run outside any
// transaction; every write that belongs to a ticket transition goes through InTx so
// the ticket, its timers, its events and workload counters commit together.
type Repository interface {
	LoadTicket(ctx context.Context, id int64) (*domain.Ticket, error)
	// LoadActiveTimers returns non-stopped, non-paused timers with a threshold at or before before.
	LoadActiveTimers(ctx context.Context, before time.Time) ([]domain.TimerRef, error)
	ListDueFollowups(ctx context.Context, before time.Time) ([]int64, error)
	// ReconcileWorkload recomputes every staff counter from the tickets in Claimed or
	// Pending and rewrites the drifted ones. Counting and writing are one atomic step
	// with respect to ticket transactions. It returns how many staff were checked.
	ReconcileWorkload(ctx context.Context) (int, []WorkloadCorrection, error)

	LoadPolicy(ctx context.Context, categoryID string) (*domain.SLAPolicy, error)
	SavePolicy(ctx context.Context, policy *domain.SLAPolicy) error

	LoadStaff(ctx context.Context, id string) (*domain.StaffMember, error)
	ListStaff(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error)
	SaveStaff(ctx context.Context, staff *domain.StaffMember) error
	SaveStaffWorkload(ctx context.Context, id string, count int) error

	ListEvents(ctx context.Context, filter EventFilter) ([]domain.TicketEvent, error)
	ListFeedback(ctx context.Context, until time.Time) ([]domain.Feedback, error)

	InTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}

// Tx is the write side of a single atomic commit.
type Tx interface {
	NextTicketNumber(ctx context.Context, guildID string) (int64, error)
	InsertTicket(ctx context.Context, ticket *domain.Ticket) error
	// SaveTicket persists ticket and its timers if the stored version still equals
	// ticket.Version, then increments ticket.Version.
	SaveTicket(ctx context.Context, ticket *domain.Ticket) error
	AppendEvent(ctx context.Context, event *domain.TicketEvent) error
	AdjustStaffWorkload(ctx context.Context, staffID string, delta int) error
	// AddLink stores the pair and reports whether it was new.
	AddLink(ctx context.Context, link domain.TicketLink) (bool, error)
	InsertFeedback(ctx context.Context, feedback *domain.Feedback) error
}
