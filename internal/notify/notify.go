// Package notify holds the outbound collaborators of the escalation sweep: sinks that
// deliver warning, breach and follow-up notices, and escalation actions run on breach.
package notify

import (
	"context"
	"time"

	"github.com/did4510/Nexon/internal/domain"
)

// Kind classifies a notification.
type Kind string

const (
	KindWarning  Kind = "WARNING"
	KindBreach   Kind = "BREACH"
	KindFollowup Kind = "FOLLOWUP"
)

// Notification is what a sink receives. The core decides that something fired, not
// how it is worded.
type Notification struct {
	Kind          Kind             `json:"kind"`
	TicketID      int64            `json:"ticket_id"`
	GuildID       string           `json:"guild_id"`
	Number        int64            `json:"number"`
	CategoryID    string           `json:"category_id"`
	AssignedStaff string           `json:"assigned_staff,omitempty"`
	TimerKind     domain.TimerKind `json:"timer_kind,omitempty"`
	// Remaining is the time left until the deadline; negative once overdue.
	Remaining time.Duration `json:"remaining"`
	At        time.Time     `json:"at"`
}

// Sink delivers notifications. Delivery failures are the sink's concern; callers log
// them and move on.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// EscalationAction runs once per confirmed breach.
type EscalationAction interface {
	Escalate(ctx context.Context, ticketID int64, kind domain.TimerKind) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Notification) error

func (f SinkFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// EscalationFunc adapts a function to EscalationAction.
type EscalationFunc func(ctx context.Context, ticketID int64, kind domain.TimerKind) error

func (f EscalationFunc) Escalate(ctx context.Context, ticketID int64, kind domain.TimerKind) error {
	return f(ctx, ticketID, kind)
}
