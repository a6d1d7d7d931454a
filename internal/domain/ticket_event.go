package domain

import "time"

// TicketEventKind enumerates audit log entries.
type TicketEventKind string

const (
	EventCreated           TicketEventKind = "CREATED"
	EventClaimed           TicketEventKind = "CLAIMED"
	EventTransferred       TicketEventKind = "TRANSFERRED"
	EventPendingSet        TicketEventKind = "PENDING_SET"
	EventResumed           TicketEventKind = "RESUMED"
	EventNoteAdded         TicketEventKind = "NOTE_ADDED"
	EventResolved          TicketEventKind = "RESOLVED"
	EventClosed            TicketEventKind = "CLOSED"
	EventReopened          TicketEventKind = "REOPENED"
	EventLinked            TicketEventKind = "LINKED"
	EventWarningFired      TicketEventKind = "WARNING_FIRED"
	EventBreachFired       TicketEventKind = "BREACH_FIRED"
	EventFollowupScheduled TicketEventKind = "FOLLOWUP_SCHEDULED"
	EventFollowupDue       TicketEventKind = "FOLLOWUP_DUE"
	EventFeedbackSubmitted TicketEventKind = "FEEDBACK_SUBMITTED"
)

// TicketEvent is an append-only audit entry and the only input to performance metrics.
type TicketEvent struct {
	ID       string
	Seq      int64
	TicketID int64
	Kind     TicketEventKind
	At       time.Time
	ActorID  string
	// CategoryID is copied from the ticket so the log can be aggregated on its own.
	CategoryID string
	// StaffID is the staff member the event concerns (claimer, transfer target, assignee).
	StaffID   string
	TimerKind TimerKind
	// Elapsed carries the response or resolution time recorded when a timer stops.
	Elapsed       time.Duration
	PolicyApplied bool
	Detail        string
}
