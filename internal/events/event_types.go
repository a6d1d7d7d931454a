package events

import (
	"github.com/did4510/Nexon/internal/domain"
)

// Event is a committed ticket event together with the ticket context that
// subscribers usually need to render or route it.
type Event struct {
	domain.TicketEvent
	GuildID       string             `json:"guild_id"`
	Number        int64              `json:"number"`
	State         domain.TicketState `json:"state"`
	AssignedStaff *string            `json:"assigned_staff,omitempty"`
}

// NewEvent wraps a committed event with the post-commit ticket snapshot.
func NewEvent(event domain.TicketEvent, ticket *domain.Ticket) Event {
	out := Event{TicketEvent: event}
	if ticket != nil {
		out.GuildID = ticket.GuildID
		out.Number = ticket.Number
		out.State = ticket.State
		if ticket.AssignedStaff != nil {
			staff := *ticket.AssignedStaff
			out.AssignedStaff = &staff
		}
	}
	return out
}

// LifecycleKinds are produced by user-facing ticket operations.
var LifecycleKinds = []domain.TicketEventKind{
	domain.EventCreated,
	domain.EventClaimed,
	domain.EventTransferred,
	domain.EventPendingSet,
	domain.EventResumed,
	domain.EventNoteAdded,
	domain.EventResolved,
	domain.EventClosed,
	domain.EventReopened,
	domain.EventLinked,
	domain.EventFollowupScheduled,
	domain.EventFeedbackSubmitted,
}

// EscalationKinds are produced by the periodic sweeps.
var EscalationKinds = []domain.TicketEventKind{
	domain.EventWarningFired,
	domain.EventBreachFired,
	domain.EventFollowupDue,
}
