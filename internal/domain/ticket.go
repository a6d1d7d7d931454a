package domain

import "time"

// TicketState enumerates lifecycle states for tickets.
type TicketState string

const (
	TicketStateOpen     TicketState = "OPEN"
	TicketStateClaimed  TicketState = "CLAIMED"
	TicketStatePending  TicketState = "PENDING"
	TicketStateResolved TicketState = "RESOLVED"
	TicketStateClosed   TicketState = "CLOSED"
)

// AllTicketStates lists every state in lifecycle order.
var AllTicketStates = []TicketState{
	TicketStateOpen,
	TicketStateClaimed,
	TicketStatePending,
	TicketStateResolved,
	TicketStateClosed,
}

// HoldsAssignment reports whether a ticket in this state must carry an assignee.
func (s TicketState) HoldsAssignment() bool {
	return s == TicketStateClaimed || s == TicketStatePending || s == TicketStateResolved
}

// CountsTowardWorkload reports whether the assignee is actively working the ticket.
func (s TicketState) CountsTowardWorkload() bool {
	return s == TicketStateClaimed || s == TicketStatePending
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// IsValid reports whether p is a known priority.
func (p TicketPriority) IsValid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// InternalNote is a staff-only note owned by its ticket.
type InternalNote struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Ticket is the aggregate for support requests. Timers belong to the ticket and are
// committed together with it.
type Ticket struct {
	ID            int64
	GuildID       string
	Number        int64
	CategoryID    string
	CreatorID     string
	Anonymous     bool
	State         TicketState
	Priority      TicketPriority
	AssignedStaff *string
	PolicyApplied bool
	// Policy is the SLA policy snapshot taken at creation; later policy edits do not reach it.
	Policy        *SLAPolicy
	CreatedAt     time.Time
	OpenedAt      time.Time
	ClaimedAt     *time.Time
	UpdatedAt     time.Time
	ClosedAt      *time.Time
	ClosureReason string
	FollowupAt    *time.Time
	LinkedTickets []int64
	Notes         []InternalNote
	Timers        []SLATimer
	Version       int64
}

// Assignee returns the assigned staff identity or "".
func (t *Ticket) Assignee() string {
	if t.AssignedStaff == nil {
		return ""
	}
	return *t.AssignedStaff
}

// ActiveTimer returns the running timer of the given kind, if any.
func (t *Ticket) ActiveTimer(kind TimerKind) *SLATimer {
	for i := range t.Timers {
		if t.Timers[i].Kind == kind && !t.Timers[i].Stopped {
			return &t.Timers[i]
		}
	}
	return nil
}

// TimerByID returns the timer with id, if any.
func (t *Ticket) TimerByID(id string) *SLATimer {
	for i := range t.Timers {
		if t.Timers[i].ID == id {
			return &t.Timers[i]
		}
	}
	return nil
}

// IsLinkedTo reports whether other is already linked.
func (t *Ticket) IsLinkedTo(other int64) bool {
	for _, id := range t.LinkedTickets {
		if id == other {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	c := *t
	c.AssignedStaff = cloneString(t.AssignedStaff)
	c.ClaimedAt = cloneTime(t.ClaimedAt)
	c.ClosedAt = cloneTime(t.ClosedAt)
	c.FollowupAt = cloneTime(t.FollowupAt)
	c.Policy = t.Policy.Clone()
	if t.LinkedTickets != nil {
		c.LinkedTickets = append([]int64{}, t.LinkedTickets...)
	}
	if t.Notes != nil {
		c.Notes = append([]InternalNote{}, t.Notes...)
	}
	if t.Timers != nil {
		c.Timers = make([]SLATimer, len(t.Timers))
		for i := range t.Timers {
			c.Timers[i] = t.Timers[i].clone()
		}
	}
	return &c
}

// TicketLink is an unordered pair of linked tickets, normalized so A < B.
type TicketLink struct {
	A int64
	B int64
}

// NewTicketLink normalizes the pair ordering.
func NewTicketLink(x, y int64) TicketLink {
	if x > y {
		x, y = y, x
	}
	return TicketLink{A: x, B: y}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
