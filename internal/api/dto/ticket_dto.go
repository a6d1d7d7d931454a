package dto

import (
	"time"

	"github.com/did4510/Nexon/internal/domain"
)

// CreateTicketRequest payload. CreatorID defaults to the caller.
type CreateTicketRequest struct {
	GuildID    string                `json:"guild_id" validate:"required,max=64"`
	CategoryID string                `json:"category_id" validate:"required,max=64"`
	CreatorID  string                `json:"creator_id" validate:"omitempty,max=64"`
	Anonymous  bool                  `json:"anonymous"`
	Priority   domain.TicketPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
}

type TransferRequest struct {
	StaffID string `json:"staff_id" validate:"required,max=64"`
}

type CloseRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type ReopenRequest struct {
	Override bool `json:"override"`
}

type NoteRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

type FollowupRequest struct {
	At time.Time `json:"at" validate:"required"`
}

type LinkRequest struct {
	TicketID int64 `json:"ticket_id" validate:"required,gt=0"`
}

type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// TicketResponse is the public ticket view.
type TicketResponse struct {
	ID            int64                 `json:"id"`
	GuildID       string                `json:"guild_id"`
	Number        int64                 `json:"number"`
	CategoryID    string                `json:"category_id"`
	CreatorID     string                `json:"creator_id,omitempty"`
	Anonymous     bool                  `json:"anonymous"`
	State         domain.TicketState    `json:"state"`
	Priority      domain.TicketPriority `json:"priority"`
	AssignedStaff *string               `json:"assigned_staff"`
	PolicyApplied bool                  `json:"policy_applied"`
	CreatedAt     time.Time             `json:"created_at"`
	OpenedAt      time.Time             `json:"opened_at"`
	ClaimedAt     *time.Time            `json:"claimed_at,omitempty"`
	UpdatedAt     time.Time             `json:"updated_at"`
	ClosedAt      *time.Time            `json:"closed_at,omitempty"`
	ClosureReason string                `json:"closure_reason,omitempty"`
	FollowupAt    *time.Time            `json:"followup_at,omitempty"`
	LinkedTickets []int64               `json:"linked_tickets"`
	Notes         []domain.InternalNote `json:"notes,omitempty"`
	Timers        []TimerResponse       `json:"timers"`
	Version       int64                 `json:"version"`
	Warnings      []string              `json:"warnings,omitempty"`
}

// TimerResponse exposes an SLA timer.
type TimerResponse struct {
	ID           string           `json:"id"`
	Kind         domain.TimerKind `json:"kind"`
	StartedAt    time.Time        `json:"started_at"`
	WarningAt    time.Time        `json:"warning_at"`
	Deadline     time.Time        `json:"deadline"`
	WarningFired bool             `json:"warning_fired"`
	BreachFired  bool             `json:"breach_fired"`
	Stopped      bool             `json:"stopped"`
	Paused       bool             `json:"paused"`
}

// EventResponse is one audit log entry.
type EventResponse struct {
	ID        string                 `json:"id"`
	Seq       int64                  `json:"seq"`
	Kind      domain.TicketEventKind `json:"kind"`
	At        time.Time              `json:"at"`
	ActorID   string                 `json:"actor_id,omitempty"`
	StaffID   string                 `json:"staff_id,omitempty"`
	TimerKind domain.TimerKind       `json:"timer_kind,omitempty"`
	ElapsedMS int64                  `json:"elapsed_ms,omitempty"`
	Detail    string                 `json:"detail,omitempty"`
}

type LinkResponse struct {
	TicketA int64 `json:"ticket_a"`
	TicketB int64 `json:"ticket_b"`
	Created bool  `json:"created"`
}

type FeedbackResponse struct {
	TicketID    int64     `json:"ticket_id"`
	StaffID     string    `json:"staff_id,omitempty"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}
