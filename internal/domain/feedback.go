package domain

import "time"

// Feedback is a post-closure satisfaction rating from the ticket creator.
type Feedback struct {
	TicketID    int64
	UserID      string
	StaffID     string
	CategoryID  string
	Rating      int
	Comment     string
	SubmittedAt time.Time
}

const (
	MinRating = 1
	MaxRating = 5
)
