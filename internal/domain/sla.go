package domain

import (
	"math"
	"time"

	apperrors "github.com/did4510/Nexon/pkg/util/errorutil"
)

// TimerKind distinguishes the two SLA phases.
type TimerKind string

const (
	TimerKindResponse   TimerKind = "RESPONSE"
	TimerKindResolution TimerKind = "RESOLUTION"
)

// SLAPolicy defines per-category deadlines. Running timers hold their own computed
// deadlines, so editing a policy only affects timers started afterwards.
type SLAPolicy struct {
	CategoryID         string
	ResponseDuration   time.Duration
	ResolutionDuration time.Duration
	WarningFraction    float64
	// PauseOnPending overrides the service-wide default when set.
	PauseOnPending *bool
	// ReopenWindow overrides the service-wide default when set; zero disables reopen without override.
	ReopenWindow *time.Duration
	UpdatedAt    time.Time
}

// Validate checks the policy bounds.
func (p *SLAPolicy) Validate() error {
	details := map[string]any{"category_id": p.CategoryID}
	switch {
	case p.CategoryID == "":
		return apperrors.NewValidationError("category_id required", details)
	case p.ResponseDuration <= 0:
		return apperrors.NewValidationError("response duration must be positive", details)
	case p.ResolutionDuration <= 0:
		return apperrors.NewValidationError("resolution duration must be positive", details)
	case p.WarningFraction <= 0 || p.WarningFraction >= 1:
		return apperrors.NewValidationError("warning fraction must be between 0 and 1", details)
	case p.ReopenWindow != nil && *p.ReopenWindow < 0:
		return apperrors.NewValidationError("reopen window cannot be negative", details)
	}
	return nil
}

// Clone returns a deep copy of the policy.
func (p *SLAPolicy) Clone() *SLAPolicy {
	if p == nil {
		return nil
	}
	c := *p
	if p.PauseOnPending != nil {
		v := *p.PauseOnPending
		c.PauseOnPending = &v
	}
	if p.ReopenWindow != nil {
		v := *p.ReopenWindow
		c.ReopenWindow = &v
	}
	return &c
}

// DurationFor returns the deadline length for a timer kind.
func (p *SLAPolicy) DurationFor(kind TimerKind) time.Duration {
	if kind == TimerKindResolution {
		return p.ResolutionDuration
	}
	return p.ResponseDuration
}

// WarningOffset returns the fractional warning offset for a deadline length.
func (p *SLAPolicy) WarningOffset(d time.Duration) time.Duration {
	return time.Duration(math.Round(float64(d) * p.WarningFraction))
}

// SLATimer tracks one phase deadline for one ticket. Timers never fire on their own;
// the escalation sweep evaluates them.
type SLATimer struct {
	ID           string
	TicketID     int64
	Kind         TimerKind
	StartedAt    time.Time
	WarningAt    time.Time
	Deadline     time.Time
	WarningFired bool
	BreachFired  bool
	Stopped      bool
	StoppedAt    *time.Time
	PausedAt     *time.Time
	// PausedFor accumulates completed pauses; thresholds were already shifted by it.
	PausedFor time.Duration
}

// Paused reports whether the timer clock is currently suspended.
func (t *SLATimer) Paused() bool {
	return t.PausedAt != nil
}

// WarningDue reports whether a warning should fire at now.
func (t *SLATimer) WarningDue(now time.Time) bool {
	return !t.Stopped && !t.Paused() && !t.WarningFired && !now.Before(t.WarningAt)
}

// BreachDue reports whether a breach should fire at now.
func (t *SLATimer) BreachDue(now time.Time) bool {
	return !t.Stopped && !t.Paused() && !t.BreachFired && !now.Before(t.Deadline)
}

// NeedsEvaluation reports whether either threshold is pending at now.
func (t *SLATimer) NeedsEvaluation(now time.Time) bool {
	return t.WarningDue(now) || t.BreachDue(now)
}

func (t SLATimer) clone() SLATimer {
	t.StoppedAt = cloneTime(t.StoppedAt)
	t.PausedAt = cloneTime(t.PausedAt)
	return t
}

// TimerRef identifies an active timer for the escalation sweep.
type TimerRef struct {
	TicketID  int64
	TimerID   string
	Kind      TimerKind
	WarningAt time.Time
	Deadline  time.Time
}
