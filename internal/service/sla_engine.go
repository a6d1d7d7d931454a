package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/did4510/Nexon/internal/config"
	"github.com/did4510/Nexon/internal/domain"
)

// SLAEngine computes timer deadlines and applies stop/pause/resume. It keeps no state
// of its own: timers live on the ticket and are persisted with it.
type SLAEngine struct {
	defaults config.SLAConfig
	newID    func() string
}

// NewSLAEngine creates the engine with service-wide defaults.
func NewSLAEngine(defaults config.SLAConfig) *SLAEngine {
	return &SLAEngine{defaults: defaults, newID: uuid.NewString}
}

// Start builds a running timer of kind beginning at at.
func (e *SLAEngine) Start(policy *domain.SLAPolicy, ticketID int64, kind domain.TimerKind, at time.Time) domain.SLATimer {
	duration := policy.DurationFor(kind)
	offset := policy.WarningOffset(duration)
	if offset >= duration {
		offset = duration - 1
	}
	return domain.SLATimer{
		ID:        e.newID(),
		TicketID:  ticketID,
		Kind:      kind,
		StartedAt: at,
		WarningAt: at.Add(offset),
		Deadline:  at.Add(duration),
	}
}

// Stop freezes the timer and returns the active elapsed time, excluding pauses.
// Stopping an already stopped timer returns its recorded elapsed time.
func (e *SLAEngine) Stop(timer *domain.SLATimer, at time.Time) time.Duration {
	if timer.Stopped {
		if timer.StoppedAt == nil {
			return 0
		}
		return timer.StoppedAt.Sub(timer.StartedAt) - timer.PausedFor
	}
	if timer.PausedAt != nil {
		timer.PausedFor += at.Sub(*timer.PausedAt)
		timer.PausedAt = nil
	}
	stoppedAt := at
	timer.Stopped = true
	timer.StoppedAt = &stoppedAt
	elapsed := at.Sub(timer.StartedAt) - timer.PausedFor
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Pause suspends evaluation of a running timer.
func (e *SLAEngine) Pause(timer *domain.SLATimer, at time.Time) bool {
	if timer.Stopped || timer.PausedAt != nil {
		return false
	}
	pausedAt := at
	timer.PausedAt = &pausedAt
	return true
}

// Resume shifts both thresholds by the paused span so the timer owes the same
// remaining time it had when paused.
func (e *SLAEngine) Resume(timer *domain.SLATimer, at time.Time) bool {
	if timer.Stopped || timer.PausedAt == nil {
		return false
	}
	paused := at.Sub(*timer.PausedAt)
	if paused < 0 {
		paused = 0
	}
	timer.WarningAt = timer.WarningAt.Add(paused)
	timer.Deadline = timer.Deadline.Add(paused)
	timer.PausedFor += paused
	timer.PausedAt = nil
	return true
}

// StopAll stops every running timer on the ticket.
func (e *SLAEngine) StopAll(ticket *domain.Ticket, at time.Time) {
	for i := range ticket.Timers {
		if !ticket.Timers[i].Stopped {
			e.Stop(&ticket.Timers[i], at)
		}
	}
}

// PauseOnPending resolves the pending-pause flag for the ticket's policy snapshot.
func (e *SLAEngine) PauseOnPending(policy *domain.SLAPolicy) bool {
	if policy != nil && policy.PauseOnPending != nil {
		return *policy.PauseOnPending
	}
	return e.defaults.PauseOnPending
}

// ReopenWindow resolves how long after closing a ticket may be reopened without an
// override. Zero means never.
func (e *SLAEngine) ReopenWindow(policy *domain.SLAPolicy) time.Duration {
	if policy != nil && policy.ReopenWindow != nil {
		return *policy.ReopenWindow
	}
	if e.defaults.ReopenWindow != nil {
		return *e.defaults.ReopenWindow
	}
	return 0
}
