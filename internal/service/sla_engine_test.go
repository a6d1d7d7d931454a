package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/did4510/Nexon/internal/config"
	"github.com/did4510/Nexon/internal/domain"
)

func billingPolicy() *domain.SLAPolicy {
	return &domain.SLAPolicy{
		CategoryID:         "billing",
		ResponseDuration:   30 * time.Minute,
		ResolutionDuration: 4 * time.Hour,
		WarningFraction:    0.8,
	}
}

func TestSLAEngineStartComputesThresholds(t *testing.T) {
	engine := NewSLAEngine(config.SLAConfig{})

	response := engine.Start(billingPolicy(), 7, domain.TimerKindResponse, t0)
	assert.NotEmpty(t, response.ID)
	assert.Equal(t, int64(7), response.TicketID)
	assert.Equal(t, t0.Add(24*time.Minute), response.WarningAt)
	assert.Equal(t, t0.Add(30*time.Minute), response.Deadline)

	resolution := engine.Start(billingPolicy(), 7, domain.TimerKindResolution, t0)
	assert.Equal(t, t0.Add(192*time.Minute), resolution.WarningAt)
	assert.Equal(t, t0.Add(4*time.Hour), resolution.Deadline)
	assert.NotEqual(t, response.ID, resolution.ID)
}

func TestSLAEngineKeepsWarningBeforeDeadline(t *testing.T) {
	engine := NewSLAEngine(config.SLAConfig{})
	policy := &domain.SLAPolicy{
		CategoryID:         "tiny",
		ResponseDuration:   time.Nanosecond,
		ResolutionDuration: time.Nanosecond,
		WarningFraction:    0.99,
	}

	timer := engine.Start(policy, 1, domain.TimerKindResponse, t0)
	assert.True(t, timer.WarningAt.Before(timer.Deadline))
}

func TestSLAEngineStopExcludesPausedTime(t *testing.T) {
	engine := NewSLAEngine(config.SLAConfig{})
	timer := engine.Start(billingPolicy(), 1, domain.TimerKindResolution, t0)

	require.True(t, engine.Pause(&timer, t0.Add(time.Hour)))
	assert.False(t, engine.Pause(&timer, t0.Add(time.Hour)))

	elapsed := engine.Stop(&timer, t0.Add(3*time.Hour))
	assert.Equal(t, time.Hour, elapsed)
	assert.True(t, timer.Stopped)
	assert.Nil(t, timer.PausedAt)
	assert.Equal(t, 2*time.Hour, timer.PausedFor)

	assert.Equal(t, time.Hour, engine.Stop(&timer, t0.Add(5*time.Hour)))
	assert.False(t, engine.Resume(&timer, t0.Add(5*time.Hour)))
}

func TestSLAEngineResumeShiftsThresholds(t *testing.T) {
	engine := NewSLAEngine(config.SLAConfig{})
	timer := engine.Start(billingPolicy(), 1, domain.TimerKindResponse, t0)

	assert.False(t, engine.Resume(&timer, t0))
	require.True(t, engine.Pause(&timer, t0.Add(10*time.Minute)))
	require.True(t, engine.Resume(&timer, t0.Add(25*time.Minute)))

	assert.Equal(t, t0.Add(39*time.Minute), timer.WarningAt)
	assert.Equal(t, t0.Add(45*time.Minute), timer.Deadline)
	assert.Equal(t, 15*time.Minute, timer.PausedFor)
	assert.False(t, timer.WarningDue(t0.Add(38*time.Minute)))
	assert.True(t, timer.WarningDue(t0.Add(39*time.Minute)))
}

func TestSLAEngineResolvesDefaults(t *testing.T) {
	window := 48 * time.Hour
	engine := NewSLAEngine(config.SLAConfig{PauseOnPending: true, ReopenWindow: &window})

	policy := billingPolicy()
	assert.True(t, engine.PauseOnPending(policy))
	assert.Equal(t, 48*time.Hour, engine.ReopenWindow(policy))
	assert.Equal(t, 48*time.Hour, engine.ReopenWindow(nil))

	off := false
	short := time.Hour
	policy.PauseOnPending = &off
	policy.ReopenWindow = &short
	assert.False(t, engine.PauseOnPending(policy))
	assert.Equal(t, time.Hour, engine.ReopenWindow(policy))

	assert.Zero(t, NewSLAEngine(config.SLAConfig{}).ReopenWindow(nil))
}
