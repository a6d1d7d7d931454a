package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/did4510/Nexon/internal/domain"
)

// LogSink writes notifications to the structured log.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates the sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(_ context.Context, n Notification) error {
	s.logger.Info("ticket notification",
		zap.String("kind", string(n.Kind)),
		zap.Int64("ticket_id", n.TicketID),
		zap.String("guild_id", n.GuildID),
		zap.Int64("number", n.Number),
		zap.String("timer_kind", string(n.TimerKind)),
		zap.Duration("remaining", n.Remaining),
		zap.String("staff_id", n.AssignedStaff))
	return nil
}

// LogEscalation records breaches in the log; used when no escalation channel is configured.
type LogEscalation struct {
	logger *zap.Logger
}

// NewLogEscalation creates the action.
func NewLogEscalation(logger *zap.Logger) *LogEscalation {
	return &LogEscalation{logger: logger}
}

func (e *LogEscalation) Escalate(_ context.Context, ticketID int64, kind domain.TimerKind) error {
	e.logger.Warn("sla breach escalated",
		zap.Int64("ticket_id", ticketID),
		zap.String("timer_kind", string(kind)))
	return nil
}
