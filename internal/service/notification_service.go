package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/did4510/Nexon/internal/events"
	"github.com/did4510/Nexon/internal/notify"
)

// NotificationService fans escalation notifications out to every configured sink
// and logs committed lifecycle events.
type NotificationService struct {
	dispatcher events.Dispatcher
	sinks      []notify.Sink
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, sinks ...notify.Sink) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		sinks:      sinks,
		logger:     logger,
	}
}

// Notify delivers n to every sink. A failing sink does not stop the others; the
// joined error is returned for logging only.
func (n *NotificationService) Notify(ctx context.Context, notification notify.Notification) error {
	var errs []error
	for _, sink := range n.sinks {
		if err := sink.Notify(ctx, notification); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RegisterHandlers subscribes to committed lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, kind := range events.LifecycleKinds {
		n.dispatcher.Subscribe(kind, n.handleLifecycle)
	}
	for _, kind := range events.EscalationKinds {
		n.dispatcher.Subscribe(kind, n.handleEscalation)
	}
}

func (n *NotificationService) handleLifecycle(_ context.Context, event events.Event) error {
	n.logger.Info("ticket event",
		zap.String("kind", string(event.Kind)),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("guild_id", event.GuildID),
		zap.Int64("number", event.Number),
		zap.String("state", string(event.State)),
		zap.String("actor_id", event.ActorID),
		zap.String("staff_id", event.StaffID))
	return nil
}

func (n *NotificationService) handleEscalation(_ context.Context, event events.Event) error {
	n.logger.Warn("ticket escalation event",
		zap.String("kind", string(event.Kind)),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("timer_kind", string(event.TimerKind)),
		zap.String("staff_id", event.StaffID))
	return nil
}
