package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/did4510/Nexon/internal/domain"
)

// RedisSink publishes notifications as JSON on a pub/sub channel the chat gateway
// listens on.
type RedisSink struct {
	client  redis.Cmdable
	channel string
}

// NewRedisSink creates the sink.
func NewRedisSink(client redis.Cmdable, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Notify(ctx context.Context, n Notification) error {
	if s.client == nil {
		return errors.New("redis client not configured")
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.channel, payload).Err()
}

// EscalationMessage is published for every breach escalation.
type EscalationMessage struct {
	Type      string           `json:"type"`
	TicketID  int64            `json:"ticket_id"`
	TimerKind domain.TimerKind `json:"timer_kind"`
	At        time.Time        `json:"at"`
}

// ChannelEscalation notifies the escalation channel through Redis.
type ChannelEscalation struct {
	client  redis.Cmdable
	channel string
	now     func() time.Time
}

// NewChannelEscalation creates the action. now stamps each message.
func NewChannelEscalation(client redis.Cmdable, channel string, now func() time.Time) *ChannelEscalation {
	return &ChannelEscalation{client: client, channel: channel, now: now}
}

func (e *ChannelEscalation) Escalate(ctx context.Context, ticketID int64, kind domain.TimerKind) error {
	if e.client == nil {
		return errors.New("redis client not configured")
	}
	payload, err := json.Marshal(EscalationMessage{
		Type:      "escalation",
		TicketID:  ticketID,
		TimerKind: kind,
		At:        e.now(),
	})
	if err != nil {
		return err
	}
	return e.client.Publish(ctx, e.channel, payload).Err()
}
