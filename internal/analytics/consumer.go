package analytics

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
)

// Handler processes one decoded envelope.
type Handler interface {
	Handle(ctx context.Context, env Envelope) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// Consumer feeds the analytics subscription into a Handler. Each event id is
// handled at most once while its guard claim lives; a failed handler releases
// the claim and nacks so Pub/Sub redelivers.
type Consumer struct {
	subscription receiver
	handler      Handler
	guard        eventGuard
	logg         *logger.Logger
}

func NewConsumer(subscription receiver, handler Handler, guard eventGuard, logg *logger.Logger) (*Consumer, error) {
	switch {
	case subscription == nil:
		return nil, errors.New("analytics subscription is required")
	case handler == nil:
		return nil, errors.New("analytics handler is required")
	case guard == nil:
		return nil, errors.New("event guard is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}
	return &Consumer{subscription: subscription, handler: handler, guard: guard, logg: logg}, nil
}

// Run blocks until ctx is cancelled or the subscription fails.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(msgCtx context.Context, msg *gcppubsub.Message) {
		if c.process(msgCtx, msg.ID, msg.Data, msg.Attributes) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process reports whether the message should be acked.
func (c *Consumer) process(ctx context.Context, messageID string, data []byte, attrs map[string]string) bool {
	logCtx := c.logg.WithField(ctx, "message_id", messageID)

	env, err := DecodeEnvelope(data, attrs)
	if err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "dropping undecodable analytics message")
		return true
	}
	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"event_id":     env.EventID,
		"event_type":   env.EventType,
		"aggregate_id": env.AggregateID,
	})

	seen, err := c.guard.CheckAndMark(logCtx, env.EventID)
	if err != nil {
		c.logg.Error(logCtx, "analytics idempotency check failed", err)
		return false
	}
	if seen {
		c.logg.Info(logCtx, "analytics event already handled")
		return true
	}

	if err := c.handler.Handle(logCtx, *env); err != nil {
		if errors.Is(err, ErrUnsupportedEventType) {
			c.logg.Warn(logCtx, "analytics event type not tracked")
			return true
		}
		c.logg.Error(logCtx, "analytics handler failed", err)
		if delErr := c.guard.Delete(logCtx, env.EventID); delErr != nil {
			c.logg.Error(logCtx, "failed to release analytics claim", delErr)
		}
		return false
	}
	return true
}
