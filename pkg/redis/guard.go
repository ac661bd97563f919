package redis

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EventGuard remembers processed event ids per scope so redelivered webhooks
// and Pub/Sub messages are acknowledged without being handled twice.
type EventGuard struct {
	store IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewEventGuard(store IdempotencyStore, ttl time.Duration, scope string) (*EventGuard, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	case scope == "":
		return nil, errors.New("scope is required")
	}
	return &EventGuard{store: store, ttl: ttl, scope: scope}, nil
}

// CheckAndMark claims eventID and reports whether it was already claimed.
func (g *EventGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	claimed, err := g.store.SetNX(ctx, g.key(eventID), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s event %s: %w", g.scope, eventID, err)
	}
	return !claimed, nil
}

// Delete drops the claim so a failed handler can be retried.
func (g *EventGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.Del(ctx, g.key(eventID))
}

func (g *EventGuard) key(eventID string) string {
	return g.store.IdempotencyKey(g.scope, eventID)
}
