package analytics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
)

type memoryGuard struct {
	seen     map[string]bool
	checkErr error
	deleted  []string
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{seen: map[string]bool{}}
}

func (g *memoryGuard) CheckAndMark(_ context.Context, eventID string) (bool, error) {
	if g.checkErr != nil {
		return false, g.checkErr
	}
	if g.seen[eventID] {
		return true, nil
	}
	g.seen[eventID] = true
	return false, nil
}

func (g *memoryGuard) Delete(_ context.Context, eventID string) error {
	delete(g.seen, eventID)
	g.deleted = append(g.deleted, eventID)
	return nil
}

type stubHandler struct {
	calls int
	err   error
}

func (h *stubHandler) Handle(context.Context, Envelope) error {
	h.calls++
	return h.err
}

type idleReceiver struct{}

func (idleReceiver) Receive(ctx context.Context, _ func(context.Context, *gcppubsub.Message)) error {
	<-ctx.Done()
	return ctx.Err()
}

func newTestConsumer(t *testing.T, handler Handler, guard eventGuard) *Consumer {
	t.Helper()
	consumer, err := NewConsumer(idleReceiver{}, handler, guard, testLogger())
	require.NoError(t, err)
	return consumer
}

func validMessage(t *testing.T, eventID string) ([]byte, map[string]string) {
	body := encodeEnvelope(t, eventID, time.Now(), map[string]string{"reason": "expired"})
	return body, orderAttrs(enums.EventPaymentFailed)
}

func TestConsumerHandlesOnce(t *testing.T) {
	handler := &stubHandler{}
	consumer := newTestConsumer(t, handler, newMemoryGuard())
	body, attrs := validMessage(t, "evt-1")

	assert.True(t, consumer.process(context.Background(), "m1", body, attrs))
	assert.True(t, consumer.process(context.Background(), "m2", body, attrs))
	assert.Equal(t, 1, handler.calls)
}

func TestConsumerReleasesClaimOnFailure(t *testing.T) {
	handler := &stubHandler{err: errors.New("bigquery down")}
	guard := newMemoryGuard()
	consumer := newTestConsumer(t, handler, guard)
	body, attrs := validMessage(t, "evt-2")

	assert.False(t, consumer.process(context.Background(), "m1", body, attrs))
	assert.Equal(t, []string{"evt-2"}, guard.deleted)

	handler.err = nil
	assert.True(t, consumer.process(context.Background(), "m1", body, attrs))
	assert.Equal(t, 2, handler.calls)
}

func TestConsumerAcksUnsupportedEvents(t *testing.T) {
	handler := &stubHandler{err: fmt.Errorf("%w: x", ErrUnsupportedEventType)}
	guard := newMemoryGuard()
	consumer := newTestConsumer(t, handler, guard)
	body, attrs := validMessage(t, "evt-3")

	assert.True(t, consumer.process(context.Background(), "m1", body, attrs))
	assert.Empty(t, guard.deleted)
}

func TestConsumerAcksUndecodableMessages(t *testing.T) {
	handler := &stubHandler{}
	consumer := newTestConsumer(t, handler, newMemoryGuard())

	assert.True(t, consumer.process(context.Background(), "m1", []byte("garbage"), map[string]string{}))
	assert.Zero(t, handler.calls)
}

func TestConsumerNacksWhenGuardUnavailable(t *testing.T) {
	handler := &stubHandler{}
	guard := newMemoryGuard()
	guard.checkErr = errors.New("redis down")
	consumer := newTestConsumer(t, handler, guard)
	body, attrs := validMessage(t, "evt-4")

	assert.False(t, consumer.process(context.Background(), "m1", body, attrs))
	assert.Zero(t, handler.calls)
}

func TestConsumerRunStopsWithContext(t *testing.T) {
	consumer := newTestConsumer(t, &stubHandler{}, newMemoryGuard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, consumer.Run(ctx), context.Canceled)
}

func TestNewConsumerValidates(t *testing.T) {
	_, err := NewConsumer(nil, &stubHandler{}, newMemoryGuard(), testLogger())
	require.Error(t, err)
	_, err = NewConsumer(idleReceiver{}, nil, newMemoryGuard(), testLogger())
	require.Error(t, err)
	_, err = NewConsumer(idleReceiver{}, &stubHandler{}, nil, testLogger())
	require.Error(t, err)
}
