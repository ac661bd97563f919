package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox"
)

func encodeEnvelope(t *testing.T, eventID string, occurredAt time.Time, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: occurredAt,
		Data:       raw,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return body
}

func orderAttrs(eventType enums.OutboxEventType) map[string]string {
	return map[string]string{
		"event_id":       "attr-event",
		"event_type":     string(eventType),
		"aggregate_type": string(enums.AggregateOrder),
		"aggregate_id":   "7d0c5f4e-2d9b-4c55-9a57-0d2f3b1e6a10",
		"created_at":     "2026-03-01T10:00:00Z",
	}
}

func TestDecodeEnvelopePrefersBodyFields(t *testing.T) {
	occurred := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("PKT", 5*3600))
	body := encodeEnvelope(t, "body-event", occurred, map[string]string{"reason": "expired"})

	env, err := DecodeEnvelope(body, orderAttrs(enums.EventPaymentFailed))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.EventID != "body-event" {
		t.Fatalf("expected body event id, got %q", env.EventID)
	}
	if !env.OccurredAt.Equal(occurred) || env.OccurredAt.Location() != time.UTC {
		t.Fatalf("expected occurred_at %v in UTC, got %v", occurred, env.OccurredAt)
	}
	if env.EventType != enums.EventPaymentFailed || env.AggregateType != enums.AggregateOrder {
		t.Fatalf("unexpected routing fields %+v", env)
	}
}

func TestDecodeEnvelopeFallsBackToAttributes(t *testing.T) {
	body := encodeEnvelope(t, "", time.Time{}, map[string]string{"reason": "expired"})

	env, err := DecodeEnvelope(body, orderAttrs(enums.EventPaymentFailed))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.EventID != "attr-event" {
		t.Fatalf("expected attribute event id, got %q", env.EventID)
	}
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if !env.OccurredAt.Equal(want) {
		t.Fatalf("expected %v, got %v", want, env.OccurredAt)
	}
}

func TestDecodeEnvelopeRejectsBadInput(t *testing.T) {
	valid := encodeEnvelope(t, "evt", time.Now(), map[string]string{"k": "v"})

	cases := []struct {
		name  string
		body  []byte
		attrs func() map[string]string
	}{
		{
			name:  "not json",
			body:  []byte("{"),
			attrs: func() map[string]string { return orderAttrs(enums.EventOrderPaid) },
		},
		{
			name: "unknown event type",
			body: valid,
			attrs: func() map[string]string {
				a := orderAttrs(enums.EventOrderPaid)
				a["event_type"] = "order_refunded"
				return a
			},
		},
		{
			name: "unknown aggregate",
			body: valid,
			attrs: func() map[string]string {
				a := orderAttrs(enums.EventOrderPaid)
				a["aggregate_type"] = "cart"
				return a
			},
		},
		{
			name: "missing aggregate id",
			body: valid,
			attrs: func() map[string]string {
				a := orderAttrs(enums.EventOrderPaid)
				delete(a, "aggregate_id")
				return a
			},
		},
		{
			name:  "missing data",
			body:  []byte(`{"version":1,"event_id":"evt"}`),
			attrs: func() map[string]string { return orderAttrs(enums.EventOrderPaid) },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeEnvelope(tc.body, tc.attrs()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
