package stripewebhook

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stripe/stripe-go/v84"

	"github.com/MudassirSafi/Wolf-Backend/internal/payments"
	pkgstripe "github.com/MudassirSafi/Wolf-Backend/pkg/stripe"
)

type stubReconciler struct {
	confirmed []string
	failed    map[string]string
}

func (s *stubReconciler) Confirm(_ context.Context, sessionID string) (*payments.ConfirmResult, error) {
	s.confirmed = append(s.confirmed, sessionID)
	return &payments.ConfirmResult{SessionID: sessionID, Paid: true}, nil
}

func (s *stubReconciler) FailSession(_ context.Context, session *pkgstripe.CheckoutSession, reason string) error {
	if s.failed == nil {
		s.failed = map[string]string{}
	}
	s.failed[session.OrderID] = reason
	return nil
}

func sessionEvent(t *testing.T, eventType stripe.EventType, session stripe.CheckoutSession) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	return &stripe.Event{ID: "evt_1", Type: eventType, Data: &stripe.EventData{Raw: raw}}
}

func TestHandleEventConfirmsCompletedSessions(t *testing.T) {
	reconciler := &stubReconciler{}
	svc, err := NewService(reconciler, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	for _, eventType := range []stripe.EventType{
		stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
	} {
		event := sessionEvent(t, eventType, stripe.CheckoutSession{ID: "cs_test_paid"})
		if err := svc.HandleEvent(context.Background(), event); err != nil {
			t.Fatalf("handle %s: %v", eventType, err)
		}
	}
	if len(reconciler.confirmed) != 2 || reconciler.confirmed[0] != "cs_test_paid" {
		t.Fatalf("unexpected confirmations %v", reconciler.confirmed)
	}
}

func TestHandleEventFailsExpiredSessions(t *testing.T) {
	reconciler := &stubReconciler{}
	svc, _ := NewService(reconciler, nil)

	event := sessionEvent(t, stripe.EventTypeCheckoutSessionExpired, stripe.CheckoutSession{
		ID:       "cs_test_expired",
		Metadata: map[string]string{pkgstripe.MetadataOrderID: "order-1"},
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle expired: %v", err)
	}
	event = sessionEvent(t, stripe.EventTypeCheckoutSessionAsyncPaymentFailed, stripe.CheckoutSession{
		ID:                "cs_test_failed",
		ClientReferenceID: "order-2",
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle async failed: %v", err)
	}

	if reconciler.failed["order-1"] != reasonExpired {
		t.Fatalf("expected expiry reason, got %q", reconciler.failed["order-1"])
	}
	if reconciler.failed["order-2"] != reasonAsyncFailed {
		t.Fatalf("expected async failure reason, got %q", reconciler.failed["order-2"])
	}
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	reconciler := &stubReconciler{}
	svc, _ := NewService(reconciler, nil)

	event := &stripe.Event{Type: stripe.EventTypeChargeRefunded, Data: &stripe.EventData{Raw: []byte(`{}`)}}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected ignored event, got %v", err)
	}
	if len(reconciler.confirmed) != 0 || len(reconciler.failed) != 0 {
		t.Fatal("expected no reconciliation work")
	}
}

func TestHandleEventRejectsMissingSessionID(t *testing.T) {
	svc, _ := NewService(&stubReconciler{}, nil)
	event := sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, stripe.CheckoutSession{})
	if err := svc.HandleEvent(context.Background(), event); err == nil {
		t.Fatal("expected error for session without id")
	}
	if err := svc.HandleEvent(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil event")
	}
}
