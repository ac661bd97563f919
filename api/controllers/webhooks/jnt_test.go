package webhooks

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
)

type fakeCourierWebhook struct {
	body      []byte
	signature string
	err       error
}

func (f *fakeCourierWebhook) HandleWebhook(_ context.Context, body []byte, signature string) error {
	f.body = body
	f.signature = signature
	return f.err
}

func TestJNTWebhookPassesRawBodyAndSignature(t *testing.T) {
	svc := &fakeCourierWebhook{}
	body := []byte(`{"billCode":"JT0001","status":"DELIVERED"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/jnt", bytes.NewReader(body))
	req.Header.Set(JNTSignatureHeader, "ABC123")
	rec := httptest.NewRecorder()

	JNTWebhook(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if !bytes.Equal(svc.body, body) || svc.signature != "ABC123" {
		t.Fatalf("unexpected forwarded body %q signature %q", svc.body, svc.signature)
	}
}

func TestJNTWebhookMissingSignature(t *testing.T) {
	svc := &fakeCourierWebhook{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/jnt", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()

	JNTWebhook(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if svc.body != nil {
		t.Fatal("service must not be called without a signature")
	}
}

func TestJNTWebhookServiceRejection(t *testing.T) {
	svc := &fakeCourierWebhook{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid courier signature").
		WithReason(pkgerrors.ReasonInvalidSignature)}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/jnt", bytes.NewReader([]byte(`{}`)))
	req.Header.Set(JNTSignatureHeader, "nope")
	rec := httptest.NewRecorder()

	JNTWebhook(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestJNTWebhookRejectsOversizedPayload(t *testing.T) {
	svc := &fakeCourierWebhook{}
	body := bytes.Repeat([]byte("a"), maxPayloadBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/jnt", bytes.NewReader(body))
	req.Header.Set(JNTSignatureHeader, "ABC123")
	rec := httptest.NewRecorder()

	JNTWebhook(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.body != nil {
		t.Fatal("service must not see a truncated payload")
	}
}
