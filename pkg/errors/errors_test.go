package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", detailsOK: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeUpstream, status: http.StatusBadGateway, publicMsg: "upstream provider unavailable", retryable: true, detailsOK: true},
		{code: CodeIntegrity, status: http.StatusConflict, publicMsg: "integrity violation", detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestReasonSurvivesWrapping(t *testing.T) {
	inner := New(CodeConflict, "out of stock").WithReason(ReasonInsufficientStock)
	outer := Wrap(CodeInternal, inner, "create order")

	if !HasReason(outer, ReasonInsufficientStock) {
		t.Fatalf("expected reason to be found through wrap chain")
	}
	if HasReason(outer, ReasonOrderNotFound) {
		t.Fatalf("unexpected reason match")
	}
	if HasReason(stdErrors.New("plain"), ReasonInsufficientStock) {
		t.Fatalf("plain errors carry no reason")
	}
	if inner.Reason() != ReasonInsufficientStock {
		t.Fatalf("unexpected reason %q", inner.Reason())
	}
}

func TestDumpMapsConstraintToReason(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23514", ConstraintName: "chk_products_stock", TableName: "products"}
	err := Wrap(CodeInternal, fmt.Errorf("reserve: %w", pgErr), "reserve stock")

	dump := Dump(err)
	if dump.Code != CodeInternal {
		t.Fatalf("unexpected code %s", dump.Code)
	}
	if dump.PG == nil || dump.PG.Table != "products" {
		t.Fatalf("expected postgres details, got %+v", dump.PG)
	}
	if dump.Reason != ReasonInsufficientStock {
		t.Fatalf("expected constraint reason, got %q", dump.Reason)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected three links in chain, got %v", dump.Chain)
	}

	pqErr := &pq.Error{Code: "23505", Constraint: "ux_shipments_order_id"}
	if got := ConstraintReason(pqErr); got != ReasonShipmentAlreadyExists {
		t.Fatalf("expected shipment conflict, got %q", got)
	}
	if got := ConstraintReason(stdErrors.New("plain")); got != "" {
		t.Fatalf("plain errors map to no reason, got %q", got)
	}
}

func TestDumpKeepsExplicitReason(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_shipments_tracking_number"}
	err := Wrap(CodeConflict, pgErr, "duplicate").WithReason(ReasonShipmentCreationFailed)

	if got := Dump(err).Reason; got != ReasonShipmentCreationFailed {
		t.Fatalf("expected explicit reason to win, got %q", got)
	}
	if Dump(nil).TopMessage != "" {
		t.Fatal("nil error should produce an empty dump")
	}
}

func TestRetryabilityAndCodes(t *testing.T) {
	wrapped := fmt.Errorf("confirm: %w", New(CodeDependency, "db down"))
	if !IsRetryable(wrapped) || !HasCode(wrapped, CodeDependency) {
		t.Fatal("expected dependency failure to be retryable")
	}
	if IsRetryable(New(CodeNotFound, "order not found")) {
		t.Fatal("not found must not be retried")
	}
	if !IsRetryable(stdErrors.New("plain")) {
		t.Fatal("untyped errors count as internal")
	}
	if IsRetryable(nil) || HasCode(nil, CodeInternal) {
		t.Fatal("nil error is neither retryable nor coded")
	}
	if got := Newf(CodeStateConflict, "shipment is already %s", "delivered").Message(); got != "shipment is already delivered" {
		t.Fatalf("unexpected message %q", got)
	}
}
