package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_shipments_order_id"}
	wrapped := fmt.Errorf("insert shipment: %w", pgErr)

	if !IsUniqueViolation(wrapped, "") {
		t.Fatal("expected pg unique violation")
	}
	if !IsUniqueViolation(wrapped, "ux_shipments_order_id") {
		t.Fatal("expected constraint match")
	}
	if IsUniqueViolation(wrapped, "ux_shipments_tracking_number") {
		t.Fatal("unexpected constraint match")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: shipments.order_id"), "") {
		t.Fatal("expected sqlite unique violation")
	}
	if IsUniqueViolation(errors.New("connection reset"), "") {
		t.Fatal("unexpected match for unrelated error")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil is never a violation")
	}
}
