package analytics

import (
	"encoding/json"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
)

// OrderEventRow mirrors the order_events table.
type OrderEventRow struct {
	EventID       string              `bigquery:"event_id"`
	EventType     string              `bigquery:"event_type"`
	OccurredAt    time.Time           `bigquery:"occurred_at"`
	OrderID       string              `bigquery:"order_id"`
	UserID        bigquery.NullString `bigquery:"user_id"`
	Status        bigquery.NullString `bigquery:"status"`
	PaymentStatus bigquery.NullString `bigquery:"payment_status"`
	PaymentMethod bigquery.NullString `bigquery:"payment_method"`
	TotalCents    bigquery.NullInt64  `bigquery:"total_cents"`
	Currency      bigquery.NullString `bigquery:"currency"`
	ItemCount     bigquery.NullInt64  `bigquery:"item_count"`
	Reason        bigquery.NullString `bigquery:"reason"`
	Payload       bigquery.NullJSON   `bigquery:"payload"`
}

// ShipmentEventRow mirrors the shipment_events table.
type ShipmentEventRow struct {
	EventID        string              `bigquery:"event_id"`
	EventType      string              `bigquery:"event_type"`
	OccurredAt     time.Time           `bigquery:"occurred_at"`
	ShipmentID     string              `bigquery:"shipment_id"`
	OrderID        string              `bigquery:"order_id"`
	TrackingNumber string              `bigquery:"tracking_number"`
	ServiceType    bigquery.NullString `bigquery:"service_type"`
	RawStatus      bigquery.NullString `bigquery:"raw_status"`
	FromStatus     bigquery.NullString `bigquery:"from_status"`
	ToStatus       bigquery.NullString `bigquery:"to_status"`
	Location       bigquery.NullString `bigquery:"location"`
	Reason         bigquery.NullString `bigquery:"reason"`
	Payload        bigquery.NullJSON   `bigquery:"payload"`
}

func nullString(v string) bigquery.NullString {
	return bigquery.NullString{StringVal: v, Valid: v != ""}
}

func nullInt(v int64) bigquery.NullInt64 {
	return bigquery.NullInt64{Int64: v, Valid: true}
}

// cents converts a major-unit amount to minor units, rounding half away from zero.
func cents(amount decimal.Decimal) bigquery.NullInt64 {
	return nullInt(amount.Shift(2).Round(0).IntPart())
}

func rawJSON(payload json.RawMessage) bigquery.NullJSON {
	if len(payload) == 0 {
		return bigquery.NullJSON{}
	}
	return bigquery.NullJSON{JSONVal: string(payload), Valid: true}
}
