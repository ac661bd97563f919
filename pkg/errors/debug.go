package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// constraintReasons maps schema constraints to the domain failure they guard.
var constraintReasons = map[string]Reason{
	"chk_products_stock":            ReasonInsufficientStock,
	"chk_products_reserved_stock":   ReasonInsufficientStock,
	"chk_order_line_items_quantity": ReasonInvalidQuantity,
	"chk_orders_total":              ReasonInvalidAmount,
	"ux_shipments_order_id":         ReasonShipmentAlreadyExists,
	"ux_shipments_tracking_number":  ReasonShipmentAlreadyExists,
	"ux_reviews_product_user":       ReasonAlreadyReviewed,
	"chk_reviews_rating":            ReasonInvalidRating,
}

// PGDetails is the driver-neutral view of a postgres error.
type PGDetails struct {
	Code       string `json:"pg_code,omitempty"`
	Constraint string `json:"pg_constraint,omitempty"`
	Table      string `json:"pg_table,omitempty"`
	Column     string `json:"pg_column,omitempty"`
	Detail     string `json:"pg_detail,omitempty"`
	Message    string `json:"pg_message,omitempty"`
}

// ErrorDump flattens an error chain for request logs.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Reason     Reason   `json:"reason,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	PG *PGDetails `json:"pg,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
		d.Reason = typed.Reason()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	d.PG = postgresDetails(err)
	if d.Reason == "" && d.PG != nil {
		d.Reason = constraintReasons[d.PG.Constraint]
	}
	return d
}

// ConstraintReason returns the domain reason behind a violated schema
// constraint, or "" when err is not a known constraint violation.
func ConstraintReason(err error) Reason {
	pg := postgresDetails(err)
	if pg == nil {
		return ""
	}
	return constraintReasons[pg.Constraint]
}

func postgresDetails(err error) *PGDetails {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &PGDetails{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &PGDetails{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}
