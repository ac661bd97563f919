package errors

import stdErrors "errors"

// Reason names the domain failure behind a coded error so callers can branch
// on it without parsing messages.
type Reason string

const (
	ReasonInvalidQuantity           Reason = "INVALID_QUANTITY"
	ReasonInvalidAmount             Reason = "INVALID_AMOUNT"
	ReasonProductNotFound           Reason = "PRODUCT_NOT_FOUND"
	ReasonOrderNotFound             Reason = "ORDER_NOT_FOUND"
	ReasonShipmentNotFound          Reason = "SHIPMENT_NOT_FOUND"
	ReasonInsufficientStock         Reason = "INSUFFICIENT_STOCK"
	ReasonStatusRegression          Reason = "STATUS_REGRESSION"
	ReasonShipmentAlreadyExists     Reason = "SHIPMENT_ALREADY_EXISTS"
	ReasonShipmentCreationFailed    Reason = "SHIPMENT_CREATION_FAILED"
	ReasonCancellationRejected      Reason = "CANCELLATION_REJECTED"
	ReasonInvalidSignature          Reason = "INVALID_SIGNATURE"
	ReasonPaymentGatewayUnavailable Reason = "PAYMENT_GATEWAY_UNAVAILABLE"
	ReasonCourierUnavailable        Reason = "COURIER_UNAVAILABLE"
	ReasonAlreadyReviewed           Reason = "ALREADY_REVIEWED"
	ReasonReviewNotFound            Reason = "REVIEW_NOT_FOUND"
	ReasonInvalidRating             Reason = "INVALID_RATING"
)

// WithReason tags the error with a domain reason.
func (e *Error) WithReason(reason Reason) *Error {
	if e == nil {
		return nil
	}
	e.reason = reason
	return e
}

// Reason returns the domain reason, if any.
func (e *Error) Reason() Reason {
	if e == nil {
		return ""
	}
	return e.reason
}

// HasReason reports whether any typed error in err's chain carries reason.
func HasReason(err error, reason Reason) bool {
	for err != nil {
		var typed *Error
		if !stdErrors.As(err, &typed) {
			return false
		}
		if typed.reason == reason {
			return true
		}
		err = typed.cause
	}
	return false
}
