package enums

// PaymentStatus tracks the settlement state of an order.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

// paymentTransitions lists the statuses each status may move to. Failed and
// refunded are final.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded},
	PaymentStatusPaid:    {PaymentStatusFailed, PaymentStatusRefunded},
}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool { return member(p, validPaymentStatuses) }

// Settled reports whether money has been captured for the order.
func (p PaymentStatus) Settled() bool { return p == PaymentStatusPaid }

// Closed reports whether the order will never be paid, so held stock is free.
func (p PaymentStatus) Closed() bool {
	return p == PaymentStatusFailed || p == PaymentStatusRefunded
}

// CanTransitionTo reports whether p may move to next. Staying put is not a
// transition.
func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return member(next, paymentTransitions[p])
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parse("payment status", value, validPaymentStatuses, false)
}
