package metrics

import "github.com/prometheus/client_golang/prometheus"

// Payment confirmation outcomes.
const (
	ConfirmPaid        = "paid"
	ConfirmAlreadyPaid = "already_paid"
	ConfirmUnpaid      = "unpaid"
	ConfirmFailed      = "failed"
	ConfirmRefunded    = "refunded"
)

// PaymentMetrics counts checkout confirmations by outcome.
type PaymentMetrics struct {
	confirmations *prometheus.CounterVec
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_confirmations_total",
		Help: "Checkout session confirmations by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(confirmations)
	return &PaymentMetrics{confirmations: confirmations}
}

func (p *PaymentMetrics) IncConfirmation(outcome string) {
	if p == nil || p.confirmations == nil {
		return
	}
	p.confirmations.WithLabelValues(outcome).Inc()
}
