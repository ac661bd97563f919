package enums

// PaymentMethod describes how a buyer intends to settle an order.
type PaymentMethod string

const (
	PaymentMethodStripe PaymentMethod = "stripe"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodCOD    PaymentMethod = "cod"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodStripe,
	PaymentMethodCard,
	PaymentMethodCOD,
}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return member(p, validPaymentMethods) }

// CollectsOnDelivery reports whether the courier collects the amount at the
// door. Such orders ship before they are paid.
func (p PaymentMethod) CollectsOnDelivery() bool { return p == PaymentMethodCOD }

// ParsePaymentMethod is case-insensitive and ignores surrounding space.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parse("payment method", value, validPaymentMethods, true)
}
