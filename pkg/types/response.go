package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the body clients branch on. Code is the coarse class and
// Reason the domain-specific cause, e.g. INSUFFICIENT_STOCK.
type APIError struct {
	Code      string `json:"code"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
