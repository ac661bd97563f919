package webhooks

import (
	"errors"
	"io"
	"net/http"

	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
)

// maxPayloadBytes bounds provider pushes. Both Stripe and J&T stay far below it.
const maxPayloadBytes = 1 << 20

var received = map[string]bool{"received": true}

// readPayload returns the raw body exactly as signed by the provider.
func readPayload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err == nil {
		return body, nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "webhook payload exceeds %d bytes", tooLarge.Limit)
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
}

func invalidSignature(msg string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, msg).WithReason(pkgerrors.ReasonInvalidSignature)
}
