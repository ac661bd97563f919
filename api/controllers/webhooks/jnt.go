package webhooks

import (
	"context"
	"net/http"

	"github.com/MudassirSafi/Wolf-Backend/api/responses"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
)

// JNTSignatureHeader carries upper(hex(md5(body + secret))).
const JNTSignatureHeader = "X-Jnt-Signature"

type courierWebhookService interface {
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

// JNTWebhook hands courier status pushes to the shipment service, which
// verifies the signature against the raw body before ingesting.
func JNTWebhook(svc courierWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}

		body, err := readPayload(w, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		signature := r.Header.Get(JNTSignatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, invalidSignature("courier signature missing"))
			return
		}

		if err := svc.HandleWebhook(ctx, body, signature); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, received)
	}
}
