package webhooks

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/agendali/payments-backend/api/responses"
	mpwebhook "github.com/agendali/payments-backend/internal/webhooks/mercadopago"
	pkgerrors "github.com/agendali/payments-backend/pkg/errors"
	"github.com/agendali/payments-backend/pkg/logger"
)

type MercadoPagoService interface {
	HandleNotification(ctx context.Context, notification mpwebhook.Notification) error
}

// MercadoPagoWebhook receives payment notifications from Mercado Pago.
//
// The provider retries on any non-2xx, so everything the service treats as
// benign (unknown payment, already reconciled) answers 200. Only transient
// failures bubble up as errors to request a redelivery.
func MercadoPagoWebhook(svc MercadoPagoService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		var notification mpwebhook.Notification
		if err := json.NewDecoder(r.Body).Decode(&notification); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload"))
			return
		}

		if err := svc.HandleNotification(ctx, notification); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "received"})
	}
}
