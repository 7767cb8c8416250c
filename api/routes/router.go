package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agendali/payments-backend/api/controllers"
	webhookcontrollers "github.com/agendali/payments-backend/api/controllers/webhooks"
	"github.com/agendali/payments-backend/api/middleware"
	"github.com/agendali/payments-backend/internal/cron"
	"github.com/agendali/payments-backend/pkg/config"
	"github.com/agendali/payments-backend/pkg/logger"
	pkgredis "github.com/agendali/payments-backend/pkg/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            pinger
	Redis         pkgredis.IdempotencyStore
	RedisPinger   pinger
	Charges       controllers.ChargesService
	Notifications controllers.NotificationsService
	Webhooks      webhookcontrollers.MercadoPagoService
	Jobs          *cron.Registry
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
		middleware.Idempotency(params.Redis, logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.RedisPinger))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/mercadopago", webhookcontrollers.MercadoPagoWebhook(params.Webhooks, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/charges", controllers.CreateCharge(params.Charges, logg))
		r.Get("/charges", controllers.ListCharges(params.Charges, logg))

		r.Get("/notifications", controllers.ListNotifications(params.Notifications, logg))

		r.Post("/jobs/{jobName}/run", controllers.TriggerJob(params.Jobs, logg))
	})

	return r
}
