package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	intakehandler "github.com/northpeak-analytics/site-backend/internal/handler/intake"
	paymenthandler "github.com/northpeak-analytics/site-backend/internal/handler/payment"
	middlewarePkg "github.com/northpeak-analytics/site-backend/internal/middleware"
	intakeservice "github.com/northpeak-analytics/site-backend/internal/service/intake"
	paymentservice "github.com/northpeak-analytics/site-backend/internal/service/payment"
	"github.com/northpeak-analytics/site-backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. paymentSvc may be nil when the
// processor is not configured; its routes then answer 503 instead of crashing.
func NewRouter(intakeSvc *intakeservice.Service, paymentSvc *paymentservice.Service, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	intakeHandler := intakehandler.New(intakeSvc)
	wsHandler := intakehandler.NewWebSocketHandler(intakeSvc)

	r.Route("/api", func(api chi.Router) {
		api.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":   "ok",
				"payments": paymentSvc != nil,
			})
		})

		intakeHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)

		if paymentSvc != nil {
			paymenthandler.New(paymentSvc).RegisterRoutes(api)
		} else {
			unavailable := func(w http.ResponseWriter, _ *http.Request) {
				utils.RespondError(w, http.StatusServiceUnavailable, "payments not configured")
			}
			api.Post("/checkout", unavailable)
			api.Post("/webhooks/stripe", unavailable)
		}
	})

	return r
}
