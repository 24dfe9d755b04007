/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. Metrics:    Request counters and latency histograms
  4. CORS:       Cross-origin requests for frontends

ROUTE GROUPS:
  /api/wallets/{userID}/*   Per-user wallet operations
  /api/admin/*              Cross-wallet operations
  /healthz                  Liveness probe
  /metrics                  Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware. User identity is the pseudonymous ID in
  the path; deployments front this with their own auth layer.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if h.Metrics != nil {
		r.Use(h.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/wallets/{userID}", func(r chi.Router) {
			r.Get("/", h.GetWallet)
			r.Get("/transactions", h.GetTransactions)
			r.Post("/award", h.AwardTokens)
			r.Post("/spend", h.SpendTokens)
			r.Post("/claim", h.ClaimRewards)

			r.Post("/login", h.RecordLogin)
			r.Post("/posts", h.RewardPost)
			r.Get("/streaks", h.GetStreaks)
			r.Get("/achievements", h.GetAchievements)

			r.Route("/subscriptions", func(r chi.Router) {
				r.Get("/", h.ListSubscriptions)
				r.Post("/", h.ActivateSubscription)
				r.Delete("/{subID}", h.DeactivateSubscription)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/renewals", h.TriggerRenewals)
		})
	})

	// Operational endpoints
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
