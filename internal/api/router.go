package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/notifykit/pkg/httpserver"
)

// RouterOption configures router construction.
type RouterOption func(*routerConfig)

type routerConfig struct {
	healthChecks   []func(context.Context) error
	metricsHandler http.Handler
	log            *slog.Logger
}

// WithHealthChecks registers readiness probes run by GET /health. Without
// any, the endpoint acts as a plain liveness probe.
func WithHealthChecks(checks ...func(context.Context) error) RouterOption {
	return func(c *routerConfig) {
		for _, check := range checks {
			if check != nil {
				c.healthChecks = append(c.healthChecks, check)
			}
		}
	}
}

// WithMetricsHandler overrides the handler mounted at GET /metrics.
// Defaults to the global Prometheus handler.
func WithMetricsHandler(h http.Handler) RouterOption {
	return func(c *routerConfig) {
		if h != nil {
			c.metricsHandler = h
		}
	}
}

// WithRouterLogger sets the logger used by the health endpoint.
func WithRouterLogger(log *slog.Logger) RouterOption {
	return func(c *routerConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// NewRouter mounts the notification API on a chi router.
func NewRouter(h *Handler, opts ...RouterOption) http.Handler {
	cfg := &routerConfig{
		metricsHandler: promhttp.Handler(),
		log:            slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	r.Use(withCorrelationID)

	r.Route("/api", func(r chi.Router) {
		r.Post("/notifications", h.CreateNotification)
		r.Get("/notifications/{id}", h.GetNotification)
		r.Get("/users/{userID}/preferences", h.GetPreferences)
		r.Put("/users/{userID}/preferences", h.PutPreferences)
	})

	r.Get("/health", httpserver.HealthCheckHandler(context.Background(), cfg.log, cfg.healthChecks...))
	r.Method(http.MethodGet, "/metrics", cfg.metricsHandler)

	return r
}
