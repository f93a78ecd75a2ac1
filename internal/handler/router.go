package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/metrics"
	"github.com/posentia/posentia/internal/middleware"
)

// Routes is implemented by every handler group.
type Routes interface {
	RegisterRoutes(r chi.Router)
}

// RouterConfig lists what the router serves. Nil groups are skipped.
type RouterConfig struct {
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	RateLimiter *middleware.RateLimiter

	// Ops routes are exempt from rate limiting.
	Health   *HealthHandler
	LogLevel *LogLevelHandler
	Webhooks *WebhookHandler

	// API groups are rate limited and bounded to JSON-sized bodies.
	API []Routes
}

// NewRouter builds the HTTP handler.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Order matters: correlation IDs first so every later log line has them.
	r.Use(middleware.Correlation)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	if cfg.Health != nil {
		cfg.Health.RegisterRoutes(r)
	}
	if cfg.LogLevel != nil {
		cfg.LogLevel.RegisterRoutes(r)
	}
	if cfg.Webhooks != nil {
		cfg.Webhooks.RegisterRoutes(r)
	}

	r.Group(func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware)
		}
		r.Use(middleware.BodySizeLimiter(middleware.MaxJSONBodySize))
		for _, group := range cfg.API {
			group.RegisterRoutes(r)
		}
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		b := NewBaseHandler(cfg.Logger)
		b.WriteError(w, req, http.StatusNotFound, "Not found")
	})

	return r
}
