package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/circuitbreaker"
	"github.com/posentia/posentia/internal/voiceprovider"
)

// HealthChecker is a dependency that can be pinged.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// BreakerReporter exposes a circuit breaker's counters.
type BreakerReporter interface {
	Stats() circuitbreaker.Stats
}

// DrainReporter reports whether the server is shutting down.
type DrainReporter interface {
	Draining() bool
}

// HealthHandler handles health check HTTP requests.
type HealthHandler struct {
	BaseHandler
	version          string
	checks           map[string]HealthChecker
	breakers         []BreakerReporter
	providerRegistry *voiceprovider.Registry
	drain            DrainReporter
}

// HealthHandlerConfig holds configuration for HealthHandler.
type HealthHandlerConfig struct {
	Version string
	// Checks are critical dependencies keyed by name, e.g. "database".
	// A failing check makes the service unhealthy and not ready.
	Checks           map[string]HealthChecker
	Breakers         []BreakerReporter
	ProviderRegistry *voiceprovider.Registry
	// Drain, when set, fails readiness once shutdown begins.
	Drain  DrainReporter
	Logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(cfg HealthHandlerConfig) *HealthHandler {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	return &HealthHandler{
		BaseHandler:      NewBaseHandler(cfg.Logger),
		version:          cfg.Version,
		checks:           cfg.Checks,
		breakers:         cfg.Breakers,
		providerRegistry: cfg.ProviderRegistry,
		drain:            cfg.Drain,
	}
}

// RegisterRoutes registers health routes on the router.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReadiness)
	r.Get("/live", h.HandleLiveness)
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status         string                         `json:"status"`
	Version        string                         `json:"version,omitempty"`
	Checks         map[string]ComponentHealth     `json:"checks,omitempty"`
	Upstreams      []circuitbreaker.Stats         `json:"upstreams,omitempty"`
	VoiceProviders []voiceprovider.ProviderStatus `json:"voice_providers,omitempty"`
}

// ComponentHealth represents the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HandleHealth reports every dependency. An open breaker degrades the
// service without failing it.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:  "ok",
		Version: h.version,
		Checks:  make(map[string]ComponentHealth),
	}

	hasCriticalFailure := false
	hasDegradation := false

	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			hasCriticalFailure = true
			response.Checks[name] = ComponentHealth{Status: "unhealthy", Message: err.Error()}
			h.logger.Error("health check failed", zap.String("component", name), zap.Error(err))
			continue
		}
		response.Checks[name] = ComponentHealth{Status: "healthy"}
	}

	for _, b := range h.breakers {
		stats := b.Stats()
		if stats.State != circuitbreaker.StateClosed.String() {
			hasDegradation = true
		}
		response.Upstreams = append(response.Upstreams, stats)
	}

	if h.providerRegistry != nil {
		response.VoiceProviders = h.providerRegistry.HealthStatus()
	}

	if hasCriticalFailure {
		response.Status = "unhealthy"
	} else if hasDegradation {
		response.Status = "degraded"
	}

	status := http.StatusOK
	if hasCriticalFailure {
		status = http.StatusServiceUnavailable
	}
	h.WriteJSON(w, r, status, response)
}

// HandleReadiness fails while draining or while a critical dependency is
// unreachable.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	if h.drain != nil && h.drain.Draining() {
		http.Error(w, "draining", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.logger.Error("readiness check failed", zap.String("component", name), zap.Error(err))
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// HandleLiveness returns a simple liveness probe response.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
