package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/audit"
	"github.com/posentia/posentia/internal/metrics"
	"github.com/posentia/posentia/internal/middleware"
	"github.com/posentia/posentia/internal/service"
	"github.com/posentia/posentia/internal/voiceprovider"
)

// WebhookHandler handles incoming webhooks from voice providers.
type WebhookHandler struct {
	BaseHandler
	svc              *service.ReceptionistService
	providerRegistry *voiceprovider.Registry
	audit            *audit.Logger
	metrics          *metrics.Metrics
}

// WebhookHandlerConfig holds configuration for WebhookHandler.
type WebhookHandlerConfig struct {
	Service          *service.ReceptionistService
	ProviderRegistry *voiceprovider.Registry
	Audit            *audit.Logger
	Logger           *zap.Logger
	Metrics          *metrics.Metrics
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(cfg WebhookHandlerConfig) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:      NewBaseHandler(cfg.Logger),
		svc:              cfg.Service,
		providerRegistry: cfg.ProviderRegistry,
		audit:            cfg.Audit,
		metrics:          cfg.Metrics,
	}
}

// RegisterRoutes registers one route per provider webhook path.
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	limit := middleware.BodySizeLimiter(middleware.MaxWebhookBodySize)
	for _, path := range h.providerRegistry.WebhookPaths() {
		h.logger.Info("registering webhook route", zap.String("path", path))
		r.With(limit).Post(path, h.HandleVoiceWebhook)
	}
}

// HandleVoiceWebhook validates, parses and records a provider call event.
func (h *WebhookHandler) HandleVoiceWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := middleware.ClientIP(r)

	provider, err := h.providerRegistry.GetByWebhookPath(r.URL.Path)
	if err != nil {
		h.logger.Warn("unknown webhook path", zap.String("path", r.URL.Path), zap.Error(err))
		h.WriteError(w, r, http.StatusNotFound, "Unknown webhook provider")
		return
	}
	name := string(provider.GetName())

	if !provider.ValidateWebhook(r) {
		h.rejected(r, name, ip, "invalid_signature")
		h.WriteError(w, r, http.StatusUnauthorized, "Invalid webhook signature")
		return
	}

	event, err := provider.ParseWebhook(r)
	if err != nil {
		h.logger.Warn("failed to parse webhook", zap.String("provider", name), zap.Error(err))
		h.rejected(r, name, ip, "parse_error")
		h.WriteError(w, r, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	h.svc.HandleCallEvent(ctx, event, ip)

	h.WriteJSON(w, r, http.StatusOK, map[string]any{
		"success":  true,
		"call_id":  event.ProviderCallID,
		"provider": name,
	})
}

func (h *WebhookHandler) rejected(r *http.Request, provider, ip, reason string) {
	if h.audit != nil {
		h.audit.WebhookValidationFailed(r.Context(), provider, ip, middleware.GetRequestID(r.Context()), reason)
	}
	if h.metrics != nil {
		h.metrics.RecordWebhook(provider, reason)
	}
}
