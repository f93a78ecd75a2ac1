package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/ai"
	"github.com/posentia/posentia/internal/crm"
	"github.com/posentia/posentia/internal/domain"
	apperrors "github.com/posentia/posentia/internal/errors"
	"github.com/posentia/posentia/internal/sanitize"
	"github.com/posentia/posentia/internal/service"
)

// LeadHandler serves the lead demos: the SMS chat completion, the CRM
// push and webhook tester, and the LeadFlow simulations.
type LeadHandler struct {
	BaseHandler
	chat  *service.ChatService
	leads *service.LeadService
}

// NewLeadHandler creates a new LeadHandler.
func NewLeadHandler(chat *service.ChatService, leads *service.LeadService, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{BaseHandler: NewBaseHandler(logger), chat: chat, leads: leads}
}

// RegisterRoutes registers the lead demo routes.
func (h *LeadHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/ai/chat", h.HandleChat)
	r.Post("/api/fub/push-lead", h.HandlePushLead)
	r.Post("/api/fub/test-connection", h.HandleTestConnection)
	r.Post("/api/crm/webhook-test", h.HandleWebhookTest)
	r.Post("/api/leadflow/sms", h.HandleLeadFlowSMS)
	r.Post("/api/leadflow/missed-call", h.HandleLeadFlowMissedCall)
}

// HandleChat always answers 200; an unreadable body gets the mock reply
// to an empty SMS conversation.
func (h *LeadHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ai.ChatRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		req = ai.ChatRequest{Channel: domain.ChannelSMS}
	}
	if req.Channel == "" {
		req.Channel = domain.ChannelSMS
	}
	h.WriteJSON(w, r, http.StatusOK, h.chat.Reply(r.Context(), req))
}

// PushLeadRequest is a CRM push. An empty APIKey uses the configured key.
type PushLeadRequest struct {
	APIKey string       `json:"apiKey"`
	Lead   *domain.Lead `json:"lead"`
}

// HandlePushLead pushes a lead. Upstream failures answer 200 with a
// sandbox lead id.
func (h *LeadHandler) HandlePushLead(w http.ResponseWriter, r *http.Request) {
	var req PushLeadRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	var lead domain.Lead
	if req.Lead != nil {
		lead = *req.Lead
	}

	result, err := h.leads.PushLead(r.Context(), req.APIKey, lead)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, result)
}

// TestConnectionRequest carries the key to verify.
type TestConnectionRequest struct {
	APIKey string `json:"apiKey"`
}

// HandleTestConnection verifies a Follow Up Boss key. A rejected key
// answers with the upstream status.
func (h *LeadHandler) HandleTestConnection(w http.ResponseWriter, r *http.Request) {
	var req TestConnectionRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	if err := h.leads.TestConnection(r.Context(), req.APIKey); err != nil {
		h.writeUpstreamError(w, r, err, "API")
		return
	}
	h.WriteJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"message": "Connection successful",
	})
}

// WebhookTestRequest is a qualified lead to send to a user's webhook.
type WebhookTestRequest struct {
	WebhookURL string          `json:"webhookUrl"`
	Lead       crm.WebhookLead `json:"lead"`
}

// HandleWebhookTest sends a redacted lead payload to the given URL.
func (h *LeadHandler) HandleWebhookTest(w http.ResponseWriter, r *http.Request) {
	var req WebhookTestRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	if err := h.leads.SendWebhook(r.Context(), req.WebhookURL, req.Lead); err != nil {
		h.writeUpstreamError(w, r, err, "CRM webhook")
		return
	}
	h.WriteJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"message": "Successfully sent to CRM webhook",
	})
}

// LeadFlowSMSRequest is a simulated inbound SMS.
type LeadFlowSMSRequest struct {
	APIKey  string `json:"apiKey"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// HandleLeadFlowSMS runs the SMS lead simulation.
func (h *LeadHandler) HandleLeadFlowSMS(w http.ResponseWriter, r *http.Request) {
	var req LeadFlowSMSRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	run, err := h.leads.SimulateSMS(r.Context(), req.APIKey, domain.Lead{
		Name:    req.Name,
		Phone:   req.Phone,
		Message: req.Message,
	})
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, run)
}

// MissedCallRequest is a simulated missed call.
type MissedCallRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// HandleLeadFlowMissedCall runs the missed-call simulation.
func (h *LeadHandler) HandleLeadFlowMissedCall(w http.ResponseWriter, r *http.Request) {
	var req MissedCallRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	run, err := h.leads.SimulateMissedCall(r.Context(), req.Name, req.Phone)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, run)
}

// writeUpstreamError relays a non-2xx upstream answer with its status.
// Other errors go through WriteAppError; unclassified ones become 500
// with the sanitized error text.
func (h *LeadHandler) writeUpstreamError(w http.ResponseWriter, r *http.Request, err error, upstream string) {
	var statusErr *crm.StatusError
	if errors.As(err, &statusErr) {
		h.WriteError(w, r, statusErr.StatusCode,
			fmt.Sprintf("%s returned status %d: %s", upstream, statusErr.StatusCode, statusErr.Body))
		return
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		h.WriteAppError(w, r, err)
		return
	}
	msg := sanitize.Error(err)
	h.logger.Warn("upstream request failed", zap.String("upstream", upstream), zap.String("error", msg))
	h.WriteError(w, r, http.StatusInternalServerError, msg)
}
