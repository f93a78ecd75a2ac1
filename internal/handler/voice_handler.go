package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/domain"
	"github.com/posentia/posentia/internal/places"
	"github.com/posentia/posentia/internal/service"
	"github.com/posentia/posentia/internal/voiceprovider"
)

// VoiceHandler serves the voice receptionist demo.
type VoiceHandler struct {
	BaseHandler
	svc *service.ReceptionistService
}

// NewVoiceHandler creates a new VoiceHandler.
func NewVoiceHandler(svc *service.ReceptionistService, logger *zap.Logger) *VoiceHandler {
	return &VoiceHandler{BaseHandler: NewBaseHandler(logger), svc: svc}
}

// RegisterRoutes registers the receptionist routes.
func (h *VoiceHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/gbp/lookup", h.HandleLookup)
	r.Post("/api/retell/web-call", h.HandleWebCall)
	r.Post("/api/retell/create-agent", h.HandleCreateAgent)
	r.Post("/api/retell/start-demo", h.HandleStartDemo)
	r.Post("/api/receptionist/mock-call", h.HandleMockCall)
}

// LookupRequest names the business to look up.
type LookupRequest struct {
	BusinessName string `json:"businessName"`
}

// LookupResponse is a business profile. Mock marks the demo profile.
type LookupResponse struct {
	places.Result
	Mock bool `json:"mock"`
}

// HandleLookup finds a business profile.
func (h *VoiceHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	var req LookupRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	result, err := h.svc.LookupBusiness(r.Context(), req.BusinessName)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, LookupResponse{Result: result, Mock: result.Mock()})
}

// ProfileRequest carries the profile a call is about.
type ProfileRequest struct {
	BusinessProfile *domain.BusinessProfile `json:"businessProfile"`
	PhoneNumber     string                  `json:"phoneNumber,omitempty"`
}

// WebCallResponse is a created browser call.
type WebCallResponse struct {
	Success bool `json:"success"`
	voiceprovider.WebCall
}

// HandleWebCall creates a browser call for the profile.
func (h *VoiceHandler) HandleWebCall(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	call, err := h.svc.CreateWebCall(r.Context(), req.BusinessProfile)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, WebCallResponse{Success: true, WebCall: call})
}

// AgentResponse is a provisioned agent.
type AgentResponse struct {
	Success bool `json:"success"`
	voiceprovider.Agent
}

// HandleCreateAgent provisions a receptionist agent.
func (h *VoiceHandler) HandleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	agent := h.svc.CreateAgent(r.Context(), req.BusinessProfile, req.PhoneNumber)
	h.WriteJSON(w, r, http.StatusOK, AgentResponse{Success: true, Agent: agent})
}

// StartDemoRequest names the agent and the number to call.
type StartDemoRequest struct {
	AgentID     string `json:"agentId"`
	PhoneNumber string `json:"phoneNumber"`
}

// DemoCallResponse is a started demo call.
type DemoCallResponse struct {
	Success bool `json:"success"`
	voiceprovider.DemoCall
}

// HandleStartDemo places a demo call.
func (h *VoiceHandler) HandleStartDemo(w http.ResponseWriter, r *http.Request) {
	var req StartDemoRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	call := h.svc.StartDemo(r.Context(), req.AgentID, req.PhoneNumber)
	h.WriteJSON(w, r, http.StatusOK, DemoCallResponse{Success: true, DemoCall: call})
}

// HandleMockCall returns the scripted receptionist call.
func (h *VoiceHandler) HandleMockCall(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WriteJSON(w, r, http.StatusOK, h.svc.MockCall(r.Context(), req.BusinessProfile))
}
