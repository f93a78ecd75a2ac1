package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/concierge"
	"github.com/posentia/posentia/internal/domain"
	apperrors "github.com/posentia/posentia/internal/errors"
	"github.com/posentia/posentia/internal/service"
	"github.com/posentia/posentia/internal/session"
)

// ConciergeHandler serves the lead concierge chat demo.
type ConciergeHandler struct {
	BaseHandler
	svc *service.ConciergeService
}

// NewConciergeHandler creates a new ConciergeHandler.
func NewConciergeHandler(svc *service.ConciergeService, logger *zap.Logger) *ConciergeHandler {
	return &ConciergeHandler{BaseHandler: NewBaseHandler(logger), svc: svc}
}

// RegisterRoutes registers the catalog and session routes.
func (h *ConciergeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/properties", h.HandleProperties)
	r.Route("/api/concierge/sessions", func(r chi.Router) {
		r.Post("/", h.HandleCreateSession)
		r.Get("/{id}", h.HandleGetSession)
		r.Delete("/{id}", h.HandleDeleteSession)
		r.Post("/{id}/select", h.HandleSelect)
		r.Post("/{id}/lead", h.HandleStartLead)
		r.Post("/{id}/messages", h.HandleMessage)
		r.Post("/{id}/follow-up", h.HandleFollowUp)
		r.Post("/{id}/crm-push", h.HandleCRMPush)
	})
}

// SessionResponse is a session as the chat widget renders it.
type SessionResponse struct {
	SessionID                  string                      `json:"session_id"`
	State                      concierge.ConversationState `json:"state"`
	Qualification              domain.Qualification        `json:"qualification"`
	SelectedProperty           *domain.Property            `json:"selected_property,omitempty"`
	CustomPropertyRequirements string                      `json:"custom_property_requirements,omitempty"`
	CarouselIndex              int                         `json:"carousel_index"`
	Messages                   []domain.Message            `json:"messages"`
	QuickReplies               []string                    `json:"quick_replies"`
	CRMStatus                  session.CRMStatus           `json:"crm_status"`
}

// TurnResponse is the session after a turn plus what the turn produced.
type TurnResponse struct {
	SessionResponse
	UserMessage   *domain.Message               `json:"user_message,omitempty"`
	Reply         *domain.Message               `json:"reply,omitempty"`
	Path          []concierge.ConversationState `json:"path,omitempty"`
	CRMSynced     bool                          `json:"crm_synced"`
	TypingDelayMS int64                         `json:"typing_delay_ms"`
}

func newSessionResponse(s *session.Session) SessionResponse {
	resp := SessionResponse{
		SessionID:                  s.ID,
		State:                      s.State.ConversationState(),
		Qualification:              s.State.Qualification,
		CustomPropertyRequirements: s.State.CustomPropertyRequirements(),
		CarouselIndex:              s.CarouselIndex,
		Messages:                   s.Messages,
		QuickReplies:               concierge.QuickReplies(s.State),
		CRMStatus:                  s.CRMStatus,
	}
	if s.State.Step != concierge.StepInitial && s.State.Step != concierge.StepAwaitingSelection {
		if p, ok := s.State.SelectedProperty(); ok {
			resp.SelectedProperty = &p
		}
	}
	if resp.Messages == nil {
		resp.Messages = []domain.Message{}
	}
	if resp.QuickReplies == nil {
		resp.QuickReplies = []string{}
	}
	return resp
}

func newTurnResponse(t *service.Turn) TurnResponse {
	return TurnResponse{
		SessionResponse: newSessionResponse(t.Session),
		UserMessage:     t.Result.UserMessage,
		Reply:           t.Result.AgentMessage,
		Path:            t.Result.Path,
		CRMSynced:       t.Result.SideEffects.CRMSynced,
		TypingDelayMS:   t.Result.SideEffects.TypingDelay.Milliseconds(),
	}
}

// HandleProperties returns the listing catalog.
func (h *ConciergeHandler) HandleProperties(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, r, http.StatusOK, map[string]any{"properties": domain.Catalog()})
}

// HandleCreateSession starts a conversation.
func (h *ConciergeHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.CreateSession(r.Context())
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusCreated, newSessionResponse(sess))
}

// HandleGetSession returns a session snapshot.
func (h *ConciergeHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, newSessionResponse(sess))
}

// HandleDeleteSession resets a conversation.
func (h *ConciergeHandler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectRequest moves the carousel.
type SelectRequest struct {
	Index *int `json:"index"`
}

// HandleSelect highlights a listing before the conversation starts.
func (h *ConciergeHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	if req.Index == nil {
		h.WriteAppError(w, r, apperrors.MissingField("index"))
		return
	}

	sess, err := h.svc.SelectProperty(r.Context(), chi.URLParam(r, "id"), *req.Index)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, newSessionResponse(sess))
}

// LeadRequest opens the conversation from a property card. A missing
// index uses the carousel selection.
type LeadRequest struct {
	Index   *int   `json:"index"`
	Channel string `json:"channel"`
}

// HandleStartLead plays the lead's enquiry about a listing.
func (h *ConciergeHandler) HandleStartLead(w http.ResponseWriter, r *http.Request) {
	var req LeadRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	ch, err := parseChannel(req.Channel)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	turn, err := h.svc.StartLead(r.Context(), chi.URLParam(r, "id"), ch, req.Index)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, newTurnResponse(turn))
}

// MessageRequest is a visitor message.
type MessageRequest struct {
	Content string `json:"content"`
	Channel string `json:"channel"`
}

// HandleMessage runs one engine turn. Blank content is a no-op turn.
func (h *ConciergeHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	ch, err := parseChannel(req.Channel)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	turn, err := h.svc.SendMessage(r.Context(), chi.URLParam(r, "id"), req.Content, ch)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, newTurnResponse(turn))
}

// HandleFollowUp sends the scripted follow-up on the lead's behalf.
func (h *ConciergeHandler) HandleFollowUp(w http.ResponseWriter, r *http.Request) {
	turn, err := h.svc.FollowUp(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, newTurnResponse(turn))
}

// HandleCRMPush marks the CRM preview as sent.
func (h *ConciergeHandler) HandleCRMPush(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.MarkCRMSent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, newSessionResponse(sess))
}

func parseChannel(s string) (domain.Channel, error) {
	ch, err := domain.ParseChannel(s)
	if err != nil {
		return "", apperrors.InvalidFormat("channel", "sms or email")
	}
	return ch, nil
}
