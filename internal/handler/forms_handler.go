package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/service"
)

// FormsHandler serves the contact form, the demo lead gate and the
// visitor flags.
type FormsHandler struct {
	BaseHandler
	contacts  *service.ContactService
	demoLeads *service.DemoLeadService
	visitors  *service.VisitorService
}

// NewFormsHandler creates a new FormsHandler.
func NewFormsHandler(
	contacts *service.ContactService,
	demoLeads *service.DemoLeadService,
	visitors *service.VisitorService,
	logger *zap.Logger,
) *FormsHandler {
	return &FormsHandler{
		BaseHandler: NewBaseHandler(logger),
		contacts:    contacts,
		demoLeads:   demoLeads,
		visitors:    visitors,
	}
}

// RegisterRoutes registers the form routes.
func (h *FormsHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/contact", h.HandleContact)
	r.Post("/api/demo-lead", h.HandleDemoLead)
	r.Route("/api/visitor/{id}", func(r chi.Router) {
		r.Get("/", h.HandleGetVisitor)
		r.Put("/", h.HandleUpdateVisitor)
		r.Delete("/", h.HandleResetVisitor)
	})
}

// HandleContact accepts a contact form submission.
func (h *FormsHandler) HandleContact(w http.ResponseWriter, r *http.Request) {
	var in service.ContactInput
	if err := h.DecodeJSON(r, &in); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	if _, err := h.contacts.Submit(r.Context(), in); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"message": "Your message has been received. We will get back to you soon.",
	})
}

// HandleDemoLead accepts the demo gate's email or phone.
func (h *FormsHandler) HandleDemoLead(w http.ResponseWriter, r *http.Request) {
	var in service.DemoLeadInput
	if err := h.DecodeJSON(r, &in); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	if _, err := h.demoLeads.Capture(r.Context(), in); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, map[string]any{"success": true})
}

// HandleGetVisitor returns a visitor's flags.
func (h *FormsHandler) HandleGetVisitor(w http.ResponseWriter, r *http.Request) {
	flags, err := h.visitors.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, flags)
}

// HandleUpdateVisitor changes the flags present in the body.
func (h *FormsHandler) HandleUpdateVisitor(w http.ResponseWriter, r *http.Request) {
	var u service.VisitorUpdate
	if err := h.DecodeJSON(r, &u); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	flags, err := h.visitors.Update(r.Context(), chi.URLParam(r, "id"), u)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, r, http.StatusOK, flags)
}

// HandleResetVisitor forgets a visitor.
func (h *FormsHandler) HandleResetVisitor(w http.ResponseWriter, r *http.Request) {
	if err := h.visitors.Reset(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
