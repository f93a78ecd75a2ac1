package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/posentia/posentia/internal/logging"
)

// LevelSetter changes the process log level at runtime.
type LevelSetter interface {
	Level() string
	SetLevel(level string) (previous string, err error)
}

// LogLevelHandler handles runtime log level adjustment.
type LogLevelHandler struct {
	BaseHandler
	levels LevelSetter
}

// NewLogLevelHandler creates a handler for log level management.
func NewLogLevelHandler(logger *logging.Logger) *LogLevelHandler {
	return &LogLevelHandler{BaseHandler: NewBaseHandler(logger.Zap()), levels: logger}
}

// RegisterRoutes registers the admin routes.
func (h *LogLevelHandler) RegisterRoutes(r chi.Router) {
	r.Get("/admin/log-level", h.GetLevel)
	r.Put("/admin/log-level", h.SetLevel)
	r.Post("/admin/log-level", h.SetLevel)
}

// LogLevelResponse is the response for log level queries.
type LogLevelResponse struct {
	Level           string   `json:"level"`
	AvailableLevels []string `json:"available_levels,omitempty"`
	Message         string   `json:"message,omitempty"`
}

// LogLevelRequest is the request body for changing log level.
type LogLevelRequest struct {
	Level string `json:"level"`
}

// GetLevel returns the current log level.
func (h *LogLevelHandler) GetLevel(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, r, http.StatusOK, LogLevelResponse{
		Level:           h.levels.Level(),
		AvailableLevels: logging.Levels,
	})
}

// SetLevel changes the log level. The level comes from the query string,
// a form value or a JSON body, in that order.
func (h *LogLevelHandler) SetLevel(w http.ResponseWriter, r *http.Request) {
	level := r.URL.Query().Get("level")
	if level == "" && r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err == nil {
			level = r.FormValue("level")
		}
	}
	if level == "" {
		var req LogLevelRequest
		if err := h.DecodeJSON(r, &req); err == nil {
			level = req.Level
		}
	}

	if level == "" {
		h.WriteError(w, r, http.StatusBadRequest, "level parameter is required")
		return
	}

	previous, err := h.levels.SetLevel(level)
	if err != nil {
		h.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	current := h.levels.Level()
	h.WriteJSON(w, r, http.StatusOK, LogLevelResponse{
		Level:   current,
		Message: fmt.Sprintf("log level changed from %s to %s", previous, current),
	})
}
