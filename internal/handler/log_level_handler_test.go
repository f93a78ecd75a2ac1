package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/posentia/posentia/internal/logging"
)

func newLogLevelRouter(t *testing.T) (*logging.Logger, http.Handler) {
	t.Helper()
	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	r := chi.NewRouter()
	NewLogLevelHandler(logger).RegisterRoutes(r)
	return logger, r
}

func TestLogLevelHandler_GetLevel(t *testing.T) {
	_, router := newLogLevelRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/log-level", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var resp LogLevelResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Level != "info" {
		t.Errorf("expected level = info, got %s", resp.Level)
	}
	if len(resp.AvailableLevels) != 7 {
		t.Errorf("expected 7 available levels, got %d", len(resp.AvailableLevels))
	}
}

func TestLogLevelHandler_SetLevel(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		contentType string
		body        string
		wantLevel   string
	}{
		{"query param", "/admin/log-level?level=debug", "", "", "debug"},
		{"json body", "/admin/log-level", "application/json", `{"level":"warn"}`, "warn"},
		{"form value", "/admin/log-level", "application/x-www-form-urlencoded", "level=error", "error"},
		{"warning alias", "/admin/log-level?level=WARNING", "", "", "warn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, router := newLogLevelRouter(t)

			req := httptest.NewRequest(http.MethodPut, tt.target, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if logger.Level() != tt.wantLevel {
				t.Errorf("expected level %s, got %s", tt.wantLevel, logger.Level())
			}

			var resp LogLevelResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if !strings.Contains(resp.Message, "from info to "+tt.wantLevel) {
				t.Errorf("unexpected message: %s", resp.Message)
			}
		})
	}
}

func TestLogLevelHandler_SetLevelRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		wantErr string
	}{
		{"missing", "/admin/log-level", "level parameter is required"},
		{"unknown", "/admin/log-level?level=verbose", "unknown level: verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, router := newLogLevelRouter(t)

			req := httptest.NewRequest(http.MethodPost, tt.target, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if !strings.HasPrefix(resp.Error, tt.wantErr) {
				t.Errorf("expected error %q, got %q", tt.wantErr, resp.Error)
			}
			if logger.Level() != "info" {
				t.Errorf("level changed to %s", logger.Level())
			}
		})
	}
}
