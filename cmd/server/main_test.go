package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posentia/posentia/internal/clock"
	"github.com/posentia/posentia/internal/config"
	"github.com/posentia/posentia/internal/logging"
	"github.com/posentia/posentia/internal/metrics"
	"github.com/posentia/posentia/internal/shutdown"
)

// demoConfig is a configuration with no upstream credentials.
func demoConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080, Environment: "test"},
		OpenAI: config.OpenAIConfig{MaxPerMinute: 20, MaxPerHour: 300, MaxPerDay: 2000, MaxConcurrent: 5},
		Contact: config.ContactConfig{
			CSVPath: filepath.Join(t.TempDir(), "QUESTIONS.CSV"),
		},
		Demo:      config.DemoConfig{TypingDelay: time.Second, SessionTTL: time.Hour},
		RateLimit: config.RateLimitConfig{Requests: 100, Window: time.Minute},
	}
}

type testApp struct {
	*app
	coord *shutdown.Coordinator
}

func newTestApp(t *testing.T, cfg *config.Config) testApp {
	t.Helper()
	coord := shutdown.NewCoordinator(time.Second, nil)
	a, err := newApp(context.Background(), cfg, logging.NewNop(),
		clock.NewMock(time.Date(2024, 1, 15, 14, 5, 0, 0, time.UTC)),
		metrics.NewMetricsWithRegistry(prometheus.NewRegistry()), coord)
	require.NoError(t, err)
	t.Cleanup(func() { _ = coord.Shutdown(context.Background()) })
	return testApp{app: a, coord: coord}
}

func (a testApp) serve(method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestNewApp_DemoMode(t *testing.T) {
	a := newTestApp(t, demoConfig(t))

	rec := a.serve(http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var health struct {
		Status         string                  `json:"status"`
		Version        string                  `json:"version"`
		Upstreams      []struct{ Name string } `json:"upstreams"`
		VoiceProviders []struct{ Name string } `json:"voice_providers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, version, health.Version)
	require.Len(t, health.VoiceProviders, 1)
	assert.Equal(t, "retell", health.VoiceProviders[0].Name)

	// Without keys only the always-present clients get breakers.
	names := make([]string, 0, len(health.Upstreams))
	for _, u := range health.Upstreams {
		names = append(names, u.Name)
	}
	assert.ElementsMatch(t, []string{"fub", "retell"}, names)

	rec = a.serve(http.MethodPost, "/api/concierge/sessions")
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = a.serve(http.MethodGet, "/api/properties")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewApp_ReadinessFailsWhileDraining(t *testing.T) {
	a := newTestApp(t, demoConfig(t))

	assert.Equal(t, http.StatusOK, a.serve(http.MethodGet, "/ready").Code)

	require.NoError(t, a.coord.Shutdown(context.Background()))

	rec := a.serve(http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "draining\n", rec.Body.String())
	assert.Equal(t, http.StatusOK, a.serve(http.MethodGet, "/live").Code)
}

func TestNewApp_RedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := demoConfig(t)
	cfg.Redis.Addr = mr.Addr()

	a := newTestApp(t, cfg)

	rec := a.serve(http.MethodPost, "/api/concierge/sessions")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	assert.True(t, mr.Exists("concierge:"+created.SessionID))

	rec = a.serve(http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":{"status":"healthy"}`)
}

func TestNewApp_UnreachableRedisFallsBackToMemory(t *testing.T) {
	cfg := demoConfig(t)
	cfg.Redis.Addr = "127.0.0.1:1"

	a := newTestApp(t, cfg)

	rec := a.serve(http.MethodPost, "/api/concierge/sessions")
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = a.serve(http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "redis")
}
