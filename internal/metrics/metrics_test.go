package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetricsWithRegistry(prometheus.NewRegistry())

	if m.HTTPRequestsTotal == nil || m.ConversationTurns == nil || m.LeadPushesTotal == nil {
		t.Fatal("collectors not initialized")
	}
}

func TestMetrics_ConversationTurns(t *testing.T) {
	m := NewMetricsWithRegistry(prometheus.NewRegistry())

	m.RecordSessionCreated()
	m.RecordConversationTurn("sms", "collecting-info", "")
	m.RecordConversationTurn("sms", "completed", "Hot")

	if got := testutil.ToFloat64(m.SessionsCreated); got != 1 {
		t.Errorf("sessions created = %f, expected 1", got)
	}
	if got := testutil.ToFloat64(m.ConversationTurns.WithLabelValues("sms", "collecting-info")); got != 1 {
		t.Errorf("turns = %f, expected 1", got)
	}
	if got := testutil.ToFloat64(m.ConversationsClosed.WithLabelValues("Hot")); got != 1 {
		t.Errorf("completed Hot = %f, expected 1", got)
	}
	if got := testutil.CollectAndCount(m.ConversationsClosed); got != 1 {
		t.Errorf("completed series = %d, expected 1", got)
	}
}

func TestMetrics_RecordLeadPush(t *testing.T) {
	m := NewMetricsWithRegistry(prometheus.NewRegistry())

	m.RecordLeadPush(false)
	m.RecordLeadPush(true)
	m.RecordLeadPush(true)

	if got := testutil.ToFloat64(m.LeadPushesTotal.WithLabelValues(OutcomeSuccess)); got != 1 {
		t.Errorf("success = %f, expected 1", got)
	}
	if got := testutil.ToFloat64(m.LeadPushesTotal.WithLabelValues(OutcomeSandbox)); got != 2 {
		t.Errorf("sandbox = %f, expected 2", got)
	}
}

func TestMetrics_Forms(t *testing.T) {
	m := NewMetricsWithRegistry(prometheus.NewRegistry())

	m.RecordFormSubmission("contact")
	m.RecordFormSinkFailure("contact", "database")
	m.RecordLeadFlow("sms", "buying")
	m.RecordVoiceRequest("web_call", true)

	if got := testutil.ToFloat64(m.FormSubmissions.WithLabelValues("contact")); got != 1 {
		t.Errorf("contact submissions = %f", got)
	}
	if got := testutil.ToFloat64(m.FormSinkFailures.WithLabelValues("contact", "database")); got != 1 {
		t.Errorf("database failures = %f", got)
	}
	if got := testutil.ToFloat64(m.LeadFlowRunsTotal.WithLabelValues("sms", "buying")); got != 1 {
		t.Errorf("lead flow runs = %f", got)
	}
	if got := testutil.ToFloat64(m.VoiceRequestsTotal.WithLabelValues("web_call", "demo")); got != 1 {
		t.Errorf("voice requests = %f", got)
	}
}

func TestMetrics_SetCircuitBreakerState(t *testing.T) {
	m := NewMetricsWithRegistry(prometheus.NewRegistry())

	m.SetCircuitBreakerState("openai", 1)
	if got := testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("openai")); got != 1 {
		t.Errorf("state = %f, expected 1", got)
	}
	m.SetCircuitBreakerState("openai", 2)
	m.SetCircuitBreakerState("openai", 0)

	if got := testutil.ToFloat64(m.CircuitBreakerTrips.WithLabelValues("openai")); got != 1 {
		t.Errorf("trips = %f, expected 1", got)
	}
	if got := testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("openai")); got != 0 {
		t.Errorf("state = %f, expected 0", got)
	}
}

func TestMetrics_RecordUpstreamCall(t *testing.T) {
	m := NewMetricsWithRegistry(prometheus.NewRegistry())

	m.RecordUpstreamCall("fub", OutcomeSuccess, 120*time.Millisecond)
	m.RecordUpstreamCall("fub", OutcomeFallback, time.Second)

	if got := testutil.ToFloat64(m.UpstreamCallsTotal.WithLabelValues("fub", OutcomeFallback)); got != 1 {
		t.Errorf("fallback calls = %f, expected 1", got)
	}
	if got := testutil.CollectAndCount(m.UpstreamCallDuration); got != 1 {
		t.Errorf("duration series = %d, expected 1", got)
	}
}

func TestMetrics_RecordDBQuery(t *testing.T) {
	m := NewMetricsWithRegistry(prometheus.NewRegistry())

	m.RecordDBQuery("insert", 5*time.Millisecond, nil)
	m.RecordDBQuery("insert", 5*time.Millisecond, errors.New("boom"))
	m.UpdateDBConnections(4, 1)

	if got := testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("insert")); got != 1 {
		t.Errorf("query errors = %f, expected 1", got)
	}
	if got := testutil.ToFloat64(m.DBConnectionsOpen); got != 4 {
		t.Errorf("open connections = %f, expected 4", got)
	}
}

func TestMetrics_WebhooksAndRateLimits(t *testing.T) {
	m := NewMetricsWithRegistry(prometheus.NewRegistry())

	m.RecordWebhook("retell", "valid")
	m.RecordWebhook("retell", "invalid_signature")
	m.RecordRateLimitHit("ip")

	if got := testutil.ToFloat64(m.WebhooksReceivedTotal.WithLabelValues("retell", "invalid_signature")); got != 1 {
		t.Errorf("invalid webhooks = %f, expected 1", got)
	}
	if got := testutil.ToFloat64(m.RateLimitHitsTotal.WithLabelValues("ip")); got != 1 {
		t.Errorf("rate limit hits = %f, expected 1", got)
	}
}

func TestMetrics_Middleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))

	// Make test request
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, expected %d", rr.Code, http.StatusOK)
	}

	// Verify metrics were recorded
	count := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/health", "200"))
	if count != 1 {
		t.Errorf("request count = %f, expected 1", count)
	}
}

func TestMetrics_Middleware_InFlight(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	// Check initial value
	initial := testutil.ToFloat64(m.HTTPRequestsInFlight)
	if initial != 0 {
		t.Errorf("initial in-flight = %f, expected 0", initial)
	}

	inFlightDuringHandler := float64(-1)
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inFlightDuringHandler = testutil.ToFloat64(m.HTTPRequestsInFlight)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	// During handler, should have been 1
	if inFlightDuringHandler != 1 {
		t.Errorf("in-flight during handler = %f, expected 1", inFlightDuringHandler)
	}

	// After handler, should be back to 0
	after := testutil.ToFloat64(m.HTTPRequestsInFlight)
	if after != 0 {
		t.Errorf("in-flight after = %f, expected 0", after)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/health", "/health"},
		{"/api/properties", "/api/properties"},
		{"/api/concierge/sessions", "/api/concierge/sessions"},
		{"/api/concierge/sessions/5f0c", "/api/concierge/sessions/:id"},
		{"/api/concierge/sessions/5f0c/messages", "/api/concierge/sessions/:id/messages"},
		{"/api/concierge/sessions/abc/follow-up", "/api/concierge/sessions/:id/follow-up"},
		{"/api/visitor/v-123", "/api/visitor/:id"},
		{"/webhook/retell", "/webhook/:provider"},
		{"/unknown/path", "/unknown/path"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := normalizePath(tt.input)
			if got != tt.expected {
				t.Errorf("normalizePath(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestResponseWriter(t *testing.T) {
	// Test WriteHeader
	t.Run("WriteHeader", func(t *testing.T) {
		w := httptest.NewRecorder()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		rw.WriteHeader(http.StatusNotFound)
		if rw.statusCode != http.StatusNotFound {
			t.Errorf("statusCode = %d, expected %d", rw.statusCode, http.StatusNotFound)
		}

		// Second call should be ignored
		rw.WriteHeader(http.StatusOK)
		if rw.statusCode != http.StatusNotFound {
			t.Errorf("statusCode after second call = %d, expected %d", rw.statusCode, http.StatusNotFound)
		}
	})

	// Test Write (implicit 200)
	t.Run("Write", func(t *testing.T) {
		w := httptest.NewRecorder()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		rw.Write([]byte("test"))
		if rw.statusCode != http.StatusOK {
			t.Errorf("statusCode = %d, expected %d", rw.statusCode, http.StatusOK)
		}
		if !rw.written {
			t.Error("written should be true after Write")
		}
	})
}

func TestMetrics_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	handler := m.Handler()
	if handler == nil {
		t.Fatal("Handler returned nil")
	}

	// Make request to metrics handler
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, expected %d", rr.Code, http.StatusOK)
	}
}
