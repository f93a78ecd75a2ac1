// Package metrics provides Prometheus metrics and business event logging.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeFallback = "fallback"
	OutcomeSandbox  = "sandbox"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Concierge demo
	SessionsCreated     prometheus.Counter
	ConversationTurns   *prometheus.CounterVec
	ConversationsClosed *prometheus.CounterVec

	// Leads and forms
	LeadPushesTotal    *prometheus.CounterVec
	LeadFlowRunsTotal  *prometheus.CounterVec
	FormSubmissions    *prometheus.CounterVec
	FormSinkFailures   *prometheus.CounterVec
	VoiceRequestsTotal *prometheus.CounterVec

	// External services
	UpstreamCallsTotal    *prometheus.CounterVec
	UpstreamCallDuration  *prometheus.HistogramVec
	CircuitBreakerState   *prometheus.GaugeVec
	CircuitBreakerTrips   *prometheus.CounterVec
	WebhooksReceivedTotal *prometheus.CounterVec

	// Database
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBQueryDuration    *prometheus.HistogramVec
	DBQueryErrors      *prometheus.CounterVec

	RateLimitHitsTotal *prometheus.CounterVec

	registry prometheus.Gatherer
}

// NewMetrics creates metrics registered with the default registry.
func NewMetrics() *Metrics {
	m := newMetricsWithRegistry(prometheus.DefaultRegisterer)
	m.registry = prometheus.DefaultGatherer
	return m
}

// NewMetricsWithRegistry creates metrics using a custom registry (for testing).
func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	m := newMetricsWithRegistry(reg)
	m.registry = reg
	return m
}

func newMetricsWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posentia_http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status code",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "posentia_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "posentia_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		SessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "posentia_concierge_sessions_created_total",
				Help: "Total number of concierge demo sessions created",
			},
		),
		ConversationTurns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posentia_concierge_turns_total",
				Help: "Visitor messages processed by the conversation engine",
			},
			[]string{"channel", "state"},
		),
		ConversationsClosed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posentia_concierge_completed_total",
				Help: "Conversations that reached the completed state, by lead score",
			},
			[]string{"lead_score"},
		),

		LeadPushesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posentia_lead_pushes_total",
				Help: "CRM lead pushes by outcome (success, sandbox)",
			},
			[]string{"outcome"},
		),
		LeadFlowRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posentia_leadflow_runs_total",
				Help: "Simulated lead-flow runs by kind and classified intent",
			},
			[]string{"kind", "intent"},
		),
		FormSubmissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posentia_form_submissions_total",
				Help: "Accepted form submissions by form",
			},
			[]string{"form"},
		),
		FormSinkFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posentia_form_sink_failures_total",
				Help: "Best-effort persistence failures by form and sink (database, csv, email)",
			},
			[]string{"form", "sink"},
		),
		VoiceRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posentia_voice_requests_total",
				Help: "Voice requests by operation and mode (live, demo)",
			},
			[]string{"operation", "mode"},
		),

		UpstreamCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posentia_upstream_calls_total",
				Help: "Calls to external services by service and outcome",
			},
			[]string{"service", "outcome"},
		),
		UpstreamCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "posentia_upstream_call_duration_seconds",
				Help:    "Duration of external service calls",
				Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
			},
			[]string{"service"},
		),
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "posentia_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"service"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posentia_circuit_breaker_trips_total",
				Help: "Total number of times a circuit breaker has opened",
			},
			[]string{"service"},
		),
		WebhooksReceivedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posentia_webhooks_received_total",
				Help: "Voice webhooks received by provider and status",
			},
			[]string{"provider", "status"}, // valid, invalid_signature, parse_error
		),

		DBConnectionsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "posentia_db_connections_open",
				Help: "Number of open database connections",
			},
		),
		DBConnectionsInUse: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "posentia_db_connections_in_use",
				Help: "Number of database connections currently in use",
			},
		),
		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "posentia_db_query_duration_seconds",
				Help:    "Duration of database queries",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation"},
		),
		DBQueryErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posentia_db_query_errors_total",
				Help: "Total number of database query errors",
			},
			[]string{"operation"},
		),

		RateLimitHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posentia_rate_limit_hits_total",
				Help: "Requests rejected by a rate limiter",
			},
			[]string{"limiter"},
		),
	}
}

// Handler returns the Prometheus HTTP handler for scraping metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware returns an HTTP middleware that records request metrics.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		path := normalizePath(r.URL.Path)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	return rw.ResponseWriter.Write(b)
}

// normalizePath collapses ids in dynamic paths to keep label cardinality low.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/concierge/sessions/"):
		rest := strings.TrimPrefix(path, "/api/concierge/sessions/")
		if _, action, ok := strings.Cut(rest, "/"); ok {
			return "/api/concierge/sessions/:id/" + action
		}
		return "/api/concierge/sessions/:id"
	case strings.HasPrefix(path, "/api/visitor/"):
		return "/api/visitor/:id"
	case strings.HasPrefix(path, "/webhook/"):
		return "/webhook/:provider"
	}
	return path
}

// RecordSessionCreated records a new concierge session.
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Inc()
}

// RecordConversationTurn records one engine advance. leadScore is set only
// when the turn completed the conversation.
func (m *Metrics) RecordConversationTurn(channel, state, leadScore string) {
	m.ConversationTurns.WithLabelValues(channel, state).Inc()
	if leadScore != "" {
		m.ConversationsClosed.WithLabelValues(leadScore).Inc()
	}
}

// RecordLeadPush records a CRM push.
func (m *Metrics) RecordLeadPush(sandbox bool) {
	outcome := OutcomeSuccess
	if sandbox {
		outcome = OutcomeSandbox
	}
	m.LeadPushesTotal.WithLabelValues(outcome).Inc()
}

// RecordLeadFlow records a simulated lead-flow run.
func (m *Metrics) RecordLeadFlow(kind, intent string) {
	m.LeadFlowRunsTotal.WithLabelValues(kind, intent).Inc()
}

// RecordFormSubmission records an accepted form.
func (m *Metrics) RecordFormSubmission(form string) {
	m.FormSubmissions.WithLabelValues(form).Inc()
}

// RecordFormSinkFailure records a best-effort write that failed.
func (m *Metrics) RecordFormSinkFailure(form, sink string) {
	m.FormSinkFailures.WithLabelValues(form, sink).Inc()
}

// RecordVoiceRequest records a voice call, agent or demo request.
func (m *Metrics) RecordVoiceRequest(operation string, demo bool) {
	mode := "live"
	if demo {
		mode = "demo"
	}
	m.VoiceRequestsTotal.WithLabelValues(operation, mode).Inc()
}

// RecordUpstreamCall records a call to an external service.
func (m *Metrics) RecordUpstreamCall(service, outcome string, duration time.Duration) {
	m.UpstreamCallsTotal.WithLabelValues(service, outcome).Inc()
	m.UpstreamCallDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// SetCircuitBreakerState sets the breaker state gauge and counts trips.
// State: 0=closed, 1=open, 2=half-open
func (m *Metrics) SetCircuitBreakerState(service string, state int) {
	m.CircuitBreakerState.WithLabelValues(service).Set(float64(state))
	if state == 1 {
		m.CircuitBreakerTrips.WithLabelValues(service).Inc()
	}
}

// RecordWebhook records a voice webhook.
func (m *Metrics) RecordWebhook(provider, status string) {
	m.WebhooksReceivedTotal.WithLabelValues(provider, status).Inc()
}

// UpdateDBConnections updates database connection metrics.
func (m *Metrics) UpdateDBConnections(open, inUse int) {
	m.DBConnectionsOpen.Set(float64(open))
	m.DBConnectionsInUse.Set(float64(inUse))
}

// RecordDBQuery records a database query. Its signature matches
// database.QueryObserver.
func (m *Metrics) RecordDBQuery(operation string, duration time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(limiter string) {
	m.RateLimitHitsTotal.WithLabelValues(limiter).Inc()
}
