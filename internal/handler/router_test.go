package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/audit"
	"github.com/posentia/posentia/internal/clock"
	"github.com/posentia/posentia/internal/concierge"
	"github.com/posentia/posentia/internal/contactlog"
	"github.com/posentia/posentia/internal/crm"
	"github.com/posentia/posentia/internal/logging"
	"github.com/posentia/posentia/internal/metrics"
	"github.com/posentia/posentia/internal/middleware"
	"github.com/posentia/posentia/internal/places"
	"github.com/posentia/posentia/internal/service"
	"github.com/posentia/posentia/internal/session"
	"github.com/posentia/posentia/internal/voiceprovider"
	"github.com/posentia/posentia/internal/voiceprovider/retell"
)

const testWebhookSecret = "whsec_test"

var testNow = time.Date(2024, 1, 15, 14, 5, 0, 0, time.UTC)

type testServer struct {
	handler http.Handler
	metrics *metrics.Metrics
	csvPath string
	// fub answers Follow Up Boss calls.
	fub *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	clk := clock.NewMock(testNow)
	m := metrics.NewMetricsWithRegistry(prometheus.NewRegistry())
	auditLogger := audit.NewLogger(logger, clk)

	fub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, "invalid api key")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id": 4242}`)
	}))
	t.Cleanup(fub.Close)

	flags := session.NewMemoryFlagStore(nil)
	csvPath := filepath.Join(t.TempDir(), "QUESTIONS.CSV")

	conciergeSvc := service.NewConciergeService(
		concierge.New(time.Second, clk), session.NewMemoryStore(time.Hour, clk), clk, logger, m, nil)
	chatSvc := service.NewChatService(nil, nil, clk, logger, m, nil)
	leadSvc := service.NewLeadService(
		crm.NewFUBClient(crm.FUBConfig{BaseURL: fub.URL}, nil, clk, logger),
		crm.NewWebhookSender(clk, logger),
		auditLogger, clk, logger, m, nil)
	contactSvc := service.NewContactService(nil, contactlog.New(csvPath), nil, clk, logger, m, nil)
	demoLeadSvc := service.NewDemoLeadService(nil, flags, clk, logger, m, nil)
	visitorSvc := service.NewVisitorService(flags)

	provider := retell.New(retell.Config{WebhookSecret: testWebhookSecret}, nil, clk, logger)
	registry := voiceprovider.NewRegistry(logger)
	registry.Register(provider)
	voiceSvc := service.NewReceptionistService(provider, places.NewLookup(nil, logger), auditLogger, clk, logger, m, nil)

	limiter := middleware.NewRateLimiter(1000, time.Minute, logger)
	t.Cleanup(limiter.Stop)

	h := NewRouter(RouterConfig{
		Logger:      logger,
		Metrics:     m,
		RateLimiter: limiter,
		Health:      NewHealthHandler(HealthHandlerConfig{Version: "test", ProviderRegistry: registry, Logger: logger}),
		LogLevel:    NewLogLevelHandler(logging.NewNop()),
		Webhooks: NewWebhookHandler(WebhookHandlerConfig{
			Service:          voiceSvc,
			ProviderRegistry: registry,
			Audit:            auditLogger,
			Logger:           logger,
			Metrics:          m,
		}),
		API: []Routes{
			NewConciergeHandler(conciergeSvc, logger),
			NewLeadHandler(chatSvc, leadSvc, logger),
			NewVoiceHandler(voiceSvc, logger),
			NewFormsHandler(contactSvc, demoLeadSvc, visitorSvc, logger),
		},
	})

	return &testServer{handler: h, metrics: m, csvPath: csvPath, fub: fub}
}

func (s *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRouter_Properties(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/properties", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[struct {
		Properties []map[string]any `json:"properties"`
	}](t, rec)
	assert.Len(t, resp.Properties, 4)
	assert.Equal(t, "123 Main Street", resp.Properties[0]["address"])
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_ConciergeConversation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/concierge/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[SessionResponse](t, rec)
	require.NotEmpty(t, created.SessionID)
	assert.Empty(t, created.Messages)
	base := "/api/concierge/sessions/" + created.SessionID

	rec = s.do(t, http.MethodPost, base+"/messages", MessageRequest{Content: "Hi there", Channel: "sms"})
	require.Equal(t, http.StatusOK, rec.Code)
	turn := decode[TurnResponse](t, rec)
	require.NotNil(t, turn.Reply)
	assert.Equal(t, []string{"1", "2", "3", "4", "Other property"}, turn.QuickReplies)
	assert.Equal(t, int64(1000), turn.TypingDelayMS)

	rec = s.do(t, http.MethodPost, base+"/messages", MessageRequest{Content: "2", Channel: "sms"})
	require.Equal(t, http.StatusOK, rec.Code)
	turn = decode[TurnResponse](t, rec)
	assert.Equal(t, concierge.StateAskingFinancing, turn.State)
	require.NotNil(t, turn.SelectedProperty)
	assert.Equal(t, "456 Oak Avenue", turn.SelectedProperty.Address)
	assert.Len(t, turn.Messages, 4)

	rec = s.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snapshot := decode[SessionResponse](t, rec)
	assert.Equal(t, concierge.StateAskingFinancing, snapshot.State)

	rec = s.do(t, http.MethodPost, base+"/crm-push", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.CRMSent, decode[SessionResponse](t, rec).CRMStatus)

	rec = s.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_ConciergeSelectAndStartLead(t *testing.T) {
	s := newTestServer(t)
	created := decode[SessionResponse](t, s.do(t, http.MethodPost, "/api/concierge/sessions", nil))
	base := "/api/concierge/sessions/" + created.SessionID

	rec := s.do(t, http.MethodPost, base+"/select", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/select", map[string]any{"index": 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/select", map[string]any{"index": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[SessionResponse](t, rec).CarouselIndex)

	rec = s.do(t, http.MethodPost, base+"/lead", LeadRequest{Channel: "email"})
	require.Equal(t, http.StatusOK, rec.Code)
	turn := decode[TurnResponse](t, rec)
	require.NotNil(t, turn.UserMessage)
	require.NotNil(t, turn.Reply)
	assert.Contains(t, turn.UserMessage.Content, "789 Pine Drive")

	rec = s.do(t, http.MethodPost, base+"/select", map[string]any{"index": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Conversation already started", decode[ErrorResponse](t, rec).Error)
}

func TestRouter_ConciergeRejectsBadInput(t *testing.T) {
	s := newTestServer(t)
	created := decode[SessionResponse](t, s.do(t, http.MethodPost, "/api/concierge/sessions", nil))
	base := "/api/concierge/sessions/" + created.SessionID

	rec := s.do(t, http.MethodPost, base+"/messages", MessageRequest{Content: "hi", Channel: "fax"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decode[ErrorResponse](t, rec)
	require.Len(t, errResp.Errors, 1)
	assert.Equal(t, "channel", errResp.Errors[0].Field)

	rec = s.do(t, http.MethodPost, base+"/messages", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON body", decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodPost, "/api/concierge/sessions/nope/messages", MessageRequest{Content: "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_ConciergeFollowUp(t *testing.T) {
	s := newTestServer(t)
	created := decode[SessionResponse](t, s.do(t, http.MethodPost, "/api/concierge/sessions", nil))
	base := "/api/concierge/sessions/" + created.SessionID

	rec := s.do(t, http.MethodPost, base+"/lead", LeadRequest{Channel: "sms"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, concierge.StateAskingFinancing, decode[TurnResponse](t, rec).State)

	rec = s.do(t, http.MethodPost, base+"/follow-up", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	turn := decode[TurnResponse](t, rec)
	require.NotNil(t, turn.UserMessage)
	assert.Equal(t, service.FollowUpMessage, turn.UserMessage.Content)
	assert.Equal(t, concierge.StateScheduling, turn.State)
	assert.Equal(t, []string{"Monday", "Tuesday", "Wednesday", "Thursday"}, turn.QuickReplies)
}

func TestRouter_ChatFallsBackToMock(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/ai/chat", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "hello"}},
		"type":     "sms",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["content"], "buy, sell, or rent")

	rec = s.do(t, http.MethodPost, "/api/ai/chat", "garbage")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[map[string]string](t, rec)["content"])
}

func TestRouter_PushLead(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/fub/push-lead", map[string]any{
		"lead": map[string]string{"name": "Jane"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Lead data incomplete", decode[ErrorResponse](t, rec).Error)

	lead := map[string]string{"name": "Jane", "phone": "5551234567", "message": "Looking to buy"}

	rec = s.do(t, http.MethodPost, "/api/fub/push-lead", map[string]any{"lead": lead})
	require.Equal(t, http.StatusOK, rec.Code)
	sandbox := decode[map[string]any](t, rec)
	assert.Equal(t, true, sandbox["sandbox"])
	assert.Equal(t, "sandbox-1705327500000", sandbox["leadId"])

	rec = s.do(t, http.MethodPost, "/api/fub/push-lead", map[string]any{"apiKey": "good-key", "lead": lead})
	require.Equal(t, http.StatusOK, rec.Code)
	live := decode[map[string]any](t, rec)
	assert.Equal(t, "4242", live["leadId"])
	assert.Nil(t, live["sandbox"])

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.LeadPushesTotal.WithLabelValues(metrics.OutcomeSandbox)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.LeadPushesTotal.WithLabelValues(metrics.OutcomeSuccess)))
}

func TestRouter_TestConnection(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/fub/test-connection", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "API key required", decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodPost, "/api/fub/test-connection", map[string]string{"apiKey": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "API returned status 401: invalid api key", decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodPost, "/api/fub/test-connection", map[string]string{"apiKey": "good-key"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Connection successful", decode[map[string]any](t, rec)["message"])
}

func TestRouter_WebhookTest(t *testing.T) {
	s := newTestServer(t)

	var received crm.WebhookPayload
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer target.Close()

	rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream down")
	}))
	defer rejecting.Close()

	lead := map[string]any{"name": "Jane", "phone": "***-***-4567", "source": "SMS"}

	rec := s.do(t, http.MethodPost, "/api/crm/webhook-test", map[string]any{"lead": lead})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Webhook URL is required", decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodPost, "/api/crm/webhook-test", map[string]any{"webhookUrl": "not a url", "lead": lead})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid webhook URL format", decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodPost, "/api/crm/webhook-test", map[string]any{"webhookUrl": target.URL, "lead": lead})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Jane", received.Contact.Name)

	rec = s.do(t, http.MethodPost, "/api/crm/webhook-test", map[string]any{"webhookUrl": rejecting.URL, "lead": lead})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "CRM webhook returned status 502: upstream down", decode[ErrorResponse](t, rec).Error)
}

func TestRouter_LeadFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/leadflow/sms", LeadFlowSMSRequest{Name: "Jane"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please fill in name, phone, and message", decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodPost, "/api/leadflow/sms", LeadFlowSMSRequest{
		Name: "Jane", Phone: "5551234567", Message: "I want to buy a house",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	run := decode[service.LeadFlowRun](t, rec)
	assert.Equal(t, "buying", run.Intent)
	assert.Len(t, run.Log, 6)
	require.NotNil(t, run.Push)
	assert.True(t, run.Push.Sandbox)

	rec = s.do(t, http.MethodPost, "/api/leadflow/missed-call", MissedCallRequest{Name: "Jane", Phone: "5551234567"})
	require.Equal(t, http.StatusOK, rec.Code)
	missed := decode[service.LeadFlowRun](t, rec)
	assert.Equal(t, service.LeadFlowMissedCall, missed.Kind)
	assert.Len(t, missed.Log, 2)
}

func TestRouter_VoiceDemo(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/gbp/lookup", LookupRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Business name required", decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodPost, "/api/gbp/lookup", LookupRequest{BusinessName: "Joe's Pizza"})
	require.Equal(t, http.StatusOK, rec.Code)
	lookup := decode[map[string]any](t, rec)
	assert.Equal(t, true, lookup["mock"])
	assert.Equal(t, "Joe's Pizza", lookup["profile"].(map[string]any)["name"])

	rec = s.do(t, http.MethodPost, "/api/retell/web-call", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Business profile required", decode[ErrorResponse](t, rec).Error)

	profile := map[string]any{"businessProfile": lookup["profile"]}

	rec = s.do(t, http.MethodPost, "/api/retell/web-call", profile)
	require.Equal(t, http.StatusOK, rec.Code)
	call := decode[map[string]any](t, rec)
	assert.Equal(t, true, call["success"])
	assert.Equal(t, true, call["mock"])
	assert.Equal(t, "demo-token-1705327500000", call["access_token"])

	rec = s.do(t, http.MethodPost, "/api/retell/create-agent", profile)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, retell.DemoNumber, decode[map[string]any](t, rec)["demoNumber"])

	rec = s.do(t, http.MethodPost, "/api/retell/start-demo", StartDemoRequest{AgentID: "agent-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "demo-call-1705327500000", decode[map[string]any](t, rec)["callId"])

	rec = s.do(t, http.MethodPost, "/api/receptionist/mock-call", profile)
	require.Equal(t, http.StatusOK, rec.Code)
	mock := decode[map[string]any](t, rec)
	assert.Equal(t, "Joe's Pizza", mock["business"])
	assert.Len(t, mock["transcript"], 11)
}

func TestRouter_RetellWebhook(t *testing.T) {
	s := newTestServer(t)
	body := []byte(`{"event":"call_ended","call":{"call_id":"call-77","agent_id":"a1","call_status":"ended","start_timestamp":1705327500000,"end_timestamp":1705327560000}}`)

	send := func(signature string, payload []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhook/retell", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		if signature != "" {
			req.Header.Set("X-Retell-Signature", signature)
		}
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec
	}

	rec := send("", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = send(retell.Sign("wrong", body), body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	bad := []byte(`{"event":"call_ended","call":{}}`)
	rec = send(retell.Sign(testWebhookSecret, bad), bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(retell.Sign(testWebhookSecret, body), body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "call-77", decode[map[string]any](t, rec)["call_id"])

	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.WebhooksReceivedTotal.WithLabelValues("retell", "invalid_signature")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.WebhooksReceivedTotal.WithLabelValues("retell", "parse_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.WebhooksReceivedTotal.WithLabelValues("retell", "valid")))
}

func TestRouter_Forms(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/contact", service.ContactInput{Name: "Jane"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email is required", decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodPost, "/api/contact", service.ContactInput{
		Name: "Jane", Email: "jane@example.com", Company: "Acme", Industry: "Real Estate", Message: "Hello",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["success"])
	written, err := os.ReadFile(s.csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(written), "jane@example.com")

	rec = s.do(t, http.MethodPost, "/api/demo-lead", service.DemoLeadInput{Phone: "555"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Phone number must be 10 digits", decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodPost, "/api/demo-lead", service.DemoLeadInput{Email: "jane@example.com", VisitorID: "v-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/visitor/v-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	flags := decode[session.VisitorFlags](t, rec)
	assert.True(t, flags.DemoSubmitted)
	assert.Equal(t, "jane@example.com", flags.DemoEmail)

	rec = s.do(t, http.MethodPut, "/api/visitor/v-1", map[string]any{"tourDismissed": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[session.VisitorFlags](t, rec).TourDismissed)

	rec = s.do(t, http.MethodDelete, "/api/visitor/v-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/visitor/v-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[session.VisitorFlags](t, rec).DemoSubmitted)
}

func TestRouter_OpsRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)
	require.Len(t, health.VoiceProviders, 1)
	assert.Equal(t, "/webhook/retell", health.VoiceProviders[0].Webhook)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/ready", nil).Code)
	assert.Equal(t, "alive", s.do(t, http.MethodGet, "/live", nil).Body.String())

	s.do(t, http.MethodGet, "/api/properties", nil)
	rec = s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "posentia_http_requests_total")

	rec = s.do(t, http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decode[ErrorResponse](t, rec).Error)
}
