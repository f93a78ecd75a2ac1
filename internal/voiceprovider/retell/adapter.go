// Package retell implements the voice provider for Retell AI: browser web
// calls for the receptionist demo and call webhook ingestion.
// See: https://docs.retellai.com/api-references
package retell

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/circuitbreaker"
	"github.com/posentia/posentia/internal/clock"
	"github.com/posentia/posentia/internal/domain"
	"github.com/posentia/posentia/internal/validation"
	"github.com/posentia/posentia/internal/voiceprovider"
)

const (
	// DefaultAPIURL is the Retell API root.
	DefaultAPIURL = "https://api.retellai.com"

	// DemoNumber is shown to visitors when no agent can be provisioned.
	DemoNumber = "+1 (555) DEMO-123"

	signatureHeader = "X-Retell-Signature"
	notProvided     = "Not provided"
	notAvailable    = "N/A"
)

// Config holds Retell AI provider configuration.
type Config struct {
	APIKey        string
	MasterAgentID string
	// MasterAgentVersion pins the published version of the master agent.
	MasterAgentVersion int
	WebhookSecret      string
	APIURL             string
	Timeout            time.Duration
}

// Provider implements voiceprovider.CallProvider for Retell AI.
type Provider struct {
	config     Config
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
	clock      clock.Clock
	logger     *zap.Logger
}

var _ voiceprovider.CallProvider = (*Provider)(nil)

// New creates a new Retell AI provider.
func New(cfg Config, breaker *circuitbreaker.Breaker, c clock.Clock, logger *zap.Logger) *Provider {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	cfg.APIURL = strings.TrimSuffix(cfg.APIURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if c == nil {
		c = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if breaker == nil {
		breaker = circuitbreaker.New("retell", circuitbreaker.DefaultConfig(), logger)
	}
	return &Provider{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		clock:      c,
		logger:     logger,
	}
}

// GetName returns the provider type identifier.
func (p *Provider) GetName() voiceprovider.ProviderType {
	return voiceprovider.ProviderRetell
}

// GetWebhookPath returns the path for Retell webhooks.
func (p *Provider) GetWebhookPath() string {
	return "/webhook/retell"
}

// WebCallConfigured reports whether real web calls can be created.
func (p *Provider) WebCallConfigured() bool {
	return p.config.APIKey != "" && p.config.MasterAgentID != ""
}

// DynamicVariables briefs the master agent on the business it answers for.
func DynamicVariables(profile domain.BusinessProfile) map[string]string {
	rating, reviews := notAvailable, notAvailable
	if profile.Rating > 0 {
		rating = strconv.FormatFloat(profile.Rating, 'f', -1, 64)
	}
	if profile.Reviews > 0 {
		reviews = strconv.Itoa(profile.Reviews)
	}
	return map[string]string{
		"business_name":     profile.Name,
		"business_category": profile.Category,
		"business_address":  profile.Address,
		"business_phone":    orDefault(profile.Phone, notProvided),
		"business_hours":    profile.Hours,
		"business_website":  orDefault(profile.Website, notProvided),
		"business_rating":   rating,
		"business_reviews":  reviews,
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

type createWebCallRequest struct {
	AgentID          string            `json:"agent_id"`
	AgentVersion     int               `json:"agent_version"`
	DynamicVariables map[string]string `json:"retell_llm_dynamic_variables"`
}

type createWebCallResponse struct {
	AccessToken string `json:"access_token"`
	CallID      string `json:"call_id"`
}

// CreateWebCall creates a browser call with the master agent. Without
// credentials, or when Retell refuses, a demo token is returned and the
// caller plays the scripted call instead.
func (p *Provider) CreateWebCall(ctx context.Context, profile domain.BusinessProfile) voiceprovider.WebCall {
	if !p.WebCallConfigured() {
		return p.demoWebCall("Retell API key or Master Agent ID not configured. Using demo mode.")
	}

	body := createWebCallRequest{
		AgentID:          p.config.MasterAgentID,
		AgentVersion:     p.config.MasterAgentVersion,
		DynamicVariables: DynamicVariables(profile),
	}
	var resp createWebCallResponse
	err := p.breaker.Execute(ctx, func(ctx context.Context) error {
		return p.post(ctx, "/create-web-call", body, &resp)
	})
	if err != nil {
		p.logger.Warn("retell web call creation failed, using demo mode",
			zap.String("business", profile.Name),
			zap.Error(err),
		)
		return p.demoWebCall("Voice service unavailable. Using demo mode.")
	}

	p.logger.Info("retell web call created", zap.String("call_id", resp.CallID))
	return voiceprovider.WebCall{AccessToken: resp.AccessToken, CallID: resp.CallID}
}

func (p *Provider) demoWebCall(message string) voiceprovider.WebCall {
	return voiceprovider.WebCall{
		AccessToken: clock.SandboxID(p.clock, "demo-token"),
		CallID:      clock.SandboxID(p.clock, "demo-call"),
		Mock:        true,
		Message:     message,
	}
}

// CreateAgent provisions a receptionist agent. Per-business agents are not
// provisioned upstream; every call is served by the master agent, so this
// only hands out an identifier.
func (p *Provider) CreateAgent(_ context.Context, profile domain.BusinessProfile, _ string) voiceprovider.Agent {
	if p.config.APIKey == "" {
		return voiceprovider.Agent{
			AgentID:    clock.SandboxID(p.clock, "demo-agent"),
			Message:    "Retell API key not configured. Using demo mode.",
			DemoNumber: DemoNumber,
			Mock:       true,
		}
	}
	p.logger.Debug("agent requested", zap.String("business", profile.Name))
	return voiceprovider.Agent{
		AgentID: clock.SandboxID(p.clock, "agent"),
		Message: "Agent created",
	}
}

// StartDemo places a demo call. Like CreateAgent it only hands out an
// identifier.
func (p *Provider) StartDemo(_ context.Context, agentID, _ string) voiceprovider.DemoCall {
	if p.config.APIKey == "" {
		return voiceprovider.DemoCall{
			CallID:  clock.SandboxID(p.clock, "demo-call"),
			Message: "Retell API key not configured. Demo mode.",
			Mock:    true,
		}
	}
	p.logger.Debug("demo call requested", zap.String("agent_id", agentID))
	return voiceprovider.DemoCall{
		CallID:  clock.SandboxID(p.clock, "call"),
		Message: "Demo call initiated",
	}
}

func (p *Provider) post(ctx context.Context, path string, body, result any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.APIURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("retell API error: %d %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// ValidateWebhook verifies the HMAC-SHA256 X-Retell-Signature of the body.
// Without a configured secret every webhook is accepted.
func (p *Provider) ValidateWebhook(r *http.Request) bool {
	if p.config.WebhookSecret == "" {
		p.logger.Warn("webhook secret not configured, skipping signature validation")
		return true
	}

	signature := r.Header.Get(signatureHeader)
	if signature == "" {
		p.logger.Warn("webhook missing signature header",
			zap.String("provider", "retell"),
			zap.String("remote_addr", r.RemoteAddr),
		)
		return false
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		p.logger.Error("failed to read webhook body for validation", zap.Error(err))
		return false
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if !hmac.Equal([]byte(signature), []byte(Sign(p.config.WebhookSecret, body))) {
		p.logger.Warn("webhook signature mismatch",
			zap.String("provider", "retell"),
			zap.String("remote_addr", r.RemoteAddr),
		)
		return false
	}
	return true
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ParseWebhook parses a Retell AI webhook into a normalized CallEvent.
func (p *Provider) ParseWebhook(r *http.Request) (*voiceprovider.CallEvent, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	if err := p.validatePayload(&payload); err != nil {
		return nil, err
	}

	event := toCallEvent(&payload)
	p.logger.Debug("parsed retell webhook",
		zap.String("event", payload.Event),
		zap.String("call_id", event.ProviderCallID),
	)
	return event, nil
}

func (p *Provider) validatePayload(payload *WebhookPayload) error {
	v := validation.NewCallEventValidator()
	call := payload.Call
	v.ValidateCallID(call.CallID)
	v.ValidatePhoneNumbers(call.ToNumber, call.FromNumber)
	v.ValidateTranscript(call.Transcript)
	v.ValidateRecordingURL(call.RecordingURL)

	if err := v.Err("Invalid webhook payload"); err != nil {
		p.logger.Warn("webhook payload validation failed",
			zap.String("provider", "retell"),
			zap.String("call_id", call.CallID),
			zap.Int("error_count", len(v.Fields())),
		)
		return err
	}

	payload.Call.Transcript = validation.SanitizeString(call.Transcript)
	payload.Call.DisconnectionReason = validation.SanitizeString(call.DisconnectionReason)
	return nil
}

func toCallEvent(payload *WebhookPayload) *voiceprovider.CallEvent {
	call := payload.Call
	event := &voiceprovider.CallEvent{
		Provider:       voiceprovider.ProviderRetell,
		Event:          payload.Event,
		ProviderCallID: call.CallID,
		AgentID:        call.AgentID,
		ToNumber:       call.ToNumber,
		FromNumber:     call.FromNumber,
		Status:         normalizeStatus(payload.Event, call.CallStatus),
		Transcript:     call.Transcript,
		RecordingURL:   call.RecordingURL,
		Disposition:    call.DisconnectionReason,
	}

	// Retell timestamps are milliseconds.
	if call.StartTimestamp > 0 {
		t := time.UnixMilli(call.StartTimestamp).UTC()
		event.StartedAt = &t
	}
	if call.EndTimestamp > 0 {
		t := time.UnixMilli(call.EndTimestamp).UTC()
		event.EndedAt = &t
	}
	if call.StartTimestamp > 0 && call.EndTimestamp > call.StartTimestamp {
		event.DurationSecs = int((call.EndTimestamp - call.StartTimestamp) / 1000)
	}

	for _, t := range call.TranscriptObject {
		event.TranscriptEntries = append(event.TranscriptEntries, voiceprovider.TranscriptEntry{
			Role:    t.Role,
			Content: t.Content,
		})
	}

	if a := call.CallAnalysis; a != nil {
		event.Summary = a.CallSummary
		event.Sentiment = a.UserSentiment
		if len(a.CustomAnalysisData) > 0 {
			event.Variables = a.CustomAnalysisData
		}
	}
	return event
}

// normalizeStatus maps the event name, then Retell's call_status, onto a
// CallStatus.
func normalizeStatus(event, callStatus string) voiceprovider.CallStatus {
	switch event {
	case "call_started":
		return voiceprovider.CallStatusInProgress
	case "call_analyzed":
		return voiceprovider.CallStatusCompleted
	}

	switch callStatus {
	case "ended":
		return voiceprovider.CallStatusCompleted
	case "error":
		return voiceprovider.CallStatusFailed
	case "ongoing":
		return voiceprovider.CallStatusInProgress
	default:
		return voiceprovider.CallStatusPending
	}
}

// WebhookPayload is the body of a Retell call webhook.
type WebhookPayload struct {
	Event string `json:"event"` // call_started, call_ended, call_analyzed
	Call  Call   `json:"call"`
}

// Call is the call object carried by a webhook.
type Call struct {
	CallID              string            `json:"call_id"`
	AgentID             string            `json:"agent_id"`
	CallType            string            `json:"call_type"` // web_call, phone_call
	CallStatus          string            `json:"call_status"`
	FromNumber          string            `json:"from_number,omitempty"`
	ToNumber            string            `json:"to_number,omitempty"`
	StartTimestamp      int64             `json:"start_timestamp,omitempty"`
	EndTimestamp        int64             `json:"end_timestamp,omitempty"`
	Transcript          string            `json:"transcript,omitempty"`
	TranscriptObject    []TranscriptEntry `json:"transcript_object,omitempty"`
	RecordingURL        string            `json:"recording_url,omitempty"`
	DisconnectionReason string            `json:"disconnection_reason,omitempty"`
	CallAnalysis        *CallAnalysis     `json:"call_analysis,omitempty"`
}

// TranscriptEntry is one utterance of the call.
type TranscriptEntry struct {
	Role    string `json:"role"` // agent, user
	Content string `json:"content"`
}

// CallAnalysis is Retell's post-call analysis.
type CallAnalysis struct {
	CallSummary        string         `json:"call_summary,omitempty"`
	UserSentiment      string         `json:"user_sentiment,omitempty"`
	CallSuccessful     bool           `json:"call_successful,omitempty"`
	CustomAnalysisData map[string]any `json:"custom_analysis_data,omitempty"`
}
