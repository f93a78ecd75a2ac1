// Package voiceprovider defines the interface and types for voice AI
// providers. The receptionist demo creates browser calls through a provider
// and ingests its call webhooks as normalized CallEvents.
package voiceprovider

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/posentia/posentia/internal/domain"
)

// ProviderType identifies which voice provider is being used.
type ProviderType string

const (
	ProviderRetell ProviderType = "retell"
)

// CallStatus represents the normalized status of a call.
type CallStatus string

const (
	CallStatusPending    CallStatus = "pending"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
)

// TranscriptEntry is a single utterance of a call.
type TranscriptEntry struct {
	Role    string `json:"role"` // "agent" or "user"
	Content string `json:"content"`
}

// CallEvent represents a normalized call event from a voice provider.
type CallEvent struct {
	Provider       ProviderType `json:"provider"`
	Event          string       `json:"event"`
	ProviderCallID string       `json:"provider_call_id"`
	AgentID        string       `json:"agent_id,omitempty"`

	ToNumber   string `json:"to_number,omitempty"`
	FromNumber string `json:"from_number,omitempty"`

	Status       CallStatus `json:"status"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	DurationSecs int        `json:"duration_secs,omitempty"`

	Transcript        string            `json:"transcript,omitempty"`
	TranscriptEntries []TranscriptEntry `json:"transcript_entries,omitempty"`
	RecordingURL      string            `json:"recording_url,omitempty"`

	// Post-call analysis, when the provider supplies it.
	Summary     string         `json:"summary,omitempty"`
	Sentiment   string         `json:"sentiment,omitempty"`
	Disposition string         `json:"disposition,omitempty"`
	Variables   map[string]any `json:"variables,omitempty"`
}

// HasTranscript returns true if the call event has a non-empty transcript.
func (e *CallEvent) HasTranscript() bool {
	return strings.TrimSpace(e.Transcript) != ""
}

// IsComplete returns true if the call is in a terminal state.
func (e *CallEvent) IsComplete() bool {
	return e.Status == CallStatusCompleted || e.Status == CallStatusFailed
}

// Provider receives call webhooks.
type Provider interface {
	// GetName returns the provider type identifier.
	GetName() ProviderType

	// ParseWebhook parses an incoming webhook request into a normalized CallEvent.
	ParseWebhook(r *http.Request) (*CallEvent, error)

	// ValidateWebhook verifies the webhook signature. The request body is
	// left readable for ParseWebhook.
	ValidateWebhook(r *http.Request) bool

	// GetWebhookPath returns the path this provider's webhooks are sent to.
	GetWebhookPath() string
}

// WebCall is a browser voice session. Mock is set when the provider is not
// configured or refused, in which case the caller plays the scripted call.
type WebCall struct {
	AccessToken string `json:"access_token"`
	CallID      string `json:"call_id"`
	Mock        bool   `json:"mock"`
	Message     string `json:"message,omitempty"`
}

// Agent is the result of provisioning a receptionist agent.
type Agent struct {
	AgentID    string `json:"agentId"`
	Message    string `json:"message"`
	DemoNumber string `json:"demoNumber,omitempty"`
	Mock       bool   `json:"mock"`
}

// DemoCall is the result of starting a demo phone call.
type DemoCall struct {
	CallID  string `json:"callId"`
	Message string `json:"message"`
	Mock    bool   `json:"mock"`
}

// CallProvider creates calls. None of its operations fail: an unconfigured
// or failing upstream yields demo identifiers instead.
type CallProvider interface {
	Provider

	// CreateWebCall starts a browser call with an agent briefed on profile.
	CreateWebCall(ctx context.Context, profile domain.BusinessProfile) WebCall

	// CreateAgent provisions a receptionist agent for profile.
	CreateAgent(ctx context.Context, profile domain.BusinessProfile, phoneNumber string) Agent

	// StartDemo places a demo call from agentID to phoneNumber.
	StartDemo(ctx context.Context, agentID, phoneNumber string) DemoCall
}
