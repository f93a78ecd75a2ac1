// Package audit records two kinds of trail: operational events worth
// keeping for forensics (webhook ingestion, rate limiting, lifecycle), and
// the per-lead processing log shown by the lead-flow demo.
package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/clock"
)

// EventType represents the type of audit event.
type EventType string

const (
	EventWebhookReceived       EventType = "webhook.received"
	EventWebhookValidationFail EventType = "webhook.validation.failed"
	EventRateLimitExceeded     EventType = "ratelimit.exceeded"
	EventLeadPushed            EventType = "lead.pushed"
	EventAPICallFailed         EventType = "api.call.failed"
	EventServiceStarted        EventType = "system.started"
	EventServiceStopping       EventType = "system.stopping"
)

// Severity represents the severity level of an audit event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event is one audit log entry.
type Event struct {
	ID       string    `json:"id"`
	Type     EventType `json:"type"`
	Severity Severity  `json:"severity"`

	SourceIP  string `json:"source_ip,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	// ResourceType is "call", "lead" or empty.
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`

	Action  string `json:"action"`
	Outcome string `json:"outcome"` // success, failure, denied
	Reason  string `json:"reason,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// Logger writes audit events through a named zap logger.
type Logger struct {
	logger *zap.Logger
	clock  clock.Clock
}

// NewLogger creates a new audit logger.
func NewLogger(baseLogger *zap.Logger, c clock.Clock) *Logger {
	if c == nil {
		c = clock.New()
	}
	return &Logger{logger: baseLogger.Named("audit"), clock: c}
}

// Log records an audit event.
func (l *Logger) Log(_ context.Context, event *Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	level := zap.InfoLevel
	switch event.Severity {
	case SeverityWarning:
		level = zap.WarnLevel
	case SeverityError:
		level = zap.ErrorLevel
	}

	fields := []zap.Field{
		zap.String("audit_id", event.ID),
		zap.Time("audit_timestamp", l.clock.NowUTC()),
		zap.String("event_type", string(event.Type)),
		zap.String("severity", string(event.Severity)),
		zap.String("action", event.Action),
		zap.String("outcome", event.Outcome),
	}
	optional := []struct{ key, value string }{
		{"source_ip", event.SourceIP},
		{"request_id", event.RequestID},
		{"resource_type", event.ResourceType},
		{"resource_id", event.ResourceID},
		{"reason", event.Reason},
	}
	for _, f := range optional {
		if f.value != "" {
			fields = append(fields, zap.String(f.key, f.value))
		}
	}
	if len(event.Metadata) > 0 {
		metadataJSON, err := json.Marshal(event.Metadata)
		if err != nil {
			metadataJSON = []byte(`{"error":"failed to marshal metadata"}`)
		}
		fields = append(fields, zap.ByteString("metadata", metadataJSON))
	}

	if ce := l.logger.Check(level, "audit event"); ce != nil {
		ce.Write(fields...)
	}
}

// WebhookReceived logs an accepted call webhook.
func (l *Logger) WebhookReceived(ctx context.Context, provider, callID, ip, requestID string) {
	l.Log(ctx, &Event{
		Type:         EventWebhookReceived,
		Severity:     SeverityInfo,
		SourceIP:     ip,
		RequestID:    requestID,
		ResourceType: "call",
		ResourceID:   callID,
		Action:       "webhook received",
		Outcome:      "success",
		Metadata:     map[string]any{"provider": provider},
	})
}

// WebhookValidationFailed logs a rejected webhook.
func (l *Logger) WebhookValidationFailed(ctx context.Context, provider, ip, requestID, reason string) {
	l.Log(ctx, &Event{
		Type:      EventWebhookValidationFail,
		Severity:  SeverityWarning,
		SourceIP:  ip,
		RequestID: requestID,
		Action:    "webhook validation",
		Outcome:   "failure",
		Reason:    reason,
		Metadata:  map[string]any{"provider": provider},
	})
}

// RateLimitExceeded logs a rate limit violation.
func (l *Logger) RateLimitExceeded(ctx context.Context, ip, requestID, path string) {
	l.Log(ctx, &Event{
		Type:      EventRateLimitExceeded,
		Severity:  SeverityWarning,
		SourceIP:  ip,
		RequestID: requestID,
		Action:    "request rate limited",
		Outcome:   "denied",
		Reason:    "rate limit exceeded",
		Metadata:  map[string]any{"path": path},
	})
}

// LeadPushed logs a CRM push. Sandbox pushes never left the process.
func (l *Logger) LeadPushed(ctx context.Context, leadID string, sandbox bool, requestID string) {
	l.Log(ctx, &Event{
		Type:         EventLeadPushed,
		Severity:     SeverityInfo,
		RequestID:    requestID,
		ResourceType: "lead",
		ResourceID:   leadID,
		Action:       "lead pushed to crm",
		Outcome:      "success",
		Metadata:     map[string]any{"sandbox": sandbox},
	})
}

// APICallFailed logs a failed upstream call that was replaced by a fallback.
func (l *Logger) APICallFailed(ctx context.Context, service, operation, requestID, reason string) {
	l.Log(ctx, &Event{
		Type:      EventAPICallFailed,
		Severity:  SeverityWarning,
		RequestID: requestID,
		Action:    "external API call",
		Outcome:   "failure",
		Reason:    reason,
		Metadata: map[string]any{
			"service":   service,
			"operation": operation,
		},
	})
}

// ServiceStarted logs service startup.
func (l *Logger) ServiceStarted(ctx context.Context, version, environment string) {
	l.Log(ctx, &Event{
		Type:     EventServiceStarted,
		Severity: SeverityInfo,
		Action:   "service started",
		Outcome:  "success",
		Metadata: map[string]any{
			"version":     version,
			"environment": environment,
		},
	})
}

// ServiceStopping logs service shutdown initiation.
func (l *Logger) ServiceStopping(ctx context.Context, reason string) {
	l.Log(ctx, &Event{
		Type:     EventServiceStopping,
		Severity: SeverityInfo,
		Action:   "service stopping",
		Outcome:  "success",
		Reason:   reason,
	})
}
