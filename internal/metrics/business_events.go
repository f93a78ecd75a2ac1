package metrics

import (
	"context"

	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/clock"
	"github.com/posentia/posentia/internal/logging"
)

// BusinessEventLogger writes searchable business events through a named
// logger. Phone numbers and emails are masked.
type BusinessEventLogger struct {
	logger *zap.Logger
	clock  clock.Clock
}

// NewBusinessEventLogger creates a new business event logger.
func NewBusinessEventLogger(logger *zap.Logger, c clock.Clock) *BusinessEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = clock.New()
	}
	return &BusinessEventLogger{logger: logger.Named("business_events"), clock: c}
}

func (l *BusinessEventLogger) emit(msg, eventType string, fields ...zap.Field) {
	fields = append(fields,
		zap.String("event_type", eventType),
		zap.Time("timestamp", l.clock.NowUTC()),
	)
	l.logger.Info(msg, fields...)
}

// SessionCreated logs a new concierge demo session.
func (l *BusinessEventLogger) SessionCreated(_ context.Context, sessionID string) {
	l.emit("session_created", "session.created", zap.String("session_id", sessionID))
}

// ConversationAdvanced logs one engine turn.
func (l *BusinessEventLogger) ConversationAdvanced(_ context.Context, sessionID, channel, from, to string) {
	l.emit("conversation_advanced", "conversation.advanced",
		zap.String("session_id", sessionID),
		zap.String("channel", channel),
		zap.String("from_state", from),
		zap.String("to_state", to),
	)
}

// LeadPushed logs a CRM push result.
func (l *BusinessEventLogger) LeadPushed(_ context.Context, leadID, phone, intent string, sandbox bool) {
	l.emit("lead_pushed", "lead.pushed",
		zap.String("lead_id", leadID),
		zap.String("phone", logging.MaskPhone(phone)),
		zap.String("intent", intent),
		zap.Bool("sandbox", sandbox),
	)
}

// LeadFlowProcessed logs a simulated inbound lead.
func (l *BusinessEventLogger) LeadFlowProcessed(_ context.Context, kind, phone, intent string, steps int) {
	l.emit("lead_flow_processed", "leadflow.processed",
		zap.String("kind", kind),
		zap.String("phone", logging.MaskPhone(phone)),
		zap.String("intent", intent),
		zap.Int("steps", steps),
	)
}

// ContactReceived logs an accepted contact form.
func (l *BusinessEventLogger) ContactReceived(_ context.Context, id, email, company, industry string) {
	l.emit("contact_received", "contact.received",
		zap.String("submission_id", id),
		zap.String("email", logging.MaskEmail(email)),
		zap.String("company", company),
		zap.String("industry", industry),
	)
}

// DemoLeadCaptured logs the lead-capture gate.
func (l *BusinessEventLogger) DemoLeadCaptured(_ context.Context, email, phone, product string) {
	fields := []zap.Field{zap.String("product", product)}
	if email != "" {
		fields = append(fields, zap.String("email", logging.MaskEmail(email)))
	}
	if phone != "" {
		fields = append(fields, zap.String("phone", logging.MaskPhone(phone)))
	}
	l.emit("demo_lead_captured", "demo_lead.captured", fields...)
}

// CallCreated logs a voice web call, agent or demo call.
func (l *BusinessEventLogger) CallCreated(_ context.Context, operation, callID string, demo bool) {
	l.emit("call_created", "call.created",
		zap.String("operation", operation),
		zap.String("call_id", callID),
		zap.Bool("demo", demo),
	)
}

// CallEventReceived logs a provider call webhook.
func (l *BusinessEventLogger) CallEventReceived(_ context.Context, provider, event, callID, status string, durationSecs int) {
	l.emit("call_event_received", "call.event",
		zap.String("provider", provider),
		zap.String("event", event),
		zap.String("call_id", callID),
		zap.String("status", status),
		zap.Int("duration_secs", durationSecs),
	)
}

// FallbackUsed logs an upstream failure that was replaced by a fallback.
func (l *BusinessEventLogger) FallbackUsed(_ context.Context, service, operation string, err error) {
	l.logger.Warn("fallback_used",
		zap.String("event_type", "upstream.fallback"),
		zap.String("service", service),
		zap.String("operation", operation),
		zap.Error(err),
		zap.Time("timestamp", l.clock.NowUTC()),
	)
}
