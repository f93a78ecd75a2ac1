package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/audit"
	"github.com/posentia/posentia/internal/clock"
	"github.com/posentia/posentia/internal/crm"
	"github.com/posentia/posentia/internal/domain"
	apperrors "github.com/posentia/posentia/internal/errors"
	"github.com/posentia/posentia/internal/metrics"
	"github.com/posentia/posentia/internal/middleware"
	"github.com/posentia/posentia/internal/sanitize"
)

// LeadPusher delivers leads to Follow Up Boss.
type LeadPusher interface {
	PushLead(ctx context.Context, apiKey string, lead domain.Lead) domain.PushResult
	TestConnection(ctx context.Context, apiKey string) error
}

// WebhookDeliverer posts a qualified lead to a visitor's CRM webhook.
type WebhookDeliverer interface {
	Send(ctx context.Context, webhookURL string, lead crm.WebhookLead) error
}

// Lead flow kinds.
const (
	LeadFlowSMS        = "sms"
	LeadFlowMissedCall = "missed_call"
)

// FollowUpSequence is the nurture plan scheduled for every SMS lead.
var FollowUpSequence = []string{
	"Day 0: Instant reply (sent)",
	"Day 1: Check-in SMS",
	"Day 3: Value email",
	"Day 7: Final touch",
}

// LeadFlowRun is the outcome of one simulated inbound lead.
type LeadFlowRun struct {
	Kind   string             `json:"kind"`
	Intent string             `json:"intent,omitempty"`
	Reply  string             `json:"reply"`
	Push   *domain.PushResult `json:"push,omitempty"`
	Log    []audit.Entry      `json:"log"`
}

// LeadService pushes leads to the CRM and runs the lead-flow simulator.
type LeadService struct {
	pusher  LeadPusher
	webhook WebhookDeliverer
	audit   *audit.Logger
	clock   clock.Clock
	logger  *zap.Logger
	metrics *metrics.Metrics
	events  *metrics.BusinessEventLogger
}

// NewLeadService creates a new LeadService. audit and metrics may be nil.
func NewLeadService(
	pusher LeadPusher,
	webhook WebhookDeliverer,
	auditLogger *audit.Logger,
	c clock.Clock,
	logger *zap.Logger,
	m *metrics.Metrics,
	events *metrics.BusinessEventLogger,
) *LeadService {
	if c == nil {
		c = clock.New()
	}
	if events == nil {
		events = metrics.NewBusinessEventLogger(logger, c)
	}
	return &LeadService{
		pusher:  pusher,
		webhook: webhook,
		audit:   auditLogger,
		clock:   c,
		logger:  logger,
		metrics: m,
		events:  events,
	}
}

// PushLead sends lead to Follow Up Boss. Only incomplete lead data is an
// error; upstream trouble yields a sandbox id.
func (s *LeadService) PushLead(ctx context.Context, apiKey string, lead domain.Lead) (domain.PushResult, error) {
	if err := crm.ValidateLead(lead); err != nil {
		return domain.PushResult{}, err
	}

	result := s.pusher.PushLead(ctx, apiKey, lead)

	if s.metrics != nil {
		s.metrics.RecordLeadPush(result.Sandbox)
	}
	s.events.LeadPushed(ctx, result.LeadID, lead.Phone, lead.Intent, result.Sandbox)
	if s.audit != nil {
		s.audit.LeadPushed(ctx, result.LeadID, result.Sandbox, middleware.GetRequestID(ctx))
	}
	return result, nil
}

// TestConnection checks a Follow Up Boss API key.
func (s *LeadService) TestConnection(ctx context.Context, apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return apperrors.ValidationFailed("API key required",
			apperrors.FieldError{Field: "apiKey", Message: "is required"})
	}

	start := s.clock.Now()
	err := s.pusher.TestConnection(ctx, apiKey)
	s.recordUpstream(ctx, "fub", "test_connection", err, start)
	return err
}

// SendWebhook posts lead to webhookURL.
func (s *LeadService) SendWebhook(ctx context.Context, webhookURL string, lead crm.WebhookLead) error {
	webhookURL = strings.TrimSpace(webhookURL)
	if err := crm.ValidateWebhookURL(webhookURL); err != nil {
		return err
	}

	start := s.clock.Now()
	err := s.webhook.Send(ctx, webhookURL, lead)
	s.recordUpstream(ctx, "crm_webhook", "send", err, start)
	if err != nil {
		s.logger.Warn("crm webhook test failed", zap.Error(err))
	}
	return err
}

func (s *LeadService) recordUpstream(ctx context.Context, service, operation string, err error, start time.Time) {
	if err != nil && s.audit != nil && !apperrors.IsUserError(err) {
		s.audit.APICallFailed(ctx, service, operation, middleware.GetRequestID(ctx), sanitize.Error(err))
	}
	if s.metrics == nil {
		return
	}
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	s.metrics.RecordUpstreamCall(service, outcome, s.clock.Since(start))
}
