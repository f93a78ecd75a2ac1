package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/audit"
	"github.com/posentia/posentia/internal/clock"
	"github.com/posentia/posentia/internal/domain"
	apperrors "github.com/posentia/posentia/internal/errors"
	"github.com/posentia/posentia/internal/metrics"
	"github.com/posentia/posentia/internal/middleware"
	"github.com/posentia/posentia/internal/places"
	"github.com/posentia/posentia/internal/receptionist"
	"github.com/posentia/posentia/internal/voiceprovider"
)

// BusinessLookup finds a business profile, falling back to a demo profile.
type BusinessLookup interface {
	Find(ctx context.Context, name string) places.Result
}

// ReceptionistService backs the voice receptionist demo: business lookup,
// call creation, the scripted call and call webhooks.
type ReceptionistService struct {
	calls   voiceprovider.CallProvider
	lookup  BusinessLookup
	audit   *audit.Logger
	clock   clock.Clock
	logger  *zap.Logger
	metrics *metrics.Metrics
	events  *metrics.BusinessEventLogger
}

// NewReceptionistService creates a new ReceptionistService.
func NewReceptionistService(
	calls voiceprovider.CallProvider,
	lookup BusinessLookup,
	auditLogger *audit.Logger,
	c clock.Clock,
	logger *zap.Logger,
	m *metrics.Metrics,
	events *metrics.BusinessEventLogger,
) *ReceptionistService {
	if c == nil {
		c = clock.New()
	}
	if events == nil {
		events = metrics.NewBusinessEventLogger(logger, c)
	}
	return &ReceptionistService{
		calls:   calls,
		lookup:  lookup,
		audit:   auditLogger,
		clock:   c,
		logger:  logger,
		metrics: m,
		events:  events,
	}
}

// LookupBusiness returns the profile of the named business.
func (s *ReceptionistService) LookupBusiness(ctx context.Context, name string) (places.Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return places.Result{}, apperrors.ValidationFailed("Business name required",
			apperrors.FieldError{Field: "businessName", Message: "is required"})
	}

	start := s.clock.Now()
	result := s.lookup.Find(ctx, name)
	if s.metrics != nil {
		outcome := metrics.OutcomeSuccess
		if result.Mock() {
			outcome = metrics.OutcomeFallback
		}
		s.metrics.RecordUpstreamCall("google_places", outcome, s.clock.Since(start))
	}
	return result, nil
}

// CreateWebCall starts a browser call for profile.
func (s *ReceptionistService) CreateWebCall(ctx context.Context, profile *domain.BusinessProfile) (voiceprovider.WebCall, error) {
	if profile == nil {
		return voiceprovider.WebCall{}, apperrors.ValidationFailed("Business profile required",
			apperrors.FieldError{Field: "businessProfile", Message: "is required"})
	}

	call := s.calls.CreateWebCall(ctx, *profile)
	s.recordCall(ctx, "web_call", call.CallID, call.Mock)
	return call, nil
}

// CreateAgent provisions a receptionist agent for profile.
func (s *ReceptionistService) CreateAgent(ctx context.Context, profile *domain.BusinessProfile, phoneNumber string) voiceprovider.Agent {
	p := domain.DemoBusinessProfile("")
	if profile != nil {
		p = *profile
	}
	agent := s.calls.CreateAgent(ctx, p, phoneNumber)
	s.recordCall(ctx, "create_agent", agent.AgentID, agent.Mock)
	return agent
}

// StartDemo places a demo call from agentID.
func (s *ReceptionistService) StartDemo(ctx context.Context, agentID, phoneNumber string) voiceprovider.DemoCall {
	call := s.calls.StartDemo(ctx, agentID, phoneNumber)
	s.recordCall(ctx, "start_demo", call.CallID, call.Mock)
	return call
}

// MockCall returns the scripted receptionist call for profile.
func (s *ReceptionistService) MockCall(ctx context.Context, profile *domain.BusinessProfile) receptionist.Call {
	p := domain.DemoBusinessProfile("")
	if profile != nil {
		p = *profile
	}
	call := receptionist.MockCall(p, s.clock.NowUTC())
	s.recordCall(ctx, "mock_call", "", true)
	return call
}

// HandleCallEvent records a call event received from a voice provider.
func (s *ReceptionistService) HandleCallEvent(ctx context.Context, event *voiceprovider.CallEvent, sourceIP string) {
	s.events.CallEventReceived(ctx, string(event.Provider), event.Event, event.ProviderCallID, string(event.Status), event.DurationSecs)
	if s.audit != nil {
		s.audit.WebhookReceived(ctx, string(event.Provider), event.ProviderCallID, sourceIP, middleware.GetRequestID(ctx))
	}
	if s.metrics != nil {
		s.metrics.RecordWebhook(string(event.Provider), "valid")
	}

	if event.IsComplete() {
		s.logger.Info("call finished",
			zap.String("provider", string(event.Provider)),
			zap.String("call_id", event.ProviderCallID),
			zap.String("status", string(event.Status)),
			zap.Int("duration_secs", event.DurationSecs),
			zap.Bool("has_transcript", event.HasTranscript()),
		)
	}
}

func (s *ReceptionistService) recordCall(ctx context.Context, operation, callID string, demo bool) {
	s.events.CallCreated(ctx, operation, callID, demo)
	if s.metrics != nil {
		s.metrics.RecordVoiceRequest(operation, demo)
	}
}
