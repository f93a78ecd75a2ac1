package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/clock"
	"github.com/posentia/posentia/internal/domain"
	apperrors "github.com/posentia/posentia/internal/errors"
	"github.com/posentia/posentia/internal/metrics"
	"github.com/posentia/posentia/internal/session"
	"github.com/posentia/posentia/internal/validation"
)

// DemoLeadInput is the lead-capture gate as submitted.
type DemoLeadInput struct {
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Product   string `json:"product"`
	VisitorID string `json:"visitorId,omitempty"`
}

// Validate requires an email or a phone and checks the format of each one
// given. Checks stop at the first failure.
func (in DemoLeadInput) Validate() error {
	email := strings.TrimSpace(in.Email)
	phone := strings.TrimSpace(in.Phone)

	v := validation.New()
	switch {
	case email == "" && phone == "":
		v.AddError("email", "email or phone number is required")
		return v.Err("Email or phone number is required")
	case !v.Email("email", email):
		return v.Err("Invalid email format")
	case !v.TenDigitPhone("phone", phone):
		return v.Err("Phone number must be 10 digits")
	}
	return nil
}

// DemoLeadService captures the contact a visitor leaves before using a
// demo, and remembers that the visitor passed the gate.
type DemoLeadService struct {
	repo    domain.DemoLeadRepository
	flags   session.FlagStore
	clock   clock.Clock
	logger  *zap.Logger
	metrics *metrics.Metrics
	events  *metrics.BusinessEventLogger
}

// NewDemoLeadService creates a new DemoLeadService. repo and flags may be
// nil.
func NewDemoLeadService(
	repo domain.DemoLeadRepository,
	flags session.FlagStore,
	c clock.Clock,
	logger *zap.Logger,
	m *metrics.Metrics,
	events *metrics.BusinessEventLogger,
) *DemoLeadService {
	if c == nil {
		c = clock.New()
	}
	if events == nil {
		events = metrics.NewBusinessEventLogger(logger, c)
	}
	return &DemoLeadService{
		repo:    repo,
		flags:   flags,
		clock:   c,
		logger:  logger,
		metrics: m,
		events:  events,
	}
}

// Capture validates and stores a demo lead. Storage is best effort.
func (s *DemoLeadService) Capture(ctx context.Context, in DemoLeadInput) (*domain.DemoLead, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	lead := &domain.DemoLead{
		ID:        uuid.New(),
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Product:   strings.TrimSpace(in.Product),
		CreatedAt: s.clock.NowUTC(),
	}

	if s.repo == nil {
		s.logger.Warn("database not configured, skipping demo lead insert")
	} else if err := s.repo.Create(ctx, lead); err != nil {
		s.sinkFailed(SinkDatabase, err)
	}

	if s.flags != nil && in.VisitorID != "" {
		if err := s.markSubmitted(ctx, in.VisitorID, lead); err != nil {
			s.sinkFailed("visitor_flags", err)
		}
	}

	s.events.DemoLeadCaptured(ctx, lead.Email, lead.Phone, lead.Product)
	if s.metrics != nil {
		s.metrics.RecordFormSubmission(FormDemoLead)
	}
	return lead, nil
}

func (s *DemoLeadService) markSubmitted(ctx context.Context, visitorID string, lead *domain.DemoLead) error {
	flags, err := s.flags.Load(ctx, visitorID)
	if err != nil {
		return err
	}
	flags.DemoSubmitted = true
	flags.DemoEmail = lead.Email
	flags.DemoPhone = lead.Phone
	return s.flags.Save(ctx, visitorID, flags)
}

func (s *DemoLeadService) sinkFailed(sink string, err error) {
	s.logger.Warn("form sink failed",
		zap.String("form", FormDemoLead),
		zap.String("sink", sink),
		zap.String("code", string(apperrors.GetCode(err))),
		zap.Error(err),
	)
	if s.metrics != nil {
		s.metrics.RecordFormSinkFailure(FormDemoLead, sink)
	}
}

// VisitorUpdate changes some visitor flags. Nil fields are left alone.
type VisitorUpdate struct {
	DemoSubmitted *bool   `json:"demoSubmitted,omitempty"`
	DemoEmail     *string `json:"demoEmail,omitempty"`
	DemoPhone     *string `json:"demoPhone,omitempty"`
	TourCompleted *bool   `json:"tourCompleted,omitempty"`
	TourDismissed *bool   `json:"tourDismissed,omitempty"`
	TourChoice    *string `json:"tourChoice,omitempty"`
}

func (u VisitorUpdate) apply(f *session.VisitorFlags) {
	if u.DemoSubmitted != nil {
		f.DemoSubmitted = *u.DemoSubmitted
	}
	if u.DemoEmail != nil {
		f.DemoEmail = *u.DemoEmail
	}
	if u.DemoPhone != nil {
		f.DemoPhone = *u.DemoPhone
	}
	if u.TourCompleted != nil {
		f.TourCompleted = *u.TourCompleted
	}
	if u.TourDismissed != nil {
		f.TourDismissed = *u.TourDismissed
	}
	if u.TourChoice != nil {
		f.TourChoice = *u.TourChoice
	}
}

// VisitorService holds the flags the site reads when a page mounts and
// clears on an explicit reset.
type VisitorService struct {
	flags session.FlagStore
}

// NewVisitorService creates a new VisitorService.
func NewVisitorService(flags session.FlagStore) *VisitorService {
	return &VisitorService{flags: flags}
}

// Load returns the flags of a visitor; unknown visitors get zero flags.
func (s *VisitorService) Load(ctx context.Context, visitorID string) (session.VisitorFlags, error) {
	if err := validVisitorID(visitorID); err != nil {
		return session.VisitorFlags{}, err
	}
	return s.flags.Load(ctx, visitorID)
}

// Update applies u and returns the resulting flags.
func (s *VisitorService) Update(ctx context.Context, visitorID string, u VisitorUpdate) (session.VisitorFlags, error) {
	if err := validVisitorID(visitorID); err != nil {
		return session.VisitorFlags{}, err
	}
	flags, err := s.flags.Load(ctx, visitorID)
	if err != nil {
		return session.VisitorFlags{}, err
	}
	u.apply(&flags)
	if err := s.flags.Save(ctx, visitorID, flags); err != nil {
		return session.VisitorFlags{}, err
	}
	return flags, nil
}

// Reset forgets a visitor.
func (s *VisitorService) Reset(ctx context.Context, visitorID string) error {
	if err := validVisitorID(visitorID); err != nil {
		return err
	}
	return s.flags.Reset(ctx, visitorID)
}

func validVisitorID(id string) error {
	if blank(id) || len(id) > 128 {
		return apperrors.InvalidFormat("visitorId", "a non-empty id of at most 128 characters")
	}
	return nil
}
