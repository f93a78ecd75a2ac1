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
	"github.com/posentia/posentia/internal/validation"
)

// Form names used in metrics.
const (
	FormContact  = "contact"
	FormDemoLead = "demo_lead"
)

// Sinks a form submission is written to.
const (
	SinkDatabase = "database"
	SinkCSV      = "csv"
	SinkEmail    = "email"
)

// ContactLog appends submissions to a local file.
type ContactLog interface {
	Append(c *domain.ContactSubmission) error
}

// ContactNotifier tells the sales inbox about a submission.
type ContactNotifier interface {
	Notify(ctx context.Context, c *domain.ContactSubmission) error
}

// ContactInput is the contact form as submitted.
type ContactInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Company    string `json:"company"`
	Industry   string `json:"industry"`
	CallVolume string `json:"callVolume"`
	Message    string `json:"message"`
}

// contactRequired lists the required fields in the order they are checked.
var contactRequired = []struct{ field, label string }{
	{"name", "Name"},
	{"email", "Email"},
	{"company", "Company"},
	{"industry", "Industry"},
	{"message", "Message"},
}

// Validate checks the required fields. The error message names the first
// missing field; every failure is listed in the field errors.
func (in ContactInput) Validate() error {
	values := map[string]string{
		"name":     in.Name,
		"email":    in.Email,
		"company":  in.Company,
		"industry": in.Industry,
		"message":  in.Message,
	}

	v := validation.New()
	first := ""
	for _, f := range contactRequired {
		if !v.Required(f.field, values[f.field]) && first == "" {
			first = f.label + " is required"
		}
	}
	if !blank(in.Email) && !v.Email("email", strings.TrimSpace(in.Email)) && first == "" {
		first = "Invalid email format"
	}
	v.MaxLength("message", in.Message, 5000)
	return v.Err(first)
}

// ContactService accepts contact-form submissions. Once validation passes
// a submission is always accepted: the database insert, the CSV log and
// the email notification are each best effort.
type ContactService struct {
	repo     domain.ContactRepository
	log      ContactLog
	notifier ContactNotifier
	clock    clock.Clock
	logger   *zap.Logger
	metrics  *metrics.Metrics
	events   *metrics.BusinessEventLogger
}

// NewContactService creates a new ContactService. Any sink may be nil.
func NewContactService(
	repo domain.ContactRepository,
	log ContactLog,
	notifier ContactNotifier,
	c clock.Clock,
	logger *zap.Logger,
	m *metrics.Metrics,
	events *metrics.BusinessEventLogger,
) *ContactService {
	if c == nil {
		c = clock.New()
	}
	if events == nil {
		events = metrics.NewBusinessEventLogger(logger, c)
	}
	return &ContactService{
		repo:     repo,
		log:      log,
		notifier: notifier,
		clock:    c,
		logger:   logger,
		metrics:  m,
		events:   events,
	}
}

// Submit validates and stores a contact submission.
func (s *ContactService) Submit(ctx context.Context, in ContactInput) (*domain.ContactSubmission, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	sub := &domain.ContactSubmission{
		ID:         uuid.New(),
		Name:       strings.TrimSpace(in.Name),
		Email:      strings.TrimSpace(in.Email),
		Phone:      strings.TrimSpace(in.Phone),
		Company:    strings.TrimSpace(in.Company),
		Industry:   strings.TrimSpace(in.Industry),
		CallVolume: strings.TrimSpace(in.CallVolume),
		Message:    strings.TrimSpace(in.Message),
		CreatedAt:  s.clock.NowUTC(),
	}

	if s.repo == nil {
		s.logger.Warn("database not configured, skipping contact insert")
	} else if err := s.repo.Create(ctx, sub); err != nil {
		s.sinkFailed(FormContact, SinkDatabase, err)
	}

	if s.log != nil {
		if err := s.log.Append(sub); err != nil {
			s.sinkFailed(FormContact, SinkCSV, err)
		}
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, sub); err != nil {
			s.sinkFailed(FormContact, SinkEmail, err)
		}
	}

	s.events.ContactReceived(ctx, sub.ID.String(), sub.Email, sub.Company, sub.Industry)
	if s.metrics != nil {
		s.metrics.RecordFormSubmission(FormContact)
	}
	return sub, nil
}

func (s *ContactService) sinkFailed(form, sink string, err error) {
	s.logger.Warn("form sink failed",
		zap.String("form", form),
		zap.String("sink", sink),
		zap.String("code", string(apperrors.GetCode(err))),
		zap.Error(err),
	)
	if s.metrics != nil {
		s.metrics.RecordFormSinkFailure(form, sink)
	}
}
