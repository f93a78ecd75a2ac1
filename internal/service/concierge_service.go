// Package service contains business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/clock"
	"github.com/posentia/posentia/internal/concierge"
	"github.com/posentia/posentia/internal/domain"
	apperrors "github.com/posentia/posentia/internal/errors"
	"github.com/posentia/posentia/internal/metrics"
	"github.com/posentia/posentia/internal/session"
)

// FollowUpMessage is the canned reply the demo sends on the lead's behalf
// when the visitor asks to see a follow-up.
const FollowUpMessage = "Budget 700k"

// Turn is a session after an engine call together with what the call
// produced.
type Turn struct {
	Session *session.Session
	Result  concierge.Result
}

// ConciergeService runs concierge demo sessions: it loads a session,
// feeds the visitor's input to the script engine and saves the outcome.
type ConciergeService struct {
	engine  *concierge.Engine
	store   session.Store
	clock   clock.Clock
	logger  *zap.Logger
	metrics *metrics.Metrics
	events  *metrics.BusinessEventLogger
}

// NewConciergeService creates a new ConciergeService. metrics may be nil.
func NewConciergeService(
	engine *concierge.Engine,
	store session.Store,
	c clock.Clock,
	logger *zap.Logger,
	m *metrics.Metrics,
	events *metrics.BusinessEventLogger,
) *ConciergeService {
	if c == nil {
		c = clock.New()
	}
	if events == nil {
		events = metrics.NewBusinessEventLogger(logger, c)
	}
	return &ConciergeService{
		engine:  engine,
		store:   store,
		clock:   c,
		logger:  logger,
		metrics: m,
		events:  events,
	}
}

// CreateSession starts an empty conversation.
func (s *ConciergeService) CreateSession(ctx context.Context) (*session.Session, error) {
	sess := session.New(s.clock.NowUTC())
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.events.SessionCreated(ctx, sess.ID)
	if s.metrics != nil {
		s.metrics.RecordSessionCreated()
	}
	return sess, nil
}

// GetSession returns a session or a NOT_FOUND error.
func (s *ConciergeService) GetSession(ctx context.Context, id string) (*session.Session, error) {
	return s.store.Get(ctx, id)
}

// DeleteSession discards a session. Deleting an unknown session succeeds.
func (s *ConciergeService) DeleteSession(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// SelectProperty highlights a listing in the carousel. Once the
// conversation has started the carousel no longer matters and selection is
// rejected.
func (s *ConciergeService) SelectProperty(ctx context.Context, id string, index int) (*session.Session, error) {
	if _, ok := domain.PropertyAt(index); !ok {
		return nil, apperrors.InvalidFormat("index", fmt.Sprintf("a listing index between 0 and %d", len(domain.Catalog())-1))
	}

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.State.Step != concierge.StepInitial {
		return nil, apperrors.ValidationFailed("Conversation already started",
			apperrors.FieldError{Field: "index", Message: "cannot change listing after the first message"})
	}

	sess.CarouselIndex = index
	sess.UpdatedAt = s.clock.NowUTC()
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return sess, nil
}

// StartLead opens the conversation from a listing card. A nil index uses
// the listing highlighted in the carousel.
func (s *ConciergeService) StartLead(ctx context.Context, id string, ch domain.Channel, index *int) (*Turn, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	propertyIndex := sess.CarouselIndex
	if index != nil {
		propertyIndex = *index
	}

	res, err := s.engine.Start(propertyIndex, ch, sess.State)
	if errors.Is(err, concierge.ErrUnknownProperty) {
		return nil, apperrors.InvalidFormat("index", fmt.Sprintf("a listing index between 0 and %d", len(domain.Catalog())-1))
	}
	if err != nil {
		return nil, err
	}
	if res.Changed() {
		sess.CarouselIndex = propertyIndex
	}
	return s.apply(ctx, sess, ch, res)
}

// SendMessage feeds one visitor message to the engine. Blank input and
// messages after completion return the session unchanged.
func (s *ConciergeService) SendMessage(ctx context.Context, id, content string, ch domain.Channel) (*Turn, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, sess, ch, s.engine.Advance(content, ch, sess.State))
}

// FollowUp sends the scripted follow-up SMS on the lead's behalf.
func (s *ConciergeService) FollowUp(ctx context.Context, id string) (*Turn, error) {
	return s.SendMessage(ctx, id, FollowUpMessage, domain.ChannelSMS)
}

// MarkCRMSent flips the CRM preview indicator to sent.
func (s *ConciergeService) MarkCRMSent(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.CRMStatus = session.CRMSent
	sess.UpdatedAt = s.clock.NowUTC()
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return sess, nil
}

func (s *ConciergeService) apply(ctx context.Context, sess *session.Session, ch domain.Channel, res concierge.Result) (*Turn, error) {
	if !res.Changed() {
		return &Turn{Session: sess, Result: res}, nil
	}

	from := sess.State.ConversationState()
	sess.Append(res)
	sess.UpdatedAt = s.clock.NowUTC()
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	to := res.NewState.ConversationState()
	s.events.ConversationAdvanced(ctx, sess.ID, string(ch), string(from), string(to))
	if s.metrics != nil {
		closedScore := ""
		if to == concierge.StateCompleted {
			closedScore = string(res.NewState.Qualification.LeadScore)
		}
		s.metrics.RecordConversationTurn(string(ch), string(to), closedScore)
	}

	s.logger.Debug("conversation advanced",
		zap.String("session_id", sess.ID),
		zap.String("rule", res.Rule),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return &Turn{Session: sess, Result: res}, nil
}
