package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/ai"
	"github.com/posentia/posentia/internal/clock"
	"github.com/posentia/posentia/internal/metrics"
	"github.com/posentia/posentia/internal/ratelimit"
)

// ChatReply is the agent's answer in the SMS lead chat.
type ChatReply struct {
	Content string `json:"content"`
	// Mock is set when the scripted responder answered.
	Mock bool `json:"-"`
}

// ChatService answers the lead chat. It never fails: a missing model,
// an exhausted budget, an upstream error, an empty completion or a panic
// all fall back to the scripted responder.
type ChatService struct {
	completer ai.Completer
	limiter   *ratelimit.CostLimiter
	clock     clock.Clock
	logger    *zap.Logger
	metrics   *metrics.Metrics
	events    *metrics.BusinessEventLogger
}

// NewChatService creates a new ChatService. A nil completer means no model
// is configured; a nil limiter applies no budget.
func NewChatService(
	completer ai.Completer,
	limiter *ratelimit.CostLimiter,
	c clock.Clock,
	logger *zap.Logger,
	m *metrics.Metrics,
	events *metrics.BusinessEventLogger,
) *ChatService {
	if c == nil {
		c = clock.New()
	}
	if events == nil {
		events = metrics.NewBusinessEventLogger(logger, c)
	}
	return &ChatService{
		completer: completer,
		limiter:   limiter,
		clock:     c,
		logger:    logger,
		metrics:   m,
		events:    events,
	}
}

// Reply produces the next agent message for req.
func (s *ChatService) Reply(ctx context.Context, req ai.ChatRequest) ChatReply {
	if s.completer == nil {
		return ChatReply{Content: ai.MockResponse(req), Mock: true}
	}

	if s.limiter != nil {
		if err := s.limiter.Acquire(); err != nil {
			s.fallback(ctx, "budget", err)
			if s.metrics != nil {
				s.metrics.RecordRateLimitHit("openai")
			}
			return ChatReply{Content: ai.MockResponse(req), Mock: true}
		}
		defer s.limiter.Release()
	}

	start := s.clock.Now()
	content, err := s.complete(ctx, req)
	if err == nil && strings.TrimSpace(content) == "" {
		err = fmt.Errorf("empty completion")
	}
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFallback
	}
	if s.metrics != nil {
		s.metrics.RecordUpstreamCall("openai", outcome, s.clock.Since(start))
	}
	if err != nil {
		s.fallback(ctx, "complete", err)
		return ChatReply{Content: ai.MockResponse(req), Mock: true}
	}
	return ChatReply{Content: content}
}

// complete calls the model, turning a panic into an error.
func (s *ChatService) complete(ctx context.Context, req ai.ChatRequest) (content string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("completion panicked: %v", r)
		}
	}()
	return s.completer.Complete(ctx, req)
}

func (s *ChatService) fallback(ctx context.Context, operation string, err error) {
	s.events.FallbackUsed(ctx, "openai", operation, err)
}
