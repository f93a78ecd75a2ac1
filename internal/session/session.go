// Package session stores concierge demo sessions and visitor flags.
//
// A session is the server-side home of one browser tab's conversation: the
// engine state, the interleaved message list and the CRM preview status.
// Visitor flags replace what the site used to keep in local storage.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/posentia/posentia/internal/concierge"
	"github.com/posentia/posentia/internal/domain"
)

// CRMStatus is the CRM preview indicator shown next to the chat.
type CRMStatus string

const (
	CRMPending CRMStatus = "pending"
	CRMSent    CRMStatus = "sent"
)

// Session is one concierge demo conversation.
type Session struct {
	ID       string                `json:"id"`
	State    concierge.EngineState `json:"state"`
	Messages []domain.Message      `json:"messages"`
	// CarouselIndex is the listing highlighted in the carousel. It only
	// matters until the first message is sent.
	CarouselIndex int       `json:"carouselIndex"`
	CRMStatus     CRMStatus `json:"crmStatus"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// New returns an empty session with a fresh ID.
func New(now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		State:     concierge.NewState(),
		Messages:  []domain.Message{},
		CRMStatus: CRMPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append records the messages of an engine result.
func (s *Session) Append(res concierge.Result) {
	if res.UserMessage != nil {
		s.Messages = append(s.Messages, *res.UserMessage)
	}
	if res.AgentMessage != nil {
		s.Messages = append(s.Messages, *res.AgentMessage)
	}
	s.State = res.NewState
	if res.SideEffects.CRMSynced {
		s.CRMStatus = CRMSent
	}
}

// Store persists sessions. Get returns a NOT_FOUND application error for an
// unknown or expired session.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// VisitorFlags are the per-visitor markers the site keeps between visits.
type VisitorFlags struct {
	DemoSubmitted bool   `json:"demoSubmitted"`
	DemoEmail     string `json:"demoEmail,omitempty"`
	DemoPhone     string `json:"demoPhone,omitempty"`
	TourCompleted bool   `json:"tourCompleted"`
	TourDismissed bool   `json:"tourDismissed"`
	TourChoice    string `json:"tourChoice,omitempty"`
}

// FlagStore persists visitor flags. Load returns zero flags for an unknown
// visitor; Reset forgets everything about one.
type FlagStore interface {
	Load(ctx context.Context, visitorID string) (VisitorFlags, error)
	Save(ctx context.Context, visitorID string, flags VisitorFlags) error
	Reset(ctx context.Context, visitorID string) error
}
