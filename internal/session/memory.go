package session

import (
	"context"
	"sync"
	"time"

	"github.com/posentia/posentia/internal/clock"
	apperrors "github.com/posentia/posentia/internal/errors"
)

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. It is used when no Redis
// address is configured. Expired sessions are dropped lazily on access and
// by Sweep.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	clock    clock.Clock
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(ttl time.Duration, c clock.Clock) *MemoryStore {
	if c == nil {
		c = clock.New()
	}
	return &MemoryStore{sessions: make(map[string]memoryEntry), ttl: ttl, clock: c}
}

// Get returns a copy of the stored session.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.NotFound("session")
	}
	if m.expired(e) {
		delete(m.sessions, id)
		return nil, apperrors.NotFound("session")
	}
	sess := e.session
	sess.Messages = append(e.session.Messages[:0:0], e.session.Messages...)
	return &sess, nil
}

func (m *MemoryStore) Save(_ context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *sess
	stored.Messages = append(stored.Messages[:0:0], sess.Messages...)
	m.sessions[sess.ID] = memoryEntry{session: stored, expiresAt: m.clock.Now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.sessions {
		if m.expired(e) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemoryStore) expired(e memoryEntry) bool {
	return m.ttl > 0 && !m.clock.Now().Before(e.expiresAt)
}
