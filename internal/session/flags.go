package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/posentia/posentia/internal/clock"
)

// visitorTTL keeps visitor flags about as long as a browser would.
const visitorTTL = 365 * 24 * time.Hour

// RedisFlagStore keeps visitor flags in Redis.
type RedisFlagStore struct {
	redis  *redis.Client
	tracer trace.Tracer
}

// NewRedisFlagStore creates a flag store. A nil tracer uses the global
// provider.
func NewRedisFlagStore(client *redis.Client, tracer trace.Tracer) *RedisFlagStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("posentia.internal.session.visitor")
	}
	return &RedisFlagStore{redis: client, tracer: tracer}
}

func visitorKey(id string) string {
	return fmt.Sprintf("visitor:%s", id)
}

// Load returns the flags of a visitor, or zero flags if none were saved.
func (s *RedisFlagStore) Load(ctx context.Context, visitorID string) (VisitorFlags, error) {
	ctx, span := s.tracer.Start(ctx, "session.load_visitor")
	defer span.End()

	data, err := s.redis.Get(ctx, visitorKey(visitorID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return VisitorFlags{}, nil
		}
		span.RecordError(err)
		return VisitorFlags{}, fmt.Errorf("session: failed to load visitor flags: %w", err)
	}

	var flags VisitorFlags
	if err := json.Unmarshal(data, &flags); err != nil {
		span.RecordError(err)
		return VisitorFlags{}, fmt.Errorf("session: failed to decode visitor flags: %w", err)
	}
	return flags, nil
}

// Save writes the flags of a visitor.
func (s *RedisFlagStore) Save(ctx context.Context, visitorID string, flags VisitorFlags) error {
	ctx, span := s.tracer.Start(ctx, "session.save_visitor")
	defer span.End()

	data, err := json.Marshal(flags)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to marshal visitor flags: %w", err)
	}
	if err := s.redis.Set(ctx, visitorKey(visitorID), data, visitorTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to persist visitor flags: %w", err)
	}
	return nil
}

// Reset forgets a visitor.
func (s *RedisFlagStore) Reset(ctx context.Context, visitorID string) error {
	ctx, span := s.tracer.Start(ctx, "session.reset_visitor")
	defer span.End()

	if err := s.redis.Del(ctx, visitorKey(visitorID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to reset visitor flags: %w", err)
	}
	return nil
}

type flagEntry struct {
	flags     VisitorFlags
	expiresAt time.Time
}

// MemoryFlagStore keeps visitor flags in process memory. Entries expire
// after the same TTL as in Redis; expired ones read as zero flags and are
// dropped by Sweep.
type MemoryFlagStore struct {
	mu    sync.Mutex
	flags map[string]flagEntry
	clock clock.Clock
}

// NewMemoryFlagStore creates an empty in-memory flag store.
func NewMemoryFlagStore(c clock.Clock) *MemoryFlagStore {
	if c == nil {
		c = clock.New()
	}
	return &MemoryFlagStore{flags: make(map[string]flagEntry), clock: c}
}

func (s *MemoryFlagStore) Load(_ context.Context, visitorID string) (VisitorFlags, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.flags[visitorID]
	if !ok {
		return VisitorFlags{}, nil
	}
	if s.expired(e) {
		delete(s.flags, visitorID)
		return VisitorFlags{}, nil
	}
	return e.flags, nil
}

func (s *MemoryFlagStore) Save(_ context.Context, visitorID string, flags VisitorFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[visitorID] = flagEntry{flags: flags, expiresAt: s.clock.Now().Add(visitorTTL)}
	return nil
}

func (s *MemoryFlagStore) Reset(_ context.Context, visitorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flags, visitorID)
	return nil
}

// Sweep drops expired visitors and returns how many were removed.
func (s *MemoryFlagStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.flags {
		if s.expired(e) {
			delete(s.flags, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored visitors, expired or not.
func (s *MemoryFlagStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flags)
}

func (s *MemoryFlagStore) expired(e flagEntry) bool {
	return !s.clock.Now().Before(e.expiresAt)
}
