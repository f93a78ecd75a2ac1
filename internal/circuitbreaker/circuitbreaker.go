// Package circuitbreaker fails calls to an upstream fast once it has failed
// repeatedly. Nothing here retries: a rejected or failed call is handed
// straight back so the caller can substitute its local fallback.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/clock"
	apperrors "github.com/posentia/posentia/internal/errors"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls are rejected
	StateHalfOpen              // a few probe calls are let through
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned, wrapped in the application's CIRCUIT_OPEN error, when
// a call is rejected.
var ErrOpen = fmt.Errorf("circuit breaker rejected call: %w", apperrors.ErrCircuitOpen)

// Config holds circuit breaker configuration.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes that closes it again.
	SuccessThreshold int
	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration
	// HalfOpenMaxRequests caps concurrent probes.
	HalfOpenMaxRequests int
}

// DefaultConfig suits the demo's upstreams: a handful of failures opens the
// circuit for half a minute.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		OpenTimeout:         30 * time.Second,
		HalfOpenMaxRequests: 1,
	}
}

// Breaker guards one upstream.
type Breaker struct {
	mu     sync.Mutex
	name   string
	config Config
	clock  clock.Clock
	logger *zap.Logger

	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	probes               int
	openedAt             time.Time

	totalRequests int64
	totalFailures int64
	totalRejected int64
	lastError     string

	onStateChange func(name string, from, to State)
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(b *Breaker) { b.clock = c }
}

// OnStateChange registers a hook called, under the breaker's lock, on every
// transition. It must not call back into the breaker.
func OnStateChange(fn func(name string, from, to State)) Option {
	return func(b *Breaker) { b.onStateChange = fn }
}

// New creates a closed breaker.
func New(name string, cfg Config, logger *zap.Logger, opts ...Option) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Breaker{
		name:   name,
		config: cfg,
		clock:  clock.New(),
		logger: logger.With(zap.String("breaker", name)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the upstream name.
func (b *Breaker) Name() string { return b.name }

// Execute runs fn unless the circuit is open. Errors that say nothing about
// the upstream's health (see Counts) pass through without being recorded.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

// Call is Execute for functions that return a value.
func Call[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := b.Execute(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalRequests++
	switch b.state {
	case StateOpen:
		if b.clock.Since(b.openedAt) < b.config.OpenTimeout {
			b.totalRejected++
			return ErrOpen
		}
		b.transition(StateHalfOpen)
		b.probes = 1
		return nil
	case StateHalfOpen:
		if b.probes >= b.config.HalfOpenMaxRequests {
			b.totalRejected++
			return ErrOpen
		}
		b.probes++
		return nil
	default:
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen && b.probes > 0 {
		b.probes--
	}

	if err == nil || !Counts(err) {
		b.consecutiveFailures = 0
		b.consecutiveSuccesses++
		if b.state == StateHalfOpen && b.consecutiveSuccesses >= b.config.SuccessThreshold {
			b.transition(StateClosed)
		}
		return
	}

	b.totalFailures++
	b.consecutiveFailures++
	b.consecutiveSuccesses = 0
	b.lastError = err.Error()

	switch b.state {
	case StateClosed:
		if b.consecutiveFailures >= b.config.FailureThreshold {
			b.transition(StateOpen)
			b.logger.Warn("circuit breaker opened",
				zap.Int("consecutive_failures", b.config.FailureThreshold),
				zap.Error(err),
			)
		}
	case StateHalfOpen:
		b.transition(StateOpen)
		b.logger.Warn("circuit breaker reopened from half-open", zap.Error(err))
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	b.probes = 0
	if to == StateOpen {
		b.openedAt = b.clock.Now()
	}
	if to == StateClosed && from != StateClosed {
		b.logger.Info("circuit breaker closed")
	}
	if b.onStateChange != nil {
		b.onStateChange(b.name, from, to)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats is a snapshot for the readiness endpoint.
type Stats struct {
	Name          string `json:"name"`
	State         string `json:"state"`
	TotalRequests int64  `json:"total_requests"`
	TotalFailures int64  `json:"total_failures"`
	TotalRejected int64  `json:"total_rejected"`
	LastError     string `json:"last_error,omitempty"`
}

// Stats returns a snapshot of the breaker's counters.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Name:          b.name,
		State:         b.state.String(),
		TotalRequests: b.totalRequests,
		TotalFailures: b.totalFailures,
		TotalRejected: b.totalRejected,
		LastError:     b.lastError,
	}
}

// Reset closes the circuit.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
	b.lastError = ""
}

// Counts reports whether err says the upstream is unhealthy. Caller
// cancellation, the breaker's own rejection and errors caused by the
// caller's input do not count.
func Counts(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, apperrors.ErrCircuitOpen):
		return false
	case apperrors.IsUserError(err):
		return false
	default:
		return true
	}
}
