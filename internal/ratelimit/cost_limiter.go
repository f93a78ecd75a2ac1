// Package ratelimit caps how often the service spends money on upstream
// completions.
package ratelimit

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/clock"
)

// Errors returned by Acquire.
var (
	ErrMinuteLimitExceeded     = errors.New("minute rate limit exceeded")
	ErrHourLimitExceeded       = errors.New("hour rate limit exceeded")
	ErrDayLimitExceeded        = errors.New("day rate limit exceeded")
	ErrConcurrentLimitExceeded = errors.New("concurrent request limit exceeded")
)

// IsLimited reports whether err came from a CostLimiter.
func IsLimited(err error) bool {
	return errors.Is(err, ErrMinuteLimitExceeded) ||
		errors.Is(err, ErrHourLimitExceeded) ||
		errors.Is(err, ErrDayLimitExceeded) ||
		errors.Is(err, ErrConcurrentLimitExceeded)
}

// Config holds the budget. A zero limit disables that window.
type Config struct {
	MaxPerMinute  int
	MaxPerHour    int
	MaxPerDay     int
	MaxConcurrent int
}

// DefaultConfig returns the budget used when none is configured.
func DefaultConfig() Config {
	return Config{
		MaxPerMinute:  20,
		MaxPerHour:    300,
		MaxPerDay:     2000,
		MaxConcurrent: 5,
	}
}

// CostLimiter bounds LLM completions per minute, hour and day, and the
// number in flight. Every successful Acquire must be paired with Release.
type CostLimiter struct {
	mu sync.Mutex

	cfg     Config
	buckets []*window
	active  int

	totalRequests int64
	totalRejected int64
	lastReason    string

	clock  clock.Clock
	logger *zap.Logger
}

// NewCostLimiter creates a limiter. c and logger may be nil.
func NewCostLimiter(cfg Config, c clock.Clock, logger *zap.Logger) *CostLimiter {
	if c == nil {
		c = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	now := c.Now()
	return &CostLimiter{
		cfg: cfg,
		buckets: []*window{
			newWindow(cfg.MaxPerMinute, time.Minute, ErrMinuteLimitExceeded, now),
			newWindow(cfg.MaxPerHour, time.Hour, ErrHourLimitExceeded, now),
			newWindow(cfg.MaxPerDay, 24*time.Hour, ErrDayLimitExceeded, now),
		},
		clock:  c,
		logger: logger.Named("cost_limiter"),
	}
}

// Acquire takes a slot or returns the error naming the exhausted budget.
// Windows already charged are refunded when a later one rejects.
func (l *CostLimiter) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.totalRequests++
	now := l.clock.Now()

	if l.cfg.MaxConcurrent > 0 && l.active >= l.cfg.MaxConcurrent {
		return l.reject(ErrConcurrentLimitExceeded)
	}

	for i, b := range l.buckets {
		if !b.take(now) {
			for _, charged := range l.buckets[:i] {
				charged.refund()
			}
			return l.reject(b.err)
		}
	}

	l.active++
	return nil
}

// Release frees the concurrency slot taken by Acquire.
func (l *CostLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active > 0 {
		l.active--
	}
}

func (l *CostLimiter) reject(err error) error {
	l.totalRejected++
	l.lastReason = err.Error()
	l.logger.Warn("completion budget exhausted",
		zap.String("reason", l.lastReason),
		zap.Int64("total_rejected", l.totalRejected),
	)
	return err
}

// Stats is a point-in-time view of the limiter.
type Stats struct {
	Active          int    `json:"active"`
	MinuteRemaining int    `json:"minute_remaining"`
	HourRemaining   int    `json:"hour_remaining"`
	DayRemaining    int    `json:"day_remaining"`
	TotalRequests   int64  `json:"total_requests"`
	TotalRejected   int64  `json:"total_rejected"`
	LastReason      string `json:"last_reason,omitempty"`
}

// Stats returns current counters.
func (l *CostLimiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	for _, b := range l.buckets {
		b.refill(now)
	}
	return Stats{
		Active:          l.active,
		MinuteRemaining: l.buckets[0].tokens,
		HourRemaining:   l.buckets[1].tokens,
		DayRemaining:    l.buckets[2].tokens,
		TotalRequests:   l.totalRequests,
		TotalRejected:   l.totalRejected,
		LastReason:      l.lastReason,
	}
}

// window is a fixed-period token bucket.
type window struct {
	max       int
	period    time.Duration
	tokens    int
	lastReset time.Time
	err       error
}

func newWindow(limit int, period time.Duration, err error, now time.Time) *window {
	return &window{max: limit, period: period, tokens: limit, lastReset: now, err: err}
}

func (w *window) take(now time.Time) bool {
	if w.max <= 0 {
		return true
	}
	w.refill(now)
	if w.tokens <= 0 {
		return false
	}
	w.tokens--
	return true
}

func (w *window) refund() {
	if w.max > 0 && w.tokens < w.max {
		w.tokens++
	}
}

func (w *window) refill(now time.Time) {
	if now.Sub(w.lastReset) >= w.period {
		w.tokens = w.max
		w.lastReset = now
	}
}
