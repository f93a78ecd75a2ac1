// Package shutdown stops the server's components in ordered phases.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Phase orders shutdown work. Hooks in one phase run concurrently; a phase
// starts only after the previous one has finished.
type Phase int

const (
	// PhaseDrain stops accepting requests and waits for in-flight ones.
	PhaseDrain Phase = iota
	// PhaseWorkers stops background loops such as limiter sweepers.
	PhaseWorkers
	// PhaseClose releases connections: database pool, Redis, log sinks.
	PhaseClose
)

var phases = []Phase{PhaseDrain, PhaseWorkers, PhaseClose}

func (p Phase) String() string {
	switch p {
	case PhaseDrain:
		return "drain"
	case PhaseWorkers:
		return "workers"
	case PhaseClose:
		return "close"
	default:
		return "unknown"
	}
}

// Hook stops one component.
type Hook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

// DefaultTimeout bounds a whole shutdown when none is configured.
const DefaultTimeout = 30 * time.Second

// Coordinator runs registered hooks once, phase by phase, within a
// deadline. It also reports readiness: once shutdown begins the server is
// draining.
type Coordinator struct {
	mu       sync.Mutex
	hooks    map[Phase][]namedHook
	timeout  time.Duration
	logger   *zap.Logger
	draining atomic.Bool

	once sync.Once
	done chan struct{}
	err  error
}

// NewCoordinator creates a coordinator. A non-positive timeout uses
// DefaultTimeout.
func NewCoordinator(timeout time.Duration, logger *zap.Logger) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		hooks:   make(map[Phase][]namedHook),
		timeout: timeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Add registers fn to run in phase.
func (c *Coordinator) Add(phase Phase, name string, fn Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks[phase] = append(c.hooks[phase], namedHook{name: name, fn: fn})
}

// Draining reports whether shutdown has begun.
func (c *Coordinator) Draining() bool {
	return c.draining.Load()
}

// Done is closed when shutdown has finished.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Shutdown runs every hook and returns their combined errors. Later calls
// wait for the first one and return the same result. The deadline is the
// coordinator's timeout, independent of ctx cancellation.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.once.Do(func() {
		c.draining.Store(true)
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		c.err = c.run(ctx)
		close(c.done)
	})
	<-c.done
	return c.err
}

func (c *Coordinator) run(ctx context.Context) error {
	c.logger.Info("shutting down", zap.Duration("timeout", c.timeout))
	start := time.Now()

	var errs []error
	for _, phase := range phases {
		c.mu.Lock()
		hooks := append([]namedHook(nil), c.hooks[phase]...)
		c.mu.Unlock()
		if len(hooks) == 0 {
			continue
		}

		errs = append(errs, c.runPhase(ctx, phase, hooks)...)
		if ctx.Err() != nil {
			c.logger.Error("shutdown deadline exceeded", zap.Stringer("phase", phase))
			errs = append(errs, fmt.Errorf("phase %s: %w", phase, ctx.Err()))
			break
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		c.logger.Error("shutdown finished with errors",
			zap.Int("error_count", len(errs)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return err
	}
	c.logger.Info("shutdown complete", zap.Duration("duration", time.Since(start)))
	return nil
}

func (c *Coordinator) runPhase(ctx context.Context, phase Phase, hooks []namedHook) []error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, h := range hooks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			err := h.fn(ctx)
			fields := []zap.Field{
				zap.String("component", h.name),
				zap.Stringer("phase", phase),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				c.logger.Error("component stop failed", append(fields, zap.Error(err))...)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
				mu.Unlock()
				return
			}
			c.logger.Debug("component stopped", fields...)
		}()
	}
	wg.Wait()
	return errs
}
