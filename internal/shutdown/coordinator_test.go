package shutdown

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestCoordinator_RunsPhasesInOrder(t *testing.T) {
	coord := NewCoordinator(time.Second, zap.NewNop())

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) Hook {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	// Registered out of order on purpose.
	coord.Add(PhaseClose, "database", record("database"))
	coord.Add(PhaseDrain, "http", record("http"))
	coord.Add(PhaseWorkers, "ratelimiter", record("ratelimiter"))

	if err := coord.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	want := []string{"http", "ratelimiter", "database"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestCoordinator_RunsPhaseConcurrently(t *testing.T) {
	coord := NewCoordinator(time.Second, zap.NewNop())

	// Each hook waits for the other; sequential execution would deadlock
	// until the deadline.
	var wg sync.WaitGroup
	wg.Add(2)
	hook := func(ctx context.Context) error {
		wg.Done()
		waited := make(chan struct{})
		go func() { wg.Wait(); close(waited) }()
		select {
		case <-waited:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	coord.Add(PhaseWorkers, "a", hook)
	coord.Add(PhaseWorkers, "b", hook)

	if err := coord.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestCoordinator_CombinesErrors(t *testing.T) {
	coord := NewCoordinator(time.Second, zap.NewNop())
	errDB := errors.New("pool busy")
	errRedis := errors.New("connection reset")

	var closedAfterFailure atomic.Bool
	coord.Add(PhaseDrain, "http", func(context.Context) error { return errDB })
	coord.Add(PhaseClose, "database", func(context.Context) error {
		closedAfterFailure.Store(true)
		return errRedis
	})

	err := coord.Shutdown(context.Background())
	if !errors.Is(err, errDB) || !errors.Is(err, errRedis) {
		t.Fatalf("Shutdown() error = %v, want both hook errors", err)
	}
	if !closedAfterFailure.Load() {
		t.Error("a failing phase must not skip later phases")
	}
}

func TestCoordinator_Deadline(t *testing.T) {
	coord := NewCoordinator(50*time.Millisecond, zap.NewNop())

	var laterRan atomic.Bool
	coord.Add(PhaseDrain, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	coord.Add(PhaseClose, "later", func(context.Context) error {
		laterRan.Store(true)
		return nil
	})

	start := time.Now()
	err := coord.Shutdown(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Shutdown() error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Shutdown() took %v", elapsed)
	}
	if laterRan.Load() {
		t.Error("phases after the deadline must not run")
	}
}

func TestCoordinator_IgnoresCallerCancellation(t *testing.T) {
	coord := NewCoordinator(time.Second, zap.NewNop())

	var sawLiveContext atomic.Bool
	coord.Add(PhaseDrain, "http", func(ctx context.Context) error {
		sawLiveContext.Store(ctx.Err() == nil)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := coord.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !sawLiveContext.Load() {
		t.Error("hooks should get the coordinator's own deadline")
	}
}

func TestCoordinator_RunsOnce(t *testing.T) {
	coord := NewCoordinator(time.Second, zap.NewNop())

	var calls atomic.Int32
	coord.Add(PhaseClose, "database", func(context.Context) error {
		calls.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = coord.Shutdown(context.Background())
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("hook ran %d times, want 1", got)
	}
	select {
	case <-coord.Done():
	default:
		t.Error("Done() should be closed after shutdown")
	}
}

func TestCoordinator_Draining(t *testing.T) {
	coord := NewCoordinator(time.Second, nil)

	var drainingDuringHook atomic.Bool
	coord.Add(PhaseDrain, "http", func(context.Context) error {
		drainingDuringHook.Store(coord.Draining())
		return nil
	})

	if coord.Draining() {
		t.Fatal("Draining() = true before shutdown")
	}
	_ = coord.Shutdown(context.Background())
	if !drainingDuringHook.Load() || !coord.Draining() {
		t.Error("Draining() should be true once shutdown starts")
	}
}

func TestPhase_String(t *testing.T) {
	tests := map[Phase]string{
		PhaseDrain:   "drain",
		PhaseWorkers: "workers",
		PhaseClose:   "close",
		Phase(42):    "unknown",
	}
	for phase, want := range tests {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(phase), got, want)
		}
	}
}
