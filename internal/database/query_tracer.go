package database

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/clock"
)

// Default slow-query thresholds.
const (
	DefaultSlowQueryThreshold     = 100 * time.Millisecond
	DefaultVerySlowQueryThreshold = 500 * time.Millisecond
)

// QueryObserver receives the outcome of every traced statement. operation is
// the leading SQL verb in lower case ("insert", "select", ...).
type QueryObserver func(operation string, duration time.Duration, err error)

// QueryStats is a point-in-time copy of the tracer counters.
type QueryStats struct {
	Total    int64
	Slow     int64
	VerySlow int64
	Failed   int64
}

// QueryTracer implements pgx.QueryTracer. It logs failed and slow
// statements and forwards timings to an optional observer.
type QueryTracer struct {
	SlowThreshold     time.Duration
	VerySlowThreshold time.Duration

	logger  *zap.Logger
	clock   clock.Clock
	observe QueryObserver

	total    atomic.Int64
	slow     atomic.Int64
	verySlow atomic.Int64
	failed   atomic.Int64
}

// NewQueryTracer creates a tracer with the default thresholds. observe may be nil.
func NewQueryTracer(logger *zap.Logger, c clock.Clock, observe QueryObserver) *QueryTracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = clock.New()
	}
	return &QueryTracer{
		SlowThreshold:     DefaultSlowQueryThreshold,
		VerySlowThreshold: DefaultVerySlowQueryThreshold,
		logger:            logger.Named("query"),
		clock:             c,
		observe:           observe,
	}
}

type traceKey struct{}

type traceData struct {
	start time.Time
	sql   string
}

// TraceQueryStart implements pgx.QueryTracer.
func (qt *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceKey{}, traceData{start: qt.clock.Now(), sql: data.SQL})
}

// TraceQueryEnd implements pgx.QueryTracer.
func (qt *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	td, ok := ctx.Value(traceKey{}).(traceData)
	if !ok {
		return
	}
	qt.record(td.sql, qt.clock.Since(td.start), data.Err)
}

func (qt *QueryTracer) record(sql string, duration time.Duration, err error) {
	qt.total.Add(1)
	if qt.observe != nil {
		qt.observe(operationOf(sql), duration, err)
	}

	if err != nil {
		qt.failed.Add(1)
		qt.logger.Error("query failed",
			zap.String("sql", truncateSQL(sql, 500)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	switch {
	case duration >= qt.VerySlowThreshold:
		qt.verySlow.Add(1)
		qt.slow.Add(1)
		qt.logger.Error("very slow query detected",
			zap.String("sql", truncateSQL(sql, 500)),
			zap.Duration("duration", duration),
		)
	case duration >= qt.SlowThreshold:
		qt.slow.Add(1)
		qt.logger.Warn("slow query detected",
			zap.String("sql", truncateSQL(sql, 500)),
			zap.Duration("duration", duration),
		)
	}
}

// Stats returns the current counters.
func (qt *QueryTracer) Stats() QueryStats {
	return QueryStats{
		Total:    qt.total.Load(),
		Slow:     qt.slow.Load(),
		VerySlow: qt.verySlow.Load(),
		Failed:   qt.failed.Load(),
	}
}

func operationOf(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}

func truncateSQL(sql string, maxLen int) string {
	if len(sql) <= maxLen {
		return sql
	}
	return sql[:maxLen-3] + "..."
}
