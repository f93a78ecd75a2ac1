package database

import (
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/posentia/posentia/internal/clock"
)

func TestQueryTracer_Record(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	type observed struct {
		op  string
		dur time.Duration
		err error
	}
	var seen []observed
	tracer := NewQueryTracer(zap.New(core), clock.NewMock(time.Now()), func(op string, d time.Duration, err error) {
		seen = append(seen, observed{op, d, err})
	})

	tracer.record("INSERT INTO contact_submissions (id) VALUES ($1)", 5*time.Millisecond, nil)
	tracer.record("  select 1", 150*time.Millisecond, nil)
	tracer.record("SELECT pg_sleep(1)", time.Second, nil)
	tracer.record("INSERT INTO demo_submissions", time.Millisecond, errors.New("connection reset"))

	stats := tracer.Stats()
	if stats.Total != 4 || stats.Slow != 2 || stats.VerySlow != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}

	if len(seen) != 4 {
		t.Fatalf("observer saw %d queries, expected 4", len(seen))
	}
	if seen[0].op != "insert" || seen[1].op != "select" {
		t.Errorf("operations = %q, %q", seen[0].op, seen[1].op)
	}
	if seen[3].err == nil {
		t.Error("observer should receive the query error")
	}

	if logs.FilterMessage("slow query detected").Len() != 1 {
		t.Error("expected one slow query warning")
	}
	if logs.FilterMessage("very slow query detected").Len() != 1 {
		t.Error("expected one very slow query error")
	}
	if logs.FilterMessage("query failed").Len() != 1 {
		t.Error("expected one failed query log")
	}
}

func TestQueryTracer_NilObserver(t *testing.T) {
	tracer := NewQueryTracer(nil, nil, nil)
	tracer.record("", 0, nil)
	if tracer.Stats().Total != 1 {
		t.Error("query should be counted without an observer")
	}
}

func TestTruncateSQL(t *testing.T) {
	long := strings.Repeat("x", 20)
	if got := truncateSQL(long, 10); got != "xxxxxxx..." {
		t.Errorf("truncateSQL = %q", got)
	}
	if got := truncateSQL("SELECT 1", 10); got != "SELECT 1" {
		t.Errorf("short SQL should be unchanged, got %q", got)
	}
}
