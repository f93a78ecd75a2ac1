package clock

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	c := New()

	before := time.Now()
	got := c.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, want between %v and %v", got, before, after)
	}
	if c.NowUTC().Location() != time.UTC {
		t.Error("NowUTC() should be in UTC")
	}
}

func TestMock(t *testing.T) {
	start := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	m := NewMock(start)

	if !m.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", m.Now(), start)
	}

	m.Advance(90 * time.Second)
	if got := m.Since(start); got != 90*time.Second {
		t.Errorf("Since() = %v, want 90s", got)
	}

	later := start.Add(time.Hour)
	m.Set(later)
	if !m.Now().Equal(later) {
		t.Errorf("Now() after Set = %v, want %v", m.Now(), later)
	}
}

func TestSandboxID(t *testing.T) {
	m := NewMock(time.UnixMilli(1700000000123))
	if got := SandboxID(m, "sandbox"); got != "sandbox-1700000000123" {
		t.Errorf("SandboxID() = %q", got)
	}
	if got := SandboxID(NewMock(time.UnixMilli(0)), "demo-call"); got != "demo-call-0" {
		t.Errorf("SandboxID() at epoch = %q", got)
	}
}
