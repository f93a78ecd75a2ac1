package audit

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/clock"
)

// EntryType classifies a step of lead processing.
type EntryType string

const (
	EntryInbound  EntryType = "inbound"
	EntryAI       EntryType = "ai"
	EntryReply    EntryType = "reply"
	EntryFollowUp EntryType = "followup"
	EntryCRM      EntryType = "crm"
	EntryError    EntryType = "error"
)

// Entry is one line of a lead's processing log.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      EntryType      `json:"type"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}

// Trail is the append-only processing log of a single lead. Entries are
// mirrored to the logger as they are added.
type Trail struct {
	mu      sync.Mutex
	entries []Entry
	clock   clock.Clock
	logger  *zap.Logger
}

// NewTrail creates an empty trail.
func NewTrail(c clock.Clock, logger *zap.Logger) *Trail {
	if c == nil {
		c = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trail{clock: c, logger: logger}
}

// Add appends an entry stamped with the current time.
func (t *Trail) Add(typ EntryType, message string, data map[string]any) Entry {
	e := Entry{Timestamp: t.clock.NowUTC(), Type: typ, Message: message, Data: data}

	t.mu.Lock()
	t.entries = append(t.entries, e)
	t.mu.Unlock()

	level := zap.DebugLevel
	if typ == EntryError {
		level = zap.WarnLevel
	}
	if ce := t.logger.Check(level, "lead flow step"); ce != nil {
		ce.Write(zap.String("type", string(typ)), zap.String("message", message))
	}
	return e
}

// Entries returns a copy of the entries in insertion order.
func (t *Trail) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}
