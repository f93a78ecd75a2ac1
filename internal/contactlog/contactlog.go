// Package contactlog appends contact submissions to a CSV file so that
// submissions survive even when the database is unavailable.
package contactlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/posentia/posentia/internal/domain"
)

// DefaultPath is used when no path is configured.
const DefaultPath = "data/QUESTIONS.CSV"

// Header is the first row of a new file.
var Header = []string{"Timestamp", "Name", "Email", "Phone", "Company", "Industry", "CallVolume", "Message"}

// Log appends rows to a CSV file, creating it with Header when missing.
type Log struct {
	path string
	mu   sync.Mutex
}

// New creates a log writing to path.
func New(path string) *Log {
	if path == "" {
		path = DefaultPath
	}
	return &Log{path: path}
}

// Path returns the file the log writes to.
func (l *Log) Path() string {
	return l.path
}

// Append writes one row for c.
func (l *Log) Append(c *domain.ContactSubmission) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create contact log directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open contact log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat contact log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("failed to write contact log header: %w", err)
		}
	}
	if err := w.Write(Row(c)); err != nil {
		return fmt.Errorf("failed to write contact log row: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Row converts a submission into CSV fields in Header order.
func Row(c *domain.ContactSubmission) []string {
	return []string{
		c.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		c.Name,
		c.Email,
		c.Phone,
		c.Company,
		c.Industry,
		c.CallVolume,
		c.Message,
	}
}
