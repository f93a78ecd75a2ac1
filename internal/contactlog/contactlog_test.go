package contactlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posentia/posentia/internal/domain"
)

func submission(name, message string) *domain.ContactSubmission {
	return &domain.ContactSubmission{
		Name:      name,
		Email:     "jane@example.com",
		Company:   "Acme",
		Industry:  "Real Estate",
		Message:   message,
		CreatedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestLog_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "QUESTIONS.CSV")
	log := New(path)

	require.NoError(t, log.Append(submission("Jane Doe", "Hello")))
	require.NoError(t, log.Append(submission("Doe, John", "Line one\nsaid \"hi\"")))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	expected := "Timestamp,Name,Email,Phone,Company,Industry,CallVolume,Message\n" +
		"2024-03-01T09:30:00.000Z,Jane Doe,jane@example.com,,Acme,Real Estate,,Hello\n" +
		"2024-03-01T09:30:00.000Z,\"Doe, John\",jane@example.com,,Acme,Real Estate,,\"Line one\nsaid \"\"hi\"\"\"\n"
	assert.Equal(t, expected, string(content))
}

func TestLog_HeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	require.NoError(t, os.WriteFile(path, []byte("Timestamp,Name,Email,Phone,Company,Industry,CallVolume,Message\n"), 0o644))

	require.NoError(t, New(path).Append(submission("Jane", "Hi")))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(content), "Timestamp,"))
}

func TestLog_UnwritablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := New(filepath.Join(blocker, "sub", "log.csv")).Append(submission("Jane", "Hi"))
	assert.Error(t, err)
}

func TestNew_DefaultPath(t *testing.T) {
	assert.Equal(t, DefaultPath, New("").Path())
}
