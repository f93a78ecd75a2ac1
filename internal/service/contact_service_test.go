package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/clock"
	apperrors "github.com/posentia/posentia/internal/errors"
	"github.com/posentia/posentia/internal/metrics"
)

func validContact() ContactInput {
	return ContactInput{
		Name:     "  Jane Doe ",
		Email:    "jane@example.com",
		Company:  "Acme Realty",
		Industry: "Real Estate",
		Message:  "Tell me more",
	}
}

func TestContactInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ContactInput)
		message string
	}{
		{"valid", func(*ContactInput) {}, ""},
		{"missing name", func(c *ContactInput) { c.Name = " " }, "Name is required"},
		{"missing email", func(c *ContactInput) { c.Email = "" }, "Email is required"},
		{"missing company", func(c *ContactInput) { c.Company = "" }, "Company is required"},
		{"missing industry", func(c *ContactInput) { c.Industry = "" }, "Industry is required"},
		{"missing message", func(c *ContactInput) { c.Message = "\n" }, "Message is required"},
		{"first missing wins", func(c *ContactInput) { c.Company = ""; c.Message = "" }, "Company is required"},
		{"bad email", func(c *ContactInput) { c.Email = "jane@" }, "Invalid email format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validContact()
			tt.mutate(&in)

			err := in.Validate()
			if tt.message == "" {
				assert.NoError(t, err)
				return
			}
			var appErr *apperrors.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.message, appErr.Message)
			assert.Equal(t, 400, appErr.HTTPStatus())
		})
	}
}

func TestContactService_Submit(t *testing.T) {
	repo := &MockContactRepository{}
	log := &MockContactLog{}
	notifier := &MockNotifier{}
	m := metrics.NewMetricsWithRegistry(prometheus.NewRegistry())
	svc := NewContactService(repo, log, notifier, clock.NewMock(testNow), zap.NewNop(), m, nil)

	sub, err := svc.Submit(context.Background(), validContact())
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", sub.Name)
	assert.True(t, sub.CreatedAt.Equal(testNow))
	assert.Len(t, repo.Created, 1)
	assert.Len(t, log.Rows, 1)
	assert.Len(t, notifier.Notified, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FormSubmissions.WithLabelValues(FormContact)))
}

func TestContactService_SinksAreBestEffort(t *testing.T) {
	repo := &MockContactRepository{CreateError: apperrors.DatabaseError("insert", errors.New("connection refused"))}
	log := &MockContactLog{AppendError: errors.New("read-only file system")}
	notifier := &MockNotifier{NotifyError: errors.New("sendgrid down")}
	m := metrics.NewMetricsWithRegistry(prometheus.NewRegistry())
	svc := NewContactService(repo, log, notifier, clock.NewMock(testNow), zap.NewNop(), m, nil)

	sub, err := svc.Submit(context.Background(), validContact())

	require.NoError(t, err)
	assert.NotNil(t, sub)
	for _, sink := range []string{SinkDatabase, SinkCSV, SinkEmail} {
		assert.Equal(t, 1.0, testutil.ToFloat64(m.FormSinkFailures.WithLabelValues(FormContact, sink)), sink)
	}
}

func TestContactService_NoSinksConfigured(t *testing.T) {
	svc := NewContactService(nil, nil, nil, clock.NewMock(testNow), zap.NewNop(), nil, nil)

	_, err := svc.Submit(context.Background(), validContact())
	assert.NoError(t, err)
}

func TestContactService_InvalidIsNotStored(t *testing.T) {
	repo := &MockContactRepository{}
	svc := NewContactService(repo, nil, nil, clock.NewMock(testNow), zap.NewNop(), nil, nil)

	in := validContact()
	in.Industry = ""
	_, err := svc.Submit(context.Background(), in)

	assert.True(t, apperrors.IsUserError(err))
	assert.Empty(t, repo.Created)
}
