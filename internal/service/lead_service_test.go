package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/posentia/posentia/internal/audit"
	"github.com/posentia/posentia/internal/clock"
	"github.com/posentia/posentia/internal/crm"
	"github.com/posentia/posentia/internal/domain"
	apperrors "github.com/posentia/posentia/internal/errors"
	"github.com/posentia/posentia/internal/metrics"
)

type leadFixture struct {
	svc     *LeadService
	pusher  *MockLeadPusher
	webhook *MockWebhookDeliverer
	metrics *metrics.Metrics
	audit   *observer.ObservedLogs
}

func newLeadFixture(result domain.PushResult) *leadFixture {
	mock := clock.NewMock(testNow)
	core, logs := observer.New(zap.InfoLevel)
	f := &leadFixture{
		pusher:  &MockLeadPusher{Result: result},
		webhook: &MockWebhookDeliverer{},
		metrics: metrics.NewMetricsWithRegistry(prometheus.NewRegistry()),
		audit:   logs,
	}
	f.svc = NewLeadService(f.pusher, f.webhook, audit.NewLogger(zap.New(core), mock), mock, zap.NewNop(), f.metrics, nil)
	return f
}

var sandboxPush = domain.PushResult{Success: true, LeadID: "sandbox-1705327500000", Sandbox: true}

func TestRedactPhone(t *testing.T) {
	tests := map[string]string{
		"(555) 123-4567": "***-***-4567",
		"5551234567":     "***-***-4567",
		"1234":           "****",
		"":               "****",
	}
	for in, want := range tests {
		assert.Equal(t, want, RedactPhone(in), in)
	}
}

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"I want to BUY a condo", "buying"},
		{"Thinking of selling my house", "selling"},
		{"Any rentals downtown?", "renting"},
		{"Looking to buy or sell", "buying"},
		{"What are your hours?", "inquiry"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyIntent(tt.message), tt.message)
	}
}

func TestLeadService_PushLead(t *testing.T) {
	f := newLeadFixture(sandboxPush)

	result, err := f.svc.PushLead(context.Background(), "", domain.Lead{Name: "Jane", Phone: "5551234567"})

	require.NoError(t, err)
	assert.True(t, result.Sandbox)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LeadPushesTotal.WithLabelValues(metrics.OutcomeSandbox)))
	assert.Equal(t, 1, f.audit.FilterField(zap.String("event_type", string(audit.EventLeadPushed))).Len())
}

func TestLeadService_PushLeadIncomplete(t *testing.T) {
	f := newLeadFixture(sandboxPush)

	_, err := f.svc.PushLead(context.Background(), "", domain.Lead{Name: "Jane"})

	assert.True(t, apperrors.IsUserError(err))
	assert.Empty(t, f.pusher.Pushed)
}

func TestLeadService_TestConnection(t *testing.T) {
	f := newLeadFixture(sandboxPush)
	ctx := context.Background()

	err := f.svc.TestConnection(ctx, " ")
	assert.Equal(t, apperrors.CodeValidation, apperrors.GetCode(err))

	f.pusher.TestError = &crm.StatusError{StatusCode: 401, Body: "unauthorized"}
	err = f.svc.TestConnection(ctx, "bad-key")
	var se *crm.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 401, se.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.UpstreamCallsTotal.WithLabelValues("fub", metrics.OutcomeFailure)))

	failed := f.audit.FilterField(zap.String("event_type", string(audit.EventAPICallFailed)))
	require.Equal(t, 1, failed.Len())
	assert.Equal(t, "API returned status 401: unauthorized", failed.All()[0].ContextMap()["reason"])
}

func TestLeadService_SendWebhook(t *testing.T) {
	f := newLeadFixture(sandboxPush)
	ctx := context.Background()

	err := f.svc.SendWebhook(ctx, "", crm.WebhookLead{})
	assert.Equal(t, apperrors.CodeValidation, apperrors.GetCode(err))

	err = f.svc.SendWebhook(ctx, "not a url", crm.WebhookLead{})
	assert.True(t, apperrors.IsUserError(err))
	assert.Empty(t, f.webhook.URLs)

	lead := crm.WebhookLead{Name: "Jane", Phone: "5551234567"}
	require.NoError(t, f.svc.SendWebhook(ctx, "https://hooks.example.com/crm", lead))
	assert.Equal(t, []string{"https://hooks.example.com/crm"}, f.webhook.URLs)
}

func TestLeadService_SimulateSMS(t *testing.T) {
	f := newLeadFixture(sandboxPush)

	run, err := f.svc.SimulateSMS(context.Background(), "", domain.Lead{
		Name:    "John Smith",
		Phone:   "(555) 123-4567",
		Message: "Hi, I'm looking to buy a home downtown",
	})
	require.NoError(t, err)

	assert.Equal(t, "buying", run.Intent)
	assert.Equal(t, InstantReply("John Smith"), run.Reply)
	require.NotNil(t, run.Push)
	require.Len(t, f.pusher.Pushed, 1)
	assert.Equal(t, "buying", f.pusher.Pushed[0].Intent)

	wantTypes := []audit.EntryType{
		audit.EntryInbound, audit.EntryAI, audit.EntryAI, audit.EntryReply, audit.EntryFollowUp, audit.EntryCRM,
	}
	require.Len(t, run.Log, len(wantTypes))
	for i, typ := range wantTypes {
		assert.Equal(t, typ, run.Log[i].Type, "entry %d", i)
	}
	assert.Equal(t, "SMS received from ***-***-4567", run.Log[0].Message)
	assert.Equal(t, `Intent: BUYING. Extracted: name="John Smith", phone="***-***-4567"`, run.Log[2].Message)
	assert.Equal(t, "✓ Lead pushed to Follow Up Boss (sandbox mode)", run.Log[5].Message)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LeadFlowRunsTotal.WithLabelValues(LeadFlowSMS, "buying")))
}

func TestLeadService_SimulateSMSLivePush(t *testing.T) {
	f := newLeadFixture(domain.PushResult{Success: true, LeadID: "42"})

	run, err := f.svc.SimulateSMS(context.Background(), "key", domain.Lead{Name: "A", Phone: "5551234567", Message: "rent?"})
	require.NoError(t, err)

	last := run.Log[len(run.Log)-1]
	assert.Equal(t, "✓ Lead pushed to Follow Up Boss", last.Message)
	assert.Equal(t, "42", last.Data["fubId"])
	assert.Equal(t, []string{"key"}, f.pusher.PushedKeys)
}

func TestLeadService_SimulateSMSMissingFields(t *testing.T) {
	f := newLeadFixture(sandboxPush)

	_, err := f.svc.SimulateSMS(context.Background(), "", domain.Lead{Name: "A"})

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "Please fill in name, phone, and message", appErr.Message)
	require.Len(t, appErr.Fields, 2)
	assert.Equal(t, "phone", appErr.Fields[0].Field)
	assert.Equal(t, "message", appErr.Fields[1].Field)
}

func TestLeadService_SimulateMissedCall(t *testing.T) {
	f := newLeadFixture(sandboxPush)

	run, err := f.svc.SimulateMissedCall(context.Background(), "Ana", "5551234567")
	require.NoError(t, err)

	require.Len(t, run.Log, 2)
	assert.Equal(t, "Missed call from ***-***-4567", run.Log[0].Message)
	assert.Equal(t, "missed_call", run.Log[0].Data["type"])
	assert.Equal(t, "Hi Ana, we missed your call. How can we help? Reply to this message.", run.Log[1].Data["body"])
	assert.True(t, run.Log[0].Timestamp.Equal(testNow))
	assert.Empty(t, f.pusher.Pushed)

	_, err = f.svc.SimulateMissedCall(context.Background(), "Ana", "")
	assert.True(t, apperrors.IsUserError(err))
}

func TestLeadService_SimulateSMSUsesClock(t *testing.T) {
	f := newLeadFixture(sandboxPush)

	run, err := f.svc.SimulateSMS(context.Background(), "", domain.Lead{Name: "A", Phone: "5551234567", Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, testNow.Format(time.RFC3339Nano), run.Log[0].Data["timestamp"])
}
