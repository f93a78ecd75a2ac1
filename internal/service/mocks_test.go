package service

import (
	"context"
	"net/http"
	"sync"

	"github.com/posentia/posentia/internal/ai"
	"github.com/posentia/posentia/internal/crm"
	"github.com/posentia/posentia/internal/domain"
	"github.com/posentia/posentia/internal/places"
	"github.com/posentia/posentia/internal/voiceprovider"
)

// MockContactRepository is a mock implementation of domain.ContactRepository for testing.
type MockContactRepository struct {
	mu          sync.Mutex
	Created     []*domain.ContactSubmission
	CreateError error
}

func (m *MockContactRepository) Create(_ context.Context, c *domain.ContactSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	m.Created = append(m.Created, c)
	return nil
}

// MockDemoLeadRepository is a mock implementation of domain.DemoLeadRepository for testing.
type MockDemoLeadRepository struct {
	mu          sync.Mutex
	Created     []*domain.DemoLead
	CreateError error
}

func (m *MockDemoLeadRepository) Create(_ context.Context, l *domain.DemoLead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	m.Created = append(m.Created, l)
	return nil
}

// MockContactLog records appended rows.
type MockContactLog struct {
	Rows        []*domain.ContactSubmission
	AppendError error
}

func (m *MockContactLog) Append(c *domain.ContactSubmission) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	m.Rows = append(m.Rows, c)
	return nil
}

// MockNotifier records notifications.
type MockNotifier struct {
	Notified    []*domain.ContactSubmission
	NotifyError error
}

func (m *MockNotifier) Notify(_ context.Context, c *domain.ContactSubmission) error {
	m.Notified = append(m.Notified, c)
	return m.NotifyError
}

// MockCompleter is a mock ai.Completer.
type MockCompleter struct {
	Response string
	Error    error
	Panic    bool
	Calls    int
}

func (m *MockCompleter) Complete(_ context.Context, _ ai.ChatRequest) (string, error) {
	m.Calls++
	if m.Panic {
		panic("completion exploded")
	}
	return m.Response, m.Error
}

// MockLeadPusher is a mock LeadPusher.
type MockLeadPusher struct {
	Result     domain.PushResult
	TestError  error
	Pushed     []domain.Lead
	PushedKeys []string
}

func (m *MockLeadPusher) PushLead(_ context.Context, apiKey string, lead domain.Lead) domain.PushResult {
	m.Pushed = append(m.Pushed, lead)
	m.PushedKeys = append(m.PushedKeys, apiKey)
	return m.Result
}

func (m *MockLeadPusher) TestConnection(_ context.Context, _ string) error {
	return m.TestError
}

// MockWebhookDeliverer is a mock WebhookDeliverer.
type MockWebhookDeliverer struct {
	URLs      []string
	Leads     []crm.WebhookLead
	SendError error
}

func (m *MockWebhookDeliverer) Send(_ context.Context, url string, lead crm.WebhookLead) error {
	m.URLs = append(m.URLs, url)
	m.Leads = append(m.Leads, lead)
	return m.SendError
}

// MockCallProvider is a mock voiceprovider.CallProvider.
type MockCallProvider struct {
	WebCall  voiceprovider.WebCall
	Profiles []domain.BusinessProfile
}

func (m *MockCallProvider) GetName() voiceprovider.ProviderType { return "mock" }

func (m *MockCallProvider) ParseWebhook(*http.Request) (*voiceprovider.CallEvent, error) {
	return nil, nil
}

func (m *MockCallProvider) ValidateWebhook(*http.Request) bool { return true }

func (m *MockCallProvider) GetWebhookPath() string { return "/webhook/mock" }

func (m *MockCallProvider) CreateWebCall(_ context.Context, profile domain.BusinessProfile) voiceprovider.WebCall {
	m.Profiles = append(m.Profiles, profile)
	return m.WebCall
}

func (m *MockCallProvider) CreateAgent(_ context.Context, profile domain.BusinessProfile, _ string) voiceprovider.Agent {
	m.Profiles = append(m.Profiles, profile)
	return voiceprovider.Agent{AgentID: "demo-agent-1", Mock: true}
}

func (m *MockCallProvider) StartDemo(_ context.Context, _, _ string) voiceprovider.DemoCall {
	return voiceprovider.DemoCall{CallID: "call-1"}
}

// MockLookup is a mock BusinessLookup.
type MockLookup struct {
	Result places.Result
	Names  []string
}

func (m *MockLookup) Find(_ context.Context, name string) places.Result {
	m.Names = append(m.Names, name)
	return m.Result
}
