package crm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/circuitbreaker"
	"github.com/posentia/posentia/internal/clock"
	"github.com/posentia/posentia/internal/domain"
	apperrors "github.com/posentia/posentia/internal/errors"
)

const (
	// DefaultFUBBaseURL is the Follow Up Boss v1 API root.
	DefaultFUBBaseURL = "https://api.followupboss.com/v1/"

	defaultIntent = "inquiry"
	leadSource    = "SMS Lead"
)

// FUBConfig configures the Follow Up Boss client.
type FUBConfig struct {
	BaseURL string
	// APIKey is used when a request does not carry its own key.
	APIKey  string
	Timeout time.Duration
}

// FUBClient pushes leads to Follow Up Boss. Pushing never fails: without a
// key, or when the upstream refuses, the lead is logged and a sandbox ID is
// returned.
type FUBClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
	clock      clock.Clock
	logger     *zap.Logger
}

// NewFUBClient creates a client.
func NewFUBClient(cfg FUBConfig, breaker *circuitbreaker.Breaker, c clock.Clock, logger *zap.Logger) *FUBClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultFUBBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if c == nil {
		c = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if breaker == nil {
		breaker = circuitbreaker.New("fub", circuitbreaker.DefaultConfig(), logger)
	}
	return &FUBClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		clock:      c,
		logger:     logger,
	}
}

type fubPhone struct {
	Number string `json:"number"`
	Type   string `json:"type"`
}

type fubNote struct {
	Body string `json:"body"`
	Type string `json:"type"`
}

// fubPerson is the create-person payload.
type fubPerson struct {
	Name    string     `json:"name"`
	Phones  []fubPhone `json:"phones"`
	Tags    []string   `json:"tags"`
	Sources []string   `json:"sources"`
	Notes   []fubNote  `json:"notes"`
}

func newFUBPerson(lead domain.Lead) fubPerson {
	intent := lead.Intent
	if intent == "" {
		intent = defaultIntent
	}
	return fubPerson{
		Name:    lead.Name,
		Phones:  []fubPhone{{Number: lead.Phone, Type: "mobile"}},
		Tags:    []string{"AI-qualified", intent},
		Sources: []string{leadSource},
		Notes: []fubNote{{
			Body: fmt.Sprintf("Lead source: SMS/Email\nMessage: %s\nIntent: %s\nAI-qualified and logged automatically via POSENTIA LeadFlow", lead.Message, intent),
			Type: "note",
		}},
	}
}

// ValidateLead checks the fields a push needs.
func ValidateLead(lead domain.Lead) error {
	var fields []apperrors.FieldError
	if strings.TrimSpace(lead.Name) == "" {
		fields = append(fields, apperrors.FieldError{Field: "name", Message: "is required"})
	}
	if strings.TrimSpace(lead.Phone) == "" {
		fields = append(fields, apperrors.FieldError{Field: "phone", Message: "is required"})
	}
	if len(fields) > 0 {
		return apperrors.ValidationFailed("Lead data incomplete", fields...)
	}
	return nil
}

func (c *FUBClient) key(override string) string {
	if override != "" {
		return override
	}
	return c.apiKey
}

func (c *FUBClient) sandboxID() string {
	return clock.SandboxID(c.clock, "sandbox")
}

// PushLead creates the lead as a person in Follow Up Boss. apiKey overrides
// the configured key.
func (c *FUBClient) PushLead(ctx context.Context, apiKey string, lead domain.Lead) domain.PushResult {
	key := c.key(apiKey)
	if key == "" {
		return domain.PushResult{
			Success: true,
			LeadID:  c.sandboxID(),
			Sandbox: true,
			Message: "Lead logged in sandbox mode (no API key provided)",
		}
	}

	var created struct {
		ID     any `json:"id"`
		Person struct {
			ID any `json:"id"`
		} `json:"person"`
	}
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return doJSON(ctx, c.httpClient, c.logger, http.MethodPost, c.baseURL+"people", bearer(key), newFUBPerson(lead), &created)
	})
	if err != nil {
		message := "Error during push, logged in sandbox mode"
		var se *StatusError
		if errors.As(err, &se) {
			message = fmt.Sprintf("API push failed (status %d), logged in sandbox mode", se.StatusCode)
		}
		c.logger.Warn("follow up boss push failed, using sandbox id", zap.Error(err))
		return domain.PushResult{Success: true, LeadID: c.sandboxID(), Sandbox: true, Message: message}
	}

	return domain.PushResult{
		Success: true,
		LeadID:  leadID(created.ID, created.Person.ID),
		Message: "Lead successfully pushed to Follow Up Boss",
	}
}

func leadID(candidates ...any) string {
	for _, id := range candidates {
		switch v := id.(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return "unknown"
}

// TestConnection checks that apiKey can list people. A refusal comes back
// as a *StatusError carrying the upstream status.
func (c *FUBClient) TestConnection(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return apperrors.MissingField("apiKey")
	}
	return doJSON(ctx, c.httpClient, c.logger, http.MethodGet, c.baseURL+"people?limit=1", bearer(apiKey), nil, nil)
}

func bearer(key string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + key}}
}
