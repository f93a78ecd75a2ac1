package crm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/clock"
	"github.com/posentia/posentia/internal/domain"
	apperrors "github.com/posentia/posentia/internal/errors"
)

// WebhookTimeout bounds how long a user webhook may take to answer.
const WebhookTimeout = 10 * time.Second

// WebhookLead is the lead a visitor sends to their own CRM webhook.
type WebhookLead struct {
	Name          string                `json:"name"`
	Phone         string                `json:"phone"`
	Source        string                `json:"source"`
	Qualification *domain.Qualification `json:"qualification,omitempty"`
}

// WebhookContact is the contact block of the payload.
type WebhookContact struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Source string `json:"source"`
}

// WebhookTask is a follow-up task for the CRM.
type WebhookTask struct {
	Action   string `json:"action"`
	Priority string `json:"priority"`
}

// WebhookPayload is what a CRM webhook receives.
type WebhookPayload struct {
	Contact       WebhookContact       `json:"contact"`
	Qualification domain.Qualification `json:"qualification"`
	Tags          []string             `json:"tags"`
	Notes         string               `json:"notes"`
	Tasks         []WebhookTask        `json:"tasks"`
	Timestamp     string               `json:"timestamp"`
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// BuildWebhookPayload shapes a lead for a webhook. Missing contact details
// are replaced with placeholders so no real data is required to test.
func BuildWebhookPayload(lead WebhookLead, now time.Time) WebhookPayload {
	p := WebhookPayload{
		Contact: WebhookContact{
			Name:   orDefault(lead.Name, "Lead"),
			Phone:  orDefault(lead.Phone, "***-***-****"),
			Source: orDefault(lead.Source, "Unknown"),
		},
		Tags:      []string{},
		Notes:     "Lead received and qualified by POSENTIA AI.",
		Tasks:     []WebhookTask{},
		Timestamp: now.UTC().Format("2006-01-02T15:04:05.000Z"),
	}

	if q := lead.Qualification; q != nil {
		p.Qualification = *q
		if q.Intent != "" {
			p.Tags = append(p.Tags, string(q.Intent))
		}
		if q.LeadScore != "" {
			p.Tags = append(p.Tags, string(q.LeadScore))
		}
		p.Notes = fmt.Sprintf("AI-qualified lead. Intent: %s. Timeline: %s. Budget: %s. Score: %s.",
			orDefault(string(q.Intent), "Unknown"),
			orDefault(q.Timeline, "Unknown"),
			orDefault(q.Budget, "Unknown"),
			orDefault(string(q.LeadScore), "Unknown"),
		)
		if q.NextAction != "" {
			priority := "Normal"
			if q.LeadScore == domain.LeadScoreHot {
				priority = "High"
			}
			p.Tasks = append(p.Tasks, WebhookTask{Action: q.NextAction, Priority: priority})
		}
	}
	p.Tags = append(p.Tags, "Source: "+lead.Source)
	return p
}

// WebhookSender posts lead payloads to user-supplied URLs.
type WebhookSender struct {
	httpClient *http.Client
	timeout    time.Duration
	clock      clock.Clock
	logger     *zap.Logger
}

// NewWebhookSender creates a sender.
func NewWebhookSender(c clock.Clock, logger *zap.Logger) *WebhookSender {
	if c == nil {
		c = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookSender{httpClient: &http.Client{}, timeout: WebhookTimeout, clock: c, logger: logger}
}

// ValidateWebhookURL checks that raw is an absolute http or https URL.
func ValidateWebhookURL(raw string) error {
	if raw == "" {
		return apperrors.ValidationFailed("Webhook URL is required",
			apperrors.FieldError{Field: "webhookUrl", Message: "is required"})
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperrors.ValidationFailed("Invalid webhook URL format",
			apperrors.FieldError{Field: "webhookUrl", Message: "must be an absolute http or https URL"})
	}
	return nil
}

// Send delivers lead to webhookURL. A webhook that does not answer within
// WebhookTimeout yields a TIMEOUT error; a non-2xx answer a *StatusError.
func (s *WebhookSender) Send(ctx context.Context, webhookURL string, lead WebhookLead) error {
	if err := ValidateWebhookURL(webhookURL); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload := BuildWebhookPayload(lead, s.clock.Now())
	err := doJSON(ctx, s.httpClient, s.logger, http.MethodPost, webhookURL, nil, payload, nil)
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, "crm.WebhookSender.Send", apperrors.CodeTimeout,
			"Request timeout - webhook did not respond in time")
	}
	return err
}
