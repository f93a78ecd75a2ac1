package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/posentia/posentia/internal/audit"
	"github.com/posentia/posentia/internal/domain"
	apperrors "github.com/posentia/posentia/internal/errors"
)

// RedactPhone hides all but the last four characters of a phone number.
func RedactPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "***-***-" + phone[len(phone)-4:]
}

// ClassifyIntent guesses what an inbound SMS wants. The first keyword found
// in buy, sell, rent order wins.
func ClassifyIntent(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "buy"):
		return "buying"
	case strings.Contains(lower, "sell"):
		return "selling"
	case strings.Contains(lower, "rent"):
		return "renting"
	}
	return "inquiry"
}

// InstantReply is the first SMS sent back to a new lead.
func InstantReply(name string) string {
	return fmt.Sprintf("Hi %s! Thanks for reaching out. I'll connect you with an agent right away. Can you share your preferred timeframe?", name)
}

// MissedCallReply is the SMS sent after a missed call.
func MissedCallReply(name string) string {
	return fmt.Sprintf("Hi %s, we missed your call. How can we help? Reply to this message.", name)
}

// SimulateSMS runs an inbound SMS lead through the pipeline: classify,
// reply, schedule follow-ups and push to the CRM. Each step lands in the
// returned log.
func (s *LeadService) SimulateSMS(ctx context.Context, apiKey string, lead domain.Lead) (*LeadFlowRun, error) {
	if blank(lead.Name) || blank(lead.Phone) || blank(lead.Message) {
		return nil, apperrors.ValidationFailed("Please fill in name, phone, and message", missing(map[string]string{
			"name": lead.Name, "phone": lead.Phone, "message": lead.Message,
		}, "name", "phone", "message")...)
	}

	trail := audit.NewTrail(s.clock, s.logger)
	redacted := RedactPhone(lead.Phone)

	trail.Add(audit.EntryInbound, "SMS received from "+redacted, map[string]any{
		"from":      redacted,
		"body":      lead.Message,
		"timestamp": s.clock.NowUTC().Format(time.RFC3339Nano),
	})
	trail.Add(audit.EntryAI, "AI classifying intent and extracting fields...", nil)

	intent := ClassifyIntent(lead.Message)
	trail.Add(audit.EntryAI,
		fmt.Sprintf("Intent: %s. Extracted: name=%q, phone=%q", strings.ToUpper(intent), lead.Name, redacted),
		map[string]any{"intent": intent, "name": lead.Name, "phone": redacted},
	)

	reply := InstantReply(lead.Name)
	trail.Add(audit.EntryReply, "Reply generated and sent", map[string]any{"to": redacted, "body": reply})
	trail.Add(audit.EntryFollowUp, "Follow-up sequence scheduled: Day 0 (sent), Day 1, Day 3, Day 7",
		map[string]any{"sequence": FollowUpSequence})

	lead.Intent = intent
	run := &LeadFlowRun{Kind: LeadFlowSMS, Intent: intent, Reply: reply}

	result, err := s.PushLead(ctx, apiKey, lead)
	if err != nil {
		trail.Add(audit.EntryError, "CRM push failed: "+err.Error(), nil)
	} else {
		message := "✓ Lead pushed to Follow Up Boss"
		if result.Sandbox {
			message += " (sandbox mode)"
		}
		trail.Add(audit.EntryCRM, message, map[string]any{
			"fubId": result.LeadID,
			"tags":  []string{"AI-qualified", intent},
		})
		run.Push = &result
	}

	run.Log = trail.Entries()
	s.finishRun(ctx, run, lead.Phone)
	return run, nil
}

// SimulateMissedCall answers a missed call with an automatic SMS.
func (s *LeadService) SimulateMissedCall(ctx context.Context, name, phone string) (*LeadFlowRun, error) {
	if blank(name) || blank(phone) {
		return nil, apperrors.ValidationFailed("Please fill in name and phone", missing(map[string]string{
			"name": name, "phone": phone,
		}, "name", "phone")...)
	}

	trail := audit.NewTrail(s.clock, s.logger)
	redacted := RedactPhone(phone)

	trail.Add(audit.EntryInbound, "Missed call from "+redacted, map[string]any{
		"from": redacted,
		"type": "missed_call",
	})
	reply := MissedCallReply(name)
	trail.Add(audit.EntryReply, "Auto SMS follow-up triggered for missed call", map[string]any{
		"to":   redacted,
		"body": reply,
	})

	run := &LeadFlowRun{Kind: LeadFlowMissedCall, Reply: reply, Log: trail.Entries()}
	s.finishRun(ctx, run, phone)
	return run, nil
}

func (s *LeadService) finishRun(ctx context.Context, run *LeadFlowRun, phone string) {
	intent := run.Intent
	if intent == "" {
		intent = "none"
	}
	s.events.LeadFlowProcessed(ctx, run.Kind, phone, intent, len(run.Log))
	if s.metrics != nil {
		s.metrics.RecordLeadFlow(run.Kind, intent)
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// missing lists the blank fields among values, in order.
func missing(values map[string]string, order ...string) []apperrors.FieldError {
	var fields []apperrors.FieldError
	for _, name := range order {
		if blank(values[name]) {
			fields = append(fields, apperrors.FieldError{Field: name, Message: "is required"})
		}
	}
	return fields
}
