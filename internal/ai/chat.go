// Package ai produces the agent replies of the SMS lead chat: an OpenAI
// completion when a key is configured, and a deterministic scripted
// responder otherwise.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/posentia/posentia/internal/domain"
)

// ChatMessage is one turn of the chat as the page sends it.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FromUser reports whether the visitor wrote the message.
func (m ChatMessage) FromUser() bool {
	return m.Role == "user"
}

// ChatRequest is a chat transcript plus the listing it is about.
type ChatRequest struct {
	Messages []ChatMessage   `json:"messages"`
	Property *domain.Property `json:"property,omitempty"`
	Channel  domain.Channel  `json:"type"`
}

// Completer produces the next agent reply for a transcript.
type Completer interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// MaxTokens caps the reply length per channel.
func MaxTokens(ch domain.Channel) int64 {
	if ch == domain.ChannelEmail {
		return 300
	}
	return 150
}

// SystemPrompt describes the persona, the catalog and the conversation
// rules to the model.
func SystemPrompt(req ChatRequest) string {
	var b strings.Builder

	medium, style := "text message", "brief and conversational (SMS style, 1-2 sentences max)"
	if req.Channel == domain.ChannelEmail {
		medium, style = "email", "professional but warm (email style, 2-3 sentences max)"
	}

	current := "Not specified"
	if p := req.Property; p != nil {
		current = fmt.Sprintf("Current property: %s", describe(*p))
	}

	fmt.Fprintf(&b, "You are POSENTIA, an AI assistant helping real estate agent Sarah Martinez.\n")
	fmt.Fprintf(&b, "You're responding to a %s from a potential lead who saw a property listing.\n\n", medium)
	fmt.Fprintf(&b, "Property details: %s\n\n", current)
	b.WriteString("Available properties the user can ask about:\n")
	for _, p := range domain.Catalog() {
		fmt.Fprintf(&b, "- %s\n", describe(p))
	}
	b.WriteString("\nIf user asks about properties (e.g., \"3 bedroom house\", \"$700k property\"), you can mention these available listings.\n\n")
	b.WriteString("Your role:\n")
	b.WriteString("- Be friendly, professional, and helpful\n")
	b.WriteString("- Ask maximum 2-3 simple questions: (1) buy/sell/rent intent, (2) budget range\n")
	b.WriteString("- After getting intent and budget, say \"Thank you! We'll reach out shortly with properties/more info. Have a great day!\"\n")
	fmt.Fprintf(&b, "- Keep responses %s\n", style)
	b.WriteString("- Ask ONE question at a time - never ask multiple questions\n")
	b.WriteString("- If you've already asked 2+ questions and have intent + budget, end with \"We'll reach out\"\n\n")
	b.WriteString("IMPORTANT: After 2-3 message exchanges, end the conversation with \"We'll reach out to you shortly...\"")
	if req.Channel == domain.ChannelEmail {
		b.WriteString("\n\nSign emails with \"Best regards,\nSarah Martinez\"")
	}
	return b.String()
}

func describe(p domain.Property) string {
	return fmt.Sprintf("%s: %d bed, %d bath, %s sqft, %s", p.Address, p.Beds, p.Baths, p.FormattedSqft(), p.FormattedPrice())
}
