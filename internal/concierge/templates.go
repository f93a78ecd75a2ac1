package concierge

import (
	"fmt"
	"strings"

	"github.com/posentia/posentia/internal/domain"
)

// AgentName signs every email reply.
const AgentName = "Sarah Martinez"

const signature = "\n\nBest regards,\n" + AgentName

// prompt is one agent line in its two channel variants. Email falls back
// to the SMS wording when it has no layout of its own; either way email is
// signed.
type prompt struct {
	sms   string
	email string
}

func (p prompt) render(ch domain.Channel) string {
	if ch != domain.ChannelEmail {
		return p.sms
	}
	body := p.email
	if body == "" {
		body = p.sms
	}
	return body + signature
}

func propertyOptions() string {
	lines := make([]string, 0, domain.CatalogSize)
	for i, p := range domain.Catalog() {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, p.Address))
	}
	return strings.Join(lines, "\n")
}

const otherHint = "Or type \"other property\" if you're looking for something else."

func greetingPrompt() prompt {
	opts := propertyOptions()
	return prompt{
		sms:   "Hi! Thanks for reaching out. Which property are you interested in?\n\n" + opts + "\n\n" + otherHint,
		email: "Hi!\n\nThanks for reaching out! Which property are you interested in?\n\n" + opts + "\n\n" + otherHint,
	}
}

func reaskSelectionPrompt() prompt {
	return prompt{sms: "Which property are you interested in?\n\n" + propertyOptions() + "\n\n" + otherHint}
}

func propertyDetailsPrompt(p domain.Property) prompt {
	return prompt{sms: fmt.Sprintf(
		"Great choice! %s:\n\n• %d bed, %d bath\n• %s sqft\n• %s\n\nAre you pre-approved for financing, or do you need help with that?",
		p.Address, p.Beds, p.Baths, p.FormattedSqft(), p.FormattedPrice(),
	)}
}

func leadOpenerPrompt(p domain.Property) prompt {
	return prompt{
		sms:   fmt.Sprintf("Hi, I saw your listing for %s and I'm interested...", p.Address),
		email: fmt.Sprintf("Hi,\n\nI saw your listing for %s and I'm very interested. Could you tell me more about the property?\n\nThanks!", p.Address),
	}
}

var (
	propertyTypePrompt = prompt{sms: "No problem! What type of property are you looking for: apartment or house?"}
	viewingDayPrompt   = prompt{sms: "Perfect! When would you like to schedule a viewing? (e.g., Monday, Tuesday)"}
	budgetPrompt       = prompt{sms: "What's your budget range?"}
	timelinePrompt     = prompt{sms: "Great! What's your timeline? When are you looking to move?"}
	bedroomsPrompt     = prompt{sms: "Great! How many bedrooms are you looking for?"}
	priceRangePrompt   = prompt{sms: "Perfect! What's your price range?"}

	financingHelpPrompt = prompt{
		sms:   "No problem! Our team can help you with financing options. What's your budget range? This helps us find the best options for you.",
		email: "No problem! Our team can help you with financing options.\n\nWhat's your budget range? This helps us find the best options for you.",
	}

	specialistCallPrompt = prompt{
		sms:   "Perfect! Our financing specialist would love to help you. Can I schedule a quick call? What day and time works best for you?",
		email: "Perfect! Our financing specialist would love to help you.\n\nCan I schedule a quick call? What day and time works best for you?",
	}

	preferenceCallPrompt = prompt{
		sms:   "Perfect! I have all the details I need. Let me find you the perfect property! Can I schedule a quick call with you to discuss your preferences and show you some personalized options? What day works best for you?",
		email: "Perfect! I have all the details I need.\n\nLet me find you the perfect property! Can I schedule a quick call with you to discuss your preferences and show you some personalized options? What day works best for you?",
	}
)

func callBookedPrompt(when string) prompt {
	return prompt{
		sms:   fmt.Sprintf("Excellent! I've scheduled a call with our financing specialist for %s. You'll receive confirmation details via email. Our team will help you explore all financing options. Thank you!", when),
		email: fmt.Sprintf("Excellent! I've scheduled a call with our financing specialist for %s.\n\nYou'll receive confirmation details via email. Our team will help you explore all financing options.\n\nThank you!", when),
	}
}

func viewingBookedPrompt(when string) prompt {
	return prompt{
		sms:   fmt.Sprintf("Perfect! I've scheduled a viewing for %s. We'll send you confirmation details. Thank you!", when),
		email: fmt.Sprintf("Perfect! I've scheduled a viewing for %s.\n\nWe'll send you confirmation details.\n\nThank you!", when),
	}
}
