package ai

import (
	"regexp"
	"strings"

	"github.com/posentia/posentia/internal/domain"
)

const (
	fullSignature  = "\n\nBest regards,\nSarah Martinez"
	shortSignature = "\n\nBest regards,\nSarah"
)

var mockBudgetRe = regexp.MustCompile(`\$?\d+[kK]|\d+\s*(thousand|k)`)

// reply is one scripted answer in both channel variants.
type reply struct {
	sms   string
	email string
}

func (r reply) render(ch domain.Channel) string {
	if ch == domain.ChannelEmail {
		return r.email
	}
	return r.sms
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// MockResponse answers a chat without a model: it asks for buy/sell/rent
// intent, then a budget, then promises a follow-up. The answer depends only
// on the transcript, so it is safe to use as the fallback for any failure.
func MockResponse(req ChatRequest) string {
	ch := req.Channel
	n := len(req.Messages)

	if n <= 1 {
		about := ""
		if req.Property != nil {
			about = " for " + req.Property.Address
		}
		return reply{
			sms:   "Hi! Thanks for reaching out" + about + ". I'd love to help you find your perfect home. Are you looking to buy, sell, or rent?",
			email: "Hi!\n\nThanks for your interest" + about + "! I'd love to help you find your perfect home.\n\nAre you looking to buy, sell, or rent?" + fullSignature,
		}.render(ch)
	}

	last := strings.ToLower(req.Messages[n-1].Content)
	earlier := make([]string, 0, n-1)
	for _, m := range req.Messages[:n-1] {
		earlier = append(earlier, strings.ToLower(m.Content))
	}
	mentionedEarlier := func(words ...string) bool {
		for _, e := range earlier {
			if containsAny(e, words...) {
				return true
			}
		}
		return false
	}

	if containsAny(last, "buy", "purchase", "sell", "rent") {
		return reply{
			sms:   "Great! What's your budget range? This helps me show you the best properties.",
			email: "Great! What's your budget range? This helps me show you the best properties that fit your needs." + shortSignature,
		}.render(ch)
	}

	if containsAny(last, "price", "cost", "how much") {
		listed := ""
		if req.Property != nil {
			listed = "The listing is priced at " + req.Property.FormattedPrice() + ". "
		}
		return reply{
			sms:   listed + "Does this fit your budget? What price range are you looking at?",
			email: listed + "Does this fit your budget? What price range are you looking at?" + shortSignature,
		}.render(ch)
	}

	if containsAny(last, "view", "schedule", "tour", "see") {
		text := "I'd be happy to schedule a viewing! What days work best for you? Are you available this week?"
		return reply{sms: text, email: text + shortSignature}.render(ch)
	}

	if mockBudgetRe.MatchString(last) {
		if n >= 3 && mentionedEarlier("buy", "sell", "rent", "purchase") {
			return reply{
				sms:   "Perfect! Thank you for the information. We'll reach out to you shortly with properties that match your criteria. Have a great day!",
				email: "Perfect! Thank you for the information.\n\nWe'll reach out to you shortly with properties that match your criteria.\n\nHave a great day!" + fullSignature,
			}.render(ch)
		}
		if n >= 4 {
			return reply{
				sms:   "Perfect! Thank you for the information. We'll reach out to you shortly. Have a great day!",
				email: "Perfect! Thank you for the information.\n\nWe'll reach out to you shortly.\n\nHave a great day!" + fullSignature,
			}.render(ch)
		}
	}

	if n >= 4 {
		return reply{
			sms:   "Thank you! We'll reach out to you shortly with more information. Have a great day!",
			email: "Thank you for the information!\n\nWe'll reach out to you shortly with more details.\n\nHave a great day!" + fullSignature,
		}.render(ch)
	}

	if containsAny(last, "30", "month", "timeline", "pre", "approve") {
		return reply{
			sms:   "Thank you! We'll reach out to you shortly with properties that match. Have a great day!",
			email: "Thank you for the information!\n\nWe'll reach out to you shortly with properties that match.\n\nHave a great day!" + fullSignature,
		}.render(ch)
	}

	if n <= 2 {
		return reply{
			sms:   "Hi! Thanks for reaching out. Are you looking to buy, sell, or rent?",
			email: "Hi!\n\nThanks for reaching out! Are you looking to buy, sell, or rent?" + fullSignature,
		}.render(ch)
	}

	if mentionedEarlier("buy", "sell", "rent") {
		return reply{
			sms:   "Great! What's your budget range?",
			email: "Great! What's your budget range?" + shortSignature,
		}.render(ch)
	}

	return reply{
		sms:   "I'd love to help! Are you buying, selling, or renting?",
		email: "I'd love to help! Are you buying, selling, or renting?" + shortSignature,
	}.render(ch)
}
