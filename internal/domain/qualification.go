package domain

import "strings"

// Intent is what the lead wants to do.
type Intent string

const (
	IntentNone   Intent = ""
	IntentBuyer  Intent = "Buyer"
	IntentSeller Intent = "Seller"
	IntentRenter Intent = "Renter"
	IntentOther  Intent = "Other"
)

// LeadScore is the categorical urgency of a lead.
type LeadScore string

const (
	LeadScoreNone LeadScore = ""
	LeadScoreHot  LeadScore = "Hot"
	LeadScoreWarm LeadScore = "Warm"
	LeadScoreCold LeadScore = "Cold"
	LeadScoreSpam LeadScore = "Spam"
)

// Qualification is the accumulated set of attributes extracted from a
// conversation. Fields are only ever filled in or replaced by a more
// specific value; nothing clears them mid-conversation.
type Qualification struct {
	Intent      Intent    `json:"intent"`
	Timeline    string    `json:"timeline"`
	Budget      string    `json:"budget"`
	Location    string    `json:"location"`
	PreApproval string    `json:"preApproval"`
	LeadScore   LeadScore `json:"leadScore"`
	NextAction  string    `json:"nextAction"`
}

// HasBudget reports whether a budget has been recorded.
func (q Qualification) HasBudget() bool {
	return strings.TrimSpace(q.Budget) != ""
}

// HasTimeline reports whether a timeline has been recorded.
func (q Qualification) HasTimeline() bool {
	return strings.TrimSpace(q.Timeline) != ""
}

// Tags returns the CRM tags derived from the qualification.
func (q Qualification) Tags() []string {
	tags := []string{"AI-qualified"}
	if q.LeadScore != LeadScoreNone {
		tags = append(tags, string(q.LeadScore)+" Lead")
	}
	if q.Intent != IntentNone {
		tags = append(tags, string(q.Intent))
	}
	return tags
}
