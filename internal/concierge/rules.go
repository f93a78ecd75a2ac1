package concierge

import (
	"strings"

	"github.com/posentia/posentia/internal/domain"
)

// turn is one visitor message as seen by the rules.
type turn struct {
	text    string
	lower   string
	channel domain.Channel
}

// outcome is what a rule decides: the next state, the reply, and whether
// the CRM preview changed.
type outcome struct {
	state EngineState
	reply prompt
	// via lists public states passed through before landing on state.
	via []ConversationState
	crm bool
}

type rule struct {
	name  string
	match func(EngineState, turn) bool
	apply func(EngineState, turn) outcome
}

func always(EngineState, turn) bool { return true }

// dispatch is the whole script. Rules for a step are tried in order and
// the first match wins; every step ends with an unconditional rule, so an
// unexpected answer re-asks instead of dead-ending.
var dispatch = map[Step][]rule{
	StepInitial: {
		{name: "greet", match: always, apply: greet},
	},
	StepAwaitingSelection: {
		{name: "select-listing", match: picksListing, apply: selectListing},
		{name: "other-property", match: asksOther, apply: startOtherBranch},
		{name: "reask-selection", match: always, apply: reaskSelection},
	},
	StepAskingFinancing: {
		{name: "needs-financing", match: needsFinancingHelp, apply: offerFinancingHelp},
		{name: "pre-approved", match: always, apply: askViewingDay},
	},
	StepCollectingInfo: {
		{name: "qualified", match: hasBudgetAndTimeline, apply: askSpecialistCall},
		{name: "need-timeline", match: hasBudgetOnly, apply: askTimeline},
		{name: "need-budget", match: always, apply: askBudget},
	},
	StepBookingCall: {
		{name: "book-call", match: always, apply: bookCall},
	},
	StepScheduling: {
		{name: "book-viewing", match: always, apply: bookViewing},
	},
	StepOtherPropertyType: {
		{name: "apartment", match: mentions("apartment"), apply: recordPropertyType("Apartment")},
		{name: "house", match: mentions("house"), apply: recordPropertyType("House")},
		{name: "reask-type", match: always, apply: reaskPropertyType},
	},
	StepOtherBedrooms: {
		{name: "bedrooms", match: always, apply: askPriceRange},
	},
	StepOtherPrice: {
		{name: "price", match: always, apply: recordPrice},
	},
}

func mentions(word string) func(EngineState, turn) bool {
	return func(_ EngineState, t turn) bool { return strings.Contains(t.lower, word) }
}

func greet(s EngineState, _ turn) outcome {
	s.Step = StepAwaitingSelection
	return outcome{state: s, reply: greetingPrompt()}
}

func picksListing(_ EngineState, t turn) bool {
	_, ok := domain.MatchProperty(t.text)
	return ok
}

func selectListing(s EngineState, t turn) outcome {
	idx, _ := domain.MatchProperty(t.text)
	p, _ := domain.PropertyAt(idx)
	s.SelectedPropertyIndex = idx
	s.Step = StepAskingFinancing
	return outcome{state: s, reply: propertyDetailsPrompt(p), via: []ConversationState{StatePropertySelected}}
}

func asksOther(_ EngineState, t turn) bool {
	return strings.Contains(t.lower, "other")
}

func startOtherBranch(s EngineState, _ turn) outcome {
	s.Step = StepOtherPropertyType
	s.OtherBranch = true
	return outcome{state: s, reply: propertyTypePrompt}
}

func reaskSelection(s EngineState, _ turn) outcome {
	return outcome{state: s, reply: reaskSelectionPrompt()}
}

func needsFinancingHelp(_ EngineState, t turn) bool {
	l := t.lower
	return strings.Contains(l, "need help") ||
		strings.Contains(l, "need assistance") ||
		(strings.Contains(l, "help") && !strings.Contains(l, "no help")) ||
		strings.Contains(l, "not pre") ||
		strings.Contains(l, "don't have") ||
		strings.Contains(l, "don’t have") ||
		l == "no"
}

func offerFinancingHelp(s EngineState, _ turn) outcome {
	s.Step = StepCollectingInfo
	return outcome{state: s, reply: financingHelpPrompt}
}

func askViewingDay(s EngineState, _ turn) outcome {
	s.Step = StepScheduling
	return outcome{state: s, reply: viewingDayPrompt}
}

// collected is what the collecting-info step knows after reading a turn on
// top of the qualification and the channel's earlier messages.
type collected struct {
	qualification domain.Qualification
	hasBudget     bool
	hasTimeline   bool
}

// collect folds t into the qualification. A field that is already known,
// from the record or from any earlier message on the channel, is never
// re-derived from the new text. Earlier messages are read one at a time,
// newest first; a loose timing word in one of them marks the timeline as
// given without becoming its value.
func collect(s EngineState, t turn) collected {
	q := s.Qualification
	prior := s.History.For(t.channel)

	priorBudget, budgetBefore := latestBudget(prior)
	msgBudget, budgetNow := ParseBudget(t.text)
	switch {
	case q.HasBudget():
	case budgetBefore:
		q.Budget = priorBudget.String()
	case budgetNow:
		q.Budget = msgBudget.String()
	}

	timelineBefore := false
	for _, msg := range prior {
		if HasTimelineCue(msg) {
			timelineBefore = true
			break
		}
	}
	timelineNow := HasTimelineCue(t.text)
	if !q.HasTimeline() {
		if tl, ok := latestTimeline(prior); ok {
			q.Timeline = tl.String()
		} else if tl, ok := ParseTimeline(t.text); ok {
			q.Timeline = tl.String()
		}
	}

	return collected{
		qualification: q,
		hasBudget:     q.HasBudget() || budgetBefore || budgetNow,
		hasTimeline:   q.HasTimeline() || timelineBefore || timelineNow,
	}
}

// latestBudget returns the budget in the newest message that has one.
func latestBudget(msgs []string) (Money, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if m, ok := ParseBudget(msgs[i]); ok {
			return m, true
		}
	}
	return Money{}, false
}

// latestTimeline returns the newest structured timeline in msgs. Free
// phrases are skipped.
func latestTimeline(msgs []string) (Timeline, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if tl, ok := ParseTimeline(msgs[i]); ok && tl.Kind != TimelinePhrase {
			return tl, true
		}
	}
	return Timeline{}, false
}

func hasBudgetAndTimeline(s EngineState, t turn) bool {
	c := collect(s, t)
	return c.hasBudget && c.hasTimeline
}

func hasBudgetOnly(s EngineState, t turn) bool {
	c := collect(s, t)
	return c.hasBudget && !c.hasTimeline
}

func askSpecialistCall(s EngineState, t turn) outcome {
	s.Qualification = collect(s, t).qualification
	s.Qualification.LeadScore = domain.LeadScoreHot
	s.Step = StepBookingCall
	return outcome{state: s, reply: specialistCallPrompt, crm: true}
}

func askTimeline(s EngineState, t turn) outcome {
	s.Qualification = collect(s, t).qualification
	return outcome{state: s, reply: timelinePrompt}
}

func askBudget(s EngineState, t turn) outcome {
	s.Qualification = collect(s, t).qualification
	return outcome{state: s, reply: budgetPrompt}
}

func bookCall(s EngineState, t turn) outcome {
	s.Step = StepCompleted
	s.Qualification.LeadScore = domain.LeadScoreHot
	s.Qualification.NextAction = "Booked - Financing call scheduled"
	s.Qualification.PreApproval = "Needs financing help"
	return outcome{state: s, reply: callBookedPrompt(t.text), crm: true}
}

func bookViewing(s EngineState, t turn) outcome {
	s.Step = StepCompleted
	s.Qualification.LeadScore = domain.LeadScoreHot
	s.Qualification.NextAction = "Booked - Viewing scheduled"
	return outcome{state: s, reply: viewingBookedPrompt(t.text), crm: true}
}

func recordPropertyType(kind string) func(EngineState, turn) outcome {
	return func(s EngineState, _ turn) outcome {
		s.Step = StepOtherBedrooms
		s.Qualification.Location = kind
		return outcome{state: s, reply: bedroomsPrompt}
	}
}

func reaskPropertyType(s EngineState, _ turn) outcome {
	return outcome{state: s, reply: propertyTypePrompt}
}

func askPriceRange(s EngineState, _ turn) outcome {
	s.Step = StepOtherPrice
	return outcome{state: s, reply: priceRangePrompt}
}

func recordPrice(s EngineState, t turn) outcome {
	if !s.Qualification.HasBudget() {
		if m, ok := ParseBudget(t.text); ok {
			s.Qualification.Budget = m.String()
		} else {
			s.Qualification.Budget = t.text
		}
	}
	s.Qualification.LeadScore = domain.LeadScoreWarm
	s.Qualification.NextAction = "Booked - Call scheduled"
	s.Step = StepBookingCall
	return outcome{state: s, reply: preferenceCallPrompt, crm: true}
}
