package concierge

import (
	"slices"
	"strconv"
	"strings"

	"github.com/posentia/posentia/internal/domain"
)

var (
	financingReplies = []string{"Yes, pre-approved", "Need help with financing", "Paying upfront"}
	timelineReplies  = []string{"Within 30 days", "1-3 months", "3-6 months", "6+ months"}
	budgetReplies    = []string{"$500k", "$700k", "$900k", "$1M+"}
	weekdayReplies   = []string{"Monday", "Tuesday", "Wednesday", "Thursday"}
	typeReplies      = []string{"Apartment", "House"}
	bedroomReplies   = []string{"1", "2", "3", "4+"}
)

// QuickReplies returns the suggested answers for the current step. While
// collecting info it reads the last agent prompt to tell a timeline question
// from a budget question.
func QuickReplies(s EngineState) []string {
	switch s.Step {
	case StepAwaitingSelection:
		out := make([]string, 0, domain.CatalogSize+1)
		for i := 1; i <= domain.CatalogSize; i++ {
			out = append(out, strconv.Itoa(i))
		}
		return append(out, "Other property")
	case StepOtherPropertyType:
		return slices.Clone(typeReplies)
	case StepOtherBedrooms:
		return slices.Clone(bedroomReplies)
	case StepAskingFinancing:
		return slices.Clone(financingReplies)
	case StepCollectingInfo:
		last := strings.ToLower(s.LastAgentText)
		if strings.Contains(last, "timeline") || strings.Contains(last, "looking to move") {
			return slices.Clone(timelineReplies)
		}
		return slices.Clone(budgetReplies)
	case StepBookingCall, StepScheduling:
		return slices.Clone(weekdayReplies)
	default:
		return []string{}
	}
}
