package concierge

import (
	"fmt"

	"github.com/posentia/posentia/internal/domain"
)

// Step is the engine's internal position in the script. It refines the
// public ConversationState: the "other property" branch is split into its
// sub-steps and the initial state distinguishes "nothing said yet" from
// "waiting for a property pick", so no flag combination can contradict the
// step.
type Step int

const (
	StepInitial Step = iota
	StepAwaitingSelection
	StepAskingFinancing
	StepCollectingInfo
	StepBookingCall
	StepScheduling
	StepOtherPropertyType
	StepOtherBedrooms
	StepOtherPrice
	StepCompleted
)

var stepNames = map[Step]string{
	StepInitial:           "initial",
	StepAwaitingSelection: "awaiting-selection",
	StepAskingFinancing:   "asking-financing",
	StepCollectingInfo:    "collecting-info",
	StepBookingCall:       "booking-call",
	StepScheduling:        "scheduling",
	StepOtherPropertyType: "other-property-type",
	StepOtherBedrooms:     "other-bedrooms",
	StepOtherPrice:        "other-price",
	StepCompleted:         "completed",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Step) MarshalText() ([]byte, error) {
	name, ok := stepNames[s]
	if !ok {
		return nil, fmt.Errorf("concierge: unknown step %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Step) UnmarshalText(b []byte) error {
	for step, name := range stepNames {
		if name == string(b) {
			*s = step
			return nil
		}
	}
	return fmt.Errorf("concierge: unknown step %q", string(b))
}

// ConversationState is the externally visible conversation state.
type ConversationState string

const (
	StateInitial          ConversationState = "initial"
	StatePropertySelected ConversationState = "property-selected"
	StateAskingFinancing  ConversationState = "asking-financing"
	StateCollectingInfo   ConversationState = "collecting-info"
	StateBookingCall      ConversationState = "booking-call"
	StateScheduling       ConversationState = "scheduling"
	StateOtherProperty    ConversationState = "other-property"
	StateOtherDetails     ConversationState = "other-details"
	StateCompleted        ConversationState = "completed"
)

// ConversationState projects the step onto the public state. The
// property-selected state is only ever passed through on the way to
// asking-financing and other-details is never entered.
func (s Step) ConversationState() ConversationState {
	switch s {
	case StepAskingFinancing:
		return StateAskingFinancing
	case StepCollectingInfo:
		return StateCollectingInfo
	case StepBookingCall:
		return StateBookingCall
	case StepScheduling:
		return StateScheduling
	case StepOtherPropertyType, StepOtherBedrooms, StepOtherPrice:
		return StateOtherProperty
	case StepCompleted:
		return StateCompleted
	default:
		return StateInitial
	}
}

// History holds the user's prior messages per channel. Extraction looks at
// the history of the channel being answered only.
type History struct {
	SMS   []string `json:"sms,omitempty"`
	Email []string `json:"email,omitempty"`
}

// For returns the prior user texts on ch.
func (h History) For(ch domain.Channel) []string {
	if ch == domain.ChannelEmail {
		return h.Email
	}
	return h.SMS
}

// with returns a copy of h with text appended to ch. The receiver's slices
// are never written to.
func (h History) with(ch domain.Channel, text string) History {
	out := History{
		SMS:   append([]string(nil), h.SMS...),
		Email: append([]string(nil), h.Email...),
	}
	if ch == domain.ChannelEmail {
		out.Email = append(out.Email, text)
	} else {
		out.SMS = append(out.SMS, text)
	}
	return out
}

// EngineState is everything the engine needs to compute the next turn.
type EngineState struct {
	Step                  Step                 `json:"step"`
	Qualification         domain.Qualification `json:"qualification"`
	SelectedPropertyIndex int                  `json:"selectedPropertyIndex"`
	// OtherBranch is set once the visitor asked for a property outside the
	// catalog.
	OtherBranch   bool    `json:"otherBranch,omitempty"`
	History       History `json:"history"`
	LastAgentText string  `json:"lastAgentText,omitempty"`
}

// NewState returns the state of a conversation where nothing has been said.
func NewState() EngineState {
	return EngineState{Step: StepInitial}
}

// ConversationState returns the public state.
func (s EngineState) ConversationState() ConversationState {
	return s.Step.ConversationState()
}

// AwaitingPropertySelection reports whether the engine is waiting for the
// visitor to pick a listing.
func (s EngineState) AwaitingPropertySelection() bool {
	return s.Step == StepAwaitingSelection
}

// CustomPropertyRequirements returns the sub-step of the other-property
// branch: property-type, bedrooms, price, or completed once the branch has
// handed over to booking. It is empty outside the branch.
func (s EngineState) CustomPropertyRequirements() string {
	switch s.Step {
	case StepOtherPropertyType:
		return "property-type"
	case StepOtherBedrooms:
		return "bedrooms"
	case StepOtherPrice:
		return "price"
	}
	if s.OtherBranch && (s.Step == StepBookingCall || s.Step == StepCompleted) {
		return "completed"
	}
	return ""
}

// SelectedProperty returns the listing the conversation is about.
func (s EngineState) SelectedProperty() (domain.Property, bool) {
	if s.OtherBranch {
		return domain.Property{}, false
	}
	return domain.PropertyAt(s.SelectedPropertyIndex)
}
