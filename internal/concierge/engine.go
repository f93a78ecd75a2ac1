// Package concierge implements the lead concierge conversation script: a
// deterministic dialogue that walks a visitor from "which listing?" to a
// booked viewing or specialist call while filling in a lead qualification.
//
// The engine is a pure function of (input, channel, state). It never sleeps
// and never performs I/O; the typing delay it reports is for the caller to
// honour.
package concierge

import (
	"errors"
	"strings"
	"time"

	"github.com/posentia/posentia/internal/clock"
	"github.com/posentia/posentia/internal/domain"
)

// ErrUnknownProperty is returned by Start for an index outside the catalog.
var ErrUnknownProperty = errors.New("concierge: unknown property")

// SideEffects are the UI consequences of a turn.
type SideEffects struct {
	// CRMSynced is set when the turn changed the lead score or next action
	// shown in the CRM preview.
	CRMSynced    bool          `json:"crmSynced"`
	QuickReplies []string      `json:"quickReplies"`
	TypingDelay  time.Duration `json:"typingDelay"`
}

// Result is the outcome of one engine call.
type Result struct {
	NewState EngineState `json:"state"`
	// UserMessage echoes the visitor's message. For Start it is the
	// synthesized lead enquiry.
	UserMessage  *domain.Message `json:"userMessage,omitempty"`
	AgentMessage *domain.Message `json:"agentMessage,omitempty"`
	SideEffects  SideEffects     `json:"sideEffects"`
	// Path lists the public states the turn moved through, ending with the
	// new state. It is empty for a no-op.
	Path []ConversationState `json:"path,omitempty"`
	// Rule names the transition taken, for logs and metrics.
	Rule string `json:"-"`
}

// Changed reports whether the call produced a reply.
func (r Result) Changed() bool {
	return r.AgentMessage != nil
}

// Engine runs the script. The zero value is not usable; use New.
type Engine struct {
	typingDelay time.Duration
	clock       clock.Clock
}

// New returns an engine that reports typingDelay with every reply.
func New(typingDelay time.Duration, c clock.Clock) *Engine {
	if c == nil {
		c = clock.New()
	}
	return &Engine{typingDelay: typingDelay, clock: c}
}

// Advance feeds one visitor message to the script. Blank input and any input
// after completion leave the state untouched and produce no reply.
func (e *Engine) Advance(input string, ch domain.Channel, state EngineState) Result {
	text := strings.TrimSpace(input)
	if text == "" || state.Step == StepCompleted {
		return e.noop(state)
	}

	t := turn{text: text, lower: strings.ToLower(text), channel: ch}
	for _, r := range dispatch[state.Step] {
		if !r.match(state, t) {
			continue
		}
		out := r.apply(state, t)
		out.state.History = state.History.with(ch, text)
		return e.finish(r.name, out, e.message(domain.RoleUser, text, ch, false), ch)
	}
	return e.noop(state)
}

// Start opens a conversation from a listing card: the visitor's enquiry about
// the listing is synthesized and the engine answers with the listing details
// and the financing question, skipping the selection prompt. It only applies
// before a listing or branch has been chosen; otherwise it is a no-op.
func (e *Engine) Start(propertyIndex int, ch domain.Channel, state EngineState) (Result, error) {
	p, ok := domain.PropertyAt(propertyIndex)
	if !ok {
		return Result{}, ErrUnknownProperty
	}
	if state.Step != StepInitial && state.Step != StepAwaitingSelection {
		return e.noop(state), nil
	}

	opener := leadOpenerPrompt(p).render(ch)
	s := state
	s.Step = StepAskingFinancing
	s.SelectedPropertyIndex = propertyIndex
	s.Qualification.LeadScore = domain.LeadScoreHot
	s.Qualification.NextAction = "Qualify financing"
	s.History = state.History.with(ch, opener)

	out := outcome{
		state: s,
		reply: propertyDetailsPrompt(p),
		via:   []ConversationState{StatePropertySelected},
		crm:   true,
	}
	return e.finish("listing-card", out, e.message(domain.RoleUser, opener, ch, false), ch), nil
}

func (e *Engine) finish(rule string, out outcome, user domain.Message, ch domain.Channel) Result {
	reply := out.reply.render(ch)
	out.state.LastAgentText = reply
	agent := e.message(domain.RoleAgent, reply, ch, true)

	path := append(append([]ConversationState(nil), out.via...), out.state.ConversationState())
	return Result{
		NewState:     out.state,
		UserMessage:  &user,
		AgentMessage: &agent,
		SideEffects: SideEffects{
			CRMSynced:    out.crm,
			QuickReplies: QuickReplies(out.state),
			TypingDelay:  e.typingDelay,
		},
		Path: path,
		Rule: rule,
	}
}

func (e *Engine) noop(state EngineState) Result {
	return Result{
		NewState:    state,
		SideEffects: SideEffects{QuickReplies: QuickReplies(state)},
	}
}

func (e *Engine) message(role domain.Role, content string, ch domain.Channel, auto bool) domain.Message {
	return domain.Message{
		Role:      role,
		Content:   content,
		Timestamp: domain.MessageTimestamp(e.clock.Now()),
		IsAuto:    auto,
		Type:      ch,
	}
}
