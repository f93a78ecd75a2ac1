// Package receptionist scripts the demo call a visitor hears when no voice
// provider is configured.
package receptionist

import (
	"fmt"
	"time"

	"github.com/posentia/posentia/internal/domain"
)

const (
	// ConnectDelay is how long the call rings before the first line.
	ConnectDelay = time.Second
	// LineInterval separates consecutive lines of the script.
	LineInterval = 2 * time.Second
	// HangupDelay follows the last line before the call ends.
	HangupDelay = time.Second

	// BookingLeadTime is how far ahead the scripted appointment is booked.
	BookingLeadTime = 7 * 24 * time.Hour
)

// Role is who speaks a line.
type Role string

const (
	RoleAgent Role = "agent"
	RoleUser  Role = "user"
)

// Line is one utterance. At is the offset from the start of the call;
// OffsetMS repeats it in milliseconds for the browser.
type Line struct {
	Role     Role          `json:"role"`
	Text     string        `json:"text"`
	At       time.Duration `json:"-"`
	OffsetMS int64         `json:"offset_ms"`
}

// CapturedLead is what the receptionist logged to the CRM.
type CapturedLead struct {
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Reason    string    `json:"reason"`
	Service   string    `json:"service"`
	Urgency   string    `json:"urgency"`
	Timestamp time.Time `json:"timestamp"`
}

// Booking is the appointment sent to the business.
type Booking struct {
	Date     time.Time `json:"date"`
	Time     string    `json:"time"`
	Service  string    `json:"service"`
	Customer string    `json:"customer"`
	Status   string    `json:"status"`
}

// Call is a complete scripted call.
type Call struct {
	Business    string        `json:"business"`
	ConnectedAt time.Duration `json:"-"`
	Lines       []Line        `json:"transcript"`
	EndedAt     time.Duration `json:"-"`
	Lead        CapturedLead  `json:"lead"`
	Booking     Booking       `json:"booking"`

	ConnectedMS int64 `json:"connected_ms"`
	EndedMS     int64 `json:"ended_ms"`
}

// Duration is the length of the call from connection to hang-up.
func (c Call) Duration() time.Duration {
	return c.EndedAt - c.ConnectedAt
}

const (
	callerName  = "John Smith"
	callerPhone = "(555) 123-4567"
	service     = "Consultation"
)

var script = []struct {
	role Role
	text string
}{
	{RoleAgent, "Hi, thanks for calling %s. This is your AI receptionist. How can I help you today?"},
	{RoleUser, "Hi, I'd like to schedule an appointment."},
	{RoleAgent, "I'd be happy to help you schedule an appointment. Can I get your name and phone number?"},
	{RoleUser, "Sure, it's John Smith, and my number is 555-123-4567."},
	{RoleAgent, "Thank you, John. What type of service are you looking for?"},
	{RoleUser, "I need a consultation."},
	{RoleAgent, "Perfect. What day and time works best for you?"},
	{RoleUser, "Wednesday afternoon would be great."},
	{RoleAgent, "Great! I've noted your preference for Wednesday afternoon. I'll send you a confirmation via SMS with the exact time. Is there anything else I can help you with?"},
	{RoleUser, "No, that's all. Thank you!"},
	{RoleAgent, "You're welcome! Have a great day!"},
}

// MockCall returns the scripted call for profile as if it started at now.
func MockCall(profile domain.BusinessProfile, now time.Time) Call {
	name := profile.Name
	if name == "" {
		name = domain.DemoBusinessProfile("").Name
	}

	lines := make([]Line, len(script))
	for i, s := range script {
		text := s.text
		if i == 0 {
			text = fmt.Sprintf(text, name)
		}
		at := ConnectDelay + time.Duration(i)*LineInterval
		lines[i] = Line{Role: s.role, Text: text, At: at, OffsetMS: at.Milliseconds()}
	}
	ended := lines[len(lines)-1].At + HangupDelay

	return Call{
		Business:    name,
		ConnectedAt: ConnectDelay,
		Lines:       lines,
		EndedAt:     ended,
		ConnectedMS: ConnectDelay.Milliseconds(),
		EndedMS:     ended.Milliseconds(),
		Lead: CapturedLead{
			Name:      callerName,
			Phone:     callerPhone,
			Reason:    "Appointment request",
			Service:   service,
			Urgency:   "Normal",
			Timestamp: now,
		},
		Booking: Booking{
			Date:     now.Add(BookingLeadTime),
			Time:     "Afternoon (preferred)",
			Service:  service,
			Customer: callerName + " - " + callerPhone,
			Status:   "Confirmed via SMS",
		},
	}
}
