package domain

import (
	"time"

	"github.com/google/uuid"
)

// Lead is a prospect pushed to the CRM.
type Lead struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
	Intent  string `json:"intent,omitempty"`
}

// PushResult is the outcome of a CRM push. Sandbox is set when the lead
// was not delivered upstream and LeadID is synthetic.
type PushResult struct {
	Success bool   `json:"success"`
	LeadID  string `json:"leadId"`
	Sandbox bool   `json:"sandbox,omitempty"`
	Message string `json:"message,omitempty"`
}

// ContactSubmission is a validated contact-form entry.
type ContactSubmission struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Company    string    `json:"company"`
	Industry   string    `json:"industry"`
	CallVolume string    `json:"callVolume,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DemoLead is the contact captured before a visitor may use a demo.
type DemoLead struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Product   string    `json:"product"`
	CreatedAt time.Time `json:"createdAt"`
}

// BusinessName is the placeholder business name stored for demo leads.
func (d DemoLead) BusinessName() string {
	product := d.Product
	if product == "" {
		product = "demo"
	}
	return "Demo User - " + product
}

// BusinessProfile describes a business a voice receptionist answers for.
type BusinessProfile struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Hours    string  `json:"hours"`
	Rating   float64 `json:"rating"`
	Reviews  int     `json:"reviews,omitempty"`
	Phone    string  `json:"phone"`
	Address  string  `json:"address"`
	Website  string  `json:"website,omitempty"`
}

// DemoBusinessProfile returns the fixed profile used when no lookup is
// possible.
func DemoBusinessProfile(name string) BusinessProfile {
	if name == "" {
		name = "Demo Business"
	}
	return BusinessProfile{
		Name:     name,
		Category: "Service Business",
		Hours:    "Mon-Fri 9AM-5PM",
		Rating:   4.5,
		Phone:    "(555) 123-4567",
		Address:  "123 Main St, City, State",
	}
}
