package domain

import "context"

// ContactRepository persists contact-form submissions.
type ContactRepository interface {
	Create(ctx context.Context, c *ContactSubmission) error
}

// DemoLeadRepository persists demo lead-capture entries.
type DemoLeadRepository interface {
	Create(ctx context.Context, l *DemoLead) error
}
