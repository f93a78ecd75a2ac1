package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/domain"
	"github.com/posentia/posentia/internal/logging"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// ContactNotifier emails the sales inbox about new contact submissions.
type ContactNotifier struct {
	sender    EmailSender
	recipient string
	logger    *zap.Logger
}

// NewContactNotifier creates a notifier. An empty recipient disables it.
func NewContactNotifier(sender EmailSender, recipient string, logger *zap.Logger) *ContactNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = NewLogSender(logger)
	}
	return &ContactNotifier{sender: sender, recipient: recipient, logger: logger}
}

// Notify sends the submission to the configured recipient.
func (n *ContactNotifier) Notify(ctx context.Context, c *domain.ContactSubmission) error {
	if n.recipient == "" {
		n.logger.Debug("contact recipient not configured, skipping email",
			zap.String("email", logging.MaskEmail(c.Email)),
		)
		return nil
	}
	return n.sender.Send(ctx, EmailMessage{
		To:      n.recipient,
		Subject: ContactSubject(c),
		Body:    ContactBody(c),
	})
}

// ContactSubject is "New Contact Form: <company> - <name>".
func ContactSubject(c *domain.ContactSubmission) string {
	return fmt.Sprintf("New Contact Form: %s - %s", c.Company, c.Name)
}

// ContactBody renders the plain-text notification body.
func ContactBody(c *domain.ContactSubmission) string {
	phone := c.Phone
	if phone == "" {
		phone = "Not provided"
	}
	volume := c.CallVolume
	if volume == "" {
		volume = "Not specified"
	}

	var b strings.Builder
	b.WriteString("New Contact Form Submission from POSENTIA Website\n\n")
	fmt.Fprintf(&b, "Name: %s\n", c.Name)
	fmt.Fprintf(&b, "Email: %s\n", c.Email)
	fmt.Fprintf(&b, "Phone: %s\n", phone)
	fmt.Fprintf(&b, "Company: %s\n", c.Company)
	fmt.Fprintf(&b, "Industry: %s\n", c.Industry)
	fmt.Fprintf(&b, "Call Volume: %s\n\n", volume)
	fmt.Fprintf(&b, "Message:\n%s\n\n", c.Message)
	fmt.Fprintf(&b, "---\nSubmitted at: %s", c.CreatedAt.UTC().Format(isoMillis))
	return b.String()
}
