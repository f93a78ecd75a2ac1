package domain

import (
	"fmt"
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Channel is the medium a conversation message travels on.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// ParseChannel validates a channel name. An empty name means sms.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelSMS, "":
		return ChannelSMS, nil
	case ChannelEmail:
		return ChannelEmail, nil
	default:
		return "", fmt.Errorf("unknown channel %q", s)
	}
}

// Message is one entry in a demo conversation.
type Message struct {
	Role      Role    `json:"role"`
	Content   string  `json:"content"`
	Timestamp string  `json:"timestamp"`
	IsAuto    bool    `json:"isAuto,omitempty"`
	Type      Channel `json:"type"`
}

// MessageTimestamp formats t the way the demo displays message times.
func MessageTimestamp(t time.Time) string {
	return t.Format("03:04 PM")
}
