package models

import "time"

// NotificationType classifies what triggered a notification.
type NotificationType string

const (
	TypeFollowUp     NotificationType = "follow-up"
	TypeStatusChange NotificationType = "status-change"
	TypeMilestone    NotificationType = "milestone"
	TypeTaxThreshold NotificationType = "tax-threshold"
)

// Channel is a delivery channel for a notification.
type Channel string

const (
	ChannelInApp Channel = "in-app"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Priority of a notification.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// NotificationStatus is the delivery lifecycle state of a notification.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Recipient identifies one target of a notification.
type Recipient struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email,omitempty"`
	Phone string  `json:"phone,omitempty"`
	Role  RepRole `json:"role"`
}

// Notification is an event to be delivered across one or more channels.
// Read is an explicit flag: MarkAllRead flips it, Dismiss hard-deletes the
// row. The two never overlap.
type Notification struct {
	ID           string             `json:"id"`
	Type         NotificationType   `json:"type"`
	Title        string             `json:"title"`
	Message      string             `json:"message"`
	ActionURL    string             `json:"action_url,omitempty"`
	ActionLabel  string             `json:"action_label,omitempty"`
	ReferralID   string             `json:"referral_id,omitempty"`
	Recipients   []Recipient        `json:"recipients"`
	Channels     []Channel          `json:"channels"`
	Priority     Priority           `json:"priority"`
	Read         bool               `json:"read"`
	Status       NotificationStatus `json:"status"`
	CreatedAt    time.Time          `json:"created_at"`
	ScheduledFor *time.Time         `json:"scheduled_for,omitempty"`
	SentAt       *time.Time         `json:"sent_at,omitempty"`
}

// HasChannel reports whether the notification targets the given channel.
func (n *Notification) HasChannel(c Channel) bool {
	for _, ch := range n.Channels {
		if ch == c {
			return true
		}
	}
	return false
}

// DispatchResult records the outcome of one channel delivery attempt.
type DispatchResult struct {
	Channel   Channel `json:"channel"`
	Recipient string  `json:"recipient"`
	Success   bool    `json:"success"`
	MessageID string  `json:"message_id,omitempty"`
	Error     string  `json:"error,omitempty"`
}
