package models

import "time"

// Message status constants
const (
	MessageStatusPending   = "pending"
	MessageStatusQueued    = "queued"
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusRead      = "read"
	MessageStatusFailed    = "failed"
)

// Message represents an outbound message bound to a contact.
// The dispatch engine is the sole writer of the pending->queued and
// queued->{sent|failed} transitions. Delivered/read are written by the
// delivery-receipt processor, which consumes the events stream.
type Message struct {
	ID              int64      `json:"id"`
	CampaignID      *int64     `json:"campaign_id,omitempty"`
	ContactID       int64      `json:"contact_id"`
	AccountID       *int64     `json:"account_id,omitempty"`
	Status          string     `json:"status"`
	RenderedContent string     `json:"rendered_content"`
	LastError       *string    `json:"last_error,omitempty"`
	AttemptCount    int        `json:"attempt_count"`
	ExternalID      *string    `json:"external_id,omitempty"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// MessageFilter holds filtering options for listing messages
type MessageFilter struct {
	CampaignID int64
	ContactID  int64
	Status     string
	Page       int
	PageSize   int
}

// IsValidMessageStatus checks if the message status is valid
func IsValidMessageStatus(status string) bool {
	switch status {
	case MessageStatusPending, MessageStatusQueued, MessageStatusSent,
		MessageStatusDelivered, MessageStatusRead, MessageStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status admits no further engine transition
func IsTerminal(status string) bool {
	return status == MessageStatusSent || status == MessageStatusDelivered ||
		status == MessageStatusRead || status == MessageStatusFailed
}
