package models

import (
	"fmt"
	"time"
)

// Campaign status constants
const (
	CampaignStatusDraft     = "draft"
	CampaignStatusScheduled = "scheduled"
	CampaignStatusSending   = "sending"
	CampaignStatusSent      = "sent"
	CampaignStatusFailed    = "failed"
)

// Campaign channel constants
const (
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

// Campaign represents a bulk-messaging campaign with its delivery tuning
type Campaign struct {
	ID           int64     `json:"id"`
	OwnerID      int64     `json:"owner_id"`
	Name         string    `json:"name"`
	Channel      string    `json:"channel"`
	Status       string    `json:"status"`
	BaseTemplate string    `json:"base_template"`
	DelayMinMS   int64     `json:"delay_min_ms"`
	DelayMaxMS   int64     `json:"delay_max_ms"`
	Throttle     int       `json:"throttle"`
	MaxRetries   int       `json:"max_retries"`
	SentCount    int64     `json:"sent_count"`
	FailedCount  int64     `json:"failed_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DeliveryParams holds the tuning values the dispatch engine reads at
// enqueue time
type DeliveryParams struct {
	DelayMinMS int64 `json:"delay_min_ms"`
	DelayMaxMS int64 `json:"delay_max_ms"`
	Throttle   int   `json:"throttle"`
	MaxRetries int   `json:"max_retries"`
}

// Params returns the campaign's current delivery tuning
func (c *Campaign) Params() DeliveryParams {
	return DeliveryParams{
		DelayMinMS: c.DelayMinMS,
		DelayMaxMS: c.DelayMaxMS,
		Throttle:   c.Throttle,
		MaxRetries: c.MaxRetries,
	}
}

// Validate performs validation on campaign data
func (c *Campaign) Validate() error {
	if c.Name == "" {
		return ErrInvalidInput("name is required")
	}
	if !IsValidChannel(c.Channel) {
		return ErrInvalidInput(fmt.Sprintf("invalid channel: %s (must be 'sms' or 'whatsapp')", c.Channel))
	}
	if c.BaseTemplate == "" {
		return ErrInvalidInput("base_template is required")
	}
	if c.Status != "" && !IsValidCampaignStatus(c.Status) {
		return ErrInvalidInput(fmt.Sprintf("invalid status: %s", c.Status))
	}
	return c.Params().Validate()
}

// Validate checks the delivery tuning bounds
func (p DeliveryParams) Validate() error {
	if p.DelayMinMS < 0 || p.DelayMaxMS < 0 {
		return ErrInvalidInput("delays must not be negative")
	}
	if p.DelayMinMS > p.DelayMaxMS {
		return ErrInvalidInput("delay_min_ms must not exceed delay_max_ms")
	}
	if p.Throttle < 1 {
		return ErrInvalidInput("throttle must be at least 1 message per minute")
	}
	if p.MaxRetries < 0 {
		return ErrInvalidInput("max_retries must not be negative")
	}
	return nil
}

// IsValidChannel checks if the channel is valid
func IsValidChannel(channel string) bool {
	return channel == ChannelSMS || channel == ChannelWhatsApp
}

// IsValidCampaignStatus checks if the campaign status is valid
func IsValidCampaignStatus(status string) bool {
	switch status {
	case CampaignStatusDraft, CampaignStatusScheduled, CampaignStatusSending, CampaignStatusSent, CampaignStatusFailed:
		return true
	default:
		return false
	}
}
