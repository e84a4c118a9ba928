package events

import (
	"context"
	"time"
)

// DeliveryEvent is published once per terminal message outcome. Downstream
// receipt processors consume these to drive delivered/read transitions and
// webhooks; the dispatch engine only produces them.
type DeliveryEvent struct {
	MessageID  int64     `json:"message_id"`
	CampaignID *int64    `json:"campaign_id,omitempty"`
	AccountID  int64     `json:"account_id"`
	Status     string    `json:"status"`
	ExternalID string    `json:"external_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher defines the interface for delivery event publishing
type Publisher interface {
	PublishDelivery(ctx context.Context, event *DeliveryEvent) error
	Health(ctx context.Context) error
	Close() error
}

// noopPublisher discards events, used when no broker is configured and in
// tests
type noopPublisher struct{}

// NewNoopPublisher creates a publisher that drops all events
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) PublishDelivery(ctx context.Context, event *DeliveryEvent) error { return nil }
func (noopPublisher) Health(ctx context.Context) error                                { return nil }
func (noopPublisher) Close() error                                                    { return nil }
