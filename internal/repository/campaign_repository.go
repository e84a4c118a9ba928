package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bulkwave/bulkwave-backend/internal/models"
)

// CampaignRepository defines the interface for campaign data access
type CampaignRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Campaign, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	IncrementSentCount(ctx context.Context, id int64) error
	IncrementFailedCount(ctx context.Context, id int64) error
}

// campaignRepository implements CampaignRepository using PostgreSQL
type campaignRepository struct {
	db *sql.DB
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *sql.DB) CampaignRepository {
	return &campaignRepository{db: db}
}

// GetByID retrieves a campaign by ID
func (r *campaignRepository) GetByID(ctx context.Context, id int64) (*models.Campaign, error) {
	query := `
		SELECT id, owner_id, name, channel, status, base_template,
			delay_min_ms, delay_max_ms, throttle, max_retries,
			sent_count, failed_count, created_at, updated_at
		FROM campaigns
		WHERE id = $1`

	campaign := &models.Campaign{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&campaign.ID,
		&campaign.OwnerID,
		&campaign.Name,
		&campaign.Channel,
		&campaign.Status,
		&campaign.BaseTemplate,
		&campaign.DelayMinMS,
		&campaign.DelayMaxMS,
		&campaign.Throttle,
		&campaign.MaxRetries,
		&campaign.SentCount,
		&campaign.FailedCount,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, models.ErrNotFoundWithMsg(fmt.Sprintf("campaign with ID %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return campaign, nil
}

// UpdateStatus updates the campaign status
func (r *campaignRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE campaigns SET status = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrNotFoundWithMsg(fmt.Sprintf("campaign with ID %d not found", id))
	}

	return nil
}

// IncrementSentCount bumps the campaign's sent counter by one
func (r *campaignRepository) IncrementSentCount(ctx context.Context, id int64) error {
	return r.increment(ctx, id, "sent_count")
}

// IncrementFailedCount bumps the campaign's failed counter by one
func (r *campaignRepository) IncrementFailedCount(ctx context.Context, id int64) error {
	return r.increment(ctx, id, "failed_count")
}

func (r *campaignRepository) increment(ctx context.Context, id int64, column string) error {
	// column is one of two compile-time constants, never user input
	query := fmt.Sprintf(`UPDATE campaigns SET %s = %s + 1 WHERE id = $1`, column, column)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment campaign %s: %w", column, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrNotFoundWithMsg(fmt.Sprintf("campaign with ID %d not found", id))
	}

	return nil
}
