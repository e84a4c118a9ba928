package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bulkwave/bulkwave-backend/internal/models"
)

// MessageRepository defines the interface for message data access
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id int64) (*models.Message, error)
	GetPendingByCampaign(ctx context.Context, campaignID int64, limit int) ([]*models.Message, error)
	MarkQueued(ctx context.Context, id, accountID int64, renderedContent string) error
	MarkSent(ctx context.Context, id int64, externalID string, attempts int, sentAt time.Time) error
	MarkFailed(ctx context.Context, id int64, attempts int, lastError string) error
	List(ctx context.Context, filter models.MessageFilter) ([]*models.Message, int64, error)
	CountByStatus(ctx context.Context, campaignID int64) (map[string]int64, error)
}

// messageRepository implements MessageRepository using PostgreSQL
type messageRepository struct {
	db *sql.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *sql.DB) MessageRepository {
	return &messageRepository{db: db}
}

const messageColumns = `id, campaign_id, contact_id, account_id, status, rendered_content,
		last_error, attempt_count, external_id, sent_at, created_at, updated_at`

// Create inserts a new message
func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	query := `
		INSERT INTO messages (campaign_id, contact_id, account_id, status, rendered_content,
			last_error, attempt_count, external_id, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		message.CampaignID,
		message.ContactID,
		message.AccountID,
		message.Status,
		message.RenderedContent,
		message.LastError,
		message.AttemptCount,
		message.ExternalID,
		message.SentAt,
	).Scan(&message.ID, &message.CreatedAt, &message.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// GetByID retrieves a message by ID
func (r *messageRepository) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	message := &models.Message{}
	err := scanMessage(r.db.QueryRowContext(ctx, query, id), message)

	if err == sql.ErrNoRows {
		return nil, models.ErrNotFoundWithMsg(fmt.Sprintf("message with ID %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return message, nil
}

// GetPendingByCampaign retrieves a campaign's pending messages in creation
// order, bounded so one enqueue batch cannot grow without limit.
func (r *messageRepository) GetPendingByCampaign(ctx context.Context, campaignID int64, limit int) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + `
		FROM messages
		WHERE campaign_id = $1 AND status = $2
		ORDER BY id
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, campaignID, models.MessageStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending messages: %w", err)
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		message := &models.Message{}
		if err := scanMessage(rows, message); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, message)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending messages: %w", err)
	}

	return messages, nil
}

// MarkQueued transitions a message from pending to queued with its assigned
// account and rendered body
func (r *messageRepository) MarkQueued(ctx context.Context, id, accountID int64, renderedContent string) error {
	query := `
		UPDATE messages
		SET status = $1, account_id = $2, rendered_content = $3
		WHERE id = $4`

	return r.exec(ctx, query, id, models.MessageStatusQueued, accountID, renderedContent, id)
}

// MarkSent records a successful send
func (r *messageRepository) MarkSent(ctx context.Context, id int64, externalID string, attempts int, sentAt time.Time) error {
	query := `
		UPDATE messages
		SET status = $1, external_id = $2, attempt_count = $3, sent_at = $4, last_error = NULL
		WHERE id = $5`

	return r.exec(ctx, query, id, models.MessageStatusSent, externalID, attempts, sentAt, id)
}

// MarkFailed records a terminal failure with the last transport error
func (r *messageRepository) MarkFailed(ctx context.Context, id int64, attempts int, lastError string) error {
	query := `
		UPDATE messages
		SET status = $1, attempt_count = $2, last_error = $3
		WHERE id = $4`

	return r.exec(ctx, query, id, models.MessageStatusFailed, attempts, lastError, id)
}

// List retrieves messages with pagination and filtering
func (r *messageRepository) List(ctx context.Context, filter models.MessageFilter) ([]*models.Message, int64, error) {
	models.ValidateAndSetDefaults(&filter.Page, &filter.PageSize)

	query := `SELECT ` + messageColumns + ` FROM messages WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM messages WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if filter.CampaignID > 0 {
		query += fmt.Sprintf(" AND campaign_id = $%d", argPos)
		countQuery += fmt.Sprintf(" AND campaign_id = $%d", argPos)
		args = append(args, filter.CampaignID)
		argPos++
	}

	if filter.ContactID > 0 {
		query += fmt.Sprintf(" AND contact_id = $%d", argPos)
		countQuery += fmt.Sprintf(" AND contact_id = $%d", argPos)
		args = append(args, filter.ContactID)
		argPos++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		countQuery += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, filter.Status)
		argPos++
	}

	var totalCount int64
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	offset := models.CalculateOffset(filter.Page, filter.PageSize)
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		message := &models.Message{}
		if err := scanMessage(rows, message); err != nil {
			return nil, 0, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, message)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, totalCount, nil
}

// CountByStatus aggregates a campaign's messages by status
func (r *messageRepository) CountByStatus(ctx context.Context, campaignID int64) (map[string]int64, error) {
	query := `
		SELECT status, COUNT(*)
		FROM messages
		WHERE campaign_id = $1
		GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages by status: %w", err)
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}

	return counts, nil
}

// exec runs an update that must affect exactly one message row
func (r *messageRepository) exec(ctx context.Context, query string, id int64, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrNotFoundWithMsg(fmt.Sprintf("message with ID %d not found", id))
	}

	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows so both paths share one scan
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner, message *models.Message) error {
	return row.Scan(
		&message.ID,
		&message.CampaignID,
		&message.ContactID,
		&message.AccountID,
		&message.Status,
		&message.RenderedContent,
		&message.LastError,
		&message.AttemptCount,
		&message.ExternalID,
		&message.SentAt,
		&message.CreatedAt,
		&message.UpdatedAt,
	)
}
