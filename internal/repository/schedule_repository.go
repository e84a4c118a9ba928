package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bulkwave/bulkwave-backend/internal/models"
)

// ScheduleRepository defines the interface for recurring trigger data access
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *models.Schedule) error
	GetByID(ctx context.Context, id int64) (*models.Schedule, error)
	List(ctx context.Context) ([]*models.Schedule, error)
	ListActive(ctx context.Context) ([]*models.Schedule, error)
	Update(ctx context.Context, schedule *models.Schedule) error
	Delete(ctx context.Context, id int64) error
	RecordFire(ctx context.Context, id int64, firedAt time.Time, nextFireAt *time.Time) error
	RecordFailure(ctx context.Context, id int64) error
	Stats(ctx context.Context) (*models.ScheduleStats, error)
}

// scheduleRepository implements ScheduleRepository using PostgreSQL
type scheduleRepository struct {
	db *sql.DB
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *sql.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

const scheduleColumns = `id, campaign_id, owner_id, cron_expr, timezone, active,
		last_fired_at, next_fire_at, fire_count, failure_count, created_at, updated_at`

// Create inserts a new schedule
func (r *scheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	query := `
		INSERT INTO schedules (campaign_id, owner_id, cron_expr, timezone, active, next_fire_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		schedule.CampaignID,
		schedule.OwnerID,
		schedule.CronExpr,
		schedule.Timezone,
		schedule.Active,
		schedule.NextFireAt,
	).Scan(&schedule.ID, &schedule.CreatedAt, &schedule.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}

	return nil
}

// GetByID retrieves a schedule by ID
func (r *scheduleRepository) GetByID(ctx context.Context, id int64) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`

	schedule := &models.Schedule{}
	err := scanSchedule(r.db.QueryRowContext(ctx, query, id), schedule)

	if err == sql.ErrNoRows {
		return nil, models.ErrNotFoundWithMsg(fmt.Sprintf("schedule with ID %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}

	return schedule, nil
}

// List retrieves all schedules
func (r *scheduleRepository) List(ctx context.Context) ([]*models.Schedule, error) {
	return r.list(ctx, `SELECT `+scheduleColumns+` FROM schedules ORDER BY id`)
}

// ListActive retrieves schedules with a live trigger, used to rebuild timers
// after a process restart
func (r *scheduleRepository) ListActive(ctx context.Context) ([]*models.Schedule, error) {
	return r.list(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE active ORDER BY id`)
}

func (r *scheduleRepository) list(ctx context.Context, query string) ([]*models.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	schedules := []*models.Schedule{}
	for rows.Next() {
		schedule := &models.Schedule{}
		if err := scanSchedule(rows, schedule); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, schedule)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedules: %w", err)
	}

	return schedules, nil
}

// Update persists changes to expression, timezone, active flag and next fire
func (r *scheduleRepository) Update(ctx context.Context, schedule *models.Schedule) error {
	query := `
		UPDATE schedules
		SET cron_expr = $1, timezone = $2, active = $3, next_fire_at = $4
		WHERE id = $5
		RETURNING updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		schedule.CronExpr,
		schedule.Timezone,
		schedule.Active,
		schedule.NextFireAt,
		schedule.ID,
	).Scan(&schedule.UpdatedAt)

	if err == sql.ErrNoRows {
		return models.ErrNotFoundWithMsg(fmt.Sprintf("schedule with ID %d not found", schedule.ID))
	}
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}

	return nil
}

// Delete removes a schedule row
func (r *scheduleRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrNotFoundWithMsg(fmt.Sprintf("schedule with ID %d not found", id))
	}

	return nil
}

// RecordFire updates fire bookkeeping after a successful trigger
func (r *scheduleRepository) RecordFire(ctx context.Context, id int64, firedAt time.Time, nextFireAt *time.Time) error {
	query := `
		UPDATE schedules
		SET last_fired_at = $1, next_fire_at = $2, fire_count = fire_count + 1
		WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, firedAt, nextFireAt, id)
	if err != nil {
		return fmt.Errorf("failed to record schedule fire: %w", err)
	}

	return nil
}

// RecordFailure increments the failure counter; the schedule stays active
func (r *scheduleRepository) RecordFailure(ctx context.Context, id int64) error {
	query := `UPDATE schedules SET failure_count = failure_count + 1 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to record schedule failure: %w", err)
	}

	return nil
}

// Stats aggregates scheduler-wide counters
func (r *scheduleRepository) Stats(ctx context.Context) (*models.ScheduleStats, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE active),
			COALESCE(SUM(fire_count), 0),
			COALESCE(SUM(failure_count), 0)
		FROM schedules`

	stats := &models.ScheduleStats{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.Total,
		&stats.Active,
		&stats.TotalFires,
		&stats.TotalFailures,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate schedule stats: %w", err)
	}

	return stats, nil
}

func scanSchedule(row rowScanner, schedule *models.Schedule) error {
	return row.Scan(
		&schedule.ID,
		&schedule.CampaignID,
		&schedule.OwnerID,
		&schedule.CronExpr,
		&schedule.Timezone,
		&schedule.Active,
		&schedule.LastFiredAt,
		&schedule.NextFireAt,
		&schedule.FireCount,
		&schedule.FailureCount,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)
}
