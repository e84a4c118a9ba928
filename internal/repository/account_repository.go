package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bulkwave/bulkwave-backend/internal/models"
)

// AccountRepository defines the interface for sending-account data access
type AccountRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	ListActiveByOwner(ctx context.Context, ownerID int64, limit int) ([]*models.Account, error)
}

// accountRepository implements AccountRepository using PostgreSQL
type accountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

// GetByID retrieves an account by ID
func (r *accountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `
		SELECT id, owner_id, label, status, created_at, updated_at
		FROM accounts
		WHERE id = $1`

	account := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.OwnerID,
		&account.Label,
		&account.Status,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, models.ErrNotFoundWithMsg(fmt.Sprintf("account with ID %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// ListActiveByOwner returns up to limit active accounts for an owner,
// oldest first so assignment stays stable between fires.
func (r *accountRepository) ListActiveByOwner(ctx context.Context, ownerID int64, limit int) ([]*models.Account, error) {
	query := `
		SELECT id, owner_id, label, status, created_at, updated_at
		FROM accounts
		WHERE owner_id = $1 AND status = $2
		ORDER BY id
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, ownerID, models.AccountStatusActive, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []*models.Account{}
	for rows.Next() {
		account := &models.Account{}
		err := rows.Scan(
			&account.ID,
			&account.OwnerID,
			&account.Label,
			&account.Status,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}
