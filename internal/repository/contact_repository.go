package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/bulkwave/bulkwave-backend/internal/models"
)

// ContactRepository defines the interface for contact data access
type ContactRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Contact, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Contact, error)
}

// contactRepository implements ContactRepository using PostgreSQL
type contactRepository struct {
	db *sql.DB
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *sql.DB) ContactRepository {
	return &contactRepository{db: db}
}

// GetByID retrieves a contact by ID
func (r *contactRepository) GetByID(ctx context.Context, id int64) (*models.Contact, error) {
	query := `
		SELECT id, phone, first_name, last_name, location, preferred_product, attributes
		FROM contacts
		WHERE id = $1`

	contact := &models.Contact{}
	var attributes []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&contact.ID,
		&contact.Phone,
		&contact.FirstName,
		&contact.LastName,
		&contact.Location,
		&contact.PreferredProduct,
		&attributes,
	)

	if err == sql.ErrNoRows {
		return nil, models.ErrContactNotFound(fmt.Sprintf("contact with ID %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	if err := unmarshalAttributes(attributes, contact); err != nil {
		return nil, err
	}

	return contact, nil
}

// GetByIDs retrieves a set of contacts keyed by ID. Missing contacts are
// simply absent from the result; the caller decides whether that matters.
func (r *contactRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Contact, error) {
	contacts := make(map[int64]*models.Contact, len(ids))
	if len(ids) == 0 {
		return contacts, nil
	}

	query := `
		SELECT id, phone, first_name, last_name, location, preferred_product, attributes
		FROM contacts
		WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		contact := &models.Contact{}
		var attributes []byte
		err := rows.Scan(
			&contact.ID,
			&contact.Phone,
			&contact.FirstName,
			&contact.LastName,
			&contact.Location,
			&contact.PreferredProduct,
			&attributes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		if err := unmarshalAttributes(attributes, contact); err != nil {
			return nil, err
		}
		contacts[contact.ID] = contact
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contacts: %w", err)
	}

	return contacts, nil
}

func unmarshalAttributes(raw []byte, contact *models.Contact) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &contact.Attributes); err != nil {
		return fmt.Errorf("failed to decode contact attributes: %w", err)
	}
	return nil
}
