package models

import "time"

// Account status constants
const (
	AccountStatusActive   = "active"
	AccountStatusDisabled = "disabled"
)

// Account represents an outbound sending account owned by a user
type Account struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Label     string    `json:"label"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the account may be assigned sends
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}
