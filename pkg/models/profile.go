package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleCustomer = "customer"
	RoleWorker   = "worker"
)

// Profile is the per-user record: role, wallet and latest reported location.
// WalletBalance never goes negative; debits are rejected up front.
type Profile struct {
	UserID          uuid.UUID       `db:"user_id"          json:"user_id"`
	DisplayName     string          `db:"display_name"     json:"display_name"`
	Role            string          `db:"role"             json:"role"`
	WalletBalance   float64         `db:"wallet_balance"   json:"wallet_balance"`
	CurrentLocation *LocationSample `db:"current_location" json:"current_location,omitempty"`
	CreatedAt       time.Time       `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"       json:"updated_at"`
}
