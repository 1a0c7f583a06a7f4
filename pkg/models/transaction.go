package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TransactionTypeDeposit = "deposit"
	TransactionTypePayment = "payment"
)

// Transaction is an immutable wallet ledger entry. Exactly one is appended
// per wallet-affecting event (deposit, or payment on job completion) and it
// is never updated or deleted.
type Transaction struct {
	ID         uuid.UUID  `db:"id"          json:"id"`
	Amount     float64    `db:"amount"      json:"amount"`
	Type       string     `db:"type"        json:"type"`
	SenderID   uuid.UUID  `db:"sender_id"   json:"sender_id"`
	ReceiverID uuid.UUID  `db:"receiver_id" json:"receiver_id"`
	JobID      *uuid.UUID `db:"job_id"      json:"job_id,omitempty"`
	CreatedAt  time.Time  `db:"created_at"  json:"created_at"`
}
