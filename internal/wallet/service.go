// Package wallet manages per-user balances and the transaction ledger.
// Job-payment credits are applied by the store's completion transaction;
// this service covers deposits and reads.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tanmaydesai/gigflow/internal/store"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

// ErrInvalidAmount is returned for deposits that are zero or negative.
var ErrInvalidAmount = errors.New("amount must be positive")

type Service struct {
	store store.Store
}

func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// Deposit adds funds to a user's wallet and appends the matching ledger
// entry. The balance adjustment is a single atomic increment, so concurrent
// deposits are never lost.
func (s *Service) Deposit(ctx context.Context, userID uuid.UUID, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	balance, err := s.store.AdjustWalletBalance(ctx, userID, amount)
	if err != nil {
		return 0, err
	}

	txn := &models.Transaction{
		ID:         uuid.New(),
		Amount:     amount,
		Type:       models.TransactionTypeDeposit,
		SenderID:   userID,
		ReceiverID: userID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.InsertTransaction(ctx, txn); err != nil {
		return balance, fmt.Errorf("record deposit: %w", err)
	}
	return balance, nil
}

// Balance returns the user's current wallet balance.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (float64, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return 0, err
	}
	return p.WalletBalance, nil
}

// History returns every ledger entry the user sent or received, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	return s.store.ListTransactions(ctx, userID)
}
