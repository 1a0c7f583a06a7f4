package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	mw "github.com/tanmaydesai/gigflow/internal/api/middleware"
	"github.com/tanmaydesai/gigflow/internal/api/response"
	"github.com/tanmaydesai/gigflow/internal/wallet"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

// WalletService defines the interface the wallet handlers depend on.
type WalletService interface {
	Deposit(ctx context.Context, userID uuid.UUID, amount float64) (float64, error)
	Balance(ctx context.Context, userID uuid.UUID) (float64, error)
	History(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error)
}

// Wallet bundles the wallet handlers.
type Wallet struct {
	svc WalletService
}

// NewWallet creates the wallet handler set.
func NewWallet(svc WalletService) *Wallet {
	return &Wallet{svc: svc}
}

// Balance handles GET /api/v1/wallet.
func (h *Wallet) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := mw.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY", "Missing identity", nil)
		return
	}

	balance, err := h.svc.Balance(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.JSON(w, map[string]float64{"balance": balance})
}

// Deposit handles POST /api/v1/wallet/deposit.
func (h *Wallet) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := mw.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY", "Missing identity", nil)
		return
	}

	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid JSON body", nil)
		return
	}

	balance, err := h.svc.Deposit(r.Context(), userID, req.Amount)
	if err != nil {
		if errors.Is(err, wallet.ErrInvalidAmount) {
			response.Error(w, http.StatusBadRequest, "VALIDATION_FAILED",
				"amount must be positive", nil)
			return
		}
		writeServiceError(w, err)
		return
	}
	response.JSON(w, map[string]float64{"balance": balance})
}

// Transactions handles GET /api/v1/wallet/transactions.
func (h *Wallet) Transactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := mw.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY", "Missing identity", nil)
		return
	}

	history, err := h.svc.History(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.JSON(w, history)
}
