package handler

import (
	"errors"
	"net/http"

	"github.com/tanmaydesai/gigflow/internal/api/response"
	"github.com/tanmaydesai/gigflow/internal/job"
	"github.com/tanmaydesai/gigflow/internal/store"
)

// writeServiceError maps service-layer errors onto the API error taxonomy.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, job.ErrValidation):
		response.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
	case errors.Is(err, job.ErrInvalidTransition):
		response.Error(w, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	case errors.Is(err, job.ErrRaceLost):
		response.Error(w, http.StatusConflict, "JOB_UNAVAILABLE",
			"The job is no longer available", nil)
	case errors.Is(err, job.ErrNotOwner):
		response.Error(w, http.StatusForbidden, "FORBIDDEN",
			"You are not a party to this job", nil)
	case errors.Is(err, store.ErrInsufficientFunds):
		response.Error(w, http.StatusPaymentRequired, "INSUFFICIENT_FUNDS",
			"Wallet balance does not cover this operation", nil)
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
