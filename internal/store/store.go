package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// ErrInsufficientFunds is returned when a wallet debit would drive the
// balance negative. Balances never go below zero.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateProfile(ctx context.Context, profile *models.Profile) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListOpenJobs(ctx context.Context) ([]*models.Job, error)
	ListJobsByCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.Job, error)
	ListJobsByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.Job, error)

	// UpdateJobStatus conditionally moves a job to newStatus, matching on the
	// expected current status (and optional worker conditions). It returns
	// the number of rows affected; zero means the caller lost a race and the
	// job was already claimed or moved on, which is an expected outcome, not
	// an error.
	UpdateJobStatus(ctx context.Context, id uuid.UUID, expectedStatus, newStatus string, opts ...JobUpdateOption) (int64, error)

	// CompleteJob atomically moves a pending_confirmation job to completed,
	// credits the worker's wallet by the job price, and appends the payment
	// ledger entry, all in one transaction, both-or-neither. Zero rows
	// (job not in pending_confirmation) is reported as (nil, 0, nil).
	CompleteJob(ctx context.Context, jobID uuid.UUID) (*models.Transaction, int64, error)

	// AdjustWalletBalance applies delta to a wallet as a single atomic
	// increment so concurrent credits to the same account are never lost.
	// Debits that would go negative fail with ErrInsufficientFunds.
	AdjustWalletBalance(ctx context.Context, userID uuid.UUID, delta float64) (float64, error)
	InsertTransaction(ctx context.Context, txn *models.Transaction) error
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error)

	WriteLocation(ctx context.Context, userID uuid.UUID, sample models.LocationSample) error
	// ReadLocation returns the latest sample for a user, or (nil, nil) when
	// the user has never reported a position.
	ReadLocation(ctx context.Context, userID uuid.UUID) (*models.LocationSample, error)
}

type jobUpdateParams struct {
	AssignWorker   *uuid.UUID
	ExpectedWorker *uuid.UUID
}

type JobUpdateOption func(*jobUpdateParams)

// WithAssignWorker sets the job's worker on update and requires that no
// worker is currently assigned. This is what makes two concurrent accepts
// resolve to exactly one winner.
func WithAssignWorker(id uuid.UUID) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.AssignWorker = &id
	}
}

// WithExpectedWorker requires the job to be assigned to the given worker.
func WithExpectedWorker(id uuid.UUID) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.ExpectedWorker = &id
	}
}
