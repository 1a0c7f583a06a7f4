package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tanmaydesai/gigflow/internal/feed"
	"github.com/tanmaydesai/gigflow/internal/store"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

// Service applies lifecycle transitions against the store and publishes the
// resulting row change on the feed. The store's conditional updates resolve
// races; the service translates "zero rows affected" into ErrRaceLost.
type Service struct {
	store store.Store
	feed  feed.Feed
}

func NewService(s store.Store, f feed.Feed) *Service {
	return &Service{store: s, feed: f}
}

// CreateParams holds validated input for posting a job.
type CreateParams struct {
	Title         string
	Description   string
	Price         float64
	ServiceType   string
	CustomerID    uuid.UUID
	Location      *models.LatLng
	ScheduledTime *time.Time
}

// Create posts a new open job. The customer's wallet is debited by the price
// up front; posting fails with store.ErrInsufficientFunds when the balance
// does not cover it.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.Job, error) {
	if p.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if p.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if !models.ValidServiceType(p.ServiceType) {
		return nil, fmt.Errorf("%w: unknown service type %q", ErrValidation, p.ServiceType)
	}

	if _, err := s.store.AdjustWalletBalance(ctx, p.CustomerID, -p.Price); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:            uuid.New(),
		Title:         p.Title,
		Description:   p.Description,
		Price:         p.Price,
		ServiceType:   p.ServiceType,
		Status:        models.JobStatusOpen,
		CustomerID:    p.CustomerID,
		Location:      p.Location,
		ScheduledTime: p.ScheduledTime,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		// The debit already landed; hand the money back before failing.
		if _, refundErr := s.store.AdjustWalletBalance(ctx, p.CustomerID, p.Price); refundErr != nil {
			slog.Error("failed to refund debit after create failure",
				"customer_id", p.CustomerID, "amount", p.Price, "error", refundErr)
		}
		return nil, err
	}

	s.publish(ctx, feed.OpInsert, job)
	return job, nil
}

// Accept assigns the job to a worker, open → in_progress. The conditional
// store update guarantees at most one of concurrent acceptors wins; every
// loser gets ErrRaceLost.
func (s *Service) Accept(ctx context.Context, jobID, workerID uuid.UUID) (*models.Job, error) {
	rows, err := s.store.UpdateJobStatus(ctx, jobID,
		models.JobStatusOpen, models.JobStatusInProgress,
		store.WithAssignWorker(workerID))
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		if _, err := s.store.GetJob(ctx, jobID); err != nil {
			return nil, err
		}
		return nil, ErrRaceLost
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, feed.OpUpdate, job)
	return job, nil
}

// MarkPending is the worker declaring the work done: in_progress →
// pending_confirmation. Any active tracking session for the worker should be
// stopped by the caller once this succeeds.
func (s *Service) MarkPending(ctx context.Context, jobID, workerID uuid.UUID) (*models.Job, error) {
	current, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if current.WorkerID == nil || *current.WorkerID != workerID {
		return nil, ErrNotOwner
	}
	if !CanTransition(current.Status, models.JobStatusPendingConfirmation) {
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, current.Status, models.JobStatusPendingConfirmation)
	}

	rows, err := s.store.UpdateJobStatus(ctx, jobID,
		models.JobStatusInProgress, models.JobStatusPendingConfirmation,
		store.WithExpectedWorker(workerID))
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrRaceLost
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, feed.OpUpdate, job)
	return job, nil
}

// Confirm is the customer releasing payment: pending_confirmation →
// completed. The status flip, the worker credit and the ledger entry are
// applied in one store transaction.
func (s *Service) Confirm(ctx context.Context, jobID, customerID uuid.UUID) (*models.Job, *models.Transaction, error) {
	current, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	if current.CustomerID != customerID {
		return nil, nil, ErrNotOwner
	}
	if !CanTransition(current.Status, models.JobStatusCompleted) {
		return nil, nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, current.Status, models.JobStatusCompleted)
	}

	txn, rows, err := s.store.CompleteJob(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	if rows == 0 {
		return nil, nil, ErrRaceLost
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	s.publish(ctx, feed.OpUpdate, job)
	return job, txn, nil
}

// Cancel withdraws an open job, open → cancelled, and refunds the creation
// debit. Only the posting customer may cancel, and only while the job is
// still open.
func (s *Service) Cancel(ctx context.Context, jobID, customerID uuid.UUID) (*models.Job, error) {
	current, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if current.CustomerID != customerID {
		return nil, ErrNotOwner
	}
	if !CanTransition(current.Status, models.JobStatusCancelled) {
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, current.Status, models.JobStatusCancelled)
	}

	rows, err := s.store.UpdateJobStatus(ctx, jobID,
		models.JobStatusOpen, models.JobStatusCancelled)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrRaceLost
	}

	if _, err := s.store.AdjustWalletBalance(ctx, customerID, current.Price); err != nil {
		slog.Error("failed to refund cancelled job",
			"job_id", jobID, "customer_id", customerID, "amount", current.Price, "error", err)
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, feed.OpUpdate, job)
	return job, nil
}

// Get returns one job.
func (s *Service) Get(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	return s.store.GetJob(ctx, jobID)
}

// ListOpen returns every job currently accepting workers.
func (s *Service) ListOpen(ctx context.Context) ([]*models.Job, error) {
	return s.store.ListOpenJobs(ctx)
}

// ListForCustomer returns the jobs a customer posted.
func (s *Service) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.Job, error) {
	return s.store.ListJobsByCustomer(ctx, customerID)
}

// ListForWorker returns the jobs a worker has accepted.
func (s *Service) ListForWorker(ctx context.Context, workerID uuid.UUID) ([]*models.Job, error) {
	return s.store.ListJobsByWorker(ctx, workerID)
}

// publish pushes the row change onto the feed. The write already committed,
// so a feed failure is logged rather than surfaced: subscribers reconcile
// from the store on reconnect.
func (s *Service) publish(ctx context.Context, op feed.Op, job *models.Job) {
	if err := s.feed.PublishJob(ctx, op, job); err != nil {
		slog.Error("failed to publish job change", "job_id", job.ID, "op", op, "error", err)
	}
}
