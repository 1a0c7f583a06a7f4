package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanmaydesai/gigflow/internal/feed"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

func openJob(customerID uuid.UUID) *models.Job {
	now := time.Now().UTC()
	return &models.Job{
		ID:          uuid.New(),
		Title:       "deliver groceries",
		Price:       20,
		ServiceType: models.ServiceTypeDelivery,
		Status:      models.JobStatusOpen,
		CustomerID:  customerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func withStatus(j *models.Job, status string, workerID *uuid.UUID) *models.Job {
	cp := *j
	cp.Status = status
	cp.WorkerID = workerID
	return &cp
}

// startReconciler runs r until the test ends and waits for its subscriptions
// to be registered before returning.
func startReconciler(t *testing.T, f *feed.MemoryFeed, r *Reconciler, wantSubs int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = r.Run(ctx) }()

	require.Eventually(t, func() bool {
		return f.JobSubscriberCount() == wantSubs
	}, time.Second, 5*time.Millisecond, "reconciler did not subscribe")
}

func nextNotification(t *testing.T, r *Reconciler) Notification {
	t.Helper()
	select {
	case n := <-r.Notifications():
		return n
	case <-time.After(time.Second):
		t.Fatal("expected a notification")
		return Notification{}
	}
}

func assertNoNotification(t *testing.T, r *Reconciler) {
	t.Helper()
	select {
	case n := <-r.Notifications():
		t.Fatalf("unexpected notification: %s (%s)", n.Category, n.Message)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReconciler_JobTakenFiresExactlyOnce(t *testing.T) {
	f := feed.NewMemoryFeed()
	worker := uuid.New()
	r := New(f, worker, models.RoleWorker)

	j := openJob(uuid.New())
	r.SeedOpenJobs([]*models.Job{j})
	startReconciler(t, f, r, 2)

	otherWorker := uuid.New()
	taken := withStatus(j, models.JobStatusInProgress, &otherWorker)
	require.NoError(t, f.PublishJob(context.Background(), feed.OpUpdate, taken))

	n := nextNotification(t, r)
	assert.Equal(t, CategoryJobTaken, n.Category)
	assert.Equal(t, j.ID, n.JobID)
	assert.False(t, r.HasOpenJob(j.ID), "taken job must leave the open set")

	// Redelivery of the same change must not fire a second job-taken.
	require.NoError(t, f.PublishJob(context.Background(), feed.OpUpdate, taken))
	assertNoNotification(t, r)
}

func TestReconciler_NewJobAvailable(t *testing.T) {
	f := feed.NewMemoryFeed()
	r := New(f, uuid.New(), models.RoleWorker)
	startReconciler(t, f, r, 2)

	j := openJob(uuid.New())
	require.NoError(t, f.PublishJob(context.Background(), feed.OpInsert, j))

	n := nextNotification(t, r)
	assert.Equal(t, CategoryNewJobAvailable, n.Category)
	assert.True(t, r.HasOpenJob(j.ID))
}

func TestReconciler_AcceptingWorkerGetsArrivalNotJobTaken(t *testing.T) {
	f := feed.NewMemoryFeed()
	worker := uuid.New()
	r := New(f, worker, models.RoleWorker)

	j := openJob(uuid.New())
	r.SeedOpenJobs([]*models.Job{j})
	startReconciler(t, f, r, 2)

	accepted := withStatus(j, models.JobStatusInProgress, &worker)
	require.NoError(t, f.PublishJob(context.Background(), feed.OpUpdate, accepted))

	// One event arrives on the worker channel (awaiting-worker-arrival) and
	// one on the open pool, which must stay silent for the winner.
	n := nextNotification(t, r)
	assert.Equal(t, CategoryAwaitingArrival, n.Category)
	assertNoNotification(t, r)
	assert.False(t, r.HasOpenJob(j.ID))
}

func TestReconciler_CustomerClassification(t *testing.T) {
	customer := uuid.New()
	worker := uuid.New()

	tests := []struct {
		status   string
		workerID *uuid.UUID
		want     Category
	}{
		{models.JobStatusInProgress, &worker, CategoryWorkerAssigned},
		{models.JobStatusPendingConfirmation, &worker, CategoryAwaitingConfirmation},
		{models.JobStatusCompleted, &worker, CategoryPaymentReleased},
		{models.JobStatusCancelled, nil, CategoryJobCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			f := feed.NewMemoryFeed()
			r := New(f, customer, models.RoleCustomer)

			j := openJob(customer)
			r.Seed([]*models.Job{j})
			startReconciler(t, f, r, 1)

			require.NoError(t, f.PublishJob(context.Background(), feed.OpUpdate,
				withStatus(j, tt.status, tt.workerID)))

			n := nextNotification(t, r)
			assert.Equal(t, tt.want, n.Category)
		})
	}
}

func TestReconciler_PushedStateWins(t *testing.T) {
	f := feed.NewMemoryFeed()
	customer := uuid.New()
	r := New(f, customer, models.RoleCustomer)

	j := openJob(customer)
	r.Seed([]*models.Job{j})
	startReconciler(t, f, r, 1)

	worker := uuid.New()
	pushed := withStatus(j, models.JobStatusInProgress, &worker)
	pushed.Title = "deliver groceries (edited)"
	require.NoError(t, f.PublishJob(context.Background(), feed.OpUpdate, pushed))
	nextNotification(t, r)

	local := r.Job(j.ID)
	require.NotNil(t, local)
	assert.Equal(t, models.JobStatusInProgress, local.Status)
	assert.Equal(t, "deliver groceries (edited)", local.Title, "pushed row replaces the whole local copy")
}

func TestReconciler_IdenticalStatusRedeliveryIsNoOp(t *testing.T) {
	f := feed.NewMemoryFeed()
	customer := uuid.New()
	r := New(f, customer, models.RoleCustomer)

	j := openJob(customer)
	r.Seed([]*models.Job{j})
	startReconciler(t, f, r, 1)

	worker := uuid.New()
	pushed := withStatus(j, models.JobStatusInProgress, &worker)
	require.NoError(t, f.PublishJob(context.Background(), feed.OpUpdate, pushed))
	n := nextNotification(t, r)
	assert.Equal(t, CategoryWorkerAssigned, n.Category)

	require.NoError(t, f.PublishJob(context.Background(), feed.OpUpdate, pushed))
	assertNoNotification(t, r)
}

func TestReconciler_MalformedEventDoesNotStopLoop(t *testing.T) {
	f := feed.NewMemoryFeed()
	customer := uuid.New()
	r := New(f, customer, models.RoleCustomer)

	j := openJob(customer)
	r.Seed([]*models.Job{j})
	startReconciler(t, f, r, 1)

	// An event with no payload must be skipped, not crash the loop.
	require.NoError(t, f.PublishJob(context.Background(), feed.OpUpdate, &models.Job{ID: uuid.Nil, CustomerID: customer}))

	worker := uuid.New()
	require.NoError(t, f.PublishJob(context.Background(), feed.OpUpdate,
		withStatus(j, models.JobStatusInProgress, &worker)))

	n := nextNotification(t, r)
	assert.Equal(t, CategoryWorkerAssigned, n.Category)
}

func TestReconciler_UnsubscribesOnCancel(t *testing.T) {
	f := feed.NewMemoryFeed()
	r := New(f, uuid.New(), models.RoleWorker)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return f.JobSubscriberCount() == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop on cancel")
	}

	assert.Equal(t, 0, f.JobSubscriberCount(), "every subscription must be released on teardown")
}
