// Package reconcile merges pushed change-feed events into a viewer's local
// job state. Local state is provisional: whatever the feed pushes always
// wins, in feed delivery order. Each applied change is classified into a
// role-appropriate notification so the customer and the worker see different
// language for the same underlying transition.
package reconcile

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/tanmaydesai/gigflow/internal/feed"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

type Category string

const (
	CategoryWorkerAssigned       Category = "worker-assigned"
	CategoryAwaitingArrival      Category = "awaiting-worker-arrival"
	CategoryAwaitingConfirmation Category = "awaiting-customer-confirmation"
	CategoryPaymentReleased      Category = "payment-released"
	CategoryJobCancelled         Category = "job-cancelled"
	CategoryNewJobAvailable      Category = "new-job-available"
	CategoryJobTaken             Category = "job-taken"
)

// Notification is a toast-equivalent signal derived from a feed event.
type Notification struct {
	Category Category  `json:"category"`
	JobID    uuid.UUID `json:"job_id"`
	Message  string    `json:"message"`
}

const notificationBuffer = 64

// Reconciler consumes the change feed for one viewer (a customer or a
// worker) and maintains their local job map; for workers it also maintains
// the open-job set backing the "available gigs" list.
type Reconciler struct {
	feed   feed.Feed
	userID uuid.UUID
	role   string

	mu       sync.Mutex
	jobs     map[uuid.UUID]*models.Job
	openJobs map[uuid.UUID]*models.Job

	notifications chan Notification
}

// New creates a reconciler for the given viewer. role is models.RoleCustomer
// or models.RoleWorker.
func New(f feed.Feed, userID uuid.UUID, role string) *Reconciler {
	return &Reconciler{
		feed:          f,
		userID:        userID,
		role:          role,
		jobs:          make(map[uuid.UUID]*models.Job),
		openJobs:      make(map[uuid.UUID]*models.Job),
		notifications: make(chan Notification, notificationBuffer),
	}
}

// Seed preloads the viewer's jobs from an initial fetch, before Run starts
// applying pushed changes on top.
func (r *Reconciler) Seed(jobs []*models.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range jobs {
		cp := *j
		r.jobs[j.ID] = &cp
	}
}

// SeedOpenJobs preloads the open-job set for a worker's available list.
func (r *Reconciler) SeedOpenJobs(jobs []*models.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range jobs {
		cp := *j
		r.openJobs[j.ID] = &cp
	}
}

// Run subscribes to the viewer's feed channels and applies events until ctx
// is cancelled. Subscriptions are released on every exit path. A failure
// applying one event never stops the loop.
func (r *Reconciler) Run(ctx context.Context) error {
	filter := feed.Filter{}
	if r.role == models.RoleWorker {
		filter.WorkerID = &r.userID
	} else {
		filter.CustomerID = &r.userID
	}

	events, unsubscribe, err := r.feed.SubscribeJobs(ctx, filter)
	if err != nil {
		return err
	}
	defer unsubscribe()

	// Workers also watch the open-job pool for new and taken gigs.
	var openEvents <-chan feed.JobEvent
	if r.role == models.RoleWorker {
		var unsubOpen func()
		openEvents, unsubOpen, err = r.feed.SubscribeJobs(ctx, feed.Filter{OpenJobs: true})
		if err != nil {
			return err
		}
		defer unsubOpen()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			r.apply(ev, false)
		case ev, ok := <-openEvents:
			if !ok {
				openEvents = nil
				continue
			}
			r.apply(ev, true)
		}
	}
}

// Notifications returns the stream of derived signals.
func (r *Reconciler) Notifications() <-chan Notification {
	return r.notifications
}

// Job returns the local copy of one job, or nil if unknown.
func (r *Reconciler) Job(id uuid.UUID) *models.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		cp := *j
		return &cp
	}
	return nil
}

// OpenJobIDs returns the IDs currently in the worker's open-job set.
func (r *Reconciler) OpenJobIDs() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(r.openJobs))
	for id := range r.openJobs {
		ids = append(ids, id)
	}
	return ids
}

// HasOpenJob reports whether a job is still in the open-job set.
func (r *Reconciler) HasOpenJob(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.openJobs[id]
	return ok
}

// apply merges one pushed event. The pushed row replaces the local copy
// unconditionally; notifications fire only when the status actually changed,
// so at-least-once redelivery of the same state is a no-op.
func (r *Reconciler) apply(ev feed.JobEvent, fromOpenPool bool) {
	if ev.Job == nil {
		slog.Warn("reconciler dropped event with no job payload")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	job := ev.Job
	if fromOpenPool {
		r.applyOpenPoolLocked(ev)
		return
	}

	prev := r.jobs[job.ID]
	cp := *job
	r.jobs[job.ID] = &cp

	if prev != nil && prev.Status == job.Status {
		return
	}
	r.classifyLocked(job)
}

// applyOpenPoolLocked maintains the worker's open-job set.
func (r *Reconciler) applyOpenPoolLocked(ev feed.JobEvent) {
	job := ev.Job

	if job.Status == models.JobStatusOpen {
		if _, known := r.openJobs[job.ID]; known {
			return
		}
		// A worker does not get notified of their own postings; in practice
		// customers do not see the open pool at all.
		cp := *job
		r.openJobs[job.ID] = &cp
		if ev.Op == feed.OpInsert {
			r.notifyLocked(Notification{
				Category: CategoryNewJobAvailable,
				JobID:    job.ID,
				Message:  "New gig available: " + job.Title,
			})
		}
		return
	}

	// Any non-open status removes the job from the available list.
	if _, viewing := r.openJobs[job.ID]; !viewing {
		return
	}
	delete(r.openJobs, job.ID)

	// The accepting worker hears about their own win on the worker channel;
	// everyone else viewing the listing sees it disappear.
	if job.WorkerID != nil && *job.WorkerID == r.userID {
		return
	}
	r.notifyLocked(Notification{
		Category: CategoryJobTaken,
		JobID:    job.ID,
		Message:  "This gig was taken by another worker",
	})
}

// classifyLocked turns a status change into the role-appropriate signal.
// Classification is by new status alone; the old status is not needed.
func (r *Reconciler) classifyLocked(job *models.Job) {
	var n Notification
	n.JobID = job.ID

	switch job.Status {
	case models.JobStatusInProgress:
		if r.role == models.RoleCustomer {
			n.Category = CategoryWorkerAssigned
			n.Message = "A worker accepted your job and is on the way"
		} else {
			n.Category = CategoryAwaitingArrival
			n.Message = "Gig accepted, head to the job location"
		}
	case models.JobStatusPendingConfirmation:
		n.Category = CategoryAwaitingConfirmation
		if r.role == models.RoleCustomer {
			n.Message = "Work marked done, confirm to release payment"
		} else {
			n.Message = "Waiting for the customer to confirm completion"
		}
	case models.JobStatusCompleted:
		n.Category = CategoryPaymentReleased
		if r.role == models.RoleCustomer {
			n.Message = "Payment released to the worker"
		} else {
			n.Message = "Payment received in your wallet"
		}
	case models.JobStatusCancelled:
		n.Category = CategoryJobCancelled
		n.Message = "The job was cancelled"
	default:
		// A freshly opened job needs no signal for its own poster.
		return
	}

	r.notifyLocked(n)
}

func (r *Reconciler) notifyLocked(n Notification) {
	select {
	case r.notifications <- n:
	default:
		slog.Warn("notification dropped, consumer lagging",
			"category", n.Category, "job_id", n.JobID)
	}
}
