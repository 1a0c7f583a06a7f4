// Package feed is the realtime change feed: row-level job and location
// changes are published after every store write and pushed to subscribed
// clients. Per-channel delivery order is the only ordering guarantee;
// subscribers must treat redelivery of an identical state as a no-op.
package feed

import (
	"context"

	"github.com/google/uuid"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
)

// JobEvent is one pushed job-row change. Job is the full row after the
// change; the pushed version always wins over local optimistic state.
type JobEvent struct {
	Op  Op          `json:"op"`
	Job *models.Job `json:"job"`
}

// Filter scopes a job subscription to the rows a viewer cares about.
// Exactly one field should be set.
type Filter struct {
	CustomerID *uuid.UUID
	WorkerID   *uuid.UUID
	// OpenJobs subscribes to every event touching the open-job pool:
	// inserts of new open jobs and updates that take a job out of it.
	OpenJobs bool
}

// Feed publishes and subscribes to change events. Subscriptions return an
// unsubscribe func that must be called exactly once on teardown; it is safe
// to call more than once and releases the underlying connection.
type Feed interface {
	PublishJob(ctx context.Context, op Op, job *models.Job) error
	SubscribeJobs(ctx context.Context, f Filter) (<-chan JobEvent, func(), error)

	PublishLocation(ctx context.Context, userID uuid.UUID, sample models.LocationSample) error
	SubscribeLocation(ctx context.Context, userID uuid.UUID) (<-chan models.LocationSample, func(), error)
}
