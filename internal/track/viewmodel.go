package track

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tanmaydesai/gigflow/internal/feed"
	"github.com/tanmaydesai/gigflow/internal/geo"
	"github.com/tanmaydesai/gigflow/internal/store"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

// Snapshot is the presentation state for live tracking: the worker's latest
// position and the derived distance/ETA to the job location. Distance and
// ETA are nil when either the worker position or the job location is absent
// ("no distance available"), never stale values.
type Snapshot struct {
	JobID      uuid.UUID              `json:"job_id"`
	Worker     *models.LocationSample `json:"worker,omitempty"`
	DistanceKm *float64               `json:"distance_km,omitempty"`
	ETAMinutes *float64               `json:"eta_minutes,omitempty"`
}

// ViewModel follows one worker's position relative to a job's fixed
// location, recomputing distance and ETA on every position update.
type ViewModel struct {
	store       store.Store
	feed        feed.Feed
	jobID       uuid.UUID
	jobLocation *models.LatLng
	workerID    uuid.UUID

	mu      sync.Mutex
	current Snapshot

	updates chan Snapshot
}

// NewViewModel creates a view model for the given job and its assigned
// worker. The job's location may be nil; distance stays unavailable then.
func NewViewModel(s store.Store, f feed.Feed, job *models.Job, workerID uuid.UUID) *ViewModel {
	return &ViewModel{
		store:       s,
		feed:        f,
		jobID:       job.ID,
		jobLocation: job.Location,
		workerID:    workerID,
		current:     Snapshot{JobID: job.ID},
		updates:     make(chan Snapshot, 16),
	}
}

// Run reads the worker's last known position, subscribes to their location
// stream, and recomputes the snapshot on every sample until ctx is
// cancelled. The subscription is released on every exit path. When the
// stream ends the worker position is treated as absent again.
func (v *ViewModel) Run(ctx context.Context) error {
	// Last-known position first so the view is not empty until the worker
	// moves.
	if sample, err := v.store.ReadLocation(ctx, v.workerID); err == nil && sample != nil {
		v.applySample(*sample)
	}

	stream, unsubscribe, err := v.feed.SubscribeLocation(ctx, v.workerID)
	if err != nil {
		return err
	}
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample, ok := <-stream:
			if !ok {
				v.clearWorker()
				return nil
			}
			v.applySample(sample)
		}
	}
}

// Snapshot returns the current view state.
func (v *ViewModel) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Updates streams a snapshot per recomputation. Slow consumers miss
// intermediate snapshots, never the ability to read the latest via Snapshot.
func (v *ViewModel) Updates() <-chan Snapshot {
	return v.updates
}

func (v *ViewModel) applySample(sample models.LocationSample) {
	v.mu.Lock()
	defer v.mu.Unlock()

	cp := sample
	v.current.Worker = &cp
	v.current.DistanceKm = nil
	v.current.ETAMinutes = nil

	if v.jobLocation != nil {
		distance := geo.DistanceKm(sample.LatLng(), *v.jobLocation)
		eta := geo.ETAMinutes(distance)
		v.current.DistanceKm = &distance
		v.current.ETAMinutes = &eta
	}

	v.emitLocked()
}

// clearWorker marks the position as unavailable rather than freezing the
// last-known values forever.
func (v *ViewModel) clearWorker() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.current.Worker = nil
	v.current.DistanceKm = nil
	v.current.ETAMinutes = nil
	v.emitLocked()
}

func (v *ViewModel) emitLocked() {
	select {
	case v.updates <- v.current:
	default:
	}
}
