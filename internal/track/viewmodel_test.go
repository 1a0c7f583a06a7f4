package track

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanmaydesai/gigflow/internal/feed"
	"github.com/tanmaydesai/gigflow/internal/store"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

func trackedJob(location *models.LatLng) *models.Job {
	return &models.Job{
		ID:          uuid.New(),
		Title:       "fix the sink",
		Price:       80,
		ServiceType: models.ServiceTypeHomeService,
		Status:      models.JobStatusInProgress,
		CustomerID:  uuid.New(),
		Location:    location,
	}
}

func runViewModel(t *testing.T, vm *ViewModel, f *feed.MemoryFeed) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = vm.Run(ctx) }()

	require.Eventually(t, func() bool {
		return f.LocationSubscriberCount() == 1
	}, time.Second, 5*time.Millisecond, "view model did not subscribe")
}

func waitSnapshot(t *testing.T, vm *ViewModel) Snapshot {
	t.Helper()
	select {
	case s := <-vm.Updates():
		return s
	case <-time.After(time.Second):
		t.Fatal("expected a snapshot update")
		return Snapshot{}
	}
}

func TestViewModel_NoWorkerLocation(t *testing.T) {
	ms := store.NewMemoryStore()
	mf := feed.NewMemoryFeed()
	job := trackedJob(&models.LatLng{Lat: 12.9716, Lng: 77.5946})
	workerID := uuid.New()

	vm := NewViewModel(ms, mf, job, workerID)
	runViewModel(t, vm, mf)

	s := vm.Snapshot()
	assert.Nil(t, s.Worker, "no position reported yet")
	assert.Nil(t, s.DistanceKm, "no distance available without a worker position")
	assert.Nil(t, s.ETAMinutes)
}

func TestViewModel_RecomputesOnEachUpdate(t *testing.T) {
	ms := store.NewMemoryStore()
	mf := feed.NewMemoryFeed()
	jobLoc := models.LatLng{Lat: 12.9716, Lng: 77.5946}
	job := trackedJob(&jobLoc)
	workerID := uuid.New()

	vm := NewViewModel(ms, mf, job, workerID)
	runViewModel(t, vm, mf)
	ctx := context.Background()

	// Two positions, the second one closer to the job.
	require.NoError(t, mf.PublishLocation(ctx, workerID,
		models.LocationSample{Lat: 12.9716, Lng: 77.70, Timestamp: time.Now().UTC()}))
	far := waitSnapshot(t, vm)

	require.NoError(t, mf.PublishLocation(ctx, workerID,
		models.LocationSample{Lat: 12.9716, Lng: 77.62, Timestamp: time.Now().UTC()}))
	near := waitSnapshot(t, vm)

	require.NotNil(t, far.DistanceKm)
	require.NotNil(t, near.DistanceKm)
	assert.Less(t, *near.DistanceKm, *far.DistanceKm)

	require.NotNil(t, far.ETAMinutes)
	require.NotNil(t, near.ETAMinutes)
	assert.Less(t, *near.ETAMinutes, *far.ETAMinutes, "ETA shrinks as the worker approaches")
}

func TestViewModel_SeedsFromLastKnownPosition(t *testing.T) {
	ms := store.NewMemoryStore()
	mf := feed.NewMemoryFeed()
	jobLoc := models.LatLng{Lat: 12.9716, Lng: 77.5946}
	job := trackedJob(&jobLoc)
	workerID := uuid.New()
	ctx := context.Background()

	require.NoError(t, ms.CreateProfile(ctx, &models.Profile{UserID: workerID, Role: models.RoleWorker}))
	require.NoError(t, ms.WriteLocation(ctx, workerID,
		models.LocationSample{Lat: 12.95, Lng: 77.60, Timestamp: time.Now().UTC()}))

	vm := NewViewModel(ms, mf, job, workerID)
	runViewModel(t, vm, mf)

	s := vm.Snapshot()
	require.NotNil(t, s.Worker)
	require.NotNil(t, s.DistanceKm)
	assert.Positive(t, *s.DistanceKm)
}

func TestViewModel_JobWithoutLocation(t *testing.T) {
	ms := store.NewMemoryStore()
	mf := feed.NewMemoryFeed()
	job := trackedJob(nil)
	workerID := uuid.New()

	vm := NewViewModel(ms, mf, job, workerID)
	runViewModel(t, vm, mf)

	require.NoError(t, mf.PublishLocation(context.Background(), workerID,
		models.LocationSample{Lat: 12.95, Lng: 77.60, Timestamp: time.Now().UTC()}))
	s := waitSnapshot(t, vm)

	require.NotNil(t, s.Worker, "position is still tracked")
	assert.Nil(t, s.DistanceKm, "no distance without a job location")
	assert.Nil(t, s.ETAMinutes)
}

func TestViewModel_StreamEndClearsPosition(t *testing.T) {
	ms := store.NewMemoryStore()
	mf := feed.NewMemoryFeed()
	jobLoc := models.LatLng{Lat: 12.9716, Lng: 77.5946}
	job := trackedJob(&jobLoc)
	workerID := uuid.New()

	vm := NewViewModel(ms, mf, job, workerID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = vm.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return mf.LocationSubscriberCount() == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, mf.PublishLocation(ctx, workerID,
		models.LocationSample{Lat: 12.95, Lng: 77.60, Timestamp: time.Now().UTC()}))
	waitSnapshot(t, vm)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("view model did not stop")
	}
	assert.Equal(t, 0, mf.LocationSubscriberCount(), "subscription released on teardown")
}
