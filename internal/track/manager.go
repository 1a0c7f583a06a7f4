// Package track connects positioning sources to the rest of the system: it
// records location samples (from a device sensor or the motion simulator)
// into the store and onto the feed, and derives distance/ETA view state for
// anyone watching a worker approach a job.
package track

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tanmaydesai/gigflow/internal/feed"
	"github.com/tanmaydesai/gigflow/internal/sim"
	"github.com/tanmaydesai/gigflow/internal/store"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

const recordTimeout = 5 * time.Second

// Manager owns at most one tracking session per worker. Starting a new
// session stops and discards any prior one for the same worker; sessions are
// stopped when the worker leaves in_progress and on shutdown, so no timer
// outlives its consumer.
type Manager struct {
	store store.Store
	feed  feed.Feed

	mu       sync.Mutex
	sessions map[uuid.UUID]*sim.Simulator
}

func NewManager(s store.Store, f feed.Feed) *Manager {
	return &Manager{
		store:    s,
		feed:     f,
		sessions: make(map[uuid.UUID]*sim.Simulator),
	}
}

// Record persists one location sample and pushes it to subscribers. This is
// the single entry point for both real sensor reports and simulated ones.
func (m *Manager) Record(ctx context.Context, workerID uuid.UUID, sample models.LocationSample) error {
	if err := m.store.WriteLocation(ctx, workerID, sample); err != nil {
		return err
	}
	if err := m.feed.PublishLocation(ctx, workerID, sample); err != nil {
		// The store holds the authoritative sample; subscribers catch up on
		// the next report.
		slog.Warn("failed to publish location", "worker_id", workerID, "error", err)
	}
	return nil
}

// StartSimulated begins a simulated navigation session for a worker from
// start to end, emitting a sample every interval. Any prior session for the
// same worker is stopped first.
func (m *Manager) StartSimulated(workerID uuid.UUID, start, end models.LatLng, interval time.Duration) {
	route := sim.GenerateRoute(start, end)

	simulator := sim.NewSimulator(route, func(u sim.Update) {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := m.Record(ctx, workerID, u.Sample); err != nil {
			slog.Warn("failed to record simulated location",
				"worker_id", workerID, "progress", u.Progress, "error", err)
		}
	})

	m.mu.Lock()
	if prev, ok := m.sessions[workerID]; ok {
		prev.Stop()
	}
	m.sessions[workerID] = simulator
	m.mu.Unlock()

	simulator.Start(interval)
	slog.Info("simulated tracking started", "worker_id", workerID, "points", len(route))
}

// Stop ends the worker's tracking session, if any. Idempotent.
func (m *Manager) Stop(workerID uuid.UUID) {
	m.mu.Lock()
	simulator, ok := m.sessions[workerID]
	if ok {
		delete(m.sessions, workerID)
	}
	m.mu.Unlock()

	if ok {
		simulator.Stop()
		slog.Info("tracking stopped", "worker_id", workerID)
	}
}

// StopAll ends every active session. Called on shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[uuid.UUID]*sim.Simulator)
	m.mu.Unlock()

	for workerID, simulator := range sessions {
		simulator.Stop()
		slog.Info("tracking stopped", "worker_id", workerID)
	}
}

// Active reports whether the worker currently has a running session.
func (m *Manager) Active(workerID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	simulator, ok := m.sessions[workerID]
	return ok && simulator.Running()
}

// Progress returns the route progress of the worker's session in percent,
// or false if no session exists.
func (m *Manager) Progress(workerID uuid.UUID) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	simulator, ok := m.sessions[workerID]
	if !ok {
		return 0, false
	}
	return simulator.Progress(), true
}
