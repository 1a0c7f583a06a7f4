package sim

import (
	"sync"
	"time"

	"github.com/tanmaydesai/gigflow/pkg/models"
)

// DefaultInterval is how often the simulator advances when the caller does
// not specify an interval.
const DefaultInterval = 3 * time.Second

// Update is one simulated position report. Progress runs from just above 0
// up to exactly 100 at the final route point.
type Update struct {
	Sample   models.LocationSample
	Progress float64
}

// Simulator walks a route at a fixed interval, emitting an Update per step.
// It owns its timer: Start launches a single goroutine, Stop cancels it, and
// reaching the end of the route stops it automatically after the 100% update.
// A Simulator must be stopped before being discarded or a dangling timer
// keeps emitting into a stale consumer.
//
// The emit callback runs with the simulator's lock held so that Stop, once
// returned, guarantees no further emissions. The callback must not call back
// into Start or Stop.
type Simulator struct {
	route []models.LatLng
	emit  func(Update)

	mu      sync.Mutex
	cursor  int
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewSimulator creates a simulator over the given route. The route must have
// at least two points; emit is invoked once per step.
func NewSimulator(route []models.LatLng, emit func(Update)) *Simulator {
	return &Simulator{route: route, emit: emit}
}

// Start begins emitting one update per interval. It is a no-op if the
// simulator is already running, so repeated calls never create a second
// concurrent timer. An interval <= 0 falls back to DefaultInterval.
func (s *Simulator) Start(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.loop(interval, s.stopCh, s.doneCh)
}

func (s *Simulator) loop(interval time.Duration, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !s.step(stopCh) {
				return
			}
		}
	}
}

// step advances the cursor and emits the current point. It returns false
// when the route is exhausted or the session was stopped meanwhile.
func (s *Simulator) step(stopCh chan struct{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-stopCh:
		return false
	default:
	}

	if s.cursor >= len(s.route)-1 {
		s.stopLocked()
		return false
	}
	s.cursor++

	point := s.route[s.cursor]
	progress := float64(s.cursor) / float64(len(s.route)-1) * 100

	if s.emit != nil {
		s.emit(Update{
			Sample:   models.LocationSample{Lat: point.Lat, Lng: point.Lng, Timestamp: time.Now().UTC()},
			Progress: progress,
		})
	}

	if s.cursor == len(s.route)-1 {
		s.stopLocked()
		return false
	}
	return true
}

// Stop cancels the timer. It is idempotent and safe to call whether or not
// the simulator is running; once it returns, no further updates are emitted.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Simulator) stopLocked() {
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
}

// Done returns a channel closed when the current run's goroutine exits,
// either by Stop or by reaching the end of the route. It returns nil if the
// simulator was never started.
func (s *Simulator) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doneCh
}

// Running reports whether the timer is currently active.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Progress returns the percentage of the route covered so far.
func (s *Simulator) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.cursor) / float64(len(s.route)-1) * 100
}
