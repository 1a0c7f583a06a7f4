package feed

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

// MemoryFeed is an in-process implementation of Feed used for unit tests and
// single-node deployments. Delivery order per subscriber matches publish
// order, mirroring the per-channel guarantee of the Redis feed.
type MemoryFeed struct {
	mu      sync.Mutex
	nextID  int
	jobSubs map[int]*jobSubscriber
	locSubs map[int]*locationSubscriber
}

type jobSubscriber struct {
	filter Filter
	ch     chan JobEvent
}

type locationSubscriber struct {
	userID uuid.UUID
	ch     chan models.LocationSample
}

// NewMemoryFeed instantiates an empty in-memory feed.
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		jobSubs: make(map[int]*jobSubscriber),
		locSubs: make(map[int]*locationSubscriber),
	}
}

func (f *MemoryFeed) PublishJob(ctx context.Context, op Op, job *models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, sub := range f.jobSubs {
		if !matches(sub.filter, job) {
			continue
		}
		cp := *job
		select {
		case sub.ch <- JobEvent{Op: op, Job: &cp}:
		default:
			// Subscriber lagging; drop, same as the Redis feed.
		}
	}
	return nil
}

func matches(filter Filter, job *models.Job) bool {
	switch {
	case filter.CustomerID != nil:
		return job.CustomerID == *filter.CustomerID
	case filter.WorkerID != nil:
		return job.WorkerID != nil && *job.WorkerID == *filter.WorkerID
	case filter.OpenJobs:
		return true
	}
	return false
}

func (f *MemoryFeed) SubscribeJobs(ctx context.Context, filter Filter) (<-chan JobEvent, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	sub := &jobSubscriber{filter: filter, ch: make(chan JobEvent, subscriberBuffer)}
	f.jobSubs[id] = sub

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.jobSubs, id)
			close(sub.ch)
		})
	}
	return sub.ch, unsubscribe, nil
}

func (f *MemoryFeed) PublishLocation(ctx context.Context, userID uuid.UUID, sample models.LocationSample) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, sub := range f.locSubs {
		if sub.userID != userID {
			continue
		}
		select {
		case sub.ch <- sample:
		default:
		}
	}
	return nil
}

func (f *MemoryFeed) SubscribeLocation(ctx context.Context, userID uuid.UUID) (<-chan models.LocationSample, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	sub := &locationSubscriber{userID: userID, ch: make(chan models.LocationSample, subscriberBuffer)}
	f.locSubs[id] = sub

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.locSubs, id)
			close(sub.ch)
		})
	}
	return sub.ch, unsubscribe, nil
}

// JobSubscriberCount reports active job subscriptions. Test helper for
// verifying that teardown released every subscription.
func (f *MemoryFeed) JobSubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobSubs)
}

// LocationSubscriberCount reports active location subscriptions.
func (f *MemoryFeed) LocationSubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.locSubs)
}
