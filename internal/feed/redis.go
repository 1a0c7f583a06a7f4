package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

// receiveBackoff is how long a subscriber waits after a transient receive
// failure before trying again.
const receiveBackoff = time.Second

// subscriberBuffer bounds how far a slow consumer may fall behind before
// events are dropped; the authoritative state lives in the store.
const subscriberBuffer = 64

// RedisFeed implements Feed over Redis pub/sub. Every job write fans out to
// the customer channel, the open-jobs channel, and (when assigned) the
// worker channel; location writes go to one channel per tracked user.
type RedisFeed struct {
	client *redis.Client
}

// NewRedisFeed creates a RedisFeed from a Redis URL.
func NewRedisFeed(redisURL string) (*RedisFeed, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisFeed{client: redis.NewClient(opts)}, nil
}

// NewRedisFeedFromClient wraps an existing client, sharing its connection pool.
func NewRedisFeedFromClient(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client}
}

func (f *RedisFeed) Ping(ctx context.Context) error {
	return f.client.Ping(ctx).Err()
}

func (f *RedisFeed) Close() error {
	return f.client.Close()
}

func jobCustomerChannel(id uuid.UUID) string { return "jobs:customer:" + id.String() }
func jobWorkerChannel(id uuid.UUID) string   { return "jobs:worker:" + id.String() }
func locationChannel(id uuid.UUID) string    { return "loc:" + id.String() }

const openJobsChannel = "jobs:open"

func (f *RedisFeed) PublishJob(ctx context.Context, op Op, job *models.Job) error {
	payload, err := json.Marshal(JobEvent{Op: op, Job: job})
	if err != nil {
		return fmt.Errorf("marshal job event: %w", err)
	}

	channels := []string{jobCustomerChannel(job.CustomerID), openJobsChannel}
	if job.WorkerID != nil {
		channels = append(channels, jobWorkerChannel(*job.WorkerID))
	}

	for _, ch := range channels {
		if err := f.client.Publish(ctx, ch, payload).Err(); err != nil {
			return fmt.Errorf("publish job event to %s: %w", ch, err)
		}
	}
	return nil
}

func (f *RedisFeed) SubscribeJobs(ctx context.Context, filter Filter) (<-chan JobEvent, func(), error) {
	var channels []string
	switch {
	case filter.CustomerID != nil:
		channels = []string{jobCustomerChannel(*filter.CustomerID)}
	case filter.WorkerID != nil:
		channels = []string{jobWorkerChannel(*filter.WorkerID)}
	case filter.OpenJobs:
		channels = []string{openJobsChannel}
	default:
		return nil, nil, fmt.Errorf("subscribe jobs: empty filter")
	}

	sub := f.client.Subscribe(ctx, channels...)
	out := make(chan JobEvent, subscriberBuffer)
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)
		for {
			msg, err := sub.ReceiveMessage(subCtx)
			if err != nil {
				if subCtx.Err() != nil {
					return
				}
				// Transient transport failure: back off and let go-redis
				// re-establish the subscription.
				slog.Warn("job feed receive failed, retrying", "error", err)
				select {
				case <-subCtx.Done():
					return
				case <-time.After(receiveBackoff):
				}
				continue
			}

			var ev JobEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				slog.Warn("job feed dropped malformed event", "error", err)
				continue
			}
			select {
			case out <- ev:
			case <-subCtx.Done():
				return
			default:
				slog.Warn("job feed subscriber lagging, dropping event", "job_id", ev.Job.ID)
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			cancel()
			_ = sub.Close()
		})
	}
	return out, unsubscribe, nil
}

func (f *RedisFeed) PublishLocation(ctx context.Context, userID uuid.UUID, sample models.LocationSample) error {
	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal location sample: %w", err)
	}
	if err := f.client.Publish(ctx, locationChannel(userID), payload).Err(); err != nil {
		return fmt.Errorf("publish location: %w", err)
	}
	return nil
}

func (f *RedisFeed) SubscribeLocation(ctx context.Context, userID uuid.UUID) (<-chan models.LocationSample, func(), error) {
	sub := f.client.Subscribe(ctx, locationChannel(userID))
	out := make(chan models.LocationSample, subscriberBuffer)
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)
		for {
			msg, err := sub.ReceiveMessage(subCtx)
			if err != nil {
				if subCtx.Err() != nil {
					return
				}
				slog.Warn("location feed receive failed, retrying", "error", err)
				select {
				case <-subCtx.Done():
					return
				case <-time.After(receiveBackoff):
				}
				continue
			}

			var sample models.LocationSample
			if err := json.Unmarshal([]byte(msg.Payload), &sample); err != nil {
				slog.Warn("location feed dropped malformed sample", "error", err)
				continue
			}
			select {
			case out <- sample:
			case <-subCtx.Done():
				return
			default:
				// Positions supersede each other; dropping a stale one is fine.
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			cancel()
			_ = sub.Close()
		})
	}
	return out, unsubscribe, nil
}
