package stats

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"surveyengine/internal/metrics"
	"surveyengine/internal/model"
)

// QueueConfig sizes the worker pool and its retry budget
type QueueConfig struct {
	Workers     int
	Size        int
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration // per attempt
}

// DefaultQueueConfig gives every update five attempts
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Workers:     4,
		Size:        1024,
		MaxAttempts: 5,
		RetryDelay:  50 * time.Millisecond,
		Timeout:     5 * time.Second,
	}
}

// Queue applies bucket deltas in the background. Updates that still fail after the
// attempt budget are logged and dropped; nothing is reported back to the submitter.
type Queue struct {
	store   Store
	cfg     QueueConfig
	tasks   chan model.BucketChange
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewQueue creates a queue in front of store. Call Run to start the workers.
func NewQueue(store Store, cfg QueueConfig, m *metrics.Metrics) *Queue {
	def := DefaultQueueConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if m == nil {
		m = metrics.New("surveyengine")
	}
	return &Queue{
		store:   store,
		cfg:     cfg,
		tasks:   make(chan model.BucketChange, cfg.Size),
		metrics: m,
		log:     slog.Default().With("component", "stats"),
	}
}

// Enqueue schedules changes without blocking. A full queue drops the change.
func (q *Queue) Enqueue(changes ...model.BucketChange) {
	for _, c := range changes {
		select {
		case q.tasks <- c:
			q.metrics.StatsQueueSize.Inc()
		default:
			q.metrics.StatsTasks.WithLabelValues(metrics.StatsRejected).Inc()
			q.log.Error("statistics queue full, dropping update",
				"survey", c.Key.Survey, "item", c.Key.Item, "bucket", c.Key.Time)
		}
	}
}

// Pending is the number of queued updates
func (q *Queue) Pending() int {
	return len(q.tasks)
}

// Run starts the workers and blocks until ctx is cancelled
func (q *Queue) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case c := <-q.tasks:
					q.metrics.StatsQueueSize.Dec()
					q.process(ctx, c)
				}
			}
		})
	}
	err := g.Wait()
	if n := q.Pending(); n > 0 {
		q.log.Warn("statistics queue stopped with pending updates", "pending", n)
	}
	return err
}

// process applies one change with bounded retries
func (q *Queue) process(ctx context.Context, c model.BucketChange) {
	attempts := 0
	op := func() error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, q.cfg.Timeout)
		defer cancel()
		return q.store.ApplyDelta(attemptCtx, c.Key, c.Delta)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = q.cfg.RetryDelay
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(q.cfg.MaxAttempts-1)), ctx)

	err := backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		q.metrics.StatsTasks.WithLabelValues(metrics.StatsRetried).Inc()
		q.log.Debug("retrying statistics update", "item", c.Key.Item, "attempt", attempts, "wait", wait, "error", err)
	})
	if err != nil {
		q.metrics.StatsTasks.WithLabelValues(metrics.StatsDropped).Inc()
		q.log.Error("dropping statistics update",
			"survey", c.Key.Survey,
			"item", c.Key.Item,
			"question", c.Key.Question,
			"bucket", c.Key.Time,
			"attempts", attempts,
			"error", err)
		return
	}
	q.metrics.StatsTasks.WithLabelValues(metrics.StatsApplied).Inc()
}
