package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"surveyengine/internal/metrics"
	"surveyengine/internal/model"
)

// Dashboard message types
const (
	MsgStatisticsDelta   = "statistics_delta"
	MsgResponseCompleted = "response_completed"
)

// LiveNotifier coalesces statistics deltas per survey and pushes them to dashboards at
// most once per interval per survey
type LiveNotifier struct {
	mu          sync.Mutex
	pending     map[string]map[model.BucketKey]model.BucketDelta
	order       map[string][]model.BucketKey
	limiters    map[string]*rate.Limiter
	interval    time.Duration
	broadcaster Broadcaster
	metrics     *metrics.Metrics
}

// NewLiveNotifier creates a notifier. Call Run to flush periodically.
func NewLiveNotifier(b Broadcaster, interval time.Duration, m *metrics.Metrics) *LiveNotifier {
	if interval <= 0 {
		interval = time.Second
	}
	return &LiveNotifier{
		pending:     make(map[string]map[model.BucketKey]model.BucketDelta),
		order:       make(map[string][]model.BucketKey),
		limiters:    make(map[string]*rate.Limiter),
		interval:    interval,
		broadcaster: b,
		metrics:     m,
	}
}

// Notify queues a delta for the next push
func (n *LiveNotifier) Notify(delta model.StatisticsDelta) {
	if len(delta.Buckets) == 0 {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	merged, ok := n.pending[delta.Survey]
	if !ok {
		merged = make(map[model.BucketKey]model.BucketDelta)
		n.pending[delta.Survey] = merged
	}
	for _, c := range delta.Buckets {
		d, seen := merged[c.Key]
		if !seen {
			n.order[delta.Survey] = append(n.order[delta.Survey], c.Key)
		}
		d.Merge(c.Delta)
		merged[c.Key] = d
	}
}

// Flush pushes pending deltas of every survey whose rate allows it
func (n *LiveNotifier) Flush() {
	n.mu.Lock()
	var ready []model.StatisticsDelta
	for survey, merged := range n.pending {
		if !n.limiter(survey).Allow() {
			continue
		}
		out := model.StatisticsDelta{Survey: survey}
		for _, key := range n.order[survey] {
			d := merged[key]
			if d.IsZero() {
				continue
			}
			out.Buckets = append(out.Buckets, model.BucketChange{Key: key, Delta: d})
		}
		delete(n.pending, survey)
		delete(n.order, survey)
		if len(out.Buckets) > 0 {
			ready = append(ready, out)
		}
	}
	n.mu.Unlock()

	if n.broadcaster == nil {
		return
	}
	for _, d := range ready {
		n.broadcaster.BroadcastToSurvey(d.Survey, MsgStatisticsDelta, d)
		if n.metrics != nil {
			n.metrics.LivePushes.Inc()
		}
	}
}

// Pending reports whether a survey has deltas waiting
func (n *LiveNotifier) Pending(survey string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.pending[survey]
	return ok
}

// Forget drops state of a survey whose last dashboard disconnected
func (n *LiveNotifier) Forget(survey string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.pending, survey)
	delete(n.order, survey)
	delete(n.limiters, survey)
}

// Run flushes until ctx is cancelled
func (n *LiveNotifier) Run(ctx context.Context) error {
	ticker := time.NewTicker(n.interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			n.Flush()
			return nil
		case <-ticker.C:
			n.Flush()
		}
	}
}

func (n *LiveNotifier) limiter(survey string) *rate.Limiter {
	l, ok := n.limiters[survey]
	if !ok {
		l = rate.NewLimiter(rate.Every(n.interval), 1)
		n.limiters[survey] = l
	}
	return l
}
