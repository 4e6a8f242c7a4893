package stats

import (
	"context"
	"sync"
	"time"

	"surveyengine/internal/model"
)

// MemoryStore keeps buckets in process. It follows the same floor-at-zero rule as the
// Mongo store and backs tests and local runs without a database.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[model.BucketKey]*model.QuestionStatistic
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[model.BucketKey]*model.QuestionStatistic)}
}

func (s *MemoryStore) ApplyDelta(ctx context.Context, key model.BucketKey, delta model.BucketDelta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		b = &model.QuestionStatistic{BucketKey: key, Data: make(map[string]int)}
		s.buckets[key] = b
	}
	for k, n := range delta.Data {
		if v := floor(b.Data[k] + n); v > 0 {
			b.Data[k] = v
		} else {
			delete(b.Data, k)
		}
	}
	b.Answered = floor(b.Answered + delta.Answered)
	b.Skipped = floor(b.Skipped + delta.Skipped)
	b.SkippedByFlow = floor(b.SkippedByFlow + delta.SkippedByFlow)
	b.UpdatedAt = time.Now()
	return nil
}

// Get returns a copy of the bucket at key, or nil
func (s *MemoryStore) Get(key model.BucketKey) *model.QuestionStatistic {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[key]
	if !ok {
		return nil
	}
	cp := *b
	cp.Data = make(map[string]int, len(b.Data))
	for k, v := range b.Data {
		cp.Data[k] = v
	}
	return &cp
}

// Buckets returns copies of every bucket of an item
func (s *MemoryStore) Buckets(item string) []*model.QuestionStatistic {
	s.mu.Lock()
	keys := make([]model.BucketKey, 0)
	for k := range s.buckets {
		if k.Item == item {
			keys = append(keys, k)
		}
	}
	s.mu.Unlock()

	out := make([]*model.QuestionStatistic, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.Get(k))
	}
	return out
}

func floor(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
