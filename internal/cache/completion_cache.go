package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CompletionCache remembers which responses already announced their completion
type CompletionCache interface {
	// MarkCompleted returns true only for the first call per response until Reset
	MarkCompleted(ctx context.Context, responseID string) (bool, error)
	Reset(ctx context.Context, responseID string) error
}

type completionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCompletionCache(client *redis.Client) CompletionCache {
	return &completionCache{
		client: client,
		ttl:    7 * 24 * time.Hour,
	}
}

func (c *completionCache) key(responseID string) string {
	return fmt.Sprintf("response:%s:completed", responseID)
}

func (c *completionCache) MarkCompleted(ctx context.Context, responseID string) (bool, error) {
	return c.client.SetNX(ctx, c.key(responseID), time.Now().Unix(), c.ttl).Result()
}

func (c *completionCache) Reset(ctx context.Context, responseID string) error {
	return c.client.Del(ctx, c.key(responseID)).Err()
}
