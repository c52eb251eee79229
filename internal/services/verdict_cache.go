package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vladimiradmaev/coaching-engine/internal/domain"
)

// VerdictCache stores external moderation verdicts keyed by a text digest.
type VerdictCache interface {
	Get(ctx context.Context, key string) (domain.ModerationResult, bool, error)
	Set(ctx context.Context, key string, result domain.ModerationResult, ttl time.Duration) error
}

type cachedVerdict struct {
	result    domain.ModerationResult
	expiresAt time.Time
}

// MemoryVerdictCache is an in-process VerdictCache.
type MemoryVerdictCache struct {
	mu      sync.RWMutex
	entries map[string]cachedVerdict
	now     func() time.Time
}

func NewMemoryVerdictCache() *MemoryVerdictCache {
	return &MemoryVerdictCache{
		entries: make(map[string]cachedVerdict),
		now:     time.Now,
	}
}

func (c *MemoryVerdictCache) Get(_ context.Context, key string) (domain.ModerationResult, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return domain.ModerationResult{}, false, nil
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return domain.ModerationResult{}, false, nil
	}
	return entry.result, true, nil
}

// Set stores result. A non-positive ttl never expires.
func (c *MemoryVerdictCache) Set(_ context.Context, key string, result domain.ModerationResult, ttl time.Duration) error {
	entry := cachedVerdict{result: result}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

// RedisVerdictCache shares verdicts between replicas.
type RedisVerdictCache struct {
	client *redis.Client
}

func NewRedisVerdictCache(client *redis.Client) *RedisVerdictCache {
	return &RedisVerdictCache{client: client}
}

func (c *RedisVerdictCache) key(digest string) string {
	return fmt.Sprintf("moderation:%s", digest)
}

func (c *RedisVerdictCache) Get(ctx context.Context, key string) (domain.ModerationResult, bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Result()
	if err == redis.Nil {
		return domain.ModerationResult{}, false, nil
	}
	if err != nil {
		return domain.ModerationResult{}, false, fmt.Errorf("failed to get verdict: %w", err)
	}

	var result domain.ModerationResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return domain.ModerationResult{}, false, fmt.Errorf("failed to unmarshal verdict: %w", err)
	}
	return result, true, nil
}

func (c *RedisVerdictCache) Set(ctx context.Context, key string, result domain.ModerationResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal verdict: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}
