package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crosspost-labs/publisher-go/internal/core"
	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	apperrors "github.com/crosspost-labs/publisher-go/internal/errors"
)

const contentKeyPrefix = "publisher:content:"

// RedisContentCache caches submitted content references so the queue
// dispatcher loop can resolve them when a scheduled job comes due.
type RedisContentCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisContentCache creates a RedisContentCache. TTL defaults to 24h.
func NewRedisContentCache(client redis.UniversalClient, ttl time.Duration) *RedisContentCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisContentCache{client: client, ttl: ttl}
}

var _ core.ContentResolver = (*RedisContentCache)(nil)
var _ core.ContentCacher = (*RedisContentCache)(nil)

// Cache stores the content reference as JSON. The entry lives for the base
// TTL past keepUntil, so a far-future schedule keeps its payload through the
// scheduled dispatch and its retries.
func (c *RedisContentCache) Cache(ctx context.Context, ref model.ContentReference, keepUntil time.Time) error {
	if ref.ID == "" {
		return errors.New("content id cannot be empty")
	}
	b, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}
	ttl := c.ttl
	if until := time.Until(keepUntil) + c.ttl; until > ttl {
		ttl = until
	}
	if err := c.client.Set(ctx, contentKeyPrefix+ref.ID, b, ttl).Err(); err != nil {
		return fmt.Errorf("redis set content: %w", err)
	}
	return nil
}

// Resolve returns the cached content reference, or NotFound.
func (c *RedisContentCache) Resolve(ctx context.Context, contentID string) (model.ContentReference, error) {
	data, err := c.client.Get(ctx, contentKeyPrefix+contentID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.ContentReference{}, apperrors.NotFoundf("content not found: %s", contentID)
		}
		return model.ContentReference{}, fmt.Errorf("redis get content: %w", err)
	}

	var ref model.ContentReference
	if err := json.Unmarshal(data, &ref); err != nil {
		return model.ContentReference{}, fmt.Errorf("unmarshal content %s: %w", contentID, err)
	}
	return ref, nil
}
