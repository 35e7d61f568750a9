package data

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	apperrors "github.com/crosspost-labs/publisher-go/internal/errors"
	"github.com/crosspost-labs/publisher-go/internal/testutil"
)

func TestRedisContentCache_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	client := testutil.SetupTestRedis(t)
	cache := NewRedisContentCache(client, time.Hour)
	ctx := context.Background()

	ref := model.ContentReference{
		ID:      "content-1",
		Payload: json.RawMessage(`{"text": "hello world"}`),
		State:   model.ContentStateReady,
	}

	t.Run("cache and resolve", func(t *testing.T) {
		require.NoError(t, cache.Cache(ctx, ref, time.Time{}))

		got, err := cache.Resolve(ctx, "content-1")
		require.NoError(t, err)
		assert.Equal(t, ref, got)

		ttl, err := client.TTL(ctx, contentKeyPrefix+"content-1").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Hour)
	})

	t.Run("far schedule extends the ttl", func(t *testing.T) {
		far := ref
		far.ID = "content-far"
		keepUntil := time.Now().Add(72 * time.Hour)
		require.NoError(t, cache.Cache(ctx, far, keepUntil))

		ttl, err := client.TTL(ctx, contentKeyPrefix+"content-far").Result()
		require.NoError(t, err)
		// Base TTL on top of the scheduled time leaves room for retries.
		assert.Greater(t, ttl, 72*time.Hour)
		assert.LessOrEqual(t, ttl, 73*time.Hour)
	})

	t.Run("miss is not found", func(t *testing.T) {
		_, err := cache.Resolve(ctx, "nope")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("empty id rejected", func(t *testing.T) {
		err := cache.Cache(ctx, model.ContentReference{Payload: json.RawMessage(`{}`)}, time.Time{})
		assert.Error(t, err)
	})
}
