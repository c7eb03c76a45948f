package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sellerpnl/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newClockedStore returns a store whose clock the test advances by hand
func newClockedStore(t *testing.T) (*InMemoryIdempotencyStore, func(time.Duration)) {
	t.Helper()
	store := NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
	return store, advance
}

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	ctx := context.Background()

	t.Run("first claim wins", func(t *testing.T) {
		store, _ := newClockedStore(t)

		isNew, err := store.MarkProcessed(ctx, "k1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "k1", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)
	})

	t.Run("expired claim can be taken again", func(t *testing.T) {
		store, advance := newClockedStore(t)

		_, err := store.MarkProcessed(ctx, "k2", time.Minute)
		require.NoError(t, err)
		advance(time.Minute)

		isNew, err := store.MarkProcessed(ctx, "k2", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("forget releases the claim", func(t *testing.T) {
		store, _ := newClockedStore(t)

		_, err := store.MarkProcessed(ctx, "k3", time.Hour)
		require.NoError(t, err)
		require.NoError(t, store.Forget(ctx, "k3"))

		processed, err := store.IsProcessed(ctx, "k3")
		require.NoError(t, err)
		assert.False(t, processed)
	})
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	ctx := context.Background()
	store, advance := newClockedStore(t)

	_, _ = store.MarkProcessed(ctx, "short-1", time.Minute)
	_, _ = store.MarkProcessed(ctx, "short-2", time.Minute)
	_, _ = store.MarkProcessed(ctx, "long", time.Hour)
	assert.Equal(t, 3, store.Size())

	advance(2 * time.Minute)
	store.cleanup()

	assert.Equal(t, 1, store.Size())
	processed, err := store.IsProcessed(ctx, "long")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestInMemoryIdempotencyStore_ConcurrentClaims(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()
	const workers = 100

	results := make(chan bool, workers)
	for range workers {
		go func() {
			isNew, err := store.MarkProcessed(ctx, "same-key", time.Hour)
			results <- err == nil && isNew
		}()
	}

	winners := 0
	for range workers {
		if <-results {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestRedisIdempotencyStore_WrapsErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	store := NewRedisIdempotencyStore(client, "")
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "k", time.Minute)
	assert.ErrorContains(t, err, "failed to claim idempotency key")

	_, err = store.IsProcessed(ctx, "k")
	assert.ErrorContains(t, err, "failed to check idempotency key")

	assert.ErrorContains(t, store.Forget(ctx, "k"), "failed to release idempotency key")

	// the store does not own an injected client
	assert.NoError(t, store.Close())
}

func TestIdempotencyStoreFactory_CreateStore(t *testing.T) {
	unreachable := config.RedisConfig{Host: "127.0.0.1", Port: 1}

	t.Run("memory backend", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory("memory", unreachable).CreateStore()
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("redis unavailable falls back", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory("redis", unreachable).CreateStore()
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("redis unavailable without fallback fails", func(t *testing.T) {
		_, err := NewIdempotencyStoreFactory("redis", unreachable, WithInMemoryFallback(false)).CreateStore()
		assert.Error(t, err)
	})
}
