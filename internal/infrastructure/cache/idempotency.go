// Package cache holds short-lived shared state used by the HTTP layer.
package cache

import (
	"context"
	"time"
)

// IdempotencyStore remembers Idempotency-Key claims for a bounded time
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl. It returns false when the key is already claimed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// IsProcessed reports whether key is currently claimed
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Forget drops a claim so the request can be retried
	Forget(ctx context.Context, key string) error
	Close() error
}
