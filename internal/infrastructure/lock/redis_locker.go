package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultLockTTL  = 30 * time.Second
	defaultWaitTime = 10 * time.Second
	retryInterval   = 50 * time.Millisecond
)

// ErrLockTimeout is returned when a product lock could not be obtained in time
var ErrLockTimeout = errors.New("could not obtain product lock")

// RedisLocker serializes product writers across processes with a redis lease.
// Readers are exclusive too: redislock has no shared mode.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	logger *zap.Logger
}

// RedisLockerOption is a functional option for configuring the locker
type RedisLockerOption func(*RedisLocker)

// WithTTL sets the lease of each lock
func WithTTL(ttl time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithWaitTime bounds how long Lock waits when ctx has no deadline
func WithWaitTime(wait time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if wait > 0 {
			l.wait = wait
		}
	}
}

// WithLockLogger sets the logger
func WithLockLogger(logger *zap.Logger) RedisLockerOption {
	return func(l *RedisLocker) {
		l.logger = logger
	}
}

// NewRedisLocker creates a locker on an existing client
func NewRedisLocker(client redis.UniversalClient, opts ...RedisLockerOption) *RedisLocker {
	l := &RedisLocker{
		client: redislock.New(client),
		ttl:    defaultLockTTL,
		wait:   defaultWaitTime,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key returns the redis key guarding a product
func Key(storeID uuid.UUID, barcode string) string {
	return fmt.Sprintf("lock:costing:%s:%s", storeID, barcode)
}

// Lock obtains the product lease, retrying until ctx or the wait time expires
func (l *RedisLocker) Lock(ctx context.Context, storeID uuid.UUID, barcode string) (func(), error) {
	key := Key(storeID, barcode)

	obtainCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		obtainCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	lease, err := l.client.Obtain(obtainCtx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(retryInterval),
	})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	return func() {
		if err := lease.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("failed to release product lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// RLock is the same lease as Lock
func (l *RedisLocker) RLock(ctx context.Context, storeID uuid.UUID, barcode string) (func(), error) {
	return l.Lock(ctx, storeID, barcode)
}
