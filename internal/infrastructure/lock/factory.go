package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	appcosting "github.com/sellerpnl/backend/internal/application/costing"
	"github.com/sellerpnl/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Factory creates the product locker named by configuration
type Factory struct {
	costing               config.CostingConfig
	redis                 config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable redis falls back to the in-memory locker.
// Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(costing config.CostingConfig, redisCfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		costing:               costing,
		redis:                 redisCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns the configured locker. The returned close func releases the redis client, if any.
func (f *Factory) Create() (appcosting.ProductLocker, func() error, error) {
	noop := func() error { return nil }
	if f.costing.LockBackend != "redis" {
		f.logger.Info("using in-memory product locks")
		return NewMemoryLocker(), noop, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     f.redis.Addr(),
		Password: f.redis.Password,
		DB:       f.redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if !f.allowInMemoryFallback {
			return nil, nil, fmt.Errorf("redis required for product locks but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory product locks. "+
			"Concurrent instances will not serialize costing writes.",
			zap.Error(err),
		)
		return NewMemoryLocker(), noop, nil
	}

	f.logger.Info("using Redis product locks", zap.String("addr", f.redis.Addr()))
	return NewRedisLocker(client, WithTTL(f.costing.LockTTL), WithLockLogger(f.logger)), client.Close, nil
}
