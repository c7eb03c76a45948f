package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sellerpnl/backend/internal/infrastructure/logger"
	"github.com/sellerpnl/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader carries the client's retry key
	IdempotencyKeyHeader = "Idempotency-Key"
	// MaxIdempotencyKeyLength caps client keys
	MaxIdempotencyKeyLength = 128
)

// IdempotencyStore is the claim store behind Idempotency
type IdempotencyStore interface {
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Forget(ctx context.Context, key string) error
}

// Idempotency rejects a repeated POST or PUT carrying an Idempotency-Key that
// already succeeded within ttl. Failed requests release their key so the client
// can retry. Store errors let the request through.
func Idempotency(store IdempotencyStore, ttl time.Duration, base *zap.Logger) gin.HandlerFunc {
	if base == nil {
		base = zap.NewNop()
	}
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || (c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut) {
			c.Next()
			return
		}
		if len(key) > MaxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest,
				"Idempotency-Key is too long",
				GetRequestID(c),
			))
			return
		}

		ctx := c.Request.Context()
		claim := c.Request.Method + " " + c.Request.URL.Path + " " + key
		isNew, err := store.MarkProcessed(ctx, claim, ttl)
		if err != nil {
			logger.L(ctx, base).Warn("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !isNew {
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeDuplicateRequest,
				"A request with this Idempotency-Key was already processed",
				GetRequestID(c),
			))
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if err := store.Forget(context.WithoutCancel(ctx), claim); err != nil {
				logger.L(ctx, base).Warn("failed to release idempotency key", zap.Error(err))
			}
		}
	}
}
