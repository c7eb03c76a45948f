package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sellerpnl/backend/internal/interfaces/http/dto"
)

// RouteBodyLimit raises or lowers the limit for routes whose pattern ends in Suffix
type RouteBodyLimit struct {
	Suffix   string
	MaxBytes int64
}

// BodyLimit rejects requests whose declared body exceeds maxBytes and caps
// streamed bodies at the same size. The first matching override wins.
func BodyLimit(maxBytes int64, overrides ...RouteBodyLimit) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := maxBytes
		if route := c.FullPath(); route != "" {
			for _, o := range overrides {
				if strings.HasSuffix(route, o.Suffix) {
					limit = o.MaxBytes
					break
				}
			}
		}

		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRequestTooLarge,
				"Request body exceeds maximum allowed size",
				GetRequestID(c),
			))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
