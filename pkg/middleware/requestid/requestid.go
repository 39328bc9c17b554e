// Package requestid tags every request with a correlation ID so log lines
// and error reports can be tied back to a single call.
package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// Header is the request/response header carrying the correlation ID.
	Header     = "X-Request-ID"
	contextKey = "request_id"
)

// Middleware propagates the caller-supplied ID when present and mints a
// fresh one otherwise. The ID is echoed back on the response.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(contextKey, id)
		c.Writer.Header().Set(Header, id)
		c.Next()
	}
}

// Value returns the correlation ID for the current request, or "" when the
// middleware is not installed.
func Value(c *gin.Context) string {
	if raw, ok := c.Get(contextKey); ok {
		if id, ok := raw.(string); ok {
			return id
		}
	}
	return ""
}
