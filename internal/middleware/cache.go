package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const responseMetaKey = "response_meta"

// responseMeta carries per-request bookkeeping that handlers may expose
// through the response envelope's meta block.
type responseMeta struct {
	startedAt time.Time
	cacheHit  *bool
}

// WithResponseMeta attaches a metadata holder to each request so cache
// markers and timing can be surfaced alongside the payload.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &responseMeta{startedAt: time.Now()})
		c.Next()
	}
}

// SetCacheHit marks whether the current response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	if meta := metaFrom(c); meta != nil {
		meta.cacheHit = &hit
	}
}

// ExtractMeta flattens the recorded metadata into the shape the response
// envelope expects. Returns nil when the middleware is not installed.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	meta := metaFrom(c)
	if meta == nil {
		return nil
	}
	out := map[string]interface{}{
		"processing_time_ms": time.Since(meta.startedAt).Milliseconds(),
	}
	if meta.cacheHit != nil {
		out["cache_hit"] = *meta.cacheHit
	}
	return out
}

func metaFrom(c *gin.Context) *responseMeta {
	if c == nil {
		return nil
	}
	if raw, ok := c.Get(responseMetaKey); ok {
		if meta, ok := raw.(*responseMeta); ok {
			return meta
		}
	}
	return nil
}
