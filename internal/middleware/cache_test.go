package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMetaRequiresMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Nil(t, ExtractMeta(c))
	assert.Nil(t, ExtractMeta(nil))

	// Marking a cache hit without the holder installed is a no-op.
	SetCacheHit(c, true)
	assert.Nil(t, ExtractMeta(c))
}

func TestResponseMetaRecordsTimingAndCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())

	var captured map[string]interface{}
	r.GET("/cached", func(c *gin.Context) {
		SetCacheHit(c, true)
		captured = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cached", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	assert.Equal(t, true, captured["cache_hit"])

	elapsed, ok := captured["processing_time_ms"].(int64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, elapsed, int64(0))
}

func TestResponseMetaOmitsCacheHitWhenUnset(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())

	var captured map[string]interface{}
	r.GET("/plain", func(c *gin.Context) {
		captured = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain", nil))

	require.NotNil(t, captured)
	_, present := captured["cache_hit"]
	assert.False(t, present)
	assert.Contains(t, captured, "processing_time_ms")
}
