package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"tutoring/internal/metrics"
)

func TestTokenBucketRefills(t *testing.T) {
	l := NewTokenBucket(2, 60)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("a"))
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"), "keys are limited independently")

	now = now.Add(time.Second)
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
}

func TestTokenBucketAccruesPartialRefill(t *testing.T) {
	l := NewTokenBucket(1, 60)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("a"))
	now = now.Add(500 * time.Millisecond)
	assert.False(t, l.allow("a"))
	now = now.Add(500 * time.Millisecond)
	assert.True(t, l.allow("a"), "half-second denials do not reset the refill clock")
}

func TestTokenBucketDisabled(t *testing.T) {
	l := NewTokenBucket(0, 0)
	for i := 0; i < 10; i++ {
		assert.True(t, l.allow("a"))
	}
}

func TestMiddlewareChain(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(), SecurityHeaders(), NewTokenBucket(1, 1).GinMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	before := testutil.ToFloat64(metrics.RateLimited)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RateLimited))
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/ping", "GET", "429")), float64(1))
}
