package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takato23/lookescolar-sub001/internal/testutils"
)

func newTestLimiter(t *testing.T, classes map[LimitClass]ClassConfig) *RateLimiter {
	t.Helper()
	return NewRateLimiter(testutils.TestRedis(t), classes)
}

func TestRateLimiterAllowUpToQuota(t *testing.T) {
	rl := newTestLimiter(t, map[LimitClass]ClassConfig{
		ClassDecode: {MaxRequests: 5, Window: time.Minute},
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, remaining, err := rl.Allow(ctx, "1.2.3.4", ClassDecode)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 4-i, remaining)
	}

	allowed, _, err := rl.Allow(ctx, "1.2.3.4", ClassDecode)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := newTestLimiter(t, map[LimitClass]ClassConfig{
		ClassTag: {MaxRequests: 2, Window: time.Minute},
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, _, err := rl.Allow(ctx, "1.2.3.4", ClassTag)
		require.NoError(t, err)
		require.True(t, allowed)
	}
	allowed, _, err := rl.Allow(ctx, "1.2.3.4", ClassTag)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Another actor still has a full quota
	allowed, _, err = rl.Allow(ctx, "5.6.7.8", ClassTag)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiterClassesAreIndependent(t *testing.T) {
	rl := newTestLimiter(t, map[LimitClass]ClassConfig{
		ClassDecode:   {MaxRequests: 1, Window: time.Minute},
		ClassValidate: {MaxRequests: 1, Window: time.Minute},
	})
	ctx := context.Background()

	allowed, _, err := rl.Allow(ctx, "1.2.3.4", ClassDecode)
	require.NoError(t, err)
	require.True(t, allowed)
	allowed, _, err = rl.Allow(ctx, "1.2.3.4", ClassDecode)
	require.NoError(t, err)
	require.False(t, allowed)

	// Exhausting decode leaves validate untouched for the same actor
	allowed, _, err = rl.Allow(ctx, "1.2.3.4", ClassValidate)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := newTestLimiter(t, map[LimitClass]ClassConfig{
		ClassDecode: {MaxRequests: 2, Window: 500 * time.Millisecond},
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, _, err := rl.Allow(ctx, "1.2.3.4", ClassDecode)
		require.NoError(t, err)
		require.True(t, allowed)
	}
	allowed, _, err := rl.Allow(ctx, "1.2.3.4", ClassDecode)
	require.NoError(t, err)
	require.False(t, allowed)

	time.Sleep(600 * time.Millisecond)

	allowed, _, err = rl.Allow(ctx, "1.2.3.4", ClassDecode)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiterUnknownClassPasses(t *testing.T) {
	rl := newTestLimiter(t, map[LimitClass]ClassConfig{})

	allowed, _, err := rl.Allow(context.Background(), "1.2.3.4", ClassDecode)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := newTestLimiter(t, map[LimitClass]ClassConfig{
		ClassDecode: {MaxRequests: 2, Window: time.Minute},
	})

	router := gin.New()
	router.POST("/qr/decode", rl.Limit(ClassDecode), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/qr/decode", nil)
		router.ServeHTTP(w, req)
		return w
	}

	w := do()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	w = do()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "Rate limit exceeded")
}
