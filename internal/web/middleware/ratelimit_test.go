package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLimiter(t *testing.T, limit int) *RedisRateLimiter {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter, err := NewRedisRateLimiter(client, limit, time.Minute)
	require.NoError(t, err)
	return limiter
}

func TestRedisRateLimiter_Allow(t *testing.T) {
	limiter := testLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		info, err := limiter.Allow(ctx, "client")
		require.NoError(t, err)
		assert.True(t, info.Allowed)
	}

	info, err := limiter.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
	assert.Equal(t, 0, info.Remaining)
}

func TestRedisRateLimiter_KeysAreIndependent(t *testing.T) {
	limiter := testLimiter(t, 1)
	ctx := context.Background()

	info, err := limiter.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, info.Allowed)

	info, err = limiter.Allow(ctx, "b")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
}

func TestRedisRateLimiter_Reset(t *testing.T) {
	limiter := testLimiter(t, 1)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "client")
	require.NoError(t, err)

	require.NoError(t, limiter.Reset(ctx, "client"))

	info, err := limiter.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := testLimiter(t, 1)
	handler := RateLimit(limiter)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rate limit exceeded")
}
