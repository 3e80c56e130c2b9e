package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relata/relata/internal/document"
)

// RateLimitInfo describes the outcome of one rate limit check
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
	Allowed   bool
}

// RedisRateLimiter implements a Redis-backed sliding window rate limiter
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisRateLimiter creates a sliding window limiter allowing limit
// requests per window.
func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be greater than 0")
	}
	if window <= 0 {
		return nil, errors.New("window must be greater than 0")
	}

	return &RedisRateLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:",
	}, nil
}

// slidingWindowScript trims expired entries, counts, and records the
// request in one atomic round trip.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, 0, window_start)

	local current = redis.call('ZCARD', key)

	if current < limit then
		redis.call('ZADD', key, now, now)
		redis.call('EXPIRE', key, window)
		return {1, current + 1}
	else
		return {0, current}
	end
`)

// Allow checks whether a request under the given key should proceed
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (*RateLimitInfo, error) {
	now := time.Now()
	windowStart := now.Add(-r.window)

	result, err := slidingWindowScript.Run(ctx, r.client, []string{r.prefix + key},
		now.UnixNano(),
		windowStart.UnixNano(),
		r.limit,
		int(r.window.Seconds()),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return nil, errors.New("unexpected redis script result")
	}
	allowed, ok := values[0].(int64)
	if !ok {
		return nil, errors.New("invalid allowed value from redis")
	}
	count, ok := values[1].(int64)
	if !ok {
		return nil, errors.New("invalid count value from redis")
	}

	remaining := r.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return &RateLimitInfo{
		Limit:     r.limit,
		Remaining: remaining,
		ResetAt:   now.Add(r.window),
		Allowed:   allowed == 1,
	}, nil
}

// Reset removes all rate limit data for the given key
func (r *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// RateLimit creates a middleware limiting requests per client IP. Limiter
// failures fail open so a Redis outage does not take the API down.
func RateLimit(limiter *RedisRateLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !info.Allowed {
				writeRateLimitResponse(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeRateLimitResponse(w http.ResponseWriter) {
	doc := document.NewErrorDocument(&document.ErrorObject{
		Status: strconv.Itoa(http.StatusTooManyRequests),
		Title:  "Too Many Requests",
		Detail: "Rate limit exceeded",
	})

	raw, err := json.Marshal(doc)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}
	w.Header().Set("Content-Type", document.MediaType)
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write(raw)
}
