package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindow atomically trims entries older than the window, counts what is
// left and records the new hit when under the limit.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

local count = redis.call('ZCARD', key)
if count < limit then
	redis.call('ZADD', key, now, now .. '-' .. math.random())
	redis.call('PEXPIRE', key, ttl)
	return 1
end

return 0
`)

// RedisRateLimiter is a sliding-window limiter shared by every gateway replica.
type RedisRateLimiter struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisRateLimiter(rdb redis.UniversalClient) *RedisRateLimiter {
	return &RedisRateLimiter{
		rdb:    rdb,
		prefix: "rl:nextstep:",
	}
}

type RateLimitConfig struct {
	Scope  string // appears in the key and in the error meta
	Limit  int
	Window time.Duration
	KeyFn  func(r *http.Request) string
}

// Middleware enforces cfg. It fails open when Redis is missing or errors so a
// Redis outage never locks users out of login.
func (l *RedisRateLimiter) Middleware(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil || l.rdb == nil || cfg.Limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			key := l.prefix + cfg.Scope + ":" + cfg.KeyFn(r)
			allowed, err := l.Allow(r.Context(), key, cfg.Limit, cfg.Window)
			if err != nil || allowed {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":"rate_limited","message":"too many requests","meta":{"scope":"` +
				cfg.Scope + `"},"request_id":"` + GetRequestID(r.Context()) + `"}}`))
		})
	}
}

// Allow reports whether one more hit on key fits in the window.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UnixMilli()
	windowStart := now - window.Milliseconds()

	result, err := slidingWindow.Run(ctx, l.rdb, []string{key}, now, windowStart, limit, window.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

// KeyByIP keys on the first X-Forwarded-For hop, or the peer address.
func KeyByIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return "ip:" + strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
