package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-account-service/pkg/response"
)

// Limit is a request budget per fixed window.
type Limit struct {
	Requests int
	Window   time.Duration
}

func (l Limit) enabled() bool { return l.Requests > 0 && l.Window > 0 }

// Scale multiplies the request budget and keeps the window.
func (l Limit) Scale(n int) Limit { return Limit{Requests: l.Requests * n, Window: l.Window} }

// KeyFunc picks the bucket a request is counted in.
type KeyFunc func(c *gin.Context) string

// AllowFunc returns true for requests that skip the limiter.
type AllowFunc func(*gin.Context) bool

// ipFromCtx prefers the address resolved by RealIP.
func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString(CtxRealIPKey); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func routeOf(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

func KeyByIP() KeyFunc {
	return func(c *gin.Context) string { return "ip:" + ipFromCtx(c) }
}

// KeyByIPAndPath gives every route its own budget per client.
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string { return "route:" + routeOf(c) + ":ip:" + ipFromCtx(c) }
}

// KeyByUserID counts authenticated callers by account and anonymous ones by IP.
func KeyByUserID() KeyFunc {
	return func(c *gin.Context) string {
		if uid := c.GetString(CtxUserIDKey); uid != "" {
			return "user:" + uid
		}
		return "user:anon:ip:" + ipFromCtx(c)
	}
}

// hitScript counts a hit and returns {count, pttl}. The window starts on the first hit.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// Limiter is a fixed-window rate limiter backed by redis.
// With no client every handler it builds is a pass-through.
type Limiter struct {
	rdb    *redis.Client
	prefix string
	log    *logrus.Logger
}

func NewLimiter(rdb *redis.Client, prefix string, log *logrus.Logger) *Limiter {
	return &Limiter{rdb: rdb, prefix: prefix, log: log}
}

// Handler limits requests to l per bucket. OPTIONS requests are never counted.
// Redis failures let the request through.
func (rl *Limiter) Handler(l Limit, key KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if rl == nil || rl.rdb == nil || !l.enabled() || key == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || (allow != nil && allow(c)) {
			c.Next()
			return
		}

		bucket := rl.bucket(key(c))
		count, ttl, err := rl.hit(c, bucket, l.Window)
		if err != nil {
			if rl.log != nil {
				rl.log.WithError(err).WithField("bucket", bucket).Warn("rate limiter unavailable, request allowed")
			}
			c.Next()
			return
		}

		reset := int((ttl + time.Second - 1) / time.Second)
		c.Header("X-RateLimit-Limit", strconv.Itoa(l.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(l.Requests-count, 0)))
		c.Header("X-RateLimit-Reset", strconv.Itoa(reset))

		if count > l.Requests {
			if reset > 0 {
				c.Header("Retry-After", strconv.Itoa(reset))
			}
			response.Abort(c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		c.Next()
	}
}

func (rl *Limiter) bucket(key string) string {
	if rl.prefix == "" {
		return "rl:" + key
	}
	return rl.prefix + ":rl:" + key
}

func (rl *Limiter) hit(c *gin.Context, bucket string, window time.Duration) (int, time.Duration, error) {
	vals, err := hitScript.Run(c.Request.Context(), rl.rdb, []string{bucket}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(vals) != 2 {
		return 0, 0, errors.New("unexpected rate limit reply")
	}
	ttl := time.Duration(0)
	if vals[1] > 0 {
		ttl = time.Duration(vals[1]) * time.Millisecond
	}
	return int(vals[0]), ttl, nil
}
