// Package middleware provides the HTTP middleware chain: authentication,
// request logging, tracing, metrics and rate limiting.
package middleware

import (
	"context"
	"errors"
	"math"
	"os"
	"strconv"
	"time"

	"quill/internal/models"
	"quill/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// CodeRateLimited is the error code of a 429 response.
const CodeRateLimited = "RATE_LIMITED"

// Limit is a fixed-window quota shared by every route using the same Name.
type Limit struct {
	Name   string
	Max    int
	Window time.Duration
	Policy FailPolicy
}

// Per-route quotas.
var (
	SignupLimit  = Limit{Name: "signup", Max: 3, Window: 10 * time.Minute}
	LoginLimit   = Limit{Name: "login", Max: 10, Window: 5 * time.Minute}
	CommentLimit = Limit{Name: "create_comment", Max: 10, Window: time.Minute}
	UploadLimit  = Limit{Name: "upload", Max: 20, Window: 10 * time.Minute}
)

// Verdict is the outcome of one rate limit check.
type Verdict struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

var errNoRedis = errors.New("rate limit store unavailable")

// incrWindow bumps the counter and starts its window on first use, atomically,
// so a crash between the two steps cannot leave a counter without expiry.
var incrWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {n, redis.call('PTTL', KEYS[1])}
`)

func rateLimitsDisabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return true
	}
	return false
}

// CheckRateLimit counts one request by id against l. Limits are not enforced
// when APP_ENV is unset, "test" or "development".
func CheckRateLimit(ctx context.Context, rdb *redis.Client, l Limit, id string) (Verdict, error) {
	if rateLimitsDisabled() {
		return Verdict{Allowed: true, Remaining: l.Max}, nil
	}
	if rdb == nil {
		return Verdict{}, errNoRedis
	}

	res, err := incrWindow.Run(ctx, rdb, []string{"rl:" + l.Name + ":" + id}, l.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Verdict{}, err
	}
	count, ttl := res[0], time.Duration(res[1])*time.Millisecond
	if ttl < 0 {
		ttl = l.Window
	}

	return Verdict{
		Allowed:    count <= int64(l.Max),
		Remaining:  max(l.Max-int(count), 0),
		RetryAfter: ttl,
	}, nil
}

// RateLimit enforces l per authenticated user, or per client IP for
// anonymous callers.
func RateLimit(rdb *redis.Client, l Limit) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := "ip:" + c.IP()
		if uid, ok := c.Locals(session.LocalsKey).(uint); ok {
			id = "user:" + strconv.FormatUint(uint64(uid), 10)
		}

		v, err := CheckRateLimit(c.UserContext(), rdb, l, id)
		if err != nil {
			if l.Policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit unavailable, failing closed",
					"limit", l.Name, "error", err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
					Error: "Rate limit unavailable",
					Code:  models.CodeInternal,
				})
			}
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(l.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(v.Remaining))
		if !v.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(v.RetryAfter.Seconds()))))
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests",
				Code:  CodeRateLimited,
			})
		}
		return c.Next()
	}
}
