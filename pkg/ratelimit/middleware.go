package ratelimit

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

var exemptPaths = map[string]bool{
	"/":             true,
	"/health":       true,
	"/docs":         true,
	"/openapi.json": true,
}

// Middleware builds a Fiber handler enforcing l's budgets. Requests against
// exemptPaths (health checks, docs) are never throttled.
func Middleware(l *Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if exemptPaths[path] {
			return c.Next()
		}

		ip := clientIP(c)
		class := Classify(path)

		allowed, retryAfter := l.Allow(ip, class)
		if !allowed {
			c.Set("Retry-After", strconv.Itoa(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please slow down.",
			})
		}

		return c.Next()
	}
}

func clientIP(c *fiber.Ctx) string {
	if fwd := c.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	return c.IP()
}

// StartSweeper runs l.Sweep on a fixed interval until ctx is cancelled.
func StartSweeper(ctx context.Context, l *Limiter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Sweep()
			}
		}
	}()
}
