package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/proctor-go-api/internal/utils"
)

// RateLimit caps how often one caller may hit a route group. Authenticated
// requests are keyed by account ID, anonymous ones by client IP, so a shared
// lab NAT never starves logged-in students.
func RateLimit(scope string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if userID, ok := c.Locals(LocalUserID).(uint); ok && userID != 0 {
				return fmt.Sprintf("%s:%d", scope, userID)
			}
			return fmt.Sprintf("%s:%s", scope, c.IP())
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusTooManyRequests, "too many requests")
		},
	})
}
