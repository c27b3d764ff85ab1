// middleware/admin.go
package middleware

import (
	"crypto/subtle"

	"lesson-league-system/logging"

	"github.com/gofiber/fiber/v2"
)

// AdminKeyHeader carries the operator key on admin routes.
const AdminKeyHeader = "X-Admin-Key"

// AdminKey guards operator routes with a shared static key. With no key
// configured every request is refused.
func AdminKey(expected string) fiber.Handler {
	if expected == "" {
		logging.Warn().Msg("⚠️  [ADMIN] admin key not set, operator routes are disabled")
	}

	return func(c *fiber.Ctx) error {
		if expected == "" {
			return fiber.NewError(fiber.StatusForbidden, "admin routes are disabled")
		}
		got := c.Get(AdminKeyHeader)
		if got == "" {
			logging.Debug().Str("path", c.Path()).Msg("🚫 [ADMIN] missing admin key")
			return fiber.NewError(fiber.StatusForbidden, "admin key missing")
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
			logging.Warn().Str("path", c.Path()).Str("ip", c.IP()).Msg("❌ [ADMIN] invalid admin key")
			return fiber.NewError(fiber.StatusForbidden, "invalid admin key")
		}
		return c.Next()
	}
}
