// middleware/auth.go
package middleware

import (
	"lesson-league-system/logging"
	"lesson-league-system/services"

	"github.com/gofiber/fiber/v2"
)

// UserIDKey is the fiber Locals key holding the authenticated user's id.
const UserIDKey = "user_id"

// BearerAuth validates "Authorization: Bearer <token>" and stores the user id
// in c.Locals(UserIDKey). Failures go through the app's ErrorHandler as 401s.
func BearerAuth(tokens *services.TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := tokens.Authenticate(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			logging.Debug().Str("path", c.Path()).Str("ip", c.IP()).Msg("🚫 [AUTH] rejected bearer token")
			return err
		}
		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}

// UserID returns the id set by BearerAuth, or "" on public routes.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDKey).(string)
	return id
}
