package middleware

import (
	"strings"

	"github.com/fathima-sithara/user-service/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// UserIDKey is the locals key the JWT middleware stores the caller id under.
const UserIDKey = "user_id"

// JWTAuth validates the bearer token and stores the caller's user id in the
// request locals.
func JWTAuth(issuer *utils.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if auth == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization"})
		}
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization"})
		}
		claims, err := issuer.Parse(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		c.Locals(UserIDKey, claims.UserID)
		return c.Next()
	}
}
