package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// TokenParser resolves a token to a user id.
type TokenParser interface {
	ParseJWTToken(token string) (string, error)
}

// JWTMiddleware accepts "Authorization: Bearer <token>" or "x-auth-token".
func JWTMiddleware(tokens TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := ""
		if auth := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		}
		if token == "" {
			token = strings.TrimSpace(c.Get("x-auth-token"))
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No token, authorization denied"})
		}

		userID, err := tokens.ParseJWTToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token is not valid"})
		}

		// เก็บ user_id เอาไว้ใช้ใน controller
		c.Locals("user_id", userID)
		return c.Next()
	}
}
