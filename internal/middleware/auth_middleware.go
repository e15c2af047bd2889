package middleware

import (
	"errors"
	"strings"

	"go-pos-terminal/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// RequireTerminalAuth validates the terminal JWT and sets tenant info in context.
// Browsers cannot set headers on a websocket upgrade, so ?token= is accepted too.
func RequireTerminalAuth(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}

		claims, err := jwt.ValidateToken(secret, tokenString)
		if err != nil {
			if errors.Is(err, jwt.ErrMissingClaim) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		c.Locals("tenant_id", claims.TenantID)
		c.Locals("terminal_id", claims.TerminalID)
		c.Locals("operator", claims.Operator)

		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		if q := c.Query("token"); q != "" {
			return q, nil
		}
		return "", jwt.ErrMissingToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("invalid authorization format, use: Bearer <token>")
	}
	return parts[1], nil
}

// TenantID returns the tenant set by RequireTerminalAuth
func TenantID(c *fiber.Ctx) string {
	if v, ok := c.Locals("tenant_id").(string); ok {
		return v
	}
	return ""
}

func TerminalID(c *fiber.Ctx) string {
	if v, ok := c.Locals("terminal_id").(string); ok {
		return v
	}
	return ""
}
