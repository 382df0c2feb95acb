package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/coinkart/CoinKart/internal/pkg/env"
)

// ServiceTokenMiddleware authenticates internal service-to-service calls.
// The caller presents the shared token via X-Service-Token or a Bearer header.
func ServiceTokenMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		expected := env.GetEnv("REWARDS_SERVICE_TOKEN", "")
		if expected == "" {
			log.Print("service token middleware: REWARDS_SERVICE_TOKEN not configured")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Service authentication unavailable"})
		}

		token := extractServiceTokenFromHeader(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing service token"})
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid service token"})
		}

		return c.Next()
	}
}

func extractServiceTokenFromHeader(c *fiber.Ctx) string {
	token := strings.TrimSpace(c.Get("X-Service-Token"))
	if token != "" {
		return token
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
