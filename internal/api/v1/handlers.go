package apiv1

import (
	"context"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"

	"github.com/coinkart/CoinKart/internal/pkg/database"
)

// APIServer implements the public v1 surface that is not webhook ingress
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// Pong is the ping response body
type Pong struct {
	Ping string `json:"ping"`
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetHealth reports readiness of the storage dependencies
func (s *APIServer) GetHealth(c *fiber.Ctx) error {
	db := database.GetDB()
	if db == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down", "database": "unavailable"})
	}

	sqlDB, err := db.DB()
	if err != nil || sqlDB.Ping() != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down", "database": "unreachable"})
	}

	return c.JSON(fiber.Map{"status": "ok", "time": time.Now().UTC()})
}

// RegisterHandlers attaches the v1 handlers to the given router group
func RegisterHandlers(router fiber.Router, s *APIServer) {
	router.Get("/ping", s.GetPing)
	router.Get("/health", s.GetHealth)
}

// ValidateSpecFile loads and validates the served OpenAPI document so a broken
// spec fails loudly at boot instead of in the docs UI.
func ValidateSpecFile(path string) error {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return err
	}
	return doc.Validate(context.Background())
}
