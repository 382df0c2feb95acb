package router

import (
	apiv1 "github.com/coinkart/CoinKart/internal/api/v1"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/coinkart/CoinKart/app/controllers"
	"github.com/coinkart/CoinKart/internal/pkg/constants"
	"github.com/coinkart/CoinKart/internal/pkg/env"
	"github.com/coinkart/CoinKart/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute, limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	apiServer := apiv1.NewAPIServer()
	apiv1.RegisterHandlers(v1, apiServer)

	// Internal service-to-service reward grants
	rewardsGroup := v1.Group("/rewards", middleware.ServiceTokenMiddleware())
	rewardsGroup.Post("/grant", controllers.HandleGrantReward)

	// Operator endpoints
	ops := v1.Group(constants.OpsRoute, basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("OPS_USER", "admin"): env.GetEnv("OPS_PASSWORD", "test"),
		},
	}))
	ops.Get("/webhooks/failed", controllers.HandleOpsListFailedWebhooks)
	ops.Post("/webhooks/:id/replay", controllers.HandleOpsReplayWebhook)
	ops.Get("/webhooks/stats", controllers.HandleOpsWebhookStats)
	ops.Post("/webhooks/stats/reset", controllers.HandleOpsResetWebhookStats)
	ops.Get("/redemptions/:session_id", controllers.HandleOpsGetRedemption)
	ops.Post("/reward-rules", controllers.HandleOpsUpsertRewardRule)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
