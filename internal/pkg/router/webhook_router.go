package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/coinkart/CoinKart/app/controllers"
	"github.com/coinkart/CoinKart/internal/pkg/constants"
)

type WebhookRouter struct {
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	// Gateway callbacks authenticate via HMAC signature, not session or token.
	app.Post(constants.WebhookRazorpayRoute, controllers.HandleRazorpayWebhook)
	app.Post(constants.WebhookStripeRoute, controllers.HandleStripeWebhook)
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}
