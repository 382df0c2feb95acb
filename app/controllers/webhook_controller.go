package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/coinkart/CoinKart/app/models"
	"github.com/coinkart/CoinKart/internal/pkg/webhook"
)

// Global webhook processor instance
var webhookProcessor *webhook.Processor

// InitializeWebhookController wires the processor used by the webhook routes
func InitializeWebhookController(processor *webhook.Processor) {
	webhookProcessor = processor
}

// GetWebhookProcessor returns the wired processor instance
func GetWebhookProcessor() *webhook.Processor {
	return webhookProcessor
}

// HandleRazorpayWebhook receives Razorpay gateway deliveries.
// The event id travels in the X-Razorpay-Event-Id header.
func HandleRazorpayWebhook(c *fiber.Ctx) error {
	signature := c.Get("X-Razorpay-Signature")
	if signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "signature header missing"})
	}

	return ingestWebhook(c, webhook.Input{
		Provider:  models.WebhookProviderRazorpay,
		RawBody:   rawBodyCopy(c),
		Signature: signature,
		EventID:   c.Get("X-Razorpay-Event-Id"),
	})
}

// HandleStripeWebhook receives Stripe gateway deliveries.
// The event id travels inside the payload envelope.
func HandleStripeWebhook(c *fiber.Ctx) error {
	signature := c.Get("Stripe-Signature")
	if signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "signature header missing"})
	}

	return ingestWebhook(c, webhook.Input{
		Provider:  models.WebhookProviderStripe,
		RawBody:   rawBodyCopy(c),
		Signature: signature,
	})
}

func ingestWebhook(c *fiber.Ctx, in webhook.Input) error {
	if webhookProcessor == nil {
		log.Error("[Webhook] Processor not initialized")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "unavailable", "message": "webhook processing unavailable"})
	}

	result, err := webhookProcessor.Ingest(c.Context(), in)
	if err != nil {
		// Ledger unavailable: a 5xx makes the gateway redeliver later.
		log.Errorf("[Webhook] Ledger error for %s delivery: %v", in.Provider, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal", "message": "temporary processing failure"})
	}

	if result.Unauthorized {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "signature verification failed"})
	}

	return c.JSON(fiber.Map{
		"received": true,
		"status":   result.Status,
		"event_id": result.EventID,
	})
}

// rawBodyCopy returns a copy of the raw request body. Fiber reuses its
// buffers after the handler returns, so the bytes must be detached before
// they land in the ledger.
func rawBodyCopy(c *fiber.Ctx) []byte {
	body := c.BodyRaw()
	out := make([]byte, len(body))
	copy(out, body)
	return out
}
