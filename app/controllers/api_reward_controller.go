package controllers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/coinkart/CoinKart/internal/pkg/rewards"
)

// Global reward engine instance
var rewardEngine *rewards.Engine

var rewardValidator = validator.New()

// InitializeRewardController wires the engine used by the reward routes
func InitializeRewardController(engine *rewards.Engine) {
	rewardEngine = engine
}

// GrantRewardRequest is the body of POST /api/v1/rewards/grant
type GrantRewardRequest struct {
	UserID   uint              `json:"user_id" validate:"required,gt=0"`
	EventID  uint              `json:"event_id" validate:"required,gt=0"`
	Action   string            `json:"action" validate:"required,oneof=booking_reward checkin_reward share_reward"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// HandleGrantReward grants an action's coins to a user at most once.
// Security: service token required via router middleware
func HandleGrantReward(c *fiber.Ctx) error {
	if rewardEngine == nil {
		log.Error("[Rewards] Engine not initialized")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "unavailable", "message": "reward engine unavailable"})
	}

	var req GrantRewardRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}

	if err := rewardValidator.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": "invalid field: " + verrs[0].Field()})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": "request validation failed"})
	}

	result, err := rewardEngine.Grant(c.Context(), req.UserID, req.EventID, req.Action, req.Metadata)
	if err != nil {
		log.Errorf("[Rewards] Grant failed (user=%d event=%d action=%s): %v", req.UserID, req.EventID, req.Action, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal", "message": "grant could not be processed"})
	}

	return c.JSON(result)
}
