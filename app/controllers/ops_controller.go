package controllers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/coinkart/CoinKart/app/models"
	"github.com/coinkart/CoinKart/app/repository"
	"github.com/coinkart/CoinKart/internal/pkg/jobqueue"
	metrics "github.com/coinkart/CoinKart/internal/pkg/metrics/counter"
	"github.com/coinkart/CoinKart/internal/pkg/rewards"
)

const opsFailedListLimit = 100

// Replay sweeps skip rows past this attempt count; manual replay ignores it
const opsReplayMaxRetries = 5

// HandleOpsListFailedWebhooks lists failed ledger rows eligible for replay.
// Security: basic auth required via router middleware
func HandleOpsListFailedWebhooks(c *fiber.Ctx) error {
	limit := opsFailedListLimit
	if v := c.QueryInt("limit"); v > 0 && v < opsFailedListLimit {
		limit = v
	}

	repo := repository.GetGlobalFactory().GetWebhookEventRepository()
	events, err := repo.ListFailed(opsReplayMaxRetries, limit)
	if err != nil {
		log.Errorf("[Ops] Failed to list failed webhooks: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal", "message": "could not load failed webhooks"})
	}

	items := make([]fiber.Map, 0, len(events))
	for _, ev := range events {
		items = append(items, fiber.Map{
			"id":            ev.ID,
			"provider":      ev.Provider,
			"event_id":      ev.ProviderEventID,
			"event_type":    ev.EventType,
			"status":        ev.Status,
			"error_message": ev.ErrorMessage,
			"retry_count":   ev.RetryCount,
			"received_at":   ev.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{"failed": items, "count": len(items)})
}

// HandleOpsReplayWebhook queues a replay job for one failed ledger row.
// Security: basic auth required via router middleware
func HandleOpsReplayWebhook(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid ledger id"})
	}

	repo := repository.GetGlobalFactory().GetWebhookEventRepository()
	event, err := repo.GetByID(uint(id))
	if err != nil || event == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "ledger row not found"})
	}

	if event.Status != models.WebhookStatusFailed {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "only failed deliveries can be replayed"})
	}
	if !event.SignatureValid {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "unverified deliveries are never replayed"})
	}

	payload := jobqueue.WebhookReplayJobPayload{LedgerID: event.ID}
	job, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeWebhookReplay, payload.ToMap())
	if err != nil {
		log.Errorf("[Ops] Failed to enqueue replay for ledger row %d: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal", "message": "could not queue replay"})
	}

	return c.JSON(fiber.Map{"queued": true, "job_id": job.ID, "ledger_id": event.ID})
}

// HandleOpsWebhookStats reports outcome counters and queue depth.
// Security: basic auth required via router middleware
func HandleOpsWebhookStats(c *fiber.Ctx) error {
	outcomes, err := metrics.Snapshot()
	if err != nil {
		log.Errorf("[Ops] Failed to read outcome counters: %v", err)
		outcomes = map[string]int64{}
	}

	queue := jobqueue.GetManager().GetQueue()
	jobStats, err := queue.GetJobStats(context.Background())
	if err != nil {
		log.Errorf("[Ops] Failed to read job stats: %v", err)
		jobStats = map[jobqueue.JobStatus]int64{}
	}
	queueLength, err := queue.GetQueueLength(context.Background())
	if err != nil {
		queueLength = -1
	}

	return c.JSON(fiber.Map{
		"outcomes":     outcomes,
		"jobs":         jobStats,
		"queue_length": queueLength,
	})
}

// HandleOpsResetWebhookStats clears the outcome counters, typically after an
// incident review.
// Security: basic auth required via router middleware
func HandleOpsResetWebhookStats(c *fiber.Ctx) error {
	if err := metrics.Reset(); err != nil {
		log.Errorf("[Ops] Failed to reset outcome counters: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal", "message": "could not reset counters"})
	}
	return c.JSON(fiber.Map{"reset": true})
}

// HandleOpsGetRedemption looks up a deal redemption by its checkout session
// id, the identifier gateway dashboards and webhook payloads carry.
// Security: basic auth required via router middleware
func HandleOpsGetRedemption(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "missing session id"})
	}

	repo := repository.GetGlobalFactory().GetRedemptionRepository()
	redemption, err := repo.GetBySessionID(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "no redemption for this session"})
		}
		log.Errorf("[Ops] Failed to load redemption for session %s: %v", sessionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal", "message": "could not load redemption"})
	}
	return c.JSON(redemption)
}

// UpsertRewardRuleRequest is the body of POST /api/v1/ops/reward-rules
type UpsertRewardRuleRequest struct {
	ID                   uint    `json:"id,omitempty"`
	EventID              *uint   `json:"event_id,omitempty"`
	Action               string  `json:"action" validate:"required,oneof=booking_reward checkin_reward share_reward"`
	Coins                int     `json:"coins" validate:"gte=0"`
	Multiplier           float64 `json:"multiplier" validate:"gte=0"`
	DailyLimit           int     `json:"daily_limit" validate:"gte=0"`
	RequiresVerification bool    `json:"requires_verification"`
	ValidFrom            *string `json:"valid_from,omitempty"`
	ValidUntil           *string `json:"valid_until,omitempty"`
	IsActive             bool    `json:"is_active"`
}

// HandleOpsUpsertRewardRule creates or updates a reward rule and drops its
// cache entry so the change applies within one request.
// Security: basic auth required via router middleware
func HandleOpsUpsertRewardRule(c *fiber.Ctx) error {
	var req UpsertRewardRuleRequest
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

	rule := models.RewardRule{
		ID:                   req.ID,
		EventID:              req.EventID,
		Action:               req.Action,
		Coins:                req.Coins,
		Multiplier:           req.Multiplier,
		DailyLimit:           req.DailyLimit,
		RequiresVerification: req.RequiresVerification,
		IsActive:             req.IsActive,
	}
	if req.Multiplier == 0 {
		rule.Multiplier = 1
	}

	if req.ValidFrom != nil {
		t, err := parseRuleTime(*req.ValidFrom)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "valid_from must be RFC 3339"})
		}
		rule.ValidFrom = t
	}
	if req.ValidUntil != nil {
		t, err := parseRuleTime(*req.ValidUntil)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "valid_until must be RFC 3339"})
		}
		rule.ValidUntil = t
	}

	repo := repository.GetGlobalFactory().GetRewardRepository()
	if err := repo.SaveRule(&rule); err != nil {
		log.Errorf("[Ops] Failed to save reward rule: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal", "message": "could not save rule"})
	}

	rewards.InvalidateRule(rule.EventID, rule.Action)

	return c.JSON(rule)
}

func parseRuleTime(value string) (*time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
