package rewards

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/coinkart/CoinKart/app/models"
	"github.com/coinkart/CoinKart/app/repository"
	"github.com/coinkart/CoinKart/internal/pkg/coins"
	"gorm.io/gorm"
)

// Outcome classifies a grant attempt. Non-credited outcomes are expected
// domain results, not errors; callers use them for UX messaging.
type Outcome string

const (
	OutcomeCredited             Outcome = "credited"
	OutcomeNoRule               Outcome = "no_rule"
	OutcomeVerificationRequired Outcome = "verification_required"
	OutcomeLimitReached         Outcome = "limit_reached"
	OutcomeDuplicate            Outcome = "duplicate"
)

// Result is the structured answer of a grant attempt.
type Result struct {
	Outcome           Outcome `json:"outcome"`
	Coins             int     `json:"coins"`
	CoinTransactionID string  `json:"coin_transaction_id,omitempty"`
}

// RuleSource resolves the applicable reward rule. The repository satisfies it
// directly; CachedRuleSource adds a read-through cache.
type RuleSource interface {
	FindActiveRule(eventID uint, action string, at time.Time) (*models.RewardRule, error)
}

// Engine grants one-time coin rewards. The crux is claim-then-award: the
// conditional grant insert resolves the race first, and only the winner calls
// the external wallet. A failed wallet call releases the claim so a later
// request can retry.
type Engine struct {
	repo  repository.RewardRepository
	rules RuleSource
	coins coins.CoinService
}

// NewEngine creates a reward engine with injected collaborators.
func NewEngine(repo repository.RewardRepository, rules RuleSource, coinSvc coins.CoinService) *Engine {
	if rules == nil {
		rules = repo
	}
	return &Engine{repo: repo, rules: rules, coins: coinSvc}
}

// Grant awards the action's coins to the user at most once per (event, user).
func (e *Engine) Grant(ctx context.Context, userID, eventID uint, action string, metadata map[string]string) (Result, error) {
	now := time.Now()

	rule, err := e.rules.FindActiveRule(eventID, action, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Result{Outcome: OutcomeNoRule}, nil
		}
		return Result{}, err
	}
	if rule.Coins <= 0 {
		return Result{Outcome: OutcomeNoRule}, nil
	}

	record, err := e.repo.GetOrCreateAttendance(eventID, userID)
	if err != nil {
		return Result{}, err
	}

	if rule.RequiresVerification && !record.Verified {
		return Result{Outcome: OutcomeVerificationRequired}, nil
	}

	if rule.DailyLimit > 0 {
		dayStart, dayEnd := dayBounds(now)
		count, err := e.repo.CountGrantsOn(userID, action, dayStart, dayEnd)
		if err != nil {
			return Result{}, err
		}
		if count >= int64(rule.DailyLimit) {
			return Result{Outcome: OutcomeLimitReached}, nil
		}
	}

	amount := int(math.Round(float64(rule.Coins) * rule.Multiplier))

	grant := &models.RewardGrant{
		AttendanceRecordID: record.ID,
		UserID:             userID,
		Action:             action,
		Coins:              amount,
	}
	claimed, err := e.repo.ClaimGrant(grant)
	if err != nil {
		return Result{}, err
	}
	if !claimed {
		// Another request holds the (record, action) slot; no coins move.
		return Result{Outcome: OutcomeDuplicate}, nil
	}

	meta := map[string]string{
		"event_id": fmt.Sprintf("%d", eventID),
		"action":   action,
	}
	for k, v := range metadata {
		meta[k] = v
	}

	txID, err := e.coins.Award(ctx, userID, amount, describeAction(action), meta)
	if err != nil {
		// The claim and the award are one logical operation: release the slot
		// so the grant is retryable instead of claimed-but-never-paid.
		if releaseErr := e.repo.ReleaseGrant(grant.ID); releaseErr != nil {
			return Result{}, fmt.Errorf("award failed (%v) and claim release failed: %w", err, releaseErr)
		}
		return Result{}, fmt.Errorf("coin award failed: %w", err)
	}

	if err := e.repo.SetGrantTransaction(grant.ID, txID); err != nil {
		return Result{}, err
	}

	return Result{Outcome: OutcomeCredited, Coins: amount, CoinTransactionID: txID}, nil
}

func dayBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.Add(24 * time.Hour)
}

func describeAction(action string) string {
	switch action {
	case models.RewardActionBooking:
		return "Coins for booking an event"
	case models.RewardActionCheckin:
		return "Coins for checking in at an event"
	case models.RewardActionShare:
		return "Coins for sharing an event"
	default:
		return "Reward coins"
	}
}
