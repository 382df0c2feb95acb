package repository

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/coinkart/CoinKart/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	completeCheckoutAttempts = 3
	completeCheckoutBackoff  = 50 * time.Millisecond
)

// ErrRedemptionInvalid marks validation failures inside the completion
// transaction (missing campaign, deal index out of bounds). These are
// deterministic and not worth retrying.
var ErrRedemptionInvalid = errors.New("redemption validation failed")

type redemptionRepository struct {
	db *gorm.DB
}

// NewRedemptionRepository creates a GORM-backed redemption repository.
func NewRedemptionRepository(db *gorm.DB) RedemptionRepository {
	return &redemptionRepository{db: db}
}

func (r *redemptionRepository) GetBySessionID(sessionID string) (*models.DealRedemption, error) {
	var redemption models.DealRedemption
	if err := r.db.Where("session_id = ?", sessionID).First(&redemption).Error; err != nil {
		return nil, err
	}
	return &redemption, nil
}

// resolveCompletion classifies the locked redemption row. apply=false with a
// nil error is the re-delivery no-op: the row already reached a terminal
// success state and the campaign counter must not move again.
func resolveCompletion(redemption *models.DealRedemption) (apply bool, err error) {
	if redemption.IsCompleted() {
		return false, nil
	}
	if redemption.Status == models.RedemptionStatusCancelled {
		return false, fmt.Errorf("%w: redemption %d is cancelled", ErrRedemptionInvalid, redemption.ID)
	}
	return true, nil
}

// validateDealIndex guards the campaign counter against redemptions pointing
// at deals that no longer exist.
func validateDealIndex(redemption *models.DealRedemption, dealCount int64) error {
	if redemption.DealIndex < 0 || int64(redemption.DealIndex) >= dealCount {
		return fmt.Errorf("%w: deal index %d out of bounds for campaign %d", ErrRedemptionInvalid, redemption.DealIndex, redemption.CampaignID)
	}
	return nil
}

// completionRetryable reports whether a failed attempt is worth another
// transaction. Validation failures are deterministic; everything else is
// treated as transient.
func completionRetryable(err error) bool {
	return err != nil && !errors.Is(err, ErrRedemptionInvalid)
}

// CompleteCheckout flips the redemption to active and increments the campaign
// purchase counter as one unit of work. Both writes commit or neither does.
// Transient transaction failures (deadlock, lost connection) are retried a
// bounded number of times with jittered backoff; validation failures abort
// immediately.
func (r *redemptionRepository) CompleteCheckout(sessionID, paymentRef string) (bool, error) {
	var applied bool
	var lastErr error

	for attempt := 0; attempt < completeCheckoutAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(completeCheckoutBackoff + time.Duration(rand.Int63n(int64(completeCheckoutBackoff))))
		}

		applied = false
		lastErr = r.db.Transaction(func(tx *gorm.DB) error {
			var redemption models.DealRedemption
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("session_id = ?", sessionID).
				First(&redemption).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: redemption for session %s not found", ErrRedemptionInvalid, sessionID)
				}
				return err
			}

			apply, err := resolveCompletion(&redemption)
			if err != nil || !apply {
				return err
			}

			var campaign models.Campaign
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&campaign, redemption.CampaignID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: campaign %d not found", ErrRedemptionInvalid, redemption.CampaignID)
				}
				return err
			}

			var dealCount int64
			if err := tx.Model(&models.Deal{}).
				Where("campaign_id = ?", campaign.ID).
				Count(&dealCount).Error; err != nil {
				return err
			}
			if err := validateDealIndex(&redemption, dealCount); err != nil {
				return err
			}

			now := time.Now()
			if err := tx.Model(&models.DealRedemption{}).
				Where("id = ?", redemption.ID).
				Updates(map[string]interface{}{
					"status":       models.RedemptionStatusActive,
					"payment_ref":  paymentRef,
					"activated_at": &now,
				}).Error; err != nil {
				return err
			}

			if err := tx.Model(&models.Campaign{}).
				Where("id = ?", campaign.ID).
				Update("purchase_count", gorm.Expr("purchase_count + 1")).Error; err != nil {
				return err
			}

			applied = true
			return nil
		})

		if !completionRetryable(lastErr) {
			break
		}
	}

	if lastErr != nil {
		return false, lastErr
	}
	return applied, nil
}

func (r *redemptionRepository) CancelBySessionID(sessionID, reason string) error {
	return r.db.Model(&models.DealRedemption{}).
		Where("session_id = ? AND status = ?", sessionID, models.RedemptionStatusPending).
		Updates(map[string]interface{}{
			"status":        models.RedemptionStatusCancelled,
			"cancel_reason": reason,
		}).Error
}
