package repository

import (
	"time"

	"github.com/coinkart/CoinKart/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a GORM-backed idempotency ledger.
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) Claim(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	if event.Status == "" {
		event.Status = models.WebhookStatusProcessing
	}
	if event.ExpiresAt.IsZero() {
		event.ExpiresAt = time.Now().Add(models.WebhookEventRetention)
	}

	// The unique index on (provider, provider_event_id) resolves concurrent
	// deliveries: exactly one insert wins, every other caller sees
	// RowsAffected == 0 and treats the event as a duplicate.
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *webhookEventRepository) UpgradeSignature(id uint, event *models.WebhookEvent) (bool, error) {
	tx := r.db.Model(&models.WebhookEvent{}).
		Where("id = ? AND signature_valid = ?", id, false).
		Updates(map[string]interface{}{
			"signature":       event.Signature,
			"signature_valid": true,
			"event_type":      event.EventType,
			"raw_payload":     event.RawPayload,
			"order_id":        event.OrderID,
			"payment_id":      event.PaymentID,
			"amount":          event.Amount,
			"currency":        event.Currency,
			"status":          models.WebhookStatusProcessing,
			"error_message":   "",
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *webhookEventRepository) MarkOutcome(id uint, status string, errMessage string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":        status,
		"processed_at":  &now,
		"error_message": errMessage,
	}
	if status == models.WebhookStatusFailed {
		updates["retry_count"] = gorm.Expr("retry_count + 1")
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *webhookEventRepository) GetByID(id uint) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := r.db.First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *webhookEventRepository) ListFailed(maxRetries, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.
		Where("status = ? AND signature_valid = ? AND retry_count < ?", models.WebhookStatusFailed, true, maxRetries).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *webhookEventRepository) DeleteExpired(now time.Time) (int64, error) {
	tx := r.db.Where("expires_at < ?", now).Delete(&models.WebhookEvent{})
	return tx.RowsAffected, tx.Error
}
