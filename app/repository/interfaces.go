package repository

import (
	"time"

	"github.com/coinkart/CoinKart/app/models"
	"gorm.io/gorm"
)

// WebhookEventRepository is the idempotency ledger for inbound gateway events.
type WebhookEventRepository interface {
	// Claim inserts the ledger row with status processing. created=false means
	// the (provider, provider_event_id) pair already exists: the event is a
	// duplicate and must not be processed again.
	Claim(event *models.WebhookEvent) (created bool, stored *models.WebhookEvent, err error)
	// UpgradeSignature flips an unverified row back to processing and replaces
	// its payload with the verified delivery's, so a genuine delivery can take
	// over a slot a forged one claimed first. The update is conditional on
	// signature_valid being false, so exactly one concurrent verified delivery
	// wins the takeover.
	UpgradeSignature(id uint, event *models.WebhookEvent) (upgraded bool, err error)
	MarkOutcome(id uint, status string, errMessage string) error
	GetByID(id uint) (*models.WebhookEvent, error)
	ListFailed(maxRetries, limit int) ([]models.WebhookEvent, error)
	DeleteExpired(now time.Time) (int64, error)
}

// OrderRepository defines order lookup and payment-state persistence.
type OrderRepository interface {
	GetByID(id uint) (*models.Order, error)
	GetByOrderNumber(orderNumber string) (*models.Order, error)
	GetByGatewayOrder(gatewayOrder string) (*models.Order, error)
	GetByTransactionID(transactionID string) (*models.Order, error)
	Save(order *models.Order) error
	AppendTimeline(entry *models.OrderTimelineEntry) error
	AddFlag(flag *models.OrderFlag) error
}

// RewardRepository backs the reward grant engine.
type RewardRepository interface {
	// FindActiveRule resolves the event-scoped rule, falling back to the global
	// rule (event_id IS NULL). Returns gorm.ErrRecordNotFound if neither exists.
	FindActiveRule(eventID uint, action string, at time.Time) (*models.RewardRule, error)
	SaveRule(rule *models.RewardRule) error
	GetOrCreateAttendance(eventID, userID uint) (*models.AttendanceRecord, error)
	// CountGrantsOn counts a user's grants of one action across all events
	// within [dayStart, dayEnd).
	CountGrantsOn(userID uint, action string, dayStart, dayEnd time.Time) (int64, error)
	// ClaimGrant atomically inserts the grant row; claimed=false means another
	// caller already holds the (record, action) slot.
	ClaimGrant(grant *models.RewardGrant) (claimed bool, err error)
	SetGrantTransaction(grantID uint, coinTransactionID string) error
	// ReleaseGrant removes a claimed grant whose coin award failed, so a later
	// request may retry.
	ReleaseGrant(grantID uint) error
}

// RedemptionRepository handles checkout-session completion across the
// redemption and campaign aggregates.
type RedemptionRepository interface {
	GetBySessionID(sessionID string) (*models.DealRedemption, error)
	// CompleteCheckout activates the redemption and increments the campaign
	// purchase counter as one transaction. Returns (false, nil) when the
	// redemption was already completed (deliberate no-op).
	CompleteCheckout(sessionID, paymentRef string) (applied bool, err error)
	CancelBySessionID(sessionID, reason string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	WebhookEvent WebhookEventRepository
	Order        OrderRepository
	Reward       RewardRepository
	Redemption   RedemptionRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		WebhookEvent: NewWebhookEventRepository(db),
		Order:        NewOrderRepository(db),
		Reward:       NewRewardRepository(db),
		Redemption:   NewRedemptionRepository(db),
	}
}
