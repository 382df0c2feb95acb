package models

import "time"

// Webhook providers
const (
	WebhookProviderRazorpay = "razorpay"
	WebhookProviderStripe   = "stripe"
)

// Webhook event processing states. Duplicates never get a row of their own,
// the original row keeps whatever state it reached.
const (
	WebhookStatusPending    = "pending"
	WebhookStatusProcessing = "processing"
	WebhookStatusSuccess    = "success"
	WebhookStatusFailed     = "failed"
)

// Ledger rows are kept for audit/replay and purged after this window.
const WebhookEventRetention = 90 * 24 * time.Hour

// WebhookEvent is the durable idempotency ledger for inbound gateway events.
// The unique index on (provider, provider_event_id) is the single authoritative
// duplicate-suppression mechanism: a second insert for the same pair is detected
// by the database, never by an application-level existence check.
type WebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index:ux_webhook_events_provider_event,unique,priority:1;index" json:"provider"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;index:ux_webhook_events_provider_event,unique,priority:2" json:"provider_event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	RawPayload      string     `gorm:"type:longtext;not null" json:"raw_payload"`
	Signature       string     `gorm:"type:varchar(512)" json:"signature"`
	SignatureValid  bool       `gorm:"default:false;index" json:"signature_valid"`
	Status          string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ErrorMessage    string     `gorm:"type:text" json:"error_message"`
	RetryCount      int        `gorm:"default:0" json:"retry_count"`
	OrderID         string     `gorm:"type:varchar(191);index" json:"order_id"`
	PaymentID       string     `gorm:"type:varchar(191);index" json:"payment_id"`
	Amount          float64    `gorm:"type:decimal(12,2);default:0" json:"amount"`
	Currency        string     `gorm:"type:varchar(10)" json:"currency"`
	ExpiresAt       time.Time  `gorm:"index" json:"expires_at"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
