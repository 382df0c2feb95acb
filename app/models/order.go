package models

import "time"

// Order payment states
const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusPaid       = "paid"
	PaymentStatusFailed     = "failed"
	PaymentStatusRefunded   = "refunded"
)

// Anomaly flags recorded on an order without touching its payment status.
const (
	OrderFlagAmountMismatch = "amount_mismatch"
)

// Order is the purchasable aggregate mutated by the webhook processor. Only the
// payment sub-state and totals are owned here; catalog/cart fields live with the
// (out of scope) shop surface.
type Order struct {
	ID            uint                 `gorm:"primaryKey" json:"id"`
	OrderNumber   string               `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_number"`
	UserID        uint                 `gorm:"index;not null" json:"user_id"`
	TotalAmount   float64              `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	PaidAmount    float64              `gorm:"type:decimal(12,2);default:0" json:"paid_amount"`
	RefundAmount  float64              `gorm:"type:decimal(12,2);default:0" json:"refund_amount"`
	Currency      string               `gorm:"type:varchar(10);default:'INR'" json:"currency"`
	PaymentStatus string               `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status"`
	GatewayOrder  string               `gorm:"type:varchar(191);index" json:"gateway_order"`
	TransactionID string               `gorm:"type:varchar(191);index" json:"transaction_id"`
	PaidAt        *time.Time           `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	RefundID      string               `gorm:"type:varchar(191)" json:"refund_id"`
	RefundedAt    *time.Time           `gorm:"type:timestamp;default:null" json:"refunded_at,omitempty"`
	Timeline      []OrderTimelineEntry `gorm:"foreignKey:OrderID" json:"timeline,omitempty"`
	Flags         []OrderFlag          `gorm:"foreignKey:OrderID" json:"flags,omitempty"`
	CreatedAt     time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

// OrderTimelineEntry is an append-only audit row. Entries are only ever
// inserted, one per payment transition, and never rewritten.
type OrderTimelineEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"index;not null" json:"order_id"`
	Status    string    `gorm:"type:varchar(40);not null" json:"status"`
	Message   string    `gorm:"type:varchar(512)" json:"message"`
	Metadata  JSON      `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// OrderFlag records an anomaly (e.g. amount_mismatch) for manual review.
type OrderFlag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"index;not null" json:"order_id"`
	Flag      string    `gorm:"type:varchar(40);not null;index" json:"flag"`
	Detail    string    `gorm:"type:varchar(512)" json:"detail"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
