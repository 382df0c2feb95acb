package models

import "time"

// Redemption states
const (
	RedemptionStatusPending   = "pending"
	RedemptionStatusActive    = "active"
	RedemptionStatusUsed      = "used"
	RedemptionStatusCancelled = "cancelled"
)

// DealRedemption is a user's purchase of a campaign deal, paid through a
// gateway checkout session. Completion flips it to active and increments the
// campaign purchase counter in the same transaction.
type DealRedemption struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"index;not null" json:"user_id"`
	CampaignID   uint       `gorm:"index;not null" json:"campaign_id"`
	DealIndex    int        `gorm:"not null" json:"deal_index"`
	Status       string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	SessionID    string     `gorm:"type:varchar(191);uniqueIndex" json:"session_id"`
	PaymentRef   string     `gorm:"type:varchar(191)" json:"payment_ref"`
	CancelReason string     `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`
	ActivatedAt  *time.Time `gorm:"type:timestamp;default:null" json:"activated_at,omitempty"`
	UsedAt       *time.Time `gorm:"type:timestamp;default:null" json:"used_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsCompleted reports whether the redemption already reached a terminal
// success state; completion events replayed against such a row are no-ops.
func (r *DealRedemption) IsCompleted() bool {
	return r.Status == RedemptionStatusActive || r.Status == RedemptionStatusUsed
}
