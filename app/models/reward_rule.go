package models

import "time"

// Reward actions granted at most once per (event, user).
const (
	RewardActionBooking = "booking_reward"
	RewardActionCheckin = "checkin_reward"
	RewardActionShare   = "share_reward"
)

// RewardRule maps a user action to a coin grant. Rules are admin-configured and
// read-mostly. A NULL EventID makes the rule the global default; an event-scoped
// active rule wins over the global one.
type RewardRule struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	EventID              *uint      `gorm:"index:ix_reward_rules_event_action,priority:1" json:"event_id,omitempty"`
	Action               string     `gorm:"type:varchar(40);not null;index:ix_reward_rules_event_action,priority:2" json:"action"`
	Coins                int        `gorm:"not null;default:0" json:"coins"`
	Multiplier           float64    `gorm:"type:decimal(6,2);not null;default:1" json:"multiplier"`
	DailyLimit           int        `gorm:"not null;default:1" json:"daily_limit"`
	RequiresVerification bool       `gorm:"default:false" json:"requires_verification"`
	ValidFrom            *time.Time `gorm:"type:timestamp;default:null" json:"valid_from,omitempty"`
	ValidUntil           *time.Time `gorm:"type:timestamp;default:null" json:"valid_until,omitempty"`
	IsActive             bool       `gorm:"default:true;index" json:"is_active"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ValidAt reports whether the rule's validity window covers t.
func (r *RewardRule) ValidAt(t time.Time) bool {
	if r.ValidFrom != nil && t.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && t.After(*r.ValidUntil) {
		return false
	}
	return true
}
