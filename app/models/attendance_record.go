package models

import "time"

// AttendanceRecord ties a user to an event and carries the per-user reward
// ledger for that event. One row per (event_id, user_id).
type AttendanceRecord struct {
	ID         uint          `gorm:"primaryKey" json:"id"`
	EventID    uint          `gorm:"not null;index:ux_attendance_event_user,unique,priority:1" json:"event_id"`
	UserID     uint          `gorm:"not null;index:ux_attendance_event_user,unique,priority:2;index" json:"user_id"`
	Verified   bool          `gorm:"default:false" json:"verified"`
	VerifiedAt *time.Time    `gorm:"type:timestamp;default:null" json:"verified_at,omitempty"`
	Rewards    []RewardGrant `gorm:"foreignKey:AttendanceRecordID" json:"rewards,omitempty"`
	CreatedAt  time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// RewardGrant is one granted reward on an attendance record. The unique index
// on (attendance_record_id, action) makes the grant insert the atomic
// "push-if-absent" claim: for a given record each action can exist at most
// once, enforced by the database rather than a check-then-write pair.
type RewardGrant struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	AttendanceRecordID uint      `gorm:"not null;index:ux_reward_grants_record_action,unique,priority:1" json:"attendance_record_id"`
	UserID             uint      `gorm:"not null;index" json:"user_id"`
	Action             string    `gorm:"type:varchar(40);not null;index:ux_reward_grants_record_action,unique,priority:2;index" json:"action"`
	Coins              int       `gorm:"not null;default:0" json:"coins"`
	CoinTransactionID  string    `gorm:"type:varchar(191)" json:"coin_transaction_id"`
	GrantedAt          time.Time `gorm:"autoCreateTime;index" json:"granted_at"`
}
