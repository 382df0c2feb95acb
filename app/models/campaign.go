package models

import "time"

// Campaign groups a merchant's deals and carries the shared purchase counter
// incremented when a redemption is completed. The counter and the redemption
// status always change inside one database transaction.
type Campaign struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"type:varchar(255);not null" json:"title"`
	MerchantID    uint      `gorm:"index;not null" json:"merchant_id"`
	PurchaseCount int64     `gorm:"not null;default:0" json:"purchase_count"`
	IsActive      bool      `gorm:"default:true;index" json:"is_active"`
	Deals         []Deal    `gorm:"foreignKey:CampaignID" json:"deals,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Deal is one purchasable offer inside a campaign, addressed by its position.
type Deal struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CampaignID uint      `gorm:"not null;index:ux_deals_campaign_position,unique,priority:1" json:"campaign_id"`
	Position   int       `gorm:"not null;index:ux_deals_campaign_position,unique,priority:2" json:"position"`
	Title      string    `gorm:"type:varchar(255);not null" json:"title"`
	Price      float64   `gorm:"type:decimal(12,2);not null" json:"price"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
