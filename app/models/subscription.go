package models

import "time"

// SubscriptionStatus tracks a shop's recurring billing state.
type SubscriptionStatus string

const (
	SubscriptionStatusTrial     SubscriptionStatus = "TRIAL"
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
)

// Subscription is the monthly platform subscription of a shop. A successful
// subscription payment extends the billing period by one calendar month from
// the later of now and the existing period end.
type Subscription struct {
	ID                 uint               `gorm:"primaryKey" json:"id"`
	ShopID             uint               `gorm:"uniqueIndex;not null" json:"shop_id"`
	Shop               *Shop              `gorm:"foreignKey:ShopID" json:"shop,omitempty"`
	Status             SubscriptionStatus `gorm:"type:varchar(20);not null;default:'TRIAL';index" json:"status"`
	Amount             int64              `gorm:"not null;default:0" json:"amount"` // smallest currency unit (kobo)
	TrialEndsAt        *time.Time         `gorm:"type:timestamp;default:null" json:"trial_ends_at,omitempty"`
	CurrentPeriodStart *time.Time         `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time         `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CreatedAt          time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}
