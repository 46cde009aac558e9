package models

import "time"

// SubscriptionPayment is the recurring-billing counterpart of Payment. It may
// be created lazily from webhook metadata when a charge arrives for a
// subscription that was initialized out of band.
type SubscriptionPayment struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	Reference        string        `gorm:"type:varchar(100);uniqueIndex;not null" json:"reference"`
	SubscriptionID   uint          `gorm:"not null;index" json:"subscription_id"`
	Subscription     *Subscription `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
	Status           PaymentStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Amount           int64         `gorm:"not null" json:"amount"` // smallest currency unit (kobo)
	ProviderResponse string        `gorm:"type:longtext" json:"-"`
	PaidAt           *time.Time    `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt        time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}
