package models

import "time"

// PaymentStatus mirrors the provider-side charge lifecycle. The transition to
// SUCCESS is terminal: reapplying a success event must be a no-op.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// Payment is the one-time payment for an order. At most one payment exists
// per order; the provider-assigned reference is the correlation key for
// webhook deliveries.
type Payment struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	Reference        string        `gorm:"type:varchar(100);uniqueIndex;not null" json:"reference"`
	OrderID          uint          `gorm:"uniqueIndex;not null" json:"order_id"`
	Order            *Order        `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	Status           PaymentStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Amount           int64         `gorm:"not null" json:"amount"` // smallest currency unit (kobo)
	ProviderResponse string        `gorm:"type:longtext" json:"-"`
	PaidAt           *time.Time    `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt        time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}
