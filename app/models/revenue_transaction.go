package models

import "time"

const (
	TransactionTypeOrderPayment = "order_payment"
	TransactionTypeSubscription = "subscription"

	PaymentMethodPaystack = "paystack"
)

// RevenueTransaction is an append-only ledger entry recorded once per
// successfully processed charge. Rows are never updated or deleted.
type RevenueTransaction struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ShopID           *uint     `gorm:"index" json:"shop_id,omitempty"`
	OrderID          *uint     `gorm:"index" json:"order_id,omitempty"`
	SubscriptionID   *uint     `gorm:"index" json:"subscription_id,omitempty"`
	Amount           int64     `gorm:"not null" json:"amount"` // smallest currency unit (kobo)
	Currency         string    `gorm:"type:varchar(10);not null;default:'NGN'" json:"currency"`
	PaymentReference string    `gorm:"type:varchar(100);not null;index" json:"payment_reference"`
	PaymentMethod    string    `gorm:"type:varchar(40);not null" json:"payment_method"`
	TransactionType  string    `gorm:"type:varchar(40);not null;index" json:"transaction_type"`
	Metadata         string    `gorm:"type:longtext" json:"metadata"` // raw provider event JSON
	CreatedAt        time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
