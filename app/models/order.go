package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus tracks an order through its fulfilment lifecycle.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

type Order struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	OrderNumber     string         `gorm:"type:varchar(40);uniqueIndex;not null" json:"order_number"`
	ShopID          uint           `gorm:"not null;index" json:"shop_id"`
	Shop            *Shop          `gorm:"foreignKey:ShopID" json:"shop,omitempty"`
	CustomerID      uint           `gorm:"not null;index" json:"customer_id"`
	Customer        *User          `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Status          OrderStatus    `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	TotalAmount     int64          `gorm:"not null" json:"total_amount"` // smallest currency unit (kobo)
	DeliveryAddress string         `gorm:"type:varchar(255)" json:"delivery_address"`
	DeliveryCity    string         `gorm:"type:varchar(100)" json:"delivery_city"`
	DeliveryState   string         `gorm:"type:varchar(100)" json:"delivery_state"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}
