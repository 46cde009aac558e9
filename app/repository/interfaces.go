package repository

import (
	"gorm.io/gorm"

	"github.com/velomart/velomart/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	Update(user *models.User) error
	TouchAPIKeyUsage(id uint) error
}

// ShopRepository defines the interface for shop-related database operations
type ShopRepository interface {
	Create(shop *models.Shop) error
	GetByID(id uint) (*models.Shop, error)
	GetByOwnerID(ownerID uint) (*models.Shop, error)
}

// OrderRepository defines the interface for order-related database operations
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	Update(order *models.Order) error
}

// PaymentRepository defines the interface for one-time payment operations
type PaymentRepository interface {
	GetByOrderID(orderID uint) (*models.Payment, error)
	GetByReference(reference string) (*models.Payment, error)
	Upsert(payment *models.Payment) error
}

// SubscriptionRepository defines the interface for subscription operations
type SubscriptionRepository interface {
	Create(subscription *models.Subscription) error
	GetByShopID(shopID uint) (*models.Subscription, error)
}

// SubscriptionPaymentRepository defines the interface for recurring payment records
type SubscriptionPaymentRepository interface {
	Create(subPayment *models.SubscriptionPayment) error
	GetByReference(reference string) (*models.SubscriptionPayment, error)
}

// RevenueRepository defines the interface for the append-only revenue ledger
type RevenueRepository interface {
	ListAll() ([]models.RevenueTransaction, error)
	TotalAmount() (int64, error)
}

// DeadLetterRepository defines the interface for permanently failed webhook events
type DeadLetterRepository interface {
	Create(deadLetter *models.DeadLetter) error
	GetByID(id string) (*models.DeadLetter, error)
	ListAll() ([]models.DeadLetter, error)
	Delete(id string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User                UserRepository
	Shop                ShopRepository
	Order               OrderRepository
	Payment             PaymentRepository
	Subscription        SubscriptionRepository
	SubscriptionPayment SubscriptionPaymentRepository
	Revenue             RevenueRepository
	DeadLetter          DeadLetterRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:                NewUserRepository(db),
		Shop:                NewShopRepository(db),
		Order:               NewOrderRepository(db),
		Payment:             NewPaymentRepository(db),
		Subscription:        NewSubscriptionRepository(db),
		SubscriptionPayment: NewSubscriptionPaymentRepository(db),
		Revenue:             NewRevenueRepository(db),
		DeadLetter:          NewDeadLetterRepository(db),
	}
}
