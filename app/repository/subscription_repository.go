package repository

import (
	"gorm.io/gorm"

	"github.com/velomart/velomart/app/models"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(subscription *models.Subscription) error {
	return r.db.Create(subscription).Error
}

func (r *subscriptionRepository) GetByShopID(shopID uint) (*models.Subscription, error) {
	var subscription models.Subscription
	err := r.db.Where("shop_id = ?", shopID).First(&subscription).Error
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

type subscriptionPaymentRepository struct {
	db *gorm.DB
}

// NewSubscriptionPaymentRepository creates a new subscription payment repository
func NewSubscriptionPaymentRepository(db *gorm.DB) SubscriptionPaymentRepository {
	return &subscriptionPaymentRepository{db: db}
}

func (r *subscriptionPaymentRepository) Create(subPayment *models.SubscriptionPayment) error {
	return r.db.Omit("Subscription").Create(subPayment).Error
}

func (r *subscriptionPaymentRepository) GetByReference(reference string) (*models.SubscriptionPayment, error) {
	var subPayment models.SubscriptionPayment
	err := r.db.Preload("Subscription").Where("reference = ?", reference).First(&subPayment).Error
	if err != nil {
		return nil, err
	}
	return &subPayment, nil
}
