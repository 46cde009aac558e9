package webhook

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/velomart/velomart/app/models"
)

// Repository provides the DB operations used by the processor. The Complete*
// methods are the only mutation points and each applies its writes as a
// single all-or-nothing transaction.
type Repository interface {
	FindPaymentByReference(ctx context.Context, reference string) (*models.Payment, error)
	CompleteOrderPayment(ctx context.Context, payment *models.Payment, paidAt time.Time, rawEvent string, revenue *models.RevenueTransaction) error

	FindSubscriptionPaymentByReference(ctx context.Context, reference string) (*models.SubscriptionPayment, error)
	FindSubscriptionByID(ctx context.Context, id uint) (*models.Subscription, error)
	FindSubscriptionByShopID(ctx context.Context, shopID uint) (*models.Subscription, error)
	CreateSubscriptionPayment(ctx context.Context, subPayment *models.SubscriptionPayment) error
	CompleteSubscriptionPayment(ctx context.Context, subPayment *models.SubscriptionPayment, paidAt, periodEnd time.Time, rawEvent string, revenue *models.RevenueTransaction) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a webhook repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindPaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Order").
		Where("reference = ?", reference).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormRepository) CompleteOrderPayment(ctx context.Context, payment *models.Payment, paidAt time.Time, rawEvent string, revenue *models.RevenueTransaction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Payment{}).
			Where("id = ?", payment.ID).
			Updates(map[string]interface{}{
				"status":            models.PaymentStatusSuccess,
				"provider_response": rawEvent,
				"paid_at":           paidAt,
			}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Order{}).
			Where("id = ?", payment.OrderID).
			Update("status", models.OrderStatusProcessing).Error; err != nil {
			return err
		}

		return tx.Create(revenue).Error
	})
}

func (r *gormRepository) FindSubscriptionPaymentByReference(ctx context.Context, reference string) (*models.SubscriptionPayment, error) {
	var subPayment models.SubscriptionPayment
	err := r.db.WithContext(ctx).
		Preload("Subscription").
		Where("reference = ?", reference).
		First(&subPayment).Error
	if err != nil {
		return nil, err
	}
	return &subPayment, nil
}

func (r *gormRepository) FindSubscriptionByID(ctx context.Context, id uint) (*models.Subscription, error) {
	var subscription models.Subscription
	err := r.db.WithContext(ctx).First(&subscription, id).Error
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

func (r *gormRepository) FindSubscriptionByShopID(ctx context.Context, shopID uint) (*models.Subscription, error) {
	var subscription models.Subscription
	err := r.db.WithContext(ctx).Where("shop_id = ?", shopID).First(&subscription).Error
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

func (r *gormRepository) CreateSubscriptionPayment(ctx context.Context, subPayment *models.SubscriptionPayment) error {
	if subPayment == nil {
		return errors.New("subscription payment is required")
	}
	// Omit the association so a concurrent period update cannot be clobbered
	// by a stale preloaded Subscription.
	return r.db.WithContext(ctx).Omit("Subscription").Create(subPayment).Error
}

func (r *gormRepository) CompleteSubscriptionPayment(ctx context.Context, subPayment *models.SubscriptionPayment, paidAt, periodEnd time.Time, rawEvent string, revenue *models.RevenueTransaction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.SubscriptionPayment{}).
			Where("id = ?", subPayment.ID).
			Updates(map[string]interface{}{
				"status":            models.PaymentStatusSuccess,
				"provider_response": rawEvent,
				"paid_at":           paidAt,
			}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Subscription{}).
			Where("id = ?", subPayment.SubscriptionID).
			Updates(map[string]interface{}{
				"status":               models.SubscriptionStatusActive,
				"current_period_start": paidAt,
				"current_period_end":   periodEnd,
			}).Error; err != nil {
			return err
		}

		return tx.Create(revenue).Error
	})
}
