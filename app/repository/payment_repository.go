package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/velomart/velomart/app/models"
)

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) GetByOrderID(orderID uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Where("order_id = ?", orderID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) GetByReference(reference string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Preload("Order").Where("reference = ?", reference).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Upsert keeps a single payment row per order. Re-initializing checkout for
// an order replaces the pending reference instead of adding a second row.
func (r *paymentRepository) Upsert(payment *models.Payment) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"reference", "amount", "status", "updated_at"}),
	}).Omit("Order").Create(payment).Error
}
