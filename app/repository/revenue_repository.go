package repository

import (
	"gorm.io/gorm"

	"github.com/velomart/velomart/app/models"
)

type revenueRepository struct {
	db *gorm.DB
}

// NewRevenueRepository creates a new revenue repository
func NewRevenueRepository(db *gorm.DB) RevenueRepository {
	return &revenueRepository{db: db}
}

func (r *revenueRepository) ListAll() ([]models.RevenueTransaction, error) {
	var transactions []models.RevenueTransaction
	err := r.db.Order("created_at DESC").Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *revenueRepository) TotalAmount() (int64, error) {
	var total int64
	err := r.db.Model(&models.RevenueTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
