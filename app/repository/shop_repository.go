package repository

import (
	"gorm.io/gorm"

	"github.com/velomart/velomart/app/models"
)

type shopRepository struct {
	db *gorm.DB
}

// NewShopRepository creates a new shop repository
func NewShopRepository(db *gorm.DB) ShopRepository {
	return &shopRepository{db: db}
}

func (r *shopRepository) Create(shop *models.Shop) error {
	return r.db.Create(shop).Error
}

func (r *shopRepository) GetByID(id uint) (*models.Shop, error) {
	var shop models.Shop
	err := r.db.First(&shop, id).Error
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepository) GetByOwnerID(ownerID uint) (*models.Shop, error) {
	var shop models.Shop
	err := r.db.Where("owner_id = ?", ownerID).First(&shop).Error
	if err != nil {
		return nil, err
	}
	return &shop, nil
}
