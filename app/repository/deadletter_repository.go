package repository

import (
	"gorm.io/gorm"

	"github.com/velomart/velomart/app/models"
)

type deadLetterRepository struct {
	db *gorm.DB
}

// NewDeadLetterRepository creates a new dead letter repository
func NewDeadLetterRepository(db *gorm.DB) DeadLetterRepository {
	return &deadLetterRepository{db: db}
}

func (r *deadLetterRepository) Create(deadLetter *models.DeadLetter) error {
	return r.db.Create(deadLetter).Error
}

func (r *deadLetterRepository) GetByID(id string) (*models.DeadLetter, error) {
	var deadLetter models.DeadLetter
	err := r.db.Where("id = ?", id).First(&deadLetter).Error
	if err != nil {
		return nil, err
	}
	return &deadLetter, nil
}

func (r *deadLetterRepository) ListAll() ([]models.DeadLetter, error) {
	var deadLetters []models.DeadLetter
	err := r.db.Order("created_at DESC").Find(&deadLetters).Error
	if err != nil {
		return nil, err
	}
	return deadLetters, nil
}

func (r *deadLetterRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&models.DeadLetter{}).Error
}
