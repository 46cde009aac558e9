package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeadLetter records a webhook event that exhausted all retry attempts. It is
// created only by the retry scheduler and removed by an admin after manual
// reprocessing or dismissal.
type DeadLetter struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Queue     string    `gorm:"type:varchar(50);not null;index" json:"queue"`
	Event     string    `gorm:"type:varchar(100)" json:"event"`
	Reference string    `gorm:"type:varchar(100);index" json:"reference"`
	Payload   string    `gorm:"type:longtext;not null" json:"payload"` // raw event JSON as delivered
	Signature string    `gorm:"type:varchar(200)" json:"signature"`
	Error     string    `gorm:"type:text" json:"error"`
	Attempts  int       `gorm:"not null" json:"attempts"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (d *DeadLetter) BeforeCreate(_ *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}
