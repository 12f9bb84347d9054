package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Variant is a purchasable product configuration with its own price.
type Variant struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Name        string    `gorm:"column:name;not null"`
	Price       int64     `gorm:"column:price;not null"`
	WeightGrams int       `gorm:"column:weight_grams;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *Variant) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
