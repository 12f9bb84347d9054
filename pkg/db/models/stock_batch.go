package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// StockBatch is one dated lot of stock for a variant. RemainingQuantity is
// only changed through the inventory ledger's conditional updates.
type StockBatch struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	BatchCode         string            `gorm:"column:batch_code;not null;uniqueIndex"`
	VariantID         uuid.UUID         `gorm:"column:variant_id;type:uuid;not null"`
	ImportPrice       int64             `gorm:"column:import_price;not null;default:0"`
	Quantity          int               `gorm:"column:quantity;not null"`
	RemainingQuantity int               `gorm:"column:remaining_quantity;not null"`
	ExpiryDate        *time.Time        `gorm:"column:expiry_date"`
	ImportDate        time.Time         `gorm:"column:import_date;not null"`
	Status            enums.BatchStatus `gorm:"column:status;not null"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *StockBatch) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
