package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// DiscountCode stores a redeemable discount rule.
type DiscountCode struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	Code          string                  `gorm:"column:code;not null;uniqueIndex"`
	AppliesTo     enums.DiscountAppliesTo `gorm:"column:applies_to;not null"`
	Type          enums.DiscountType      `gorm:"column:type;not null"`
	Value         int64                   `gorm:"column:value;not null"`
	MaxAmount     *int64                  `gorm:"column:max_amount"`
	MinOrderTotal int64                   `gorm:"column:min_order_total;not null;default:0"`
	Active        bool                    `gorm:"column:active;not null"`
	StartsAt      *time.Time              `gorm:"column:starts_at"`
	EndsAt        *time.Time              `gorm:"column:ends_at"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (d *DiscountCode) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
