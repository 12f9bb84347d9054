package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// User carries the delivery profile used at checkout. Identity fields are owned
// by the auth service.
type User struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Email        string          `gorm:"column:email;not null;uniqueIndex"`
	Role         enums.ActorRole `gorm:"column:role;not null;default:customer"`
	FullName     string          `gorm:"column:full_name"`
	Phone        string          `gorm:"column:phone"`
	AddressLine  string          `gorm:"column:address_line"`
	ProvinceCode int             `gorm:"column:province_code"`
	DistrictCode int             `gorm:"column:district_code"`
	WardCode     string          `gorm:"column:ward_code"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
