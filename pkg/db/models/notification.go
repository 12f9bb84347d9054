package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification stores in-app notifications scoped to a user.
type Notification struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null"`
	Title     string     `gorm:"column:title;not null"`
	Message   string     `gorm:"column:message;not null"`
	Link      *string    `gorm:"column:link"`
	IsRead    bool       `gorm:"column:is_read;not null;default:false"`
	ReadAt    *time.Time `gorm:"column:read_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
