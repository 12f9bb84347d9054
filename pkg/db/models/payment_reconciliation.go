package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// PaymentReconciliation registers an online order with the payment poller.
type PaymentReconciliation struct {
	ID            uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID                  `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	MemoToken     string                     `gorm:"column:memo_token;not null;uniqueIndex"`
	Amount        int64                      `gorm:"column:amount;not null"`
	Attempts      int                        `gorm:"column:attempts;not null;default:0"`
	MaxAttempts   int                        `gorm:"column:max_attempts;not null"`
	Status        enums.ReconciliationStatus `gorm:"column:status;not null"`
	ExternalTxnID *string                    `gorm:"column:external_txn_id"`
	LastPolledAt  *time.Time                 `gorm:"column:last_polled_at"`
	CreatedAt     time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PaymentReconciliation) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
