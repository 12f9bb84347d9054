package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is the fulfillment aggregate. The destination snapshot and
// TotalPrice are fixed at creation.
type Order struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID            `gorm:"column:user_id;type:uuid;not null"`
	RecipientName    string               `gorm:"column:recipient_name;not null"`
	RecipientPhone   string               `gorm:"column:recipient_phone;not null"`
	AddressLine      string               `gorm:"column:address_line;not null"`
	ProvinceCode     int                  `gorm:"column:province_code"`
	DistrictCode     int                  `gorm:"column:district_code;not null"`
	WardCode         string               `gorm:"column:ward_code;not null"`
	PaymentMethod    enums.PaymentMethod  `gorm:"column:payment_method;not null"`
	PaymentStatus    *enums.PaymentStatus `gorm:"column:payment_status"`
	PaymentLink      *string              `gorm:"column:payment_link"`
	PaymentTxnID     *string              `gorm:"column:payment_txn_id"`
	PaidAt           *time.Time           `gorm:"column:paid_at"`
	ShippingFee      int64                `gorm:"column:shipping_fee;not null;default:0"`
	DiscountCode     *string              `gorm:"column:discount_code"`
	DiscountAmount   int64                `gorm:"column:discount_amount;not null;default:0"`
	TotalPrice       int64                `gorm:"column:total_price;not null"`
	Status           enums.OrderStatus    `gorm:"column:status;not null"`
	CarrierOrderCode *string              `gorm:"column:carrier_order_code"`
	CarrierServiceID *int                 `gorm:"column:carrier_service_id"`
	CancelRequest    bool                 `gorm:"column:cancel_request;not null;default:false"`
	ReturnRequest    bool                 `gorm:"column:return_request;not null;default:false"`
	CancelReason     *string              `gorm:"column:cancel_reason"`
	DeliveredAt      *time.Time           `gorm:"column:delivered_at"`
	CanceledAt       *time.Time           `gorm:"column:canceled_at"`
	Version          int                  `gorm:"column:version;not null;default:1"`
	Items            []OrderItem          `gorm:"foreignKey:OrderID;references:ID"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Version == 0 {
		o.Version = 1
	}
	return nil
}

// ItemsSubtotal sums quantity times unit price over the loaded items.
func (o Order) ItemsSubtotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += int64(item.Quantity) * item.UnitPrice
	}
	return total
}

// OrderItem is one line of an order. BatchID is bound at confirmation.
type OrderItem struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	VariantID uuid.UUID  `gorm:"column:variant_id;type:uuid;not null"`
	BatchID   *uuid.UUID `gorm:"column:batch_id;type:uuid"`
	Quantity  int        `gorm:"column:quantity;not null"`
	UnitPrice int64      `gorm:"column:unit_price;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
