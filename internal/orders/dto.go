package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ListFilter describes the operator order queue.
type ListFilter struct {
	ActorRole enums.ActorRole
	Status    *enums.OrderStatus
	Params    pagination.Params
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// ConfirmInput carries an operator confirmation.
type ConfirmInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
}

// ShipInput hands a confirmed order to the carrier.
type ShipInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
	Note        string
}

// CancelInput cancels, or requests cancellation of, an order.
type CancelInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
	Reason      string
}

type RejectInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
	Reason      string
}

type ReturnRequestInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
}

// CarrierStatusInput is a status callback from the carrier.
type CarrierStatusInput struct {
	CarrierOrderCode string
	Status           enums.OrderStatus
	OccurredAt       time.Time
}

// MarkPaidInput records a matched bank transfer.
type MarkPaidInput struct {
	OrderID uuid.UUID
	TxnID   string
	PaidAt  time.Time
}

type MarkRefundedInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
}

type RefundLinkInput struct {
	OrderID   uuid.UUID
	ActorRole enums.ActorRole
}

type GetInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
}
