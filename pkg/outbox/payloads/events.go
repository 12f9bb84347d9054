package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderEvent is the payload of every order.* outbox event.
type OrderEvent struct {
	OrderID        uuid.UUID           `json:"order_id"`
	UserID         uuid.UUID           `json:"user_id"`
	Status         enums.OrderStatus   `json:"status"`
	PreviousStatus enums.OrderStatus   `json:"previous_status,omitempty"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
	TotalPrice     int64               `json:"total_price"`
	Reason         string              `json:"reason,omitempty"`
	CarrierCode    string              `json:"carrier_code,omitempty"`
	PaymentTxnID   string              `json:"payment_txn_id,omitempty"`
}

// StockBatchEvent is the payload of stock_batch.* outbox events.
type StockBatchEvent struct {
	BatchID           uuid.UUID         `json:"batch_id"`
	VariantID         uuid.UUID         `json:"variant_id"`
	RemainingQuantity int               `json:"remaining_quantity"`
	Status            enums.BatchStatus `json:"status"`
}
