package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/address"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type ItemResponse struct {
	ID        uuid.UUID  `json:"id"`
	VariantID uuid.UUID  `json:"variant_id"`
	BatchID   *uuid.UUID `json:"batch_id,omitempty"`
	Quantity  int        `json:"quantity"`
	UnitPrice int64      `json:"unit_price"`
	LineTotal int64      `json:"line_total"`
}

type DestinationResponse struct {
	RecipientName  string               `json:"recipient_name"`
	RecipientPhone string               `json:"recipient_phone"`
	AddressLine    string               `json:"address_line"`
	ProvinceCode   int                  `json:"province_code,omitempty"`
	DistrictCode   int                  `json:"district_code"`
	WardCode       string               `json:"ward_code"`
	Names          *address.Description `json:"names,omitempty"`
	Formatted      string               `json:"formatted,omitempty"`
}

// OrderResponse is the public rendering of an order.
type OrderResponse struct {
	ID               uuid.UUID            `json:"id"`
	UserID           uuid.UUID            `json:"user_id"`
	Status           enums.OrderStatus    `json:"status"`
	PaymentMethod    enums.PaymentMethod  `json:"payment_method"`
	PaymentStatus    *enums.PaymentStatus `json:"payment_status,omitempty"`
	PaymentLink      *string              `json:"payment_link,omitempty"`
	PaidAt           *time.Time           `json:"paid_at,omitempty"`
	Subtotal         int64                `json:"subtotal"`
	ShippingFee      int64                `json:"shipping_fee"`
	DiscountCode     *string              `json:"discount_code,omitempty"`
	DiscountAmount   int64                `json:"discount_amount"`
	TotalPrice       int64                `json:"total_price"`
	CarrierOrderCode *string              `json:"carrier_order_code,omitempty"`
	CancelRequest    bool                 `json:"cancel_request"`
	ReturnRequest    bool                 `json:"return_request"`
	CancelReason     *string              `json:"cancel_reason,omitempty"`
	DeliveredAt      *time.Time           `json:"delivered_at,omitempty"`
	CanceledAt       *time.Time           `json:"canceled_at,omitempty"`
	Destination      DestinationResponse  `json:"destination"`
	Items            []ItemResponse       `json:"items"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

type listResponse struct {
	Orders     []OrderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type refundLinkResponse struct {
	OrderID uuid.UUID `json:"order_id"`
	URL     string    `json:"url"`
}

// NewOrderResponse renders an order and its loaded items.
func NewOrderResponse(o *models.Order) OrderResponse {
	items := make([]ItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, ItemResponse{
			ID:        item.ID,
			VariantID: item.VariantID,
			BatchID:   item.BatchID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: int64(item.Quantity) * item.UnitPrice,
		})
	}
	return OrderResponse{
		ID:               o.ID,
		UserID:           o.UserID,
		Status:           o.Status,
		PaymentMethod:    o.PaymentMethod,
		PaymentStatus:    o.PaymentStatus,
		PaymentLink:      o.PaymentLink,
		PaidAt:           o.PaidAt,
		Subtotal:         o.ItemsSubtotal(),
		ShippingFee:      o.ShippingFee,
		DiscountCode:     o.DiscountCode,
		DiscountAmount:   o.DiscountAmount,
		TotalPrice:       o.TotalPrice,
		CarrierOrderCode: o.CarrierOrderCode,
		CancelRequest:    o.CancelRequest,
		ReturnRequest:    o.ReturnRequest,
		CancelReason:     o.CancelReason,
		DeliveredAt:      o.DeliveredAt,
		CanceledAt:       o.CanceledAt,
		Destination: DestinationResponse{
			RecipientName:  o.RecipientName,
			RecipientPhone: o.RecipientPhone,
			AddressLine:    o.AddressLine,
			ProvinceCode:   o.ProvinceCode,
			DistrictCode:   o.DistrictCode,
			WardCode:       o.WardCode,
		},
		Items:     items,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func newListResponse(list *internalorders.OrderList) listResponse {
	resp := listResponse{Orders: make([]OrderResponse, 0)}
	if list == nil {
		return resp
	}
	resp.NextCursor = list.NextCursor
	for i := range list.Orders {
		resp.Orders = append(resp.Orders, NewOrderResponse(&list.Orders[i]))
	}
	return resp
}
