package enums

import "fmt"

// OrderStatus is the lifecycle status of an order.
type OrderStatus string

const (
	OrderStatusPending                OrderStatus = "pending"
	OrderStatusConfirmed              OrderStatus = "confirmed"
	OrderStatusReadyToPick            OrderStatus = "ready_to_pick"
	OrderStatusPicking                OrderStatus = "picking"
	OrderStatusPicked                 OrderStatus = "picked"
	OrderStatusDelivering             OrderStatus = "delivering"
	OrderStatusMoneyCollectDelivering OrderStatus = "money_collect_delivering"
	OrderStatusDelivered              OrderStatus = "delivered"
	OrderStatusDeliveryFail           OrderStatus = "delivery_fail"
	OrderStatusWaitingToReturn        OrderStatus = "waiting_to_return"
	OrderStatusReturn                 OrderStatus = "return"
	OrderStatusReturned               OrderStatus = "returned"
	OrderStatusReturnFail             OrderStatus = "return_fail"
	OrderStatusCanceled               OrderStatus = "canceled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusReadyToPick,
	OrderStatusPicking,
	OrderStatusPicked,
	OrderStatusDelivering,
	OrderStatusMoneyCollectDelivering,
	OrderStatusDelivered,
	OrderStatusDeliveryFail,
	OrderStatusWaitingToReturn,
	OrderStatusReturn,
	OrderStatusReturned,
	OrderStatusReturnFail,
	OrderStatusCanceled,
}

// OrderStatuses returns every known status in lifecycle order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(validOrderStatuses))
	copy(out, validOrderStatuses)
	return out
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition may leave the status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCanceled, OrderStatusReturned:
		return true
	default:
		return false
	}
}

// InShippingGroup reports whether the order is in the carrier's hands.
func (s OrderStatus) InShippingGroup() bool {
	switch s {
	case OrderStatusPicking,
		OrderStatusPicked,
		OrderStatusDelivering,
		OrderStatusMoneyCollectDelivering,
		OrderStatusDeliveryFail,
		OrderStatusWaitingToReturn,
		OrderStatusReturn,
		OrderStatusReturned,
		OrderStatusReturnFail:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
