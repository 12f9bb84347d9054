package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder      OutboxAggregateType = "order"
	AggregateStockBatch OutboxAggregateType = "stock_batch"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateStockBatch,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order.created"
	EventOrderConfirmed     OutboxEventType = "order.confirmed"
	EventOrderShipped       OutboxEventType = "order.shipped"
	EventOrderStatusChanged OutboxEventType = "order.status_changed"
	EventOrderCanceled      OutboxEventType = "order.canceled"
	EventOrderCancelRequest OutboxEventType = "order.cancel_requested"
	EventOrderReturnRequest OutboxEventType = "order.return_requested"
	EventOrderPaid          OutboxEventType = "order.paid"
	EventOrderRefunded      OutboxEventType = "order.refunded"
	EventStockBatchSoldOut  OutboxEventType = "stock_batch.sold_out"
)

var validEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderConfirmed,
	EventOrderShipped,
	EventOrderStatusChanged,
	EventOrderCanceled,
	EventOrderCancelRequest,
	EventOrderReturnRequest,
	EventOrderPaid,
	EventOrderRefunded,
	EventStockBatchSoldOut,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
