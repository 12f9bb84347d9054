package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

const orderNotificationConsumer = "order-notifications"

type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, message, link string) error
	NotifyOperator(ctx context.Context, title, message, link string) error
}

type processedMarker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
	CheckAndMarkKey(ctx context.Context, consumer, key string) (bool, error)
	DeleteKey(ctx context.Context, consumer, key string) error
}

// Consumer watches order events and turns them into customer and operator
// notifications.
type Consumer struct {
	notifier     notifier
	subscription *pubsub.Subscriber
	idempotency  processedMarker
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer. The subscription may be
// nil when messages are fed to Handle directly.
func NewConsumer(n notifier, subscription *pubsub.Subscriber, manager processedMarker, logg *logger.Logger) (*Consumer, error) {
	if n == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		notifier:     n,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("orders subscription required")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.Handle(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Handle processes one message and reports whether it should be acked.
func (c *Consumer) Handle(ctx context.Context, msg *pubsub.Message) bool {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	if !handled(eventType) {
		c.logg.Info(logCtx, "skipping unhandled event")
		return true
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return true
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return true
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return false
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return true
	}

	var payload payloads.OrderEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return false
	}
	logCtx = c.logg.WithOrderID(logCtx, payload.OrderID.String())

	if err := c.dispatch(logCtx, eventID, eventType, payload); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return false
	}
	return true
}

func handled(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventOrderCreated,
		enums.EventOrderConfirmed,
		enums.EventOrderShipped,
		enums.EventOrderStatusChanged,
		enums.EventOrderCanceled,
		enums.EventOrderCancelRequest,
		enums.EventOrderReturnRequest,
		enums.EventOrderPaid,
		enums.EventOrderRefunded:
		return true
	}
	return false
}

func (c *Consumer) dispatch(ctx context.Context, eventID uuid.UUID, eventType enums.OutboxEventType, payload payloads.OrderEvent) error {
	if payload.OrderID == uuid.Nil {
		return fmt.Errorf("order id missing")
	}
	d := delivery{consumer: c, eventID: eventID, payload: payload}
	ref := shortRef(payload.OrderID)
	customerLink := fmt.Sprintf("/orders/%s", payload.OrderID)
	operatorLink := fmt.Sprintf("/admin/orders/%s", payload.OrderID)

	switch eventType {
	case enums.EventOrderCreated:
		if err := d.operator(ctx, "New order",
			fmt.Sprintf("Order %s was placed for %s VND (%s).", ref, formatVND(payload.TotalPrice), payload.PaymentMethod),
			operatorLink); err != nil {
			return err
		}
		return d.customer(ctx, "Order placed",
			fmt.Sprintf("We received order %s. Total %s VND.", ref, formatVND(payload.TotalPrice)), customerLink)
	case enums.EventOrderConfirmed:
		return d.customer(ctx, "Order confirmed",
			fmt.Sprintf("Order %s has been confirmed and is being prepared.", ref), customerLink)
	case enums.EventOrderShipped:
		message := fmt.Sprintf("Order %s was handed to the carrier.", ref)
		if payload.CarrierCode != "" {
			message = fmt.Sprintf("Order %s was handed to the carrier. Tracking code %s.", ref, payload.CarrierCode)
		}
		return d.customer(ctx, "Order shipped", message, customerLink)
	case enums.EventOrderStatusChanged:
		return d.customer(ctx, "Order update",
			fmt.Sprintf("Order %s is now %s.", ref, humanStatus(payload.Status)), customerLink)
	case enums.EventOrderCanceled:
		message := fmt.Sprintf("Order %s was canceled.", ref)
		if reason := strings.TrimSpace(payload.Reason); reason != "" {
			message = fmt.Sprintf("Order %s was canceled. Reason: %s", ref, reason)
		}
		if err := d.operator(ctx, "Order canceled", message, operatorLink); err != nil {
			return err
		}
		return d.customer(ctx, "Order canceled", message, customerLink)
	case enums.EventOrderCancelRequest:
		return d.operator(ctx, "Cancellation requested",
			fmt.Sprintf("The customer asked to cancel order %s.", ref), operatorLink)
	case enums.EventOrderReturnRequest:
		return d.operator(ctx, "Return requested",
			fmt.Sprintf("The customer asked to return order %s.", ref), operatorLink)
	case enums.EventOrderPaid:
		return d.customer(ctx, "Payment received",
			fmt.Sprintf("We received %s VND for order %s.", formatVND(payload.TotalPrice), ref), customerLink)
	case enums.EventOrderRefunded:
		return d.customer(ctx, "Refund sent",
			fmt.Sprintf("The payment for order %s has been refunded.", ref), customerLink)
	}
	return nil
}

// delivery sends each recipient's notification at most once per event, so a
// redelivery after a partial failure only retries the recipients that missed
// out.
type delivery struct {
	consumer *Consumer
	eventID  uuid.UUID
	payload  payloads.OrderEvent
}

func (d delivery) operator(ctx context.Context, title, message, link string) error {
	return d.once(ctx, "operator", func() error {
		return d.consumer.notifier.NotifyOperator(ctx, title, message, link)
	})
}

func (d delivery) customer(ctx context.Context, title, message, link string) error {
	if d.payload.UserID == uuid.Nil {
		return fmt.Errorf("user id missing")
	}
	return d.once(ctx, "customer", func() error {
		return d.consumer.notifier.Notify(ctx, d.payload.UserID, title, message, link)
	})
}

func (d delivery) once(ctx context.Context, recipient string, send func() error) error {
	key := d.eventID.String() + ":" + recipient
	already, err := d.consumer.idempotency.CheckAndMarkKey(ctx, orderNotificationConsumer, key)
	if err != nil {
		return fmt.Errorf("recipient idempotency check: %w", err)
	}
	if already {
		return nil
	}
	if err := send(); err != nil {
		_ = d.consumer.idempotency.DeleteKey(ctx, orderNotificationConsumer, key)
		return err
	}
	return nil
}

func shortRef(id uuid.UUID) string {
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

func humanStatus(status enums.OrderStatus) string {
	return strings.ReplaceAll(string(status), "_", " ")
}

// formatVND groups thousands with dots, e.g. 1.250.000.
func formatVND(amount int64) string {
	if amount < 0 {
		return "-" + formatVND(-amount)
	}
	if amount < 1000 {
		return fmt.Sprintf("%d", amount)
	}
	return fmt.Sprintf("%s.%03d", formatVND(amount/1000), amount%1000)
}
