package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type sentNotification struct {
	operator bool
	userID   uuid.UUID
	title    string
	message  string
}

type recordingNotifier struct {
	sent        []sentNotification
	err         error
	customerErr error
}

func (r *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, title, message, _ string) error {
	r.sent = append(r.sent, sentNotification{userID: userID, title: title, message: message})
	if r.customerErr != nil {
		return r.customerErr
	}
	return r.err
}

func (r *recordingNotifier) NotifyOperator(_ context.Context, title, message, _ string) error {
	r.sent = append(r.sent, sentNotification{operator: true, title: title, message: message})
	return r.err
}

type memoryMarker struct {
	seen    map[uuid.UUID]bool
	keys    map[string]bool
	deleted int
	err     error
}

func (m *memoryMarker) CheckAndMarkProcessed(_ context.Context, _ string, eventID uuid.UUID) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.seen == nil {
		m.seen = map[uuid.UUID]bool{}
	}
	if m.seen[eventID] {
		return true, nil
	}
	m.seen[eventID] = true
	return false, nil
}

func (m *memoryMarker) Delete(_ context.Context, _ string, eventID uuid.UUID) error {
	m.deleted++
	delete(m.seen, eventID)
	return nil
}

func (m *memoryMarker) CheckAndMarkKey(_ context.Context, _ string, key string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[key] {
		return true, nil
	}
	m.keys[key] = true
	return false, nil
}

func (m *memoryMarker) DeleteKey(_ context.Context, _ string, key string) error {
	delete(m.keys, key)
	return nil
}

func orderMessage(t *testing.T, eventType enums.OutboxEventType, eventID uuid.UUID, payload payloads.OrderEvent) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		Data:       data,
	})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:   "msg-" + eventID.String(),
		Data: envelope,
		Attributes: map[string]string{
			"event_id":   eventID.String(),
			"event_type": string(eventType),
		},
	}
}

func newTestConsumer(t *testing.T) (*Consumer, *recordingNotifier, *memoryMarker) {
	t.Helper()
	n := &recordingNotifier{}
	marker := &memoryMarker{}
	consumer, err := NewConsumer(n, nil, marker, testLogger())
	require.NoError(t, err)
	return consumer, n, marker
}

func TestConsumerOrderCreatedNotifiesOperatorAndCustomer(t *testing.T) {
	consumer, n, _ := newTestConsumer(t)
	orderID := uuid.MustParse("1a2b3c4d-0000-4000-8000-000000000001")
	userID := uuid.New()

	ack := consumer.Handle(context.Background(), orderMessage(t, enums.EventOrderCreated, uuid.New(), payloads.OrderEvent{
		OrderID:       orderID,
		UserID:        userID,
		Status:        enums.OrderStatusPending,
		PaymentMethod: enums.PaymentMethodCOD,
		TotalPrice:    1250000,
	}))

	require.True(t, ack)
	require.Len(t, n.sent, 2)
	require.True(t, n.sent[0].operator)
	require.Equal(t, "New order", n.sent[0].title)
	require.Contains(t, n.sent[0].message, "1A2B3C4D")
	require.Contains(t, n.sent[0].message, "1.250.000")
	require.False(t, n.sent[1].operator)
	require.Equal(t, userID, n.sent[1].userID)
}

func TestConsumerSkipsDuplicateDeliveries(t *testing.T) {
	consumer, n, _ := newTestConsumer(t)
	eventID := uuid.New()
	msg := orderMessage(t, enums.EventOrderConfirmed, eventID, payloads.OrderEvent{OrderID: uuid.New(), UserID: uuid.New()})

	require.True(t, consumer.Handle(context.Background(), msg))
	require.True(t, consumer.Handle(context.Background(), msg))
	require.Len(t, n.sent, 1)
	require.Equal(t, "Order confirmed", n.sent[0].title)
}

func TestConsumerRequestsGoToOperatorOnly(t *testing.T) {
	consumer, n, _ := newTestConsumer(t)
	payload := payloads.OrderEvent{OrderID: uuid.New(), UserID: uuid.New()}

	require.True(t, consumer.Handle(context.Background(), orderMessage(t, enums.EventOrderCancelRequest, uuid.New(), payload)))
	require.True(t, consumer.Handle(context.Background(), orderMessage(t, enums.EventOrderReturnRequest, uuid.New(), payload)))

	require.Len(t, n.sent, 2)
	for _, sent := range n.sent {
		require.True(t, sent.operator)
	}
}

func TestConsumerAcksUnhandledEvents(t *testing.T) {
	consumer, n, marker := newTestConsumer(t)
	msg := orderMessage(t, enums.EventStockBatchSoldOut, uuid.New(), payloads.OrderEvent{OrderID: uuid.New()})

	require.True(t, consumer.Handle(context.Background(), msg))
	require.Empty(t, n.sent)
	require.Empty(t, marker.seen)
}

func TestConsumerNacksAndReleasesKeyOnFailure(t *testing.T) {
	consumer, n, marker := newTestConsumer(t)
	n.err = errors.New("db down")
	eventID := uuid.New()
	msg := orderMessage(t, enums.EventOrderShipped, eventID, payloads.OrderEvent{
		OrderID:     uuid.New(),
		UserID:      uuid.New(),
		CarrierCode: "GHN123",
	})

	require.False(t, consumer.Handle(context.Background(), msg))
	require.Equal(t, 1, marker.deleted)
	require.False(t, marker.seen[eventID])
	require.Contains(t, n.sent[0].message, "GHN123")
}

func TestConsumerRedeliveryOnlyRetriesMissedRecipients(t *testing.T) {
	consumer, n, marker := newTestConsumer(t)
	eventID := uuid.New()
	userID := uuid.New()
	msg := orderMessage(t, enums.EventOrderCreated, eventID, payloads.OrderEvent{
		OrderID:    uuid.New(),
		UserID:     userID,
		TotalPrice: 80000,
	})

	n.customerErr = errors.New("db down")
	require.False(t, consumer.Handle(context.Background(), msg))
	require.Len(t, n.sent, 2)
	require.Equal(t, 1, marker.deleted)

	n.customerErr = nil
	require.True(t, consumer.Handle(context.Background(), msg))

	operatorSends := 0
	for _, sent := range n.sent {
		if sent.operator {
			operatorSends++
		}
	}
	require.Equal(t, 1, operatorSends)
	require.Len(t, n.sent, 3)
	last := n.sent[2]
	require.False(t, last.operator)
	require.Equal(t, userID, last.userID)
	require.Equal(t, "Order placed", last.title)

	require.True(t, consumer.Handle(context.Background(), msg))
	require.Len(t, n.sent, 3)
}

func TestConsumerNacksWhenIdempotencyUnavailable(t *testing.T) {
	consumer, n, marker := newTestConsumer(t)
	marker.err = errors.New("redis down")
	msg := orderMessage(t, enums.EventOrderPaid, uuid.New(), payloads.OrderEvent{OrderID: uuid.New(), UserID: uuid.New()})

	require.False(t, consumer.Handle(context.Background(), msg))
	require.Empty(t, n.sent)
}

func TestFormatVND(t *testing.T) {
	cases := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1.000",
		150000:   "150.000",
		1250000:  "1.250.000",
		-30000:   "-30.000",
		10000005: "10.000.005",
	}
	for amount, want := range cases {
		if got := formatVND(amount); got != want {
			t.Fatalf("formatVND(%d) = %q, want %q", amount, got, want)
		}
	}
}
