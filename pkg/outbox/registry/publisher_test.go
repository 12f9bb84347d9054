package registry

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

func TestResolveOrderEvent(t *testing.T) {
	reg, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	payload, _ := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: uuid.NewString(), Data: json.RawMessage(`{}`)})

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Topic != "orders" {
		t.Fatalf("unexpected topic %q", resolved.Topic)
	}
}

func TestResolveRejectsBadRows(t *testing.T) {
	reg, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = reg.Resolve(models.OutboxEvent{EventType: "nope", AggregateType: enums.AggregateOrder})
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error for unknown type, got %v", err)
	}

	_, err = reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		Payload:       json.RawMessage(`not-json`),
	})
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error for bad payload, got %v", err)
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{}); err == nil {
		t.Fatalf("expected missing topic to fail")
	}
}
