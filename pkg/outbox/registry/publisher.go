package registry

import (
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Topic    string
	Envelope outbox.PayloadEnvelope
}

// EventRegistry maps aggregate types to the topic their events are published on.
type EventRegistry struct {
	topics map[enums.OutboxAggregateType]string
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps err so the publisher stops retrying the row.
func NewNonRetryableError(err error) error {
	return NonRetryableError{Err: err}
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, fmt.Errorf("orders topic is required")
	}
	return &EventRegistry{
		topics: map[enums.OutboxAggregateType]string{
			enums.AggregateOrder:      cfg.OrdersTopic,
			enums.AggregateStockBatch: cfg.OrdersTopic,
		},
	}, nil
}

// Resolve decodes the stored envelope and picks the destination topic.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	if !event.EventType.IsValid() {
		return nil, NewNonRetryableError(fmt.Errorf("unknown event type %q", event.EventType))
	}
	topic, ok := r.topics[event.AggregateType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("no topic for aggregate %q", event.AggregateType))
	}
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}
	if envelope.EventID == "" {
		return nil, NewNonRetryableError(fmt.Errorf("envelope missing event id"))
	}
	return &ResolvedEvent{Topic: topic, Envelope: envelope}, nil
}
