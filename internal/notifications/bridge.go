package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type bridgeClient interface {
	Publish(ctx context.Context, channel string, message any) error
	Subscribe(ctx context.Context, channels ...string) (*goredis.PubSub, error)
	ChannelName(name string) string
}

// RedisBridge carries live events from worker processes to the API process,
// which drains them into its Hub.
type RedisBridge struct {
	client  bridgeClient
	channel string
	logg    *logger.Logger
}

var _ LiveEmitter = (*RedisBridge)(nil)

func NewRedisBridge(client bridgeClient, channel string, logg *logger.Logger) (*RedisBridge, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return nil, errors.New("live channel required")
	}
	return &RedisBridge{client: client, channel: client.ChannelName(channel), logg: logg}, nil
}

// Emit publishes the event on the shared channel.
func (b *RedisBridge) Emit(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode live event: %w", err)
	}
	return b.client.Publish(ctx, b.channel, string(payload))
}

// Run subscribes to the channel and publishes every decoded event to hub
// until ctx is canceled.
func (b *RedisBridge) Run(ctx context.Context, hub *Hub) error {
	if hub == nil {
		return errors.New("hub required")
	}
	sub, err := b.client.Subscribe(ctx, b.channel)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Close() }()

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return errors.New("live channel closed")
			}
			b.forward(ctx, hub, msg.Payload)
		}
	}
}

func (b *RedisBridge) forward(ctx context.Context, hub *Hub, payload string) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		b.logg.Warn(b.logg.WithError(ctx, err), "dropping undecodable live event")
		return
	}
	hub.Publish(event)
}
