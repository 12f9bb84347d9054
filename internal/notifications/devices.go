package notifications

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// DeviceTokenStore keeps the push tokens registered per user.
type DeviceTokenStore interface {
	Add(ctx context.Context, userID uuid.UUID, token string) error
	Remove(ctx context.Context, userID uuid.UUID, token string) error
	List(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type setStore interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	DeviceTokenKey(userID string) string
}

type redisTokenStore struct {
	store setStore
}

// NewDeviceTokenStore keeps one Redis set of tokens per user.
func NewDeviceTokenStore(store setStore) (DeviceTokenStore, error) {
	if store == nil {
		return nil, errors.New("redis set store required")
	}
	return &redisTokenStore{store: store}, nil
}

func (s *redisTokenStore) Add(ctx context.Context, userID uuid.UUID, token string) error {
	return s.store.SAdd(ctx, s.store.DeviceTokenKey(userID.String()), strings.TrimSpace(token))
}

func (s *redisTokenStore) Remove(ctx context.Context, userID uuid.UUID, token string) error {
	return s.store.SRem(ctx, s.store.DeviceTokenKey(userID.String()), strings.TrimSpace(token))
}

func (s *redisTokenStore) List(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return s.store.SMembers(ctx, s.store.DeviceTokenKey(userID.String()))
}
