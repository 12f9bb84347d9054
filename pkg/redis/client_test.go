package redis

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestSetNXOnlyFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	ok, err := client.SetNX(ctx, "k", "1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first SetNX to succeed, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, "k", "2", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected second SetNX to be rejected")
	}
	val, err := client.Get(ctx, "k")
	if err != nil || val != "1" {
		t.Fatalf("expected original value, got %q err=%v", val, err)
	}
}

func TestDeviceTokenSet(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.DeviceTokenKey("user-1")

	if err := client.SAdd(ctx, key, "tok-a", "tok-b", "tok-a"); err != nil {
		t.Fatalf("sadd failed: %v", err)
	}
	members, err := client.SMembers(ctx, key)
	if err != nil {
		t.Fatalf("smembers failed: %v", err)
	}
	sort.Strings(members)
	if len(members) != 2 || members[0] != "tok-a" || members[1] != "tok-b" {
		t.Fatalf("unexpected members %v", members)
	}

	if err := client.SRem(ctx, key, "tok-a"); err != nil {
		t.Fatalf("srem failed: %v", err)
	}
	members, _ = client.SMembers(ctx, key)
	if len(members) != 1 || members[0] != "tok-b" {
		t.Fatalf("unexpected members after remove %v", members)
	}
}

func TestPublishRecordsChannel(t *testing.T) {
	mock := newMockCmdable()
	client := &Client{store: mock}
	channel := client.ChannelName("live:operator")
	if err := client.Publish(context.Background(), channel, "hello"); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if got := mock.published[channel]; len(got) != 1 || got[0] != "hello" {
		t.Fatalf("unexpected published messages %v", got)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	ctx := context.Background()
	if err := client.Ping(ctx); err == nil {
		t.Fatalf("expected ping error")
	}
	if _, err := client.Subscribe(ctx, "x"); err == nil {
		t.Fatalf("expected subscribe error")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on empty client should be a no-op: %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("scope", "id"); got != "sf:idempotency:scope:id" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.LockKey("cron"); got != "sf:lock:cron" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.DeviceTokenKey("user"); got != "sf:device_tokens:user" {
		t.Fatalf("unexpected device key %s", got)
	}
	if got := client.CacheKey("address", "", "provinces"); got != "sf:cache:address:provinces" {
		t.Fatalf("cache key should skip empty parts, got %s", got)
	}
	if got := client.ChannelName("live:operator"); got != "sf:channel:live:operator" {
		t.Fatalf("unexpected channel %s", got)
	}
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	if _, err := optionsFromConfig(configWith("", "")); err == nil {
		t.Fatalf("expected missing address error")
	}
	opts, err := optionsFromConfig(configWith("redis://localhost:6379/2", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DB != 2 || opts.PoolSize != 10 {
		t.Fatalf("unexpected options db=%d pool=%d", opts.DB, opts.PoolSize)
	}
}

func configWith(url, addr string) config.RedisConfig {
	return config.RedisConfig{URL: url, Address: addr, PoolSize: 10, MinIdleConns: 2}
}

type mockCmdable struct {
	data        map[string]string
	sets        map[string]map[string]struct{}
	published   map[string][]string
	expireCalls []expireCall
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:      make(map[string]string),
		sets:      make(map[string]map[string]struct{}),
		published: make(map[string][]string),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
		delete(m.sets, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd {
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	var added int64
	for _, member := range members {
		v := fmt.Sprint(member)
		if _, exists := set[v]; !exists {
			set[v] = struct{}{}
			added++
		}
	}
	return redis.NewIntResult(added, nil)
}

func (m *mockCmdable) SRem(ctx context.Context, key string, members ...any) *redis.IntCmd {
	var removed int64
	for _, member := range members {
		v := fmt.Sprint(member)
		if _, exists := m.sets[key][v]; exists {
			delete(m.sets[key], v)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func (m *mockCmdable) SMembers(ctx context.Context, key string) *redis.StringSliceCmd {
	out := make([]string, 0, len(m.sets[key]))
	for v := range m.sets[key] {
		out = append(out, v)
	}
	return redis.NewStringSliceResult(out, nil)
}

func (m *mockCmdable) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	m.published[channel] = append(m.published[channel], fmt.Sprint(message))
	return redis.NewIntResult(1, nil)
}
