package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestResourceNames(t *testing.T) {
	c := &Client{projectID: "shop-prod"}

	if got := c.subscriptionResourceName("orders-sub"); got != "projects/shop-prod/subscriptions/orders-sub" {
		t.Fatalf("unexpected subscription name %q", got)
	}
	full := "projects/other/subscriptions/x"
	if got := c.subscriptionResourceName(full); got != full {
		t.Fatalf("full resource names should pass through, got %q", got)
	}
	if got := c.topicResourceName(" orders "); got != "projects/shop-prod/topics/orders" {
		t.Fatalf("unexpected topic name %q", got)
	}
	if got := c.topicResourceName(""); got != "" {
		t.Fatalf("blank topic should resolve to empty, got %q", got)
	}
}

func TestSubscriptionNamesSkipsBlank(t *testing.T) {
	if names := subscriptionNames(config.PubSubConfig{OrdersSubscription: "  "}); len(names) != 0 {
		t.Fatalf("expected no names, got %v", names)
	}
	names := subscriptionNames(config.PubSubConfig{OrdersSubscription: "orders-sub"})
	if len(names) != 1 || names[0] != "orders-sub" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	if c.Publisher("orders") != nil {
		t.Fatal("expected nil publisher")
	}
	if c.Subscription("orders") != nil {
		t.Fatal("expected nil subscriber")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error on nil client")
	}
}

func TestClientOptionsPreferInlineCredentials(t *testing.T) {
	if got := clientOptions(config.GCPConfig{ProjectID: "p"}); len(got) != 0 {
		t.Fatalf("expected default credentials, got %d options", len(got))
	}
	got := clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/tmp/key.json"})
	if len(got) != 1 {
		t.Fatalf("expected a single credentials option, got %d", len(got))
	}
	if got := clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/key.json"}); len(got) != 1 {
		t.Fatalf("expected file credentials option, got %d", len(got))
	}
}
