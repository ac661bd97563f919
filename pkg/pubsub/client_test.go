package pubsub

import (
	"context"
	"testing"

	"github.com/MudassirSafi/Wolf-Backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project, name, want string
	}{
		{"wolf-prod", "wolf-order-events", "projects/wolf-prod/topics/wolf-order-events"},
		{"wolf-prod", " projects/other/topics/x ", "projects/other/topics/x"},
		{"", "wolf-order-events", ""},
		{"wolf-prod", "  ", ""},
	}
	for _, tc := range cases {
		if got := topicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("topicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestSubscriptionResourceName(t *testing.T) {
	if got := resourceName("wolf-prod", "subscriptions", "wolf-analytics"); got != "projects/wolf-prod/subscriptions/wolf-analytics" {
		t.Fatalf("unexpected subscription name %q", got)
	}
	full := "projects/other/subscriptions/analytics"
	if got := resourceName("wolf-prod", "subscriptions", full); got != full {
		t.Fatalf("expected full name kept, got %q", got)
	}
	if got := resourceName("wolf-prod", "subscriptions", "projects/other/topics/x"); got != "projects/wolf-prod/subscriptions/projects/other/topics/x" {
		t.Fatalf("topic path must not pass as a subscription, got %q", got)
	}
}

func TestClientOptionsPreferInlineCredentials(t *testing.T) {
	if opts := clientOptions(config.GCPConfig{}); len(opts) != 0 {
		t.Fatalf("expected default credentials, got %d options", len(opts))
	}
	opts := clientOptions(config.GCPConfig{CredentialsJSON: "{}", ApplicationCredentials: "/tmp/key.json"})
	if len(opts) != 1 {
		t.Fatalf("expected one option, got %d", len(opts))
	}
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	names := topicNames(config.PubSubConfig{OrdersTopic: "orders", ShipmentsTopic: " "})
	if len(names) != 1 || names[0] != "orders" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestNilClientPublisher(t *testing.T) {
	var c *Client
	if c.Publisher("orders") != nil {
		t.Fatal("expected nil publisher")
	}
	if c.Subscriber("wolf-analytics") != nil {
		t.Fatal("expected nil subscriber")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error on nil client")
	}
}
