package redis

import (
	"context"
	"testing"

	"github.com/agendali/payments-backend/pkg/config"
)

func TestKeyBuilders(t *testing.T) {
	c := &Client{}
	if got := c.IdempotencyKey("charges", "abc"); got != "agl:idempotency:charges:abc" {
		t.Fatalf("unexpected idempotency key %q", got)
	}
	if got := c.LockKey("cron-worker"); got != "agl:lock:cron-worker" {
		t.Fatalf("unexpected lock key %q", got)
	}
	if got := c.WebhookReplayKey("mercadopago", "42"); got != "agl:webhook:mercadopago:42" {
		t.Fatalf("unexpected webhook replay key %q", got)
	}
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when no url or address provided")
	}
}

func TestOperationsRequireInitializedClient(t *testing.T) {
	var c Client
	if _, err := c.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if err := c.Set(context.Background(), "k", "v", 0); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
}
