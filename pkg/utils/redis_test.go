package utils

import (
	"context"
	"testing"
	"time"
)

func TestSlotScriptsLoaded(t *testing.T) {
	if acquireSlotScript == nil || releaseSlotScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}

func TestSlots_ValidateArgs(t *testing.T) {
	ctx := context.Background()
	if _, err := AcquireSlot(ctx, nil, "cap", "holder", 1, time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := ReleaseSlot(ctx, nil, "cap", "holder"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestOpenRedis_RequiresAddr(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisConfig{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}

func TestRedisConfigDefaults(t *testing.T) {
	c := RedisConfig{Addr: "localhost:6379", IOTimeout: time.Second}.withDefaults()
	if c.PoolSize != 10 || c.PingTimeout != 2*time.Second || c.IOTimeout != time.Second {
		t.Fatalf("unexpected defaults %+v", c)
	}
}
