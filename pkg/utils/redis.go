package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig is the client setup for the call-slot store. Traffic is a few
// tiny script calls per outbound call, so the pool stays small.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	PoolSize    int
	DialTimeout time.Duration
	// IOTimeout covers both reads and writes.
	IOTimeout   time.Duration
	PingTimeout time.Duration
}

func (c RedisConfig) withDefaults() RedisConfig {
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 3 * time.Second
	}
	if c.IOTimeout <= 0 {
		c.IOTimeout = 2 * time.Second
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 2 * time.Second
	}
	return c
}

// OpenRedis connects and fails fast when the server does not answer PING.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	cfg = cfg.withDefaults()

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.IOTimeout,
		WriteTimeout: cfg.IOTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// SlotResult is the outcome of AcquireSlot.
type SlotResult int

const (
	SlotAcquired SlotResult = iota
	SlotCapReached
	SlotHolderBusy
)

// A slot is a counter (capKey) shared by all holders plus one marker per
// holder (holderKey). Both scripts touch the pair atomically so a release
// can only ever undo an acquire that actually happened.
var acquireSlotScript = redis.NewScript(`
-- KEYS[1] = cap counter, KEYS[2] = holder marker
-- ARGV[1] = limit, ARGV[2] = ttl_ms
if redis.call('EXISTS', KEYS[2]) == 1 then
  return 2
end
local n = tonumber(redis.call('GET', KEYS[1]) or '0')
if n >= tonumber(ARGV[1]) then
  return 1
end
redis.call('INCR', KEYS[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
redis.call('SET', KEYS[2], '1', 'PX', ARGV[2])
return 0
`)

var releaseSlotScript = redis.NewScript(`
-- KEYS[1] = cap counter, KEYS[2] = holder marker
if redis.call('DEL', KEYS[2]) == 0 then
  return 0
end
local n = redis.call('DECR', KEYS[1])
if n <= 0 then
  redis.call('DEL', KEYS[1])
end
return 1
`)

// AcquireSlot reserves one of limit slots under capKey for holderKey.
// Both keys expire after ttl so a holder that never releases cannot leak the slot forever.
func AcquireSlot(ctx context.Context, rdb *redis.Client, capKey, holderKey string, limit int, ttl time.Duration) (SlotResult, error) {
	if err := checkSlotArgs(rdb, capKey, holderKey); err != nil {
		return 0, err
	}
	if limit <= 0 {
		return 0, fmt.Errorf("limit must be > 0")
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("ttl must be > 0")
	}

	res, err := acquireSlotScript.Run(ctx, rdb, []string{capKey, holderKey}, limit, ttl.Milliseconds()).Int()
	if err != nil {
		return 0, err
	}
	return SlotResult(res), nil
}

// ReleaseSlot frees holderKey's slot. released is false when the holder had
// none (already released or expired).
func ReleaseSlot(ctx context.Context, rdb *redis.Client, capKey, holderKey string) (released bool, err error) {
	if err := checkSlotArgs(rdb, capKey, holderKey); err != nil {
		return false, err
	}
	res, err := releaseSlotScript.Run(ctx, rdb, []string{capKey, holderKey}).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func checkSlotArgs(rdb *redis.Client, capKey, holderKey string) error {
	if rdb == nil {
		return fmt.Errorf("redis client is nil")
	}
	if capKey == "" || holderKey == "" {
		return fmt.Errorf("cap and holder keys are required")
	}
	return nil
}
