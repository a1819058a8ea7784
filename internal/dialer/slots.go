package dialer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"outreach-dashboard/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Slots caps in-flight outbound calls.
type Slots interface {
	// Acquire reserves a slot for contactID. ok is false when the cap is reached.
	Acquire(ctx context.Context, contactID string) (ok bool, err error)
	// Release frees the slot held for contactID, if any.
	Release(ctx context.Context, contactID string) error
}

var ErrContactBusy = errors.New("dialer: a call is already in flight for this contact")

const (
	inflightKey      = "outreach:calls:inflight"
	contactKeyPrefix = "outreach:calls:contact:"
)

// RedisSlots keeps a global in-flight counter plus a per-contact marker so a
// webhook can release exactly the slot its call took. Both expire after ttl,
// which bounds leaks when a call_ended callback never arrives.
type RedisSlots struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
}

// NewRedisSlots returns a cap of limit concurrent calls. limit 0 disables it.
func NewRedisSlots(rdb *redis.Client, limit int, ttl time.Duration) (*RedisSlots, error) {
	if limit < 0 {
		return nil, fmt.Errorf("dialer: limit must be >= 0")
	}
	if limit > 0 && rdb == nil {
		return nil, fmt.Errorf("dialer: redis client required when limit > 0")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisSlots{rdb: rdb, limit: limit, ttl: ttl}, nil
}

func (s *RedisSlots) Acquire(ctx context.Context, contactID string) (bool, error) {
	if s.limit == 0 {
		return true, nil
	}
	res, err := utils.AcquireSlot(ctx, s.rdb, inflightKey, contactKeyPrefix+contactID, s.limit, s.ttl)
	if err != nil {
		return false, err
	}
	switch res {
	case utils.SlotHolderBusy:
		return false, ErrContactBusy
	case utils.SlotCapReached:
		return false, nil
	}
	return true, nil
}

// Release is a no-op when the marker already expired or the call was placed
// before the cap was enabled.
func (s *RedisSlots) Release(ctx context.Context, contactID string) error {
	if s.limit == 0 {
		return nil
	}
	_, err := utils.ReleaseSlot(ctx, s.rdb, inflightKey, contactKeyPrefix+contactID)
	return err
}
