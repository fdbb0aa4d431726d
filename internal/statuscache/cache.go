// Package statuscache keeps the rendered status board in Redis for a
// short TTL.  The board is the most-hit read of the service (every
// guardhouse screen polls it), while its inputs only change on
// checkout/checkin, so the engine handlers invalidate the entry after
// each successful write and everything in between is served from the
// cache.
package statuscache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const boardKey = "custody:status:board"

// Cache is a single-entry cache for the status board JSON.  A nil
// Redis client disables it: Get always misses and writes are no-ops.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New returns a Cache with the given TTL.  A nil client or
// non-positive TTL yields a disabled cache.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		rdb = nil
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// Get returns the cached board payload, if any.
func (c *Cache) Get(ctx context.Context) ([]byte, bool) {
	if c.rdb == nil {
		return nil, false
	}
	bs, err := c.rdb.Get(ctx, boardKey).Bytes()
	if err != nil || len(bs) == 0 {
		return nil, false
	}
	return bs, true
}

// Set stores the rendered board payload.  Failures are ignored; the
// next request just recomputes.
func (c *Cache) Set(ctx context.Context, payload []byte) {
	if c.rdb == nil {
		return
	}
	_ = c.rdb.SetEx(ctx, boardKey, payload, c.ttl).Err()
}

// Invalidate drops the cached board.  Called after every successful
// checkout/checkin so the board never shows a stale custody state
// longer than one in-flight request.
func (c *Cache) Invalidate(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, boardKey).Err()
}
