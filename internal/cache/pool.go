// Package cache wraps the Redis operations the ingest tier relies on: the
// dedup counter, the CPR half store, and the spatial-service queue push.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned by MultipleGet when any requested key is
	// absent or expired.
	ErrNotFound = errors.New("cache: key not found")

	// ErrUnexpectedValue is returned when the cache replies with a value
	// outside the operation's contract.
	ErrUnexpectedValue = errors.New("cache: unexpected value")
)

// incrementScript bumps the counter and sets the expiry only on first
// sighting, in one atomic round trip. Repeat increments must not extend the
// window.
var incrementScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// Pool is a namespaced handle on the shared Redis client. The folder is
// prepended to every counter and value key so services sharing the instance
// do not collide; a complete key takes the form <folder>:<subkey>.
type Pool struct {
	rdb    redis.UniversalClient
	folder string
	logger *zap.Logger
}

// NewPool returns a handle writing under the given key folder.
func NewPool(rdb redis.UniversalClient, folder string, logger *zap.Logger) (*Pool, error) {
	if folder == "" {
		return nil, fmt.Errorf("cache: key folder cannot be empty")
	}
	return &Pool{rdb: rdb, folder: folder, logger: logger}, nil
}

// Increment bumps the counter for key, creating it with the given expiry on
// first sighting. Returns the order in which this key was received, starting
// at 1. The expiry is not refreshed on repeat increments.
func (p *Pool) Increment(ctx context.Context, key string, expiration time.Duration) (uint32, error) {
	full := p.folder + ":" + key
	n, err := incrementScript.Run(ctx, p.rdb, []string{full}, expiration.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("cache: increment %s: %w", full, err)
	}
	if n < 1 {
		p.logger.Error("increment returned non-positive count", zap.String("key", full), zap.Int64("count", n))
		return 0, ErrUnexpectedValue
	}
	return uint32(n), nil
}

// MultipleSet stores every pair with the same expiry in one pipeline.
func (p *Pool) MultipleSet(ctx context.Context, pairs map[string]string, expiration time.Duration) error {
	pipe := p.rdb.TxPipeline()
	for key, value := range pairs {
		pipe.Set(ctx, p.folder+":"+key, value, expiration)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: multiple set: %w", err)
	}
	return nil
}

// MultipleGet fetches every key, failing with ErrNotFound if any is absent.
// Values come back in request order.
func (p *Pool) MultipleGet(ctx context.Context, keys []string) ([]string, error) {
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = p.folder + ":" + key
	}
	raw, err := p.rdb.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: multiple get: %w", err)
	}
	values := make([]string, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, ErrNotFound
		}
		values[i] = s
	}
	return values, nil
}

// Queue keys the spatial service consumes from.
const (
	QueueKeyAircraftID       = "queue:aircraft:id"
	QueueKeyAircraftPosition = "queue:aircraft:position"
	QueueKeyAircraftVelocity = "queue:aircraft:velocity"
)

// PushQueue serialises the record as JSON and pushes it onto the named
// queue. Queue keys are global, not folder-scoped.
func (p *Pool) PushQueue(ctx context.Context, queueKey string, record any) error {
	if queueKey == "" {
		return fmt.Errorf("cache: queue key cannot be empty")
	}
	serialized, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("cache: serialize queue record: %w", err)
	}
	if err := p.rdb.LPush(ctx, queueKey, serialized).Err(); err != nil {
		return fmt.Errorf("cache: push %s: %w", queueKey, err)
	}
	return nil
}
