// Package slots implements the shared slot registry: a global counter of
// in-flight calls capped at a configured maximum, plus a short-lived
// per-number duplicate lock. Both live in Redis so every API replica and
// worker agrees on capacity. Acquire and Release run as Lua scripts, making
// the check-and-increment serializable per number.
package slots

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

const (
	// CounterKey holds the fleet-wide count of in-flight calls.
	CounterKey = "active_calls_count"
	// LockPrefix namespaces the per-number duplicate locks.
	LockPrefix = "call_lock:"
)

// Registry is the Redis-backed implementation of domain.SlotRegistry.
type Registry struct {
	redis   *redis.Client
	cap     int64
	lockTTL time.Duration
	acquire *redis.Script
	release *redis.Script
}

// NewRegistry builds a Registry enforcing maxConcurrent slots and holding
// duplicate locks for lockTTL.
func NewRegistry(rdb *redis.Client, maxConcurrent int64, lockTTL time.Duration) *Registry {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &Registry{
		redis:   rdb,
		cap:     maxConcurrent,
		lockTTL: lockTTL,
		acquire: redis.NewScript(luaAcquireScript),
		release: redis.NewScript(luaReleaseScript),
	}
}

// luaAcquireScript decides admission and claims the slot in one atomic step.
// KEYS[1] = counter key, KEYS[2] = per-number lock key.
// ARGV[1] = cap, ARGV[2] = call_id, ARGV[3] = lock TTL seconds.
// Returns {1, new_count} on success, {0, "capacity"} or {0, "duplicate"}.
const luaAcquireScript = `
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
if count >= tonumber(ARGV[1]) then
  return {0, 'capacity'}
end

if redis.call('SET', KEYS[2], ARGV[2], 'NX', 'EX', tonumber(ARGV[3])) == false then
  return {0, 'duplicate'}
end

local new_count = redis.call('INCR', KEYS[1])
return {1, new_count}
`

// luaReleaseScript undoes an acquire. The counter is decremented with a
// floor of zero; the lock is deleted only while it still belongs to the
// releasing call, so a newer call to the same number keeps its lock.
// KEYS[1] = counter key, KEYS[2] = per-number lock key. ARGV[1] = call_id.
// Returns the count after the decrement.
const luaReleaseScript = `
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
if count > 0 then
  count = redis.call('DECR', KEYS[1])
end

local owner = redis.call('GET', KEYS[2])
if owner == ARGV[1] then
  redis.call('DEL', KEYS[2])
end

return count
`

// Count reports the current number of in-flight calls.
func (r *Registry) Count(ctx context.Context) (int64, error) {
	n, err := r.redis.Get(ctx, CounterKey).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("slots.Count: %w", err)
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

// HasLock reports whether a duplicate lock is active for number.
func (r *Registry) HasLock(ctx context.Context, number string) (bool, error) {
	n, err := r.redis.Exists(ctx, LockPrefix+number).Result()
	if err != nil {
		return false, fmt.Errorf("slots.HasLock: %w", err)
	}
	return n > 0, nil
}

// Acquire claims a slot for callID calling number. On a non-Ok verdict
// nothing is mutated. Unlike the advisory rate limiter this does not fail
// open: admission is a correctness control, so Redis errors propagate.
func (r *Registry) Acquire(ctx context.Context, callID, number string) (domain.AdmissionVerdict, error) {
	keys := []string{CounterKey, LockPrefix + number}
	ttlSec := int64(r.lockTTL / time.Second)
	if ttlSec < 1 {
		ttlSec = 1
	}

	res, err := r.acquire.Run(ctx, r.redis, keys, r.cap, callID, ttlSec).Result()
	if err != nil {
		return "", fmt.Errorf("slots.Acquire: %w", err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		return "", fmt.Errorf("slots.Acquire: unexpected script result %T", res)
	}

	if toInt64(vals[0]) == 1 {
		return domain.AdmissionOk, nil
	}
	switch reason, _ := vals[1].(string); reason {
	case "capacity":
		return domain.AdmissionCapacityFull, nil
	case "duplicate":
		return domain.AdmissionDuplicate, nil
	default:
		return "", fmt.Errorf("slots.Acquire: unexpected refusal %v", vals[1])
	}
}

// Release frees the slot held by callID for number. Safe to call for a
// slot that was never acquired or was already released: the counter never
// goes below zero and a lock owned by another call is left alone.
func (r *Registry) Release(ctx context.Context, callID, number string) error {
	keys := []string{CounterKey, LockPrefix + number}
	if err := r.release.Run(ctx, r.redis, keys, callID).Err(); err != nil {
		return fmt.Errorf("slots.Release: %w", err)
	}
	return nil
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case string:
		var n int64
		_, _ = fmt.Sscan(t, &n)
		return n
	default:
		return 0
	}
}
