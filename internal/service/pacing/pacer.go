// Package pacing rate-limits outbound dials with a Redis token bucket so
// every worker replica draws from one shared budget. The telephony provider
// enforces a calls-per-minute ceiling per account; staying under it here
// turns would-be provider rejections into ordinary task redeliveries.
package pacing

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Budget is one token bucket: capacity tokens, refilled continuously.
type Budget struct {
	Capacity   int64
	RefillRate float64 // tokens per second
}

// PerMinute builds a Budget from a calls-per-minute ceiling. Zero or
// negative disables the bucket.
func PerMinute(n int) Budget {
	if n <= 0 {
		return Budget{}
	}
	return Budget{Capacity: int64(n), RefillRate: float64(n) / 60.0}
}

// RedisPacer shares token buckets across replicas through a Lua script. The
// optional Postgres pool mirrors bucket state so budgets survive a Redis
// flush; a nil pacer or an unconfigured key admits everything.
type RedisPacer struct {
	rdb    *redis.Client
	pool   *pgxpool.Pool
	script *redis.Script

	mu      sync.RWMutex
	budgets map[string]Budget
}

// NewRedisPacer constructs a pacer over rdb. pool may be nil; budgets maps
// logical keys (for example "provider:initiate") to their Budget.
func NewRedisPacer(rdb *redis.Client, pool *pgxpool.Pool, budgets map[string]Budget) *RedisPacer {
	if rdb == nil {
		return nil
	}
	if budgets == nil {
		budgets = map[string]Budget{}
	}
	return &RedisPacer{
		rdb:     rdb,
		pool:    pool,
		script:  redis.NewScript(tokenBucketScript),
		budgets: budgets,
	}
}

// The refill, the take and the write-back happen in one script invocation,
// so concurrent reservations never double-spend a token.
const tokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])

local tokens = capacity
local last_refill = now

local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] ~= false and data[1] ~= nil then
  tokens = tonumber(data[1])
end
if data[2] ~= false and data[2] ~= nil then
  last_refill = tonumber(data[2])
end
if last_refill == nil then
  last_refill = now
end

local delta = now - last_refill
if delta < 0 then
  delta = 0
end

tokens = math.min(capacity, tokens + delta * refill_rate)
last_refill = now

local allowed = 0
local retry_after = 0

if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
else
  local shortage = cost - tokens
  if refill_rate > 0 then
    retry_after = shortage / refill_rate
  end
end

redis.call("HMSET", key, "tokens", tokens, "last_refill", last_refill)

return { allowed, tokens, last_refill, retry_after }
`

// Reserve takes cost tokens from the bucket behind key. When the bucket is
// empty it reports false plus the wait until enough tokens refill. Redis
// trouble fails open: refusing every dial during a Redis blip would be worse
// than briefly exceeding the ceiling.
func (p *RedisPacer) Reserve(ctx context.Context, key string, cost int64) (bool, time.Duration, error) {
	if p == nil || p.rdb == nil {
		return true, 0, nil
	}
	p.mu.RLock()
	b, ok := p.budgets[key]
	p.mu.RUnlock()
	if !ok || b.Capacity <= 0 || b.RefillRate <= 0 {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}

	nowSec := float64(time.Now().UnixNano()) / 1e9
	redisKey := "pace:" + key
	res, err := p.script.Run(ctx, p.rdb, []string{redisKey}, b.Capacity, b.RefillRate, nowSec, cost).Result()
	if err != nil {
		slog.Error("pacing script failed", slog.String("key", key), slog.Any("error", err))
		return true, 0, err
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 4 {
		slog.Error("pacing script returned unexpected shape", slog.String("key", key), slog.Any("result", res))
		return true, 0, nil
	}

	allowed := asInt64(vals[0]) == 1
	tokens := asFloat64(vals[1])
	lastRefill := asFloat64(vals[2])
	retryAfter := time.Duration(asFloat64(vals[3]) * float64(time.Second))

	if p.pool != nil {
		p.mirror(ctx, key, b, tokens, lastRefill)
	}
	return allowed, retryAfter, nil
}

// SetBudget installs or replaces the budget behind key. Safe for concurrent
// use with Reserve.
func (p *RedisPacer) SetBudget(key string, b Budget) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.budgets[key] = b
}

// mirror writes the bucket state through to Postgres. Best effort: a failed
// mirror costs restart continuity, not correctness.
func (p *RedisPacer) mirror(ctx context.Context, key string, b Budget, tokens, lastRefillSec float64) {
	sec := int64(lastRefillSec)
	nsec := int64((lastRefillSec - float64(sec)) * 1e9)
	if nsec < 0 {
		nsec = 0
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO pacing_buckets (bucket_key, capacity, refill_rate, tokens, last_refill)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (bucket_key) DO UPDATE SET
		   capacity = EXCLUDED.capacity,
		   refill_rate = EXCLUDED.refill_rate,
		   tokens = EXCLUDED.tokens,
		   last_refill = EXCLUDED.last_refill`,
		key, b.Capacity, b.RefillRate, tokens, time.Unix(sec, nsec))
	if err != nil {
		slog.Error("pacing bucket mirror failed", slog.String("key", key), slog.Any("error", err))
	}
}

// Warm seeds Redis buckets from the Postgres mirror, typically once at
// startup before the first Reserve.
func (p *RedisPacer) Warm(ctx context.Context) error {
	if p == nil || p.pool == nil || p.rdb == nil {
		return nil
	}
	rows, err := p.pool.Query(ctx,
		`SELECT bucket_key, tokens, EXTRACT(EPOCH FROM last_refill) FROM pacing_buckets`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var tokens, lastRefillSec float64
		if err := rows.Scan(&key, &tokens, &lastRefillSec); err != nil {
			return err
		}
		// Seconds-with-fraction, the representation the script reads.
		if err := p.rdb.HMSet(ctx, "pace:"+key, "tokens", tokens, "last_refill", lastRefillSec).Err(); err != nil {
			slog.Error("pacing bucket warm failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	return rows.Err()
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func asFloat64(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	default:
		return math.NaN()
	}
}
