// Package pending implements the per-campaign overflow queue for calls that
// were admitted while all slots were busy. Each campaign gets one Redis
// sorted set; the score encodes priority (descending) then enqueue time
// (ascending), so a single ZPOPMIN walks the queue in drain order.
package pending

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

// KeyPrefix namespaces the per-campaign queues.
const KeyPrefix = "call_queue:"

// priorityBand is wide enough that any realistic unix timestamp stays inside
// one priority's score band.
const priorityBand = 1e10

// Queue is the Redis-backed implementation of domain.PendingQueue.
type Queue struct {
	redis *redis.Client
}

func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{redis: rdb}
}

func key(campaignID int64) string {
	return fmt.Sprintf("%s%d", KeyPrefix, campaignID)
}

// score orders entries by priority descending, then queued_at ascending.
func score(e domain.QueueEntry) float64 {
	return -float64(e.Priority)*priorityBand + float64(e.QueuedAt.Unix())
}

// PushBack appends the entry to its campaign's queue.
func (q *Queue) PushBack(ctx context.Context, e domain.QueueEntry) error {
	if e.QueuedAt.IsZero() {
		e.QueuedAt = time.Now().UTC()
	}
	member, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("pending.PushBack: %w", err)
	}
	if err := q.redis.ZAdd(ctx, key(e.CampaignID), redis.Z{
		Score:  score(e),
		Member: string(member),
	}).Err(); err != nil {
		return fmt.Errorf("pending.PushBack: %w", err)
	}
	return nil
}

// PopFrontN atomically removes and returns up to n entries in drain order.
// Entries that fail to decode are skipped; the queue must keep moving even
// if one member was corrupted.
func (q *Queue) PopFrontN(ctx context.Context, campaignID int64, n int) ([]domain.QueueEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	popped, err := q.redis.ZPopMin(ctx, key(campaignID), int64(n)).Result()
	if err != nil {
		return nil, fmt.Errorf("pending.PopFrontN: %w", err)
	}

	entries := make([]domain.QueueEntry, 0, len(popped))
	for _, z := range popped {
		raw, ok := z.Member.(string)
		if !ok {
			continue
		}
		var e domain.QueueEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Size reports how many entries are waiting for the campaign.
func (q *Queue) Size(ctx context.Context, campaignID int64) (int64, error) {
	n, err := q.redis.ZCard(ctx, key(campaignID)).Result()
	if err != nil {
		return 0, fmt.Errorf("pending.Size: %w", err)
	}
	return n, nil
}

// Clear drops the campaign's queue entirely.
func (q *Queue) Clear(ctx context.Context, campaignID int64) error {
	if err := q.redis.Del(ctx, key(campaignID)).Err(); err != nil {
		return fmt.Errorf("pending.Clear: %w", err)
	}
	return nil
}
