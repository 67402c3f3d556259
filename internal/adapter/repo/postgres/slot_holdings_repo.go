package postgres

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

// SlotHoldingRepo persists the durable mirror of held concurrency slots.
// Rows here outlive worker crashes; the stale-slot sweep walks them to free
// leaked registry slots.
type SlotHoldingRepo struct{ Pool PgxPool }

// NewSlotHoldingRepo constructs a SlotHoldingRepo with the given pool.
func NewSlotHoldingRepo(p PgxPool) *SlotHoldingRepo { return &SlotHoldingRepo{Pool: p} }

// Insert records that call_id holds one slot.
func (r *SlotHoldingRepo) Insert(ctx domain.Context, h domain.SlotHolding) error {
	tracer := otel.Tracer("repo.slot_holdings")
	ctx, span := tracer.Start(ctx, "slot_holdings.Insert")
	defer span.End()

	if h.StartedAt.IsZero() {
		h.StartedAt = time.Now().UTC()
	}
	q := `INSERT INTO slot_holdings (call_id, phone_number, campaign_id, started_at) VALUES ($1,$2,$3,$4)`
	if _, err := r.Pool.Exec(ctx, q, h.CallID, h.PhoneNumber, h.CampaignID, h.StartedAt); err != nil {
		return fmt.Errorf("op=slot_holding.insert: %w", err)
	}
	return nil
}

// Delete removes the holding for call_id and reports whether a row existed.
// The boolean makes end_tracking idempotent: only the delete that actually
// removed the row may decrement the registry counter.
func (r *SlotHoldingRepo) Delete(ctx domain.Context, callID string) (bool, error) {
	tracer := otel.Tracer("repo.slot_holdings")
	ctx, span := tracer.Start(ctx, "slot_holdings.Delete")
	defer span.End()

	tag, err := r.Pool.Exec(ctx, `DELETE FROM slot_holdings WHERE call_id=$1`, callID)
	if err != nil {
		return false, fmt.Errorf("op=slot_holding.delete: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListOlderThan returns holdings started before cutoff, oldest first, for
// the stale-slot sweep.
func (r *SlotHoldingRepo) ListOlderThan(ctx domain.Context, cutoff time.Time, limit int) ([]domain.SlotHolding, error) {
	tracer := otel.Tracer("repo.slot_holdings")
	ctx, span := tracer.Start(ctx, "slot_holdings.ListOlderThan")
	defer span.End()

	q := `SELECT call_id, phone_number, campaign_id, started_at FROM slot_holdings
	      WHERE started_at < $1 ORDER BY started_at ASC LIMIT $2`
	rows, err := r.Pool.Query(ctx, q, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("op=slot_holding.list_older: %w", err)
	}
	defer rows.Close()

	var out []domain.SlotHolding
	for rows.Next() {
		var h domain.SlotHolding
		if err := rows.Scan(&h.CallID, &h.PhoneNumber, &h.CampaignID, &h.StartedAt); err != nil {
			return nil, fmt.Errorf("op=slot_holding.list_older: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=slot_holding.list_older: %w", err)
	}
	return out, nil
}

// Count returns the number of live holdings. At quiescence it equals the
// registry counter.
func (r *SlotHoldingRepo) Count(ctx domain.Context) (int64, error) {
	tracer := otel.Tracer("repo.slot_holdings")
	ctx, span := tracer.Start(ctx, "slot_holdings.Count")
	defer span.End()

	var n int64
	if err := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM slot_holdings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("op=slot_holding.count: %w", err)
	}
	return n, nil
}
