package postgres

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

// MetricsRepo maintains the per-day rollup row. Counters only ever grow
// within a day; the concurrency peak takes the max of what it has seen.
type MetricsRepo struct{ Pool PgxPool }

// NewMetricsRepo constructs a MetricsRepo with the given pool.
func NewMetricsRepo(p PgxPool) *MetricsRepo { return &MetricsRepo{Pool: p} }

// statusColumn maps a lifecycle status to its daily counter. COMPLETED has
// no counter of its own: a completion was already counted as PICKED, it
// contributes duration and peak only.
func statusColumn(s domain.CallStatus) string {
	switch s {
	case domain.CallInitiated:
		return "total_calls_initiated"
	case domain.CallPicked:
		return "total_calls_picked"
	case domain.CallDisconnected:
		return "total_calls_disconnected"
	case domain.CallRNR:
		return "total_calls_rnr"
	case domain.CallFailed:
		return "total_calls_failed"
	case domain.CallRetrying:
		return "total_retries"
	default:
		return ""
	}
}

const bumpQuery = `
INSERT INTO call_metrics_daily (
  date, total_calls_initiated, total_calls_picked, total_calls_disconnected,
  total_calls_rnr, total_calls_failed, total_retries,
  peak_concurrent_calls, total_call_duration_seconds, dlq_entries_created
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (date) DO UPDATE SET
  total_calls_initiated       = call_metrics_daily.total_calls_initiated + EXCLUDED.total_calls_initiated,
  total_calls_picked          = call_metrics_daily.total_calls_picked + EXCLUDED.total_calls_picked,
  total_calls_disconnected    = call_metrics_daily.total_calls_disconnected + EXCLUDED.total_calls_disconnected,
  total_calls_rnr             = call_metrics_daily.total_calls_rnr + EXCLUDED.total_calls_rnr,
  total_calls_failed          = call_metrics_daily.total_calls_failed + EXCLUDED.total_calls_failed,
  total_retries               = call_metrics_daily.total_retries + EXCLUDED.total_retries,
  peak_concurrent_calls       = GREATEST(call_metrics_daily.peak_concurrent_calls, EXCLUDED.peak_concurrent_calls),
  total_call_duration_seconds = call_metrics_daily.total_call_duration_seconds + EXCLUDED.total_call_duration_seconds,
  dlq_entries_created         = call_metrics_daily.dlq_entries_created + EXCLUDED.dlq_entries_created`

// Bump applies one lifecycle event to the day's row.
func (r *MetricsRepo) Bump(ctx domain.Context, day time.Time, status domain.CallStatus, callSeconds int, concurrent int64) error {
	tracer := otel.Tracer("repo.metrics")
	ctx, span := tracer.Start(ctx, "metrics.Bump")
	defer span.End()

	deltas := map[string]int64{}
	if col := statusColumn(status); col != "" {
		deltas[col] = 1
	}

	_, err := r.Pool.Exec(ctx, bumpQuery, dateOf(day),
		deltas["total_calls_initiated"],
		deltas["total_calls_picked"],
		deltas["total_calls_disconnected"],
		deltas["total_calls_rnr"],
		deltas["total_calls_failed"],
		deltas["total_retries"],
		concurrent,
		int64(callSeconds),
		int64(0),
	)
	if err != nil {
		return fmt.Errorf("op=metrics.bump: %w", err)
	}
	return nil
}

// BumpDeadLetter counts one dead-letter write on the given day.
func (r *MetricsRepo) BumpDeadLetter(ctx domain.Context, day time.Time) error {
	tracer := otel.Tracer("repo.metrics")
	ctx, span := tracer.Start(ctx, "metrics.BumpDeadLetter")
	defer span.End()

	_, err := r.Pool.Exec(ctx, bumpQuery, dateOf(day), int64(0), int64(0), int64(0), int64(0), int64(0), int64(0), int64(0), int64(0), int64(1))
	if err != nil {
		return fmt.Errorf("op=metrics.bump_deadletter: %w", err)
	}
	return nil
}

// Recent returns up to days most recent rollup rows, newest first.
func (r *MetricsRepo) Recent(ctx domain.Context, days int) ([]domain.DailyMetrics, error) {
	tracer := otel.Tracer("repo.metrics")
	ctx, span := tracer.Start(ctx, "metrics.Recent")
	defer span.End()

	q := `SELECT date, total_calls_initiated, total_calls_picked, total_calls_disconnected,
	             total_calls_rnr, total_calls_failed, total_retries,
	             peak_concurrent_calls, total_call_duration_seconds, dlq_entries_created
	      FROM call_metrics_daily ORDER BY date DESC LIMIT $1`
	rows, err := r.Pool.Query(ctx, q, days)
	if err != nil {
		return nil, fmt.Errorf("op=metrics.recent: %w", err)
	}
	defer rows.Close()

	var out []domain.DailyMetrics
	for rows.Next() {
		var m domain.DailyMetrics
		if err := rows.Scan(&m.Date, &m.CallsInitiated, &m.CallsPicked, &m.CallsDisconnected,
			&m.CallsRNR, &m.CallsFailed, &m.Retries,
			&m.PeakConcurrentCalls, &m.TotalCallDurationSec, &m.DLQEntries); err != nil {
			return nil, fmt.Errorf("op=metrics.recent: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=metrics.recent: %w", err)
	}
	return out, nil
}

// DeleteOlderThan drops rollup rows dated before cutoff and returns how
// many went.
func (r *MetricsRepo) DeleteOlderThan(ctx domain.Context, cutoff time.Time) (int64, error) {
	tracer := otel.Tracer("repo.metrics")
	ctx, span := tracer.Start(ctx, "metrics.DeleteOlderThan")
	defer span.End()

	tag, err := r.Pool.Exec(ctx, `DELETE FROM call_metrics_daily WHERE date < $1`, dateOf(cutoff))
	if err != nil {
		return 0, fmt.Errorf("op=metrics.delete_older: %w", err)
	}
	return tag.RowsAffected(), nil
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
