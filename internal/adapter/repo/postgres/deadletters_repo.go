package postgres

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

// DeadLetterRepo persists task payloads the bus gave up on.
type DeadLetterRepo struct{ Pool PgxPool }

// NewDeadLetterRepo constructs a DeadLetterRepo with the given pool.
func NewDeadLetterRepo(p PgxPool) *DeadLetterRepo { return &DeadLetterRepo{Pool: p} }

// Insert appends a dead letter.
func (r *DeadLetterRepo) Insert(ctx domain.Context, d domain.DeadLetter) error {
	tracer := otel.Tracer("repo.deadletters")
	ctx, span := tracer.Start(ctx, "deadletters.Insert")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "dead_letters"),
		attribute.String("dlq.topic", d.Topic),
	)

	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	q := `INSERT INTO dead_letters (topic, payload, error, retry_count, processed, created_at) VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err := r.Pool.Exec(ctx, q, d.Topic, d.Payload, d.Error, d.RetryCount, d.Processed, d.CreatedAt); err != nil {
		return fmt.Errorf("op=deadletter.insert: %w", err)
	}
	return nil
}

// ListUnprocessed returns entries still eligible for reprocessing, oldest
// first.
func (r *DeadLetterRepo) ListUnprocessed(ctx domain.Context, maxRetries, limit int) ([]domain.DeadLetter, error) {
	tracer := otel.Tracer("repo.deadletters")
	ctx, span := tracer.Start(ctx, "deadletters.ListUnprocessed")
	defer span.End()

	q := `SELECT id, topic, payload, error, retry_count, processed, created_at, processed_at, last_retry_at
	      FROM dead_letters
	      WHERE NOT processed AND retry_count < $1
	      ORDER BY created_at ASC
	      LIMIT $2`
	rows, err := r.Pool.Query(ctx, q, maxRetries, limit)
	if err != nil {
		return nil, fmt.Errorf("op=deadletter.list_unprocessed: %w", err)
	}
	defer rows.Close()

	var out []domain.DeadLetter
	for rows.Next() {
		var d domain.DeadLetter
		if err := rows.Scan(&d.ID, &d.Topic, &d.Payload, &d.Error, &d.RetryCount, &d.Processed, &d.CreatedAt, &d.ProcessedAt, &d.LastRetryAt); err != nil {
			return nil, fmt.Errorf("op=deadletter.list_unprocessed: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=deadletter.list_unprocessed: %w", err)
	}
	return out, nil
}

// MarkProcessed stamps the entry as successfully re-queued.
func (r *DeadLetterRepo) MarkProcessed(ctx domain.Context, id int64) error {
	tracer := otel.Tracer("repo.deadletters")
	ctx, span := tracer.Start(ctx, "deadletters.MarkProcessed")
	defer span.End()

	q := `UPDATE dead_letters SET processed=TRUE, processed_at=$2 WHERE id=$1`
	if _, err := r.Pool.Exec(ctx, q, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=deadletter.mark_processed: %w", err)
	}
	return nil
}

// IncrementRetry records a failed reprocessing attempt.
func (r *DeadLetterRepo) IncrementRetry(ctx domain.Context, id int64) error {
	tracer := otel.Tracer("repo.deadletters")
	ctx, span := tracer.Start(ctx, "deadletters.IncrementRetry")
	defer span.End()

	q := `UPDATE dead_letters SET retry_count = retry_count + 1, last_retry_at=$2 WHERE id=$1`
	if _, err := r.Pool.Exec(ctx, q, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=deadletter.increment_retry: %w", err)
	}
	return nil
}

// DeleteProcessedOlderThan drops processed entries whose processed_at is
// before cutoff and returns how many went.
func (r *DeadLetterRepo) DeleteProcessedOlderThan(ctx domain.Context, cutoff time.Time) (int64, error) {
	tracer := otel.Tracer("repo.deadletters")
	ctx, span := tracer.Start(ctx, "deadletters.DeleteProcessedOlderThan")
	defer span.End()

	q := `DELETE FROM dead_letters WHERE processed AND processed_at < $1`
	tag, err := r.Pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("op=deadletter.delete_processed: %w", err)
	}
	return tag.RowsAffected(), nil
}
