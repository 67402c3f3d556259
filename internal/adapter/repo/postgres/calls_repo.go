package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

// CallRepo persists call records.
type CallRepo struct{ Pool PgxPool }

// NewCallRepo constructs a CallRepo with the given pool.
func NewCallRepo(p PgxPool) *CallRepo { return &CallRepo{Pool: p} }

const callColumns = `call_id, campaign_id, phone_number, status, attempt_count, max_attempts,
	created_at, updated_at, last_attempt_at, next_retry_at, total_call_seconds, external_call_id, error`

func scanCall(row pgx.Row) (domain.CallRecord, error) {
	var c domain.CallRecord
	var status string
	err := row.Scan(&c.CallID, &c.CampaignID, &c.PhoneNumber, &status, &c.AttemptCount, &c.MaxAttempts,
		&c.CreatedAt, &c.UpdatedAt, &c.LastAttemptAt, &c.NextRetryAt, &c.CallSeconds, &c.ExternalCallID, &c.Error)
	c.Status = domain.CallStatus(status)
	return c, err
}

// Create inserts the record for a freshly admitted call.
func (r *CallRepo) Create(ctx domain.Context, c domain.CallRecord) error {
	tracer := otel.Tracer("repo.calls")
	ctx, span := tracer.Start(ctx, "calls.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "call_records"),
	)

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}
	q := `INSERT INTO call_records (` + callColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := r.Pool.Exec(ctx, q, c.CallID, c.CampaignID, c.PhoneNumber, string(c.Status), c.AttemptCount, c.MaxAttempts,
		c.CreatedAt, c.UpdatedAt, c.LastAttemptAt, c.NextRetryAt, c.CallSeconds, c.ExternalCallID, c.Error)
	if err != nil {
		return fmt.Errorf("op=call.create: %w", err)
	}
	return nil
}

// Get loads a call record by id.
func (r *CallRepo) Get(ctx domain.Context, callID string) (domain.CallRecord, error) {
	tracer := otel.Tracer("repo.calls")
	ctx, span := tracer.Start(ctx, "calls.Get")
	defer span.End()

	row := r.Pool.QueryRow(ctx, `SELECT `+callColumns+` FROM call_records WHERE call_id=$1`, callID)
	c, err := scanCall(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CallRecord{}, fmt.Errorf("op=call.get: %w", domain.ErrNotFound)
		}
		return domain.CallRecord{}, fmt.Errorf("op=call.get: %w", err)
	}
	return c, nil
}

// Transition loads the record under SELECT ... FOR UPDATE, applies fn and
// persists the mutated record in the same transaction. Concurrent callback
// and retry events for one call_id serialize on the row lock. fn returning
// an error aborts with no write.
func (r *CallRepo) Transition(ctx domain.Context, callID string, fn func(*domain.CallRecord) error) (domain.CallRecord, error) {
	tracer := otel.Tracer("repo.calls")
	ctx, span := tracer.Start(ctx, "calls.Transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "call_records"),
	)

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.CallRecord{}, fmt.Errorf("op=call.transition: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	row := tx.QueryRow(ctx, `SELECT `+callColumns+` FROM call_records WHERE call_id=$1 FOR UPDATE`, callID)
	c, err := scanCall(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CallRecord{}, fmt.Errorf("op=call.transition: %w", domain.ErrNotFound)
		}
		return domain.CallRecord{}, fmt.Errorf("op=call.transition: %w", err)
	}

	if err := fn(&c); err != nil {
		return domain.CallRecord{}, err
	}
	c.UpdatedAt = time.Now().UTC()

	q := `UPDATE call_records SET status=$2, attempt_count=$3, max_attempts=$4, updated_at=$5,
	      last_attempt_at=$6, next_retry_at=$7, total_call_seconds=$8, external_call_id=$9, error=$10
	      WHERE call_id=$1`
	_, err = tx.Exec(ctx, q, c.CallID, string(c.Status), c.AttemptCount, c.MaxAttempts, c.UpdatedAt,
		c.LastAttemptAt, c.NextRetryAt, c.CallSeconds, c.ExternalCallID, c.Error)
	if err != nil {
		return domain.CallRecord{}, fmt.Errorf("op=call.transition: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.CallRecord{}, fmt.Errorf("op=call.transition: %w", err)
	}
	return c, nil
}

// DueForRetry returns records parked in DISCONNECTED or RNR whose retry
// time has arrived and that still have attempts left, in stable order:
// earliest next_retry_at, then oldest created_at, then call_id.
func (r *CallRepo) DueForRetry(ctx domain.Context, now time.Time, limit int) ([]domain.CallRecord, error) {
	tracer := otel.Tracer("repo.calls")
	ctx, span := tracer.Start(ctx, "calls.DueForRetry")
	defer span.End()

	q := `SELECT ` + callColumns + ` FROM call_records
	      WHERE status = ANY($1) AND next_retry_at <= $2 AND attempt_count < max_attempts
	      ORDER BY next_retry_at ASC, created_at ASC, call_id ASC
	      LIMIT $3`
	statuses := []string{string(domain.CallDisconnected), string(domain.CallRNR)}
	rows, err := r.Pool.Query(ctx, q, statuses, now, limit)
	if err != nil {
		return nil, fmt.Errorf("op=call.due_for_retry: %w", err)
	}
	return collectCalls(rows, "op=call.due_for_retry")
}

// ExhaustedNonTerminal returns records that ran out of attempts but were
// never finalized, for the ticker's exhaustion sweep.
func (r *CallRepo) ExhaustedNonTerminal(ctx domain.Context, limit int) ([]domain.CallRecord, error) {
	tracer := otel.Tracer("repo.calls")
	ctx, span := tracer.Start(ctx, "calls.ExhaustedNonTerminal")
	defer span.End()

	q := `SELECT ` + callColumns + ` FROM call_records
	      WHERE status = ANY($1) AND attempt_count >= max_attempts
	      ORDER BY updated_at ASC
	      LIMIT $2`
	statuses := []string{string(domain.CallDisconnected), string(domain.CallRNR), string(domain.CallRetrying)}
	rows, err := r.Pool.Query(ctx, q, statuses, limit)
	if err != nil {
		return nil, fmt.Errorf("op=call.exhausted: %w", err)
	}
	return collectCalls(rows, "op=call.exhausted")
}

// DeleteTerminalOlderThan removes terminal records last touched before
// cutoff and returns how many went.
func (r *CallRepo) DeleteTerminalOlderThan(ctx domain.Context, cutoff time.Time) (int64, error) {
	tracer := otel.Tracer("repo.calls")
	ctx, span := tracer.Start(ctx, "calls.DeleteTerminalOlderThan")
	defer span.End()

	q := `DELETE FROM call_records WHERE status = ANY($1) AND updated_at < $2`
	statuses := []string{string(domain.CallCompleted), string(domain.CallFailed)}
	tag, err := r.Pool.Exec(ctx, q, statuses, cutoff)
	if err != nil {
		return 0, fmt.Errorf("op=call.delete_terminal: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectCalls(rows pgx.Rows, op string) ([]domain.CallRecord, error) {
	defer rows.Close()
	var out []domain.CallRecord
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
