package postgres

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

// PhoneNumberRepo persists campaign phone numbers.
type PhoneNumberRepo struct{ Pool PgxPool }

// NewPhoneNumberRepo constructs a PhoneNumberRepo with the given pool.
func NewPhoneNumberRepo(p PgxPool) *PhoneNumberRepo { return &PhoneNumberRepo{Pool: p} }

// CreateBatch inserts numbers for a campaign in one transaction and returns
// the rows that were actually created. Numbers already present for the
// campaign are skipped, so the caller can diff input against output to
// report duplicates.
func (r *PhoneNumberRepo) CreateBatch(ctx domain.Context, campaignID int64, numbers []string) ([]domain.PhoneNumber, error) {
	tracer := otel.Tracer("repo.phone_numbers")
	ctx, span := tracer.Start(ctx, "phone_numbers.CreateBatch")
	defer span.End()

	if len(numbers) == 0 {
		return nil, nil
	}

	q := `INSERT INTO phone_numbers (campaign_id, number, active, created_at)
	      SELECT $1, n, TRUE, $2 FROM unnest($3::text[]) AS n
	      ON CONFLICT (campaign_id, number) DO NOTHING
	      RETURNING id, campaign_id, number, active, created_at`
	rows, err := r.Pool.Query(ctx, q, campaignID, time.Now().UTC(), numbers)
	if err != nil {
		return nil, fmt.Errorf("op=phone_number.create_batch: %w", err)
	}
	defer rows.Close()

	var out []domain.PhoneNumber
	for rows.Next() {
		var n domain.PhoneNumber
		if err := rows.Scan(&n.ID, &n.CampaignID, &n.Number, &n.Active, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=phone_number.create_batch: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=phone_number.create_batch: %w", err)
	}
	return out, nil
}

// ListActive returns the campaign's callable numbers in insertion order.
func (r *PhoneNumberRepo) ListActive(ctx domain.Context, campaignID int64) ([]domain.PhoneNumber, error) {
	tracer := otel.Tracer("repo.phone_numbers")
	ctx, span := tracer.Start(ctx, "phone_numbers.ListActive")
	defer span.End()

	q := `SELECT id, campaign_id, number, active, created_at FROM phone_numbers WHERE campaign_id=$1 AND active ORDER BY id`
	rows, err := r.Pool.Query(ctx, q, campaignID)
	if err != nil {
		return nil, fmt.Errorf("op=phone_number.list_active: %w", err)
	}
	defer rows.Close()

	var out []domain.PhoneNumber
	for rows.Next() {
		var n domain.PhoneNumber
		if err := rows.Scan(&n.ID, &n.CampaignID, &n.Number, &n.Active, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=phone_number.list_active: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=phone_number.list_active: %w", err)
	}
	return out, nil
}
