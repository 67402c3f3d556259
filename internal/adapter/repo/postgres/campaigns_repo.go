// Package postgres provides PostgreSQL database adapters.
//
// It implements the repository ports for data persistence. The package
// provides type-safe database operations with connection pooling, row-level
// locking for call transitions, and transaction support.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

//go:generate mockery --config=.mockery.yml
//go:generate mockery --config=.mockery-pgx.yml

// PgxPool is a minimal subset of pgxpool used by the repos for easy testing.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// CampaignRepo persists and loads campaigns using a minimal pgx pool.
type CampaignRepo struct{ Pool PgxPool }

// NewCampaignRepo constructs a CampaignRepo with the given pool.
func NewCampaignRepo(p PgxPool) *CampaignRepo { return &CampaignRepo{Pool: p} }

// Create inserts a new campaign and returns its id.
func (r *CampaignRepo) Create(ctx domain.Context, c domain.Campaign) (int64, error) {
	tracer := otel.Tracer("repo.campaigns")
	ctx, span := tracer.Start(ctx, "campaigns.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "campaigns"),
	)
	q := `INSERT INTO campaigns (name, description, active, created_at, updated_at) VALUES ($1,$2,$3,$4,$5) RETURNING id`
	now := time.Now().UTC()
	var id int64
	if err := r.Pool.QueryRow(ctx, q, c.Name, c.Description, c.Active, now, now).Scan(&id); err != nil {
		return 0, fmt.Errorf("op=campaign.create: %w", err)
	}
	return id, nil
}

// Get loads a campaign by id.
func (r *CampaignRepo) Get(ctx domain.Context, id int64) (domain.Campaign, error) {
	tracer := otel.Tracer("repo.campaigns")
	ctx, span := tracer.Start(ctx, "campaigns.Get")
	defer span.End()
	q := `SELECT id, name, COALESCE(description,''), active, created_at, updated_at FROM campaigns WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	var c domain.Campaign
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return domain.Campaign{}, fmt.Errorf("op=campaign.get: %w", domain.ErrNotFound)
		}
		return domain.Campaign{}, fmt.Errorf("op=campaign.get: %w", err)
	}
	return c, nil
}

// List returns all campaigns, newest first.
func (r *CampaignRepo) List(ctx domain.Context) ([]domain.Campaign, error) {
	tracer := otel.Tracer("repo.campaigns")
	ctx, span := tracer.Start(ctx, "campaigns.List")
	defer span.End()
	q := `SELECT id, name, COALESCE(description,''), active, created_at, updated_at FROM campaigns ORDER BY created_at DESC`
	return r.scanMany(ctx, q)
}

// ListActive returns campaigns accepting new calls.
func (r *CampaignRepo) ListActive(ctx domain.Context) ([]domain.Campaign, error) {
	tracer := otel.Tracer("repo.campaigns")
	ctx, span := tracer.Start(ctx, "campaigns.ListActive")
	defer span.End()
	q := `SELECT id, name, COALESCE(description,''), active, created_at, updated_at FROM campaigns WHERE active ORDER BY id`
	return r.scanMany(ctx, q)
}

func (r *CampaignRepo) scanMany(ctx domain.Context, q string, args ...any) ([]domain.Campaign, error) {
	rows, err := r.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("op=campaign.list: %w", err)
	}
	defer rows.Close()
	var out []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("op=campaign.list: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=campaign.list: %w", err)
	}
	return out, nil
}
