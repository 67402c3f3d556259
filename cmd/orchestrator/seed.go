package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/app"
)

// seedDemoData gives a fresh dev database something to dial: one campaign
// with a handful of numbers. It is idempotent and refuses to touch a
// database that already has campaigns.
func seedDemoData(ctx context.Context, a *app.App) error {
	existing, err := a.Campaigns.List(ctx)
	if err != nil {
		return fmt.Errorf("op=seedDemoData: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("seed skipped, campaigns already present", slog.Int("campaigns", len(existing)))
		return nil
	}

	c, err := a.Campaigns.Create(ctx, "demo-outreach", "Seeded campaign for local development")
	if err != nil {
		return fmt.Errorf("op=seedDemoData: %w", err)
	}

	numbers := []string{
		"+14155550101",
		"+14155550102",
		"+14155550103",
		"+442079460104",
		"+6281255550105",
	}
	res, err := a.Campaigns.AddNumbers(ctx, c.ID, numbers)
	if err != nil {
		return fmt.Errorf("op=seedDemoData: %w", err)
	}
	for _, e := range res.Errors {
		slog.Warn("seed number rejected", slog.String("reason", e))
	}
	slog.Info("dev data seeded",
		slog.Int64("campaign_id", c.ID),
		slog.String("campaign", c.Name),
		slog.Int("numbers", res.CreatedCount))
	return nil
}
