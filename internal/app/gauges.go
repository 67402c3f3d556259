package app

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/adapter/observability"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/usecase"
)

// GaugeRefresher periodically republishes the live gauges that no single
// request path owns: the fleet-wide active-call count and the per-campaign
// pending queue depths. Every replica runs one; the writes are idempotent.
type GaugeRefresher struct {
	metrics  usecase.MetricsService
	interval time.Duration
}

// NewGaugeRefresher builds a refresher over the metrics service.
func NewGaugeRefresher(metrics usecase.MetricsService, interval time.Duration) *GaugeRefresher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &GaugeRefresher{metrics: metrics, interval: interval}
}

// Run refreshes once immediately, then on every tick until ctx is done.
func (g *GaugeRefresher) Run(ctx context.Context) {
	if g == nil {
		return
	}

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	g.refreshOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("gauge refresher stopping")
			return
		case <-ticker.C:
			g.refreshOnce(ctx)
		}
	}
}

func (g *GaugeRefresher) refreshOnce(ctx context.Context) {
	tracer := otel.Tracer("app.gauges")
	ctx, span := tracer.Start(ctx, "GaugeRefresher.refreshOnce")
	defer span.End()

	ov := g.metrics.Overview(ctx)
	observability.SetActiveCalls(ov.CurrentConcurrentCalls)
	span.SetAttributes(attribute.Int64("calls.active", ov.CurrentConcurrentCalls))

	depths, err := g.metrics.QueueDepths(ctx)
	if err != nil {
		span.RecordError(err)
		slog.Error("queue depth refresh failed", slog.Any("error", err))
		return
	}
	for _, d := range depths {
		observability.SetQueueDepth(d.CampaignID, d.Size)
	}
	span.SetAttributes(attribute.Int("queues.refreshed", len(depths)))
}
