package usecase

import (
	"fmt"
	"log/slog"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

// MetricsService assembles the operator-facing system overview.
type MetricsService struct {
	Metrics   domain.MetricsRepository
	Registry  domain.SlotRegistry
	Campaigns domain.CampaignRepository
	Pending   domain.PendingQueue

	MaxConcurrent int64
}

// NewMetricsService constructs a MetricsService.
func NewMetricsService(metrics domain.MetricsRepository, registry domain.SlotRegistry, campaigns domain.CampaignRepository, pending domain.PendingQueue, maxConcurrent int64) MetricsService {
	return MetricsService{Metrics: metrics, Registry: registry, Campaigns: campaigns, Pending: pending, MaxConcurrent: maxConcurrent}
}

// Overview is the GET /metrics response shape.
type Overview struct {
	CurrentConcurrentCalls int64
	MaxConcurrentCalls     int64
	Recent                 []domain.DailyMetrics
	SystemStatus           string
}

// Overview returns live concurrency and the last week of daily rollups. A
// failing backend degrades the status instead of failing the endpoint.
func (s MetricsService) Overview(ctx domain.Context) Overview {
	out := Overview{MaxConcurrentCalls: s.MaxConcurrent, SystemStatus: "operational"}
	if n, err := s.Registry.Count(ctx); err == nil {
		out.CurrentConcurrentCalls = n
	} else {
		slog.Warn("concurrency read failed", slog.Any("error", err))
		out.SystemStatus = "degraded"
	}
	if recent, err := s.Metrics.Recent(ctx, 7); err == nil {
		out.Recent = recent
	} else {
		slog.Warn("recent metrics read failed", slog.Any("error", err))
		out.SystemStatus = "degraded"
	}
	return out
}

// QueueDepth is one campaign's pending queue size.
type QueueDepth struct {
	CampaignID   int64
	CampaignName string
	Size         int64
}

// QueueDepths reports the pending queue size of every active campaign, for
// the admin surface.
func (s MetricsService) QueueDepths(ctx domain.Context) ([]QueueDepth, error) {
	campaigns, err := s.Campaigns.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("op=usecase.QueueDepths: %w", err)
	}
	out := make([]QueueDepth, 0, len(campaigns))
	for _, c := range campaigns {
		size, err := s.Pending.Size(ctx, c.ID)
		if err != nil {
			slog.Warn("queue size read failed", slog.Int64("campaign_id", c.ID), slog.Any("error", err))
			continue
		}
		out = append(out, QueueDepth{CampaignID: c.ID, CampaignName: c.Name, Size: size})
	}
	return out, nil
}
