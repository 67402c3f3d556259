package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

// MaintenanceService owns the periodic hygiene passes: stale slot recovery
// and retention cleanup.
type MaintenanceService struct {
	Holdings  domain.SlotHoldingRepository
	Calls     domain.CallRepository
	Metrics   domain.MetricsRepository
	DLQ       domain.DeadLetterRepository
	Admission AdmissionService

	StaleAfter       time.Duration
	CallRetention    time.Duration
	MetricsRetention time.Duration
	DLQRetention     time.Duration
}

// NewMaintenanceService constructs a MaintenanceService.
func NewMaintenanceService(
	holdings domain.SlotHoldingRepository,
	calls domain.CallRepository,
	metrics domain.MetricsRepository,
	dlq domain.DeadLetterRepository,
	admission AdmissionService,
	staleAfter, callRetention, metricsRetention, dlqRetention time.Duration,
) MaintenanceService {
	return MaintenanceService{
		Holdings:         holdings,
		Calls:            calls,
		Metrics:          metrics,
		DLQ:              dlq,
		Admission:        admission,
		StaleAfter:       staleAfter,
		CallRetention:    callRetention,
		MetricsRetention: metricsRetention,
		DLQRetention:     dlqRetention,
	}
}

// SweepStats reports one stale slot pass.
type SweepStats struct {
	Scanned  int
	Released int
}

// SweepStaleSlots releases slots whose holdings outlived any plausible call.
// A holding this old means the releasing transition was lost, so freeing the
// slot is the safe direction; the record itself is left for the exhausted
// sweep.
func (s MaintenanceService) SweepStaleSlots(ctx domain.Context, now time.Time) (SweepStats, error) {
	holdings, err := s.Holdings.ListOlderThan(ctx, now.Add(-s.StaleAfter), 100)
	if err != nil {
		return SweepStats{}, fmt.Errorf("op=usecase.SweepStaleSlots: %w", err)
	}
	st := SweepStats{Scanned: len(holdings)}
	for _, h := range holdings {
		if err := s.Admission.EndTracking(ctx, h.CallID, h.PhoneNumber); err != nil {
			slog.Error("stale slot release failed", slog.String("call_id", h.CallID), slog.Any("error", err))
			continue
		}
		slog.Warn("released stale slot",
			slog.String("call_id", h.CallID),
			slog.Time("started_at", h.StartedAt),
			slog.Duration("age", now.Sub(h.StartedAt)))
		st.Released++
	}
	return st, nil
}

// CleanupStats reports rows removed by one retention pass.
type CleanupStats struct {
	Calls       int64
	Metrics     int64
	DeadLetters int64
}

// RetentionCleanup prunes terminal call records, old metric rollups and
// processed dead letters past their retention horizons. Each prune runs
// independently so one failure does not block the others.
func (s MaintenanceService) RetentionCleanup(ctx domain.Context, now time.Time) (CleanupStats, error) {
	var st CleanupStats
	var errs []error

	if n, err := s.Calls.DeleteTerminalOlderThan(ctx, now.Add(-s.CallRetention)); err != nil {
		errs = append(errs, fmt.Errorf("calls: %w", err))
	} else {
		st.Calls = n
	}
	if n, err := s.Metrics.DeleteOlderThan(ctx, now.Add(-s.MetricsRetention)); err != nil {
		errs = append(errs, fmt.Errorf("metrics: %w", err))
	} else {
		st.Metrics = n
	}
	if n, err := s.DLQ.DeleteProcessedOlderThan(ctx, now.Add(-s.DLQRetention)); err != nil {
		errs = append(errs, fmt.Errorf("dead letters: %w", err))
	} else {
		st.DeadLetters = n
	}

	slog.Info("retention cleanup finished",
		slog.Int64("calls", st.Calls),
		slog.Int64("metrics", st.Metrics),
		slog.Int64("dead_letters", st.DeadLetters))
	if len(errs) > 0 {
		return st, fmt.Errorf("op=usecase.RetentionCleanup: %w", errors.Join(errs...))
	}
	return st, nil
}
