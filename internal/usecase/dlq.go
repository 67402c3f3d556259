package usecase

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

// DLQService replays dead-lettered task payloads back onto the bus.
type DLQService struct {
	DLQ domain.DeadLetterRepository
	Bus domain.TaskBus

	// MaxRetries caps replay attempts per entry; BatchSize caps one pass.
	MaxRetries int
	BatchSize  int
}

// NewDLQService constructs a DLQService.
func NewDLQService(dlq domain.DeadLetterRepository, bus domain.TaskBus, maxRetries, batchSize int) DLQService {
	return DLQService{DLQ: dlq, Bus: bus, MaxRetries: maxRetries, BatchSize: batchSize}
}

// ReprocessStats reports one reprocess pass.
type ReprocessStats struct {
	Scanned  int
	Requeued int
	Failed   int
}

// Reprocess re-enqueues unprocessed dead letters that still have replay
// budget. Entries that replay cleanly are marked processed; the rest keep
// their payload and bump their retry count for the next pass.
func (s DLQService) Reprocess(ctx domain.Context) (ReprocessStats, error) {
	items, err := s.DLQ.ListUnprocessed(ctx, s.MaxRetries, s.BatchSize)
	if err != nil {
		return ReprocessStats{}, fmt.Errorf("op=usecase.Reprocess: %w", err)
	}
	st := ReprocessStats{Scanned: len(items)}
	for _, d := range items {
		if err := s.replay(ctx, d); err != nil {
			slog.Warn("dead letter replay failed",
				slog.Int64("id", d.ID), slog.String("topic", d.Topic), slog.Any("error", err))
			if uerr := s.DLQ.IncrementRetry(ctx, d.ID); uerr != nil {
				slog.Error("dead letter retry bump failed", slog.Int64("id", d.ID), slog.Any("error", uerr))
			}
			st.Failed++
			continue
		}
		if err := s.DLQ.MarkProcessed(ctx, d.ID); err != nil {
			slog.Error("dead letter mark failed", slog.Int64("id", d.ID), slog.Any("error", err))
			st.Failed++
			continue
		}
		st.Requeued++
	}
	if st.Scanned > 0 {
		slog.Info("dead letter pass finished",
			slog.Int("scanned", st.Scanned), slog.Int("requeued", st.Requeued), slog.Int("failed", st.Failed))
	}
	return st, nil
}

// List exposes unprocessed entries for the admin surface.
func (s DLQService) List(ctx domain.Context, limit int) ([]domain.DeadLetter, error) {
	if limit <= 0 {
		limit = s.BatchSize
	}
	items, err := s.DLQ.ListUnprocessed(ctx, s.MaxRetries, limit)
	if err != nil {
		return nil, fmt.Errorf("op=usecase.DLQList: %w", err)
	}
	return items, nil
}

func (s DLQService) replay(ctx domain.Context, d domain.DeadLetter) error {
	switch d.Topic {
	case domain.DLQTopicCallInitiation:
		var p domain.InitiateTaskPayload
		if err := json.Unmarshal(d.Payload, &p); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
		}
		_, err := s.Bus.EnqueueInitiate(ctx, p)
		return err
	case domain.DLQTopicCallback:
		var p domain.CallbackTaskPayload
		if err := json.Unmarshal(d.Payload, &p); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
		}
		_, err := s.Bus.EnqueueCallback(ctx, p)
		return err
	case domain.DLQTopicExternalCallback:
		var p domain.ExternalCallbackPayload
		if err := json.Unmarshal(d.Payload, &p); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
		}
		_, err := s.Bus.EnqueueExternalCallback(ctx, p)
		return err
	default:
		return fmt.Errorf("%w: unknown dead letter topic %q", domain.ErrSchemaInvalid, d.Topic)
	}
}
