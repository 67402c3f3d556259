package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	asynqadp "github.com/fairyhunter13/call-campaign-orchestrator/internal/adapter/queue/asynq"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

// unmarshalPayload decodes a task payload. A body that cannot decode is a
// schema error: non-retriable, straight to the final-failure hook.
func unmarshalPayload(taskType string, payload []byte, dst any) error {
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("%w: %s payload: %v", domain.ErrSchemaInvalid, taskType, err)
	}
	return nil
}

// CallRegistrations binds the call-path task types: provider dials, apply
// callbacks, and raw provider callback parsing.
func (a *App) CallRegistrations() []asynqadp.Registration {
	return []asynqadp.Registration{
		{
			Type: domain.TaskInitiateCall,
			Handler: func(ctx context.Context, payload []byte) error {
				var p domain.InitiateTaskPayload
				if err := unmarshalPayload(domain.TaskInitiateCall, payload, &p); err != nil {
					return err
				}
				return a.Lifecycle.HandleInitiate(ctx, p)
			},
			OnFinalFailure: a.Lifecycle.FinalizeInitiateFailure,
		},
		{
			Type: domain.TaskProcessCallback,
			Handler: func(ctx context.Context, payload []byte) error {
				var p domain.CallbackTaskPayload
				if err := unmarshalPayload(domain.TaskProcessCallback, payload, &p); err != nil {
					return err
				}
				rec, err := a.Lifecycle.ApplyCallback(ctx, p)
				if err != nil {
					return err
				}
				a.Tracker.Observe(rec.CampaignID, p.Status == domain.CallPicked)
				return nil
			},
			OnFinalFailure: a.Lifecycle.FinalizeCallbackFailure,
		},
		{
			Type: domain.TaskExternalCallback,
			Handler: func(ctx context.Context, payload []byte) error {
				var p domain.ExternalCallbackPayload
				if err := unmarshalPayload(domain.TaskExternalCallback, payload, &p); err != nil {
					return err
				}
				return a.Lifecycle.HandleExternalCallback(ctx, p)
			},
			OnFinalFailure: a.Lifecycle.FinalizeExternalCallbackFailure,
		},
	}
}

// DrainRegistrations binds the queue-drain task. Split out so the
// queue-drainer subcommand can consume the drain queue alone.
func (a *App) DrainRegistrations() []asynqadp.Registration {
	return []asynqadp.Registration{
		{
			Type: domain.TaskQueueDrain,
			Handler: func(ctx context.Context, payload []byte) error {
				var p domain.QueueDrainPayload
				if err := unmarshalPayload(domain.TaskQueueDrain, payload, &p); err != nil {
					return err
				}
				st, err := a.Queue.Drain(ctx, p.CampaignID)
				if err != nil {
					return err
				}
				slog.Debug("queue drained",
					slog.Int64("campaign_id", p.CampaignID),
					slog.Int("processed", st.Processed),
					slog.Int("requeued", st.Requeued),
					slog.Int("dropped", st.Dropped),
					slog.Int64("remaining", st.Remaining))
				return nil
			},
		},
	}
}

// MaintenanceRegistrations binds the scheduler ticks: retry scan, queue
// safety net, stale-slot sweep, dead-letter reprocess and retention cleanup.
func (a *App) MaintenanceRegistrations() []asynqadp.Registration {
	return []asynqadp.Registration{
		{
			Type: domain.TaskRetryTick,
			Handler: func(ctx context.Context, _ []byte) error {
				st, err := a.Retry.Tick(ctx, time.Now().UTC())
				if err != nil {
					return err
				}
				if st.Emitted > 0 || st.Swept > 0 {
					slog.Info("retry tick",
						slog.Int("scanned", st.Scanned),
						slog.Int("emitted", st.Emitted),
						slog.Int("deferred", st.Deferred),
						slog.Int("swept", st.Swept))
				}
				return nil
			},
		},
		{
			Type: domain.TaskQueueSafetyNet,
			Handler: func(ctx context.Context, _ []byte) error {
				kicked, err := a.Queue.SafetyNet(ctx)
				if err != nil {
					return err
				}
				if kicked > 0 {
					slog.Info("queue safety net kicked drains", slog.Int("campaigns", kicked))
				}
				return nil
			},
		},
		{
			Type: domain.TaskSlotSweep,
			Handler: func(ctx context.Context, _ []byte) error {
				st, err := a.Maintenance.SweepStaleSlots(ctx, time.Now().UTC())
				if err != nil {
					return err
				}
				if st.Released > 0 {
					slog.Warn("stale slot sweep released holdings",
						slog.Int("scanned", st.Scanned),
						slog.Int("released", st.Released))
				}
				return nil
			},
		},
		{
			Type: domain.TaskDLQReprocess,
			Handler: func(ctx context.Context, _ []byte) error {
				st, err := a.DLQ.Reprocess(ctx)
				if err != nil {
					return err
				}
				if st.Scanned > 0 {
					slog.Info("dead letter reprocess",
						slog.Int("scanned", st.Scanned),
						slog.Int("requeued", st.Requeued),
						slog.Int("failed", st.Failed))
				}
				return nil
			},
		},
		{
			Type: domain.TaskRetentionCleanup,
			Handler: func(ctx context.Context, _ []byte) error {
				st, err := a.Maintenance.RetentionCleanup(ctx, time.Now().UTC())
				if err != nil {
					return err
				}
				slog.Info("retention cleanup",
					slog.Int64("calls", st.Calls),
					slog.Int64("metrics", st.Metrics),
					slog.Int64("dead_letters", st.DeadLetters))
				return nil
			},
		},
	}
}

// WorkerRegistrations is the full set consumed by the worker subcommand.
func (a *App) WorkerRegistrations() []asynqadp.Registration {
	regs := a.CallRegistrations()
	regs = append(regs, a.DrainRegistrations()...)
	regs = append(regs, a.MaintenanceRegistrations()...)
	return regs
}
