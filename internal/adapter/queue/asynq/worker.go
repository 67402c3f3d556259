package asynqadp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/adapter/observability"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

// Registration binds one task type to its handler and, optionally, a hook
// that runs once the bus gives up on the task.
type Registration struct {
	Type    string
	Handler func(ctx context.Context, payload []byte) error
	// OnFinalFailure runs exactly once per task, after the losing attempt
	// returned and before the task is archived. Implementations must release
	// any held slot before committing a dead letter.
	OnFinalFailure func(ctx context.Context, payload []byte, cause error)
}

// Worker is the consume side of the task bus.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorker builds an asynq server over the given Redis URI and mounts the
// registrations. A nil queues map consumes everything under the default
// priorities; the drainer passes only its own queue. Retry delays follow
// each task type's declared policy.
func NewWorker(redisURL string, concurrency int, queues map[string]int, regs []Registration) (*Worker, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("op=worker.NewWorker: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	if queues == nil {
		queues = QueuePriorities
	}
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency:    concurrency,
		Queues:         queues,
		RetryDelayFunc: retryDelay,
	})
	mux := asynq.NewServeMux()
	for _, r := range regs {
		mux.HandleFunc(r.Type, dispatch(r))
	}
	return &Worker{server: srv, mux: mux}, nil
}

// dispatch wraps a registration with tracing, task metrics and the
// final-failure hook. A non-retriable error short-circuits the remaining
// redeliveries.
func dispatch(r Registration) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		tracer := otel.Tracer("queue.worker")
		ctx, span := tracer.Start(ctx, r.Type)
		defer span.End()

		observability.StartProcessingTask(r.Type)
		err := r.Handler(ctx, t.Payload())
		if err == nil {
			observability.CompleteTask(r.Type)
			return nil
		}
		span.RecordError(err)

		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		retriable := domain.IsRetriableTaskError(err)
		if retriable && retried < maxRetry {
			observability.RetryTask(r.Type)
			slog.Warn("task attempt failed",
				slog.String("type", r.Type),
				slog.Int("retried", retried),
				slog.Int("max_retry", maxRetry),
				slog.Any("error", err))
			return err
		}

		if r.OnFinalFailure != nil {
			r.OnFinalFailure(ctx, t.Payload(), err)
		}
		observability.FailTask(r.Type)
		slog.Error("task exhausted",
			slog.String("type", r.Type),
			slog.Int("retried", retried),
			slog.Bool("retriable", retriable),
			slog.Any("error", err))
		if retriable {
			return err
		}
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
}

// Start begins consuming. It does not block.
func (w *Worker) Start(ctx context.Context) error { return w.server.Start(w.mux) }

// Stop drains in-flight tasks and shuts the server down.
func (w *Worker) Stop() { w.server.Shutdown() }

// Scheduler emits the periodic tick tasks. Exactly one scheduler instance
// should run per deployment.
type Scheduler struct {
	scheduler *asynq.Scheduler
}

// NewScheduler registers the tick entries: retry scan and queue safety net
// every minute, the stale-slot sweep and dead-letter reprocess on the
// maintenance interval, retention cleanup on its own period.
func NewScheduler(redisURL string, sweepEvery, cleanupEvery time.Duration) (*Scheduler, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("op=worker.NewScheduler: %w", err)
	}
	if sweepEvery <= 0 {
		sweepEvery = 10 * time.Minute
	}
	if cleanupEvery <= 0 {
		cleanupEvery = 24 * time.Hour
	}
	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
	entries := []struct {
		spec     string
		taskType string
	}{
		{"@every 1m", domain.TaskRetryTick},
		{"@every 1m", domain.TaskQueueSafetyNet},
		{fmt.Sprintf("@every %s", sweepEvery), domain.TaskSlotSweep},
		{fmt.Sprintf("@every %s", sweepEvery), domain.TaskDLQReprocess},
		{fmt.Sprintf("@every %s", cleanupEvery), domain.TaskRetentionCleanup},
	}
	for _, e := range entries {
		if _, err := s.Register(e.spec, asynq.NewTask(e.taskType, nil), asynq.Queue(QueueMaintenance)); err != nil {
			return nil, fmt.Errorf("op=worker.NewScheduler task=%s: %w", e.taskType, err)
		}
	}
	return &Scheduler{scheduler: s}, nil
}

// Run emits ticks until SIGTERM or SIGINT arrives, then stops.
func (s *Scheduler) Run() error { return s.scheduler.Run() }

// Shutdown stops emitting ticks.
func (s *Scheduler) Shutdown() { s.scheduler.Shutdown() }
