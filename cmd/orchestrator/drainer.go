package main

import (
	"context"
	"log/slog"

	asynqadp "github.com/fairyhunter13/call-campaign-orchestrator/internal/adapter/queue/asynq"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/app"
)

// runQueueDrainer starts a worker bound to the drain queue alone, so pending
// numbers keep flowing into freed slots even when the main worker pool is
// saturated with call tasks.
func runQueueDrainer(args []string) int {
	cfg, ok := loadConfig()
	if !ok {
		return 1
	}
	flushTracer := setupRuntime(cfg, "queue-drainer")
	defer flushTracer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("app init failed", slog.Any("error", err))
		return 1
	}
	defer a.Close()

	w, err := asynqadp.NewWorker(cfg.RedisURL, cfg.WorkerConcurrency,
		map[string]int{asynqadp.QueueDrain: 1}, a.DrainRegistrations())
	if err != nil {
		slog.Error("queue-drainer init failed", slog.Any("error", err))
		return 1
	}

	sigCh := notifyShutdown()
	if err := w.Start(ctx); err != nil {
		slog.Error("queue-drainer start failed", slog.Any("error", err))
		return 1
	}
	slog.Info("queue-drainer started", slog.Int("concurrency", cfg.WorkerConcurrency))

	sig := <-sigCh
	slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	w.Stop()
	slog.Info("queue-drainer stopped")
	return 0
}
