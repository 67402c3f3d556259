package main

import (
	"context"
	"log/slog"

	asynqadp "github.com/fairyhunter13/call-campaign-orchestrator/internal/adapter/queue/asynq"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/app"
)

func runWorker(args []string) int {
	cfg, ok := loadConfig()
	if !ok {
		return 1
	}
	flushTracer := setupRuntime(cfg, "worker")
	defer flushTracer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("app init failed", slog.Any("error", err))
		return 1
	}
	defer a.Close()

	// The retry tick consults the schedule oracle, so the worker reloads
	// rules on the same cadence as the server.
	a.Oracle.Watch(ctx, cfg.RulesReloadInterval)
	go app.NewGaugeRefresher(a.Metrics, 0).Run(ctx)

	w, err := asynqadp.NewWorker(cfg.RedisURL, cfg.WorkerConcurrency, nil, a.WorkerRegistrations())
	if err != nil {
		slog.Error("worker init failed", slog.Any("error", err))
		return 1
	}

	sigCh := notifyShutdown()
	if err := w.Start(ctx); err != nil {
		slog.Error("worker start failed", slog.Any("error", err))
		return 1
	}
	slog.Info("worker started", slog.Int("concurrency", cfg.WorkerConcurrency))

	sig := <-sigCh
	slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	w.Stop()
	slog.Info("worker stopped")
	return 0
}
