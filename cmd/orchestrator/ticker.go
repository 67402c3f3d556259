package main

import (
	"log/slog"

	asynqadp "github.com/fairyhunter13/call-campaign-orchestrator/internal/adapter/queue/asynq"
)

// runTicker emits the periodic maintenance tasks. It needs only Redis; the
// workers do the actual scanning. Run exactly one ticker per deployment or
// every tick fires once per replica.
func runTicker(args []string) int {
	cfg, ok := loadConfig()
	if !ok {
		return 1
	}
	flushTracer := setupRuntime(cfg, "ticker")
	defer flushTracer()

	sched, err := asynqadp.NewScheduler(cfg.RedisURL, cfg.SchedulerInterval(), cfg.CleanupInterval)
	if err != nil {
		slog.Error("ticker init failed", slog.Any("error", err))
		return 1
	}

	slog.Info("ticker started",
		slog.Duration("sweep_every", cfg.SchedulerInterval()),
		slog.Duration("cleanup_every", cfg.CleanupInterval))
	if err := sched.Run(); err != nil {
		slog.Error("ticker error", slog.Any("error", err))
		return 1
	}
	slog.Info("ticker stopped")
	return 0
}
