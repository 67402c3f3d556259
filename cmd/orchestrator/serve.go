package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httpserver "github.com/fairyhunter13/call-campaign-orchestrator/internal/adapter/httpserver"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/app"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	seedDev := fs.Bool("seed-dev", false, "seed a demo campaign in dev when the database is empty")
	_ = fs.Parse(args)

	cfg, ok := loadConfig()
	if !ok {
		return 1
	}
	flushTracer := setupRuntime(cfg, "server")
	defer flushTracer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("app init failed", slog.Any("error", err))
		return 1
	}
	defer a.Close()

	if *seedDev {
		if !cfg.IsDev() {
			slog.Warn("--seed-dev ignored outside dev", slog.String("env", cfg.AppEnv))
		} else if err := seedDemoData(ctx, a); err != nil {
			slog.Error("dev seed failed", slog.Any("error", err))
			return 1
		}
	}

	// Background upkeep: rule hot-reload and gauge refresh stop with ctx.
	a.Oracle.Watch(ctx, cfg.RulesReloadInterval)
	go app.NewGaugeRefresher(a.Metrics, 0).Run(ctx)

	dbCheck, redisCheck, kafkaCheck := app.BuildReadinessChecks(a.Pool, a.Redis, a.Events)
	srv := httpserver.NewServer(cfg, a.Campaigns, a.Admission, a.Lifecycle, a.Metrics, a.DLQ, a.Bus,
		dbCheck, redisCheck, kafkaCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCh := notifyShutdown()
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancelShutdown()
	if err := srvHTTP.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown incomplete", slog.Any("error", err))
	}
	slog.Info("server stopped")
	return 0
}
