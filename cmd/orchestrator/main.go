// Command orchestrator is the single binary behind every deployment role of
// the call campaign system. The role is picked by the first argument:
//
//	orchestrator serve [--seed-dev]   HTTP API, callbacks and admin surface
//	orchestrator worker               task bus consumer for all queues
//	orchestrator ticker               periodic task scheduler (run exactly one)
//	orchestrator queue-drainer        consumer bound to the drain queue only
//	orchestrator rulecheck [path]     validate a retry schedule file and exit
//
// All long-running roles share the same bootstrap: configuration, logging,
// Prometheus metrics on an internal port, tracing, then the dependency
// bundle. They stop on SIGINT or SIGTERM after draining in-flight work.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/adapter/observability"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/config"
)

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	switch cmd {
	case "serve":
		os.Exit(runServe(args))
	case "worker":
		os.Exit(runWorker(args))
	case "ticker":
		os.Exit(runTicker(args))
	case "queue-drainer":
		os.Exit(runQueueDrainer(args))
	case "rulecheck":
		os.Exit(runRulecheck(args))
	case "help", "-h", "--help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "orchestrator: unknown command %q\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

func usage(w *os.File) {
	fmt.Fprint(w, `Usage: orchestrator <command> [flags]

Commands:
  serve          run the HTTP API server (default)
  worker         run the task queue worker
  ticker         run the periodic task scheduler
  queue-drainer  run a worker bound to the drain queue only
  rulecheck      validate a retry schedule file and print its windows

Flags:
  serve --seed-dev   seed a demo campaign in dev when the database is empty
  rulecheck [path]   schedule file to check (default RETRY_SCHEDULE_CONFIG_PATH)
`)
}

func loadConfig() (config.Config, bool) {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		return config.Config{}, false
	}
	return cfg, true
}

// setupRuntime wires logging, metrics and tracing for a long-running role.
// The returned function flushes the tracer and must run on the way out.
func setupRuntime(cfg config.Config, role string) func() {
	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register Prometheus collectors once per process and expose them on the
	// internal metrics port, apart from the public API so scraping never
	// passes through request auth.
	observability.InitMetrics()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", cfg.MetricsPort)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("metrics listener error", slog.String("addr", addr), slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}

	slog.Info("starting "+role, slog.String("env", cfg.AppEnv))
	return func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}
}

// notifyShutdown returns a channel that receives the first SIGINT or SIGTERM.
func notifyShutdown() chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}
