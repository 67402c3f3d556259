package observability

import (
	"log/slog"
	"os"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/config"
)

// SetupLogger builds the process logger: debug-level text in dev so local
// runs stay readable, info-level JSON everywhere else for the log pipeline.
// Every line carries the service and environment fields so one Loki query
// can split the server, worker and ticker roles apart.
func SetupLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler
	if cfg.IsDev() {
		opts.Level = slog.LevelDebug
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(h).With(
		slog.String("service", cfg.OTELServiceName),
		slog.String("env", cfg.AppEnv),
	)
}
