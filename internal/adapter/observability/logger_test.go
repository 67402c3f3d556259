package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/config"
)

func TestSetupLogger_LevelPerEnv(t *testing.T) {
	ctx := context.Background()

	dev := SetupLogger(config.Config{AppEnv: "dev", OTELServiceName: "orchestrator"})
	if dev == nil {
		t.Fatalf("nil logger")
	}
	if !dev.Enabled(ctx, slog.LevelDebug) {
		t.Fatalf("dev logger should emit debug")
	}

	prod := SetupLogger(config.Config{AppEnv: "prod", OTELServiceName: "orchestrator"})
	if prod == nil {
		t.Fatalf("nil logger prod")
	}
	if prod.Enabled(ctx, slog.LevelDebug) {
		t.Fatalf("prod logger should not emit debug")
	}
	if !prod.Enabled(ctx, slog.LevelInfo) {
		t.Fatalf("prod logger should emit info")
	}
}
