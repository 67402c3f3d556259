package observability

import (
	"context"
	"testing"
	"time"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/config"
)

func TestSetupTracing_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := SetupTracing(config.Config{OTLPEndpoint: ""})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if shutdown != nil {
		t.Fatalf("expected nil shutdown when tracing is disabled")
	}
}

func TestSetupTracing_WithEndpoint(t *testing.T) {
	// The gRPC exporter dials lazily, so setup succeeds without a collector.
	shutdown, err := SetupTracing(config.Config{
		AppEnv:          "prod",
		OTLPEndpoint:    "localhost:4317",
		OTELServiceName: "orchestrator-test",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if shutdown == nil {
		t.Fatalf("expected shutdown func")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(ctx)
}
