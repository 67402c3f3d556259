// Command exporter publishes metadata about the containers of the
// orchestrator compose stack as a Prometheus gauge. Dashboards join the
// compose service label onto cAdvisor series to show per-service state.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var containerInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "deploy_container_info",
		Help: "One series per container in the stack, value fixed at 1.",
	},
	[]string{"id", "name", "image", "compose_service", "state"},
)

// sweep rebuilds the gauge from the daemon's current container list. The
// client is dialed per sweep so a daemon restart does not wedge the
// exporter.
func sweep(ctx context.Context) error {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return err
	}
	defer cli.Close()

	list, err := cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return err
	}

	containerInfo.Reset()
	for _, c := range list {
		id := c.ID
		if len(id) > 12 {
			id = id[:12]
		}
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		service := c.Labels["com.docker.compose.service"]
		if service == "" {
			service = name
		}
		containerInfo.WithLabelValues(id, name, c.Image, service, c.State).Set(1)
	}
	return nil
}

func main() {
	listen := flag.String("listen", ":8000", "metrics listen address")
	every := flag.Duration("every", 15*time.Second, "sweep interval")
	flag.Parse()

	prometheus.MustRegister(containerInfo)

	go func() {
		for {
			if err := sweep(context.Background()); err != nil {
				slog.Error("container sweep failed", slog.Any("error", err))
			}
			time.Sleep(*every)
		}
	}()

	http.Handle("/metrics", promhttp.Handler())
	slog.Info("container metadata exporter listening", slog.String("addr", *listen))
	if err := http.ListenAndServe(*listen, nil); err != nil {
		slog.Error("exporter listener failed", slog.Any("error", err))
		os.Exit(1)
	}
}
