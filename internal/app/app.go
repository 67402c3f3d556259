// Package app assembles the process: infrastructure clients, the service
// layer and the HTTP surface, built once at startup and closed on shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/adapter/events/redpanda"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/adapter/observability"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/adapter/provider"
	asynqadp "github.com/fairyhunter13/call-campaign-orchestrator/internal/adapter/queue/asynq"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/config"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/service/pacing"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/service/pending"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/service/schedule"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/service/slots"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/usecase"
)

// answerRateWindow and answerRateThreshold tune the per-campaign answer
// rate monitors: warn when a 20-call rolling window drifts more than 20
// percentage points from its baseline.
const (
	answerRateWindow    = 20
	answerRateThreshold = 0.20
)

// reArmDelay is the pause before a queue drain pass re-arms itself while
// entries remain.
const reArmDelay = 3 * time.Second

// App is the dependency bundle shared by every subcommand. No mutable
// package-level state exists; everything hangs off this struct.
type App struct {
	Cfg     config.Config
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Events  *redpanda.Publisher
	Bus     *asynqadp.Queue
	Oracle  *schedule.Oracle
	Pacer   *pacing.RedisPacer
	Tracker *observability.AnswerRateTracker

	Campaigns   usecase.CampaignService
	Admission   usecase.AdmissionService
	Lifecycle   usecase.LifecycleService
	Queue       usecase.QueueProcessorService
	Retry       usecase.RetryService
	Maintenance usecase.MaintenanceService
	Metrics     usecase.MetricsService
	DLQ         usecase.DLQService
}

// dlqReprocessBatch bounds one reprocess pass; dlqMaxRetries is the replay
// budget per dead letter.
const (
	dlqReprocessBatch = 100
	dlqMaxRetries     = 3
)

// New connects the infrastructure in dependency order and wires the service
// layer over it. Postgres and Redis are required; the event stream is an
// audit feed, so a broker outage downgrades to a warning and publishing
// stays off until the next restart.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("op=app.New db: %w", err)
	}

	ropt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("op=app.New redis: %w", err)
	}
	rdb := redis.NewClient(ropt)

	var events domain.EventPublisher
	pub, err := redpanda.NewPublisher(cfg.KafkaBrokers, cfg.CallEventsTopic)
	if err != nil {
		slog.Warn("event stream unavailable, lifecycle events disabled", slog.Any("error", err))
	} else {
		events = pub
	}

	bus, err := asynqadp.New(cfg.RedisURL)
	if err != nil {
		if pub != nil {
			_ = pub.Close()
		}
		_ = rdb.Close()
		pool.Close()
		return nil, fmt.Errorf("op=app.New bus: %w", err)
	}

	oracle := schedule.NewOracle(cfg.RetryScheduleConfPath)
	if err := oracle.Load(); err != nil {
		slog.Warn("retry schedule rules not loaded, defaults apply",
			slog.String("path", cfg.RetryScheduleConfPath),
			slog.Any("error", err))
	}

	pacer := pacing.NewRedisPacer(rdb, pool, map[string]pacing.Budget{
		provider.DialBudgetKey: pacing.PerMinute(cfg.ProviderCallsPerMinute),
	})
	if err := pacer.Warm(ctx); err != nil {
		slog.Warn("pacing bucket warm failed", slog.Any("error", err))
	}

	campaignRepo := postgres.NewCampaignRepo(pool)
	numberRepo := postgres.NewPhoneNumberRepo(pool)
	callRepo := postgres.NewCallRepo(pool)
	holdingRepo := postgres.NewSlotHoldingRepo(pool)
	dlqRepo := postgres.NewDeadLetterRepo(pool)
	metricsRepo := postgres.NewMetricsRepo(pool)

	registry := slots.NewRegistry(rdb, cfg.MaxConcurrentCalls, cfg.DuplicateWindow())
	pendq := pending.NewQueue(rdb)
	dialer := provider.New(cfg, pacer)

	admission := usecase.NewAdmissionService(
		campaignRepo, numberRepo, callRepo, holdingRepo,
		registry, pendq, bus, metricsRepo, events,
		cfg.MaxConcurrentCalls, cfg.MaxRetryAttempts,
	)
	lifecycle := usecase.NewLifecycleService(
		callRepo, campaignRepo, dialer, admission,
		registry, bus, dlqRepo, metricsRepo, events,
	)
	queueProc := usecase.NewQueueProcessorService(
		campaignRepo, callRepo, pendq, registry, bus, admission,
		cfg.MaxConcurrentCalls, reArmDelay,
	)
	retry := usecase.NewRetryService(callRepo, oracle, admission, bus)
	maintenance := usecase.NewMaintenanceService(
		holdingRepo, callRepo, metricsRepo, dlqRepo, admission,
		time.Hour,
		time.Duration(cfg.CallRetentionDays)*24*time.Hour,
		time.Duration(cfg.MetricsRetentionDays)*24*time.Hour,
		time.Duration(cfg.DLQRetentionDays)*24*time.Hour,
	)

	return &App{
		Cfg:     cfg,
		Pool:    pool,
		Redis:   rdb,
		Events:  pub,
		Bus:     bus,
		Oracle:  oracle,
		Pacer:   pacer,
		Tracker: observability.NewAnswerRateTracker(answerRateWindow, answerRateThreshold),

		Campaigns:   usecase.NewCampaignService(campaignRepo, numberRepo),
		Admission:   admission,
		Lifecycle:   lifecycle,
		Queue:       queueProc,
		Retry:       retry,
		Maintenance: maintenance,
		Metrics:     usecase.NewMetricsService(metricsRepo, registry, campaignRepo, pendq, cfg.MaxConcurrentCalls),
		DLQ:         usecase.NewDLQService(dlqRepo, bus, dlqMaxRetries, dlqReprocessBatch),
	}, nil
}

// Close releases the infrastructure in reverse order of New.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			slog.Error("task bus close failed", slog.Any("error", err))
		}
	}
	if a.Events != nil {
		_ = a.Events.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Error("redis close failed", slog.Any("error", err))
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
