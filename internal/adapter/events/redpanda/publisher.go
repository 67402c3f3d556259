// Package redpanda publishes call lifecycle events to the event stream.
//
// The stream is an audit feed for downstream consumers (analytics,
// billing); delivery is best-effort and callers continue on error.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

// Publisher implements domain.EventPublisher over a Kafka-compatible broker.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// NewPublisher connects to the brokers and ensures the events topic exists.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	if topic == "" {
		return nil, fmt.Errorf("events topic cannot be empty")
	}

	kotelTracer := kotel.NewTracer(
		kotel.TracerProvider(otel.GetTracerProvider()),
	)
	kotelService := kotel.NewKotel(
		kotel.WithTracer(kotelTracer),
	)

	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.WithHooks(kotelService.Hooks()...),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		slog.Error("failed to create event stream client", slog.Any("error", err))
		return nil, fmt.Errorf("event stream client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := createTopicIfNotExists(ctx, client, topic, 1, 1); err != nil {
		slog.Warn("failed to create events topic, it may already exist",
			slog.String("topic", topic),
			slog.Any("error", err))
	}

	slog.Info("event stream publisher ready", slog.Any("brokers", brokers), slog.String("topic", topic))
	return &Publisher{client: client, topic: topic}, nil
}

// buildRecord stamps a missing OccurredAt and shapes the wire record. The
// call_id key puts all events for one call on the same partition in order.
func buildRecord(topic string, e domain.CallEvent) (*kgo.Record, error) {
	if e.CallID == "" {
		return nil, fmt.Errorf("%w: event call_id required", domain.ErrInvalidArgument)
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal call event: %w", err)
	}

	return &kgo.Record{
		Topic: topic,
		Key:   []byte(e.CallID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(e.EventType)},
			{Key: "campaign_id", Value: []byte(strconv.FormatInt(e.CampaignID, 10))},
		},
	}, nil
}

// PublishCallEvent emits one lifecycle event.
func (p *Publisher) PublishCallEvent(ctx domain.Context, e domain.CallEvent) error {
	record, err := buildRecord(p.topic, e)
	if err != nil {
		return err
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		slog.Warn("event publish failed",
			slog.String("topic", p.topic),
			slog.String("call_id", e.CallID),
			slog.String("event_type", e.EventType),
			slog.Any("error", err))
		return fmt.Errorf("produce call event: %w", err)
	}
	return nil
}

// Ping checks broker reachability. Used by the readiness probe.
func (p *Publisher) Ping(ctx context.Context) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("event stream not configured")
	}
	return p.client.Ping(ctx)
}

// Close flushes outstanding records and releases the client.
func (p *Publisher) Close() error {
	if p.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.client.Flush(ctx); err != nil {
			slog.Warn("event stream flush on close failed", slog.Any("error", err))
		}
		p.client.Close()
	}
	return nil
}
