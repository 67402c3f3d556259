package asynqadp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/adapter/observability"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

// enqueuer is the slice of *asynq.Client the queue depends on.
type enqueuer interface {
	EnqueueContext(ctx domain.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Queue is the enqueue side of the task bus.
type Queue struct {
	client enqueuer
}

// New builds a Queue from a Redis URI.
func New(redisURL string) (*Queue, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("op=queue.New: %w", err)
	}
	return &Queue{client: asynq.NewClient(opt)}, nil
}

// NewWithClient injects a prebuilt client.
func NewWithClient(c enqueuer) *Queue { return &Queue{client: c} }

// Close releases the underlying Redis connections.
func (q *Queue) Close() error { return q.client.Close() }

func (q *Queue) enqueue(ctx domain.Context, taskType string, payload any, extra ...asynq.Option) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("op=queue.enqueue type=%s: %w", taskType, err)
	}
	opts := append(taskOptions(taskType), extra...)
	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(taskType, b), opts...)
	if err != nil {
		return "", fmt.Errorf("op=queue.enqueue type=%s: %w", taskType, err)
	}
	observability.EnqueueTask(taskType)
	return info.ID, nil
}

func (q *Queue) EnqueueInitiate(ctx domain.Context, p domain.InitiateTaskPayload) (string, error) {
	return q.enqueue(ctx, domain.TaskInitiateCall, p)
}

func (q *Queue) EnqueueCallback(ctx domain.Context, p domain.CallbackTaskPayload) (string, error) {
	return q.enqueue(ctx, domain.TaskProcessCallback, p)
}

func (q *Queue) EnqueueExternalCallback(ctx domain.Context, p domain.ExternalCallbackPayload) (string, error) {
	return q.enqueue(ctx, domain.TaskExternalCallback, p)
}

// EnqueueQueueDrain schedules a drain pass for one campaign, optionally
// delayed (the processor re-arms itself with a short delay while entries
// remain).
func (q *Queue) EnqueueQueueDrain(ctx domain.Context, campaignID int64, delay time.Duration) (string, error) {
	var extra []asynq.Option
	if delay > 0 {
		extra = append(extra, asynq.ProcessIn(delay))
	}
	return q.enqueue(ctx, domain.TaskQueueDrain, domain.QueueDrainPayload{CampaignID: campaignID}, extra...)
}
