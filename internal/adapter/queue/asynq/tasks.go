// Package asynqadp adapts the asynq task queue to the task bus port: the
// Queue side enqueues typed payloads, the Worker side dispatches them to
// registered handlers with per-type retry budgets.
package asynqadp

import (
	"time"

	"github.com/hibiken/asynq"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

// Queue names. Call work outranks queue drains, which outrank the periodic
// maintenance ticks.
const (
	QueueCalls       = "calls"
	QueueDrain       = "drain"
	QueueMaintenance = "maintenance"
)

// QueuePriorities is the weighting handed to the asynq server.
var QueuePriorities = map[string]int{
	QueueCalls:       6,
	QueueDrain:       3,
	QueueMaintenance: 1,
}

// queueFor routes a task type to its queue.
func queueFor(taskType string) string {
	switch taskType {
	case domain.TaskQueueDrain:
		return QueueDrain
	case domain.TaskInitiateCall, domain.TaskProcessCallback, domain.TaskExternalCallback:
		return QueueCalls
	default:
		return QueueMaintenance
	}
}

// taskOptions derives the enqueue options for a task type from its declared
// retry policy.
func taskOptions(taskType string) []asynq.Option {
	opts := []asynq.Option{
		asynq.Queue(queueFor(taskType)),
		asynq.Retention(24 * time.Hour),
	}
	if p, ok := domain.RetryPolicies[taskType]; ok {
		opts = append(opts, asynq.MaxRetry(p.MaxRetries))
	} else {
		opts = append(opts, asynq.MaxRetry(0))
	}
	return opts
}

// retryDelay implements the server-side backoff: the declared policy curve
// for known task types, asynq's default for everything else.
func retryDelay(n int, err error, t *asynq.Task) time.Duration {
	if p, ok := domain.RetryPolicies[t.Type()]; ok {
		return p.Delay(n)
	}
	return asynq.DefaultRetryDelayFunc(n, err, t)
}
