package domain

import (
	"errors"
	"time"
)

// Task type names used across the bus, the dead-letter store and metrics.
const (
	TaskInitiateCall     = "call:initiate"
	TaskProcessCallback  = "call:callback"
	TaskExternalCallback = "call:external_callback"
	TaskQueueDrain       = "queue:drain"
	TaskRetryTick        = "scheduler:retry_tick"
	TaskQueueSafetyNet   = "scheduler:queue_safety_net"
	TaskSlotSweep        = "scheduler:slot_sweep"
	TaskDLQReprocess     = "scheduler:dlq_reprocess"
	TaskRetentionCleanup = "scheduler:retention_cleanup"
)

// TaskRetryPolicy bounds redelivery for one task class.
type TaskRetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	// DLQTopic receives the payload once retries are exhausted. Empty means
	// the task class is fire-and-forget (periodic ticks).
	DLQTopic string
}

// Delay returns the backoff before attempt retried+1, doubling from base.
func (p TaskRetryPolicy) Delay(retried int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < retried; i++ {
		d *= 2
	}
	return d
}

// RetryPolicies declares each task class's redelivery budget as data next
// to the handlers that consume it.
var RetryPolicies = map[string]TaskRetryPolicy{
	TaskInitiateCall:     {MaxRetries: 3, BaseDelay: 60 * time.Second, DLQTopic: DLQTopicCallInitiation},
	TaskProcessCallback:  {MaxRetries: 3, BaseDelay: 60 * time.Second, DLQTopic: DLQTopicCallback},
	TaskExternalCallback: {MaxRetries: 3, BaseDelay: 5 * time.Second, DLQTopic: DLQTopicExternalCallback},
	TaskQueueDrain:       {MaxRetries: 2, BaseDelay: 3 * time.Second},
}

// IsRetriableTaskError classifies a handler error for the bus: transient
// upstream and store failures retry, everything tied to request content does
// not.
func IsRetriableTaskError(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrSchemaInvalid),
		errors.Is(err, ErrDuplicateCall):
		return false
	case errors.Is(err, ErrUpstreamTimeout),
		errors.Is(err, ErrUpstreamFailure),
		errors.Is(err, ErrServiceUnavailable):
		return true
	}
	// Unknown errors default to retriable; the bus budget bounds the damage.
	return true
}
