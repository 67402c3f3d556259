package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrDuplicateCall      = errors.New("duplicate call in window")
	ErrCapacityFull       = errors.New("capacity full")
	ErrUpstreamTimeout    = errors.New("upstream timeout")
	ErrUpstreamFailure    = errors.New("upstream failure")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrSchemaInvalid      = errors.New("schema invalid")
	ErrInternal           = errors.New("internal error")
)

// CallStatus enumerates the lifecycle states of a call record.
type CallStatus string

const (
	CallInitiated    CallStatus = "INITIATED"
	CallProcessing   CallStatus = "PROCESSING"
	CallPicked       CallStatus = "PICKED"
	CallDisconnected CallStatus = "DISCONNECTED"
	CallRNR          CallStatus = "RNR"
	CallFailed       CallStatus = "FAILED"
	CallRetrying     CallStatus = "RETRYING"
	CallCompleted    CallStatus = "COMPLETED"
)

// IsTerminal reports whether no further transitions are allowed.
func (s CallStatus) IsTerminal() bool {
	return s == CallCompleted || s == CallFailed
}

// IsRetryWaiting reports whether the record is parked awaiting the retry
// ticker.
func (s CallStatus) IsRetryWaiting() bool {
	return s == CallDisconnected || s == CallRNR
}

// CallbackStatuses are the only provider-reported statuses accepted at the
// boundary. Anything else is rejected with a validation error.
var CallbackStatuses = map[CallStatus]bool{
	CallPicked:       true,
	CallDisconnected: true,
	CallRNR:          true,
	CallFailed:       true,
}

// Campaign is a named bundle of destinations. Inactive campaigns reject new
// initiations.
type Campaign struct {
	ID          int64
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PhoneNumber belongs to exactly one campaign; (CampaignID, Number) is
// unique.
type PhoneNumber struct {
	ID         int64
	CampaignID int64
	Number     string
	Active     bool
	CreatedAt  time.Time
}

// CallRecord is the durable row for one attempt sequence against one number.
// Invariants: AttemptCount <= MaxAttempts; exactly one record per CallID;
// transitions follow the lifecycle state machine.
type CallRecord struct {
	CallID         string
	CampaignID     int64
	PhoneNumber    string
	Status         CallStatus
	AttemptCount   int
	MaxAttempts    int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastAttemptAt  *time.Time
	NextRetryAt    *time.Time
	CallSeconds    *int
	ExternalCallID *string
	Error          *string
}

// QueueEntry is one parked number in a campaign's pending queue. Ordering is
// priority descending, then queued_at ascending. CallID is set only when a
// CallRecord was already created for the entry (single-call capacity
// deflection); the drain then reuses that record instead of creating one.
type QueueEntry struct {
	CampaignID  int64     `json:"campaign_id"`
	PhoneNumber string    `json:"phone_number"`
	QueuedAt    time.Time `json:"queued_at"`
	Priority    int       `json:"priority"`
	CallID      string    `json:"call_id,omitempty"`
}

// SlotHolding is the durable mirror of one held concurrency slot. The sum of
// holdings equals the registry counter at every quiescent point.
type SlotHolding struct {
	CallID      string
	PhoneNumber string
	CampaignID  int64
	StartedAt   time.Time
}

// DeadLetter topics.
const (
	DLQTopicCallInitiation   = "call_initiation"
	DLQTopicCallback         = "callback"
	DLQTopicExternalCallback = "external_callback"
)

// DeadLetter holds a task payload the bus gave up on. Append-only until
// processed or expired by retention.
type DeadLetter struct {
	ID          int64
	Topic       string
	Payload     json.RawMessage
	Error       string
	RetryCount  int
	Processed   bool
	CreatedAt   time.Time
	ProcessedAt *time.Time
	LastRetryAt *time.Time
}

// DailyMetrics is the per-day rollup row. Counters never decrease within a
// day.
type DailyMetrics struct {
	Date                 time.Time
	CallsInitiated       int64
	CallsPicked          int64
	CallsDisconnected    int64
	CallsRNR             int64
	CallsFailed          int64
	Retries              int64
	PeakConcurrentCalls  int64
	TotalCallDurationSec int64
	DLQEntries           int64
}

// AdmissionVerdict is the typed outcome of the admission decision.
type AdmissionVerdict string

const (
	AdmissionOk           AdmissionVerdict = "ok"
	AdmissionCapacityFull AdmissionVerdict = "capacity_full"
	AdmissionDuplicate    AdmissionVerdict = "duplicate_in_window"
)

// Repositories (ports)

//go:generate mockery --config=../../.mockery.yml

type CampaignRepository interface {
	Create(ctx Context, c Campaign) (int64, error)
	Get(ctx Context, id int64) (Campaign, error)
	List(ctx Context) ([]Campaign, error)
	ListActive(ctx Context) ([]Campaign, error)
}

type PhoneNumberRepository interface {
	CreateBatch(ctx Context, campaignID int64, numbers []string) ([]PhoneNumber, error)
	ListActive(ctx Context, campaignID int64) ([]PhoneNumber, error)
}

type CallRepository interface {
	Create(ctx Context, c CallRecord) error
	Get(ctx Context, callID string) (CallRecord, error)
	// Transition loads the record under a row lock, applies fn and persists
	// the result in the same transaction. fn returning an error aborts.
	Transition(ctx Context, callID string, fn func(*CallRecord) error) (CallRecord, error)
	// DueForRetry returns records parked in DISCONNECTED or RNR with
	// next_retry_at <= now and attempts left, ordered by next_retry_at,
	// created_at, call_id.
	DueForRetry(ctx Context, now time.Time, limit int) ([]CallRecord, error)
	// ExhaustedNonTerminal returns non-terminal records whose attempt count
	// reached the ceiling, for the ticker's exhaustion sweep.
	ExhaustedNonTerminal(ctx Context, limit int) ([]CallRecord, error)
	DeleteTerminalOlderThan(ctx Context, cutoff time.Time) (int64, error)
}

type SlotHoldingRepository interface {
	Insert(ctx Context, h SlotHolding) error
	// Delete removes the holding and reports whether a row existed. The
	// boolean is the exactly-once guard for releasing the registry slot.
	Delete(ctx Context, callID string) (bool, error)
	ListOlderThan(ctx Context, cutoff time.Time, limit int) ([]SlotHolding, error)
	Count(ctx Context) (int64, error)
}

type DeadLetterRepository interface {
	Insert(ctx Context, d DeadLetter) error
	ListUnprocessed(ctx Context, maxRetries, limit int) ([]DeadLetter, error)
	MarkProcessed(ctx Context, id int64) error
	IncrementRetry(ctx Context, id int64) error
	DeleteProcessedOlderThan(ctx Context, cutoff time.Time) (int64, error)
}

type MetricsRepository interface {
	// Bump applies one lifecycle event to today's rollup row: the status
	// counter, the concurrency peak and, for completions, call duration.
	Bump(ctx Context, day time.Time, status CallStatus, callSeconds int, concurrent int64) error
	// BumpDeadLetter counts one dead-letter write on the given day.
	BumpDeadLetter(ctx Context, day time.Time) error
	Recent(ctx Context, days int) ([]DailyMetrics, error)
	DeleteOlderThan(ctx Context, cutoff time.Time) (int64, error)
}

// SlotRegistry (port) owns the transient global counter and per-number
// duplicate locks. Acquire and Release are atomic with respect to other
// admissions for the same number.
type SlotRegistry interface {
	Count(ctx Context) (int64, error)
	HasLock(ctx Context, number string) (bool, error)
	// Acquire checks the cap, sets the duplicate lock and increments the
	// counter as one operation. On a non-Ok verdict nothing is mutated.
	Acquire(ctx Context, callID, number string) (AdmissionVerdict, error)
	// Release decrements the counter (floor zero) and deletes the lock.
	// Idempotent.
	Release(ctx Context, callID, number string) error
}

// PendingQueue (port) is the per-campaign ordered overflow list.
type PendingQueue interface {
	PushBack(ctx Context, e QueueEntry) error
	PopFrontN(ctx Context, campaignID int64, n int) ([]QueueEntry, error)
	Size(ctx Context, campaignID int64) (int64, error)
	Clear(ctx Context, campaignID int64) error
}

// TaskBus (port) delivers work items to workers at least once.
type TaskBus interface {
	EnqueueInitiate(ctx Context, p InitiateTaskPayload) (string, error)
	EnqueueCallback(ctx Context, p CallbackTaskPayload) (string, error)
	EnqueueExternalCallback(ctx Context, p ExternalCallbackPayload) (string, error)
	EnqueueQueueDrain(ctx Context, campaignID int64, delay time.Duration) (string, error)
}

// EventPublisher (port) emits lifecycle events to the event stream.
// Best-effort: callers log failures and continue.
type EventPublisher interface {
	PublishCallEvent(ctx Context, e CallEvent) error
}

// ProviderClient (port) is the outbound telephony provider.
type ProviderClient interface {
	InitiateCall(ctx Context, req ProviderInitiateRequest) (externalCallID string, err error)
}

// Task payloads

type InitiateTaskPayload struct {
	CallID      string `json:"call_id"`
	PhoneNumber string `json:"phone_number"`
	CampaignID  int64  `json:"campaign_id"`
}

type CallbackTaskPayload struct {
	CallID         string     `json:"call_id"`
	Status         CallStatus `json:"status"`
	CallDuration   *int       `json:"call_duration,omitempty"`
	ExternalCallID *string    `json:"external_call_id,omitempty"`
}

// ExternalCallbackPayload is a raw provider callback body awaiting parsing
// and hand-off to the callback task.
type ExternalCallbackPayload struct {
	CallID string          `json:"call_id"`
	Body   json.RawMessage `json:"body"`
}

// QueueDrainPayload asks the queue processor to drain one campaign.
type QueueDrainPayload struct {
	CampaignID int64 `json:"campaign_id"`
}

// ProviderInitiateRequest is the outbound initiate-call message.
type ProviderInitiateRequest struct {
	CallID       string `json:"call_id"`
	PhoneNumber  string `json:"phone_number"`
	CampaignID   int64  `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
}

// CallEvent is one lifecycle event on the event stream.
type CallEvent struct {
	EventType   string          `json:"event_type"`
	CallID      string          `json:"call_id"`
	CampaignID  int64           `json:"campaign_id"`
	PhoneNumber string          `json:"phone_number"`
	Status      CallStatus      `json:"status,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// Event types for the event stream.
const (
	EventCallInitiation = "call_initiation"
	EventCallback       = "callback"
)

// Context is an alias to allow decoupling from std context in domain
// signatures; adapters and usecases pass context.Context through.
type Context = context.Context
