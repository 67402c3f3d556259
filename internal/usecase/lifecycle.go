package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

// retryFloor is the provisional wait after a DISCONNECTED or RNR callback.
// The retry ticker recomputes the real slot from the schedule rules.
const retryFloor = 5 * time.Minute

// errNoop marks a transition that was skipped because the record is already
// past the requested state. Callers treat it as success without a write.
var errNoop = errors.New("transition noop")

// LifecycleService drives call records through the provider handshake and
// the provider's status callbacks.
type LifecycleService struct {
	Calls     domain.CallRepository
	Campaigns domain.CampaignRepository
	Provider  domain.ProviderClient
	Admission AdmissionService
	Registry  domain.SlotRegistry
	Bus       domain.TaskBus
	DLQ       domain.DeadLetterRepository
	Metrics   domain.MetricsRepository
	Events    domain.EventPublisher
}

// NewLifecycleService constructs a LifecycleService with its dependencies.
func NewLifecycleService(
	calls domain.CallRepository,
	campaigns domain.CampaignRepository,
	provider domain.ProviderClient,
	admission AdmissionService,
	registry domain.SlotRegistry,
	bus domain.TaskBus,
	dlq domain.DeadLetterRepository,
	metrics domain.MetricsRepository,
	events domain.EventPublisher,
) LifecycleService {
	return LifecycleService{
		Calls:     calls,
		Campaigns: campaigns,
		Provider:  provider,
		Admission: admission,
		Registry:  registry,
		Bus:       bus,
		DLQ:       dlq,
		Metrics:   metrics,
		Events:    events,
	}
}

// HandleInitiate performs one provider dial for an admitted record. Terminal
// and retry-waiting records skip silently so stale redeliveries cannot dial
// twice; PROCESSING re-entry covers redelivery after a transient provider
// failure.
func (s LifecycleService) HandleInitiate(ctx domain.Context, p domain.InitiateTaskPayload) error {
	if p.CallID == "" || p.PhoneNumber == "" {
		return fmt.Errorf("%w: initiate payload missing call_id or phone_number", domain.ErrSchemaInvalid)
	}
	rec, err := s.Calls.Transition(ctx, p.CallID, func(c *domain.CallRecord) error {
		if c.Status.IsTerminal() || c.Status.IsRetryWaiting() {
			return errNoop
		}
		c.Status = domain.CallProcessing
		return nil
	})
	if errors.Is(err, errNoop) {
		slog.Info("initiate skipped", slog.String("call_id", p.CallID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("op=usecase.HandleInitiate: %w", err)
	}

	req := domain.ProviderInitiateRequest{
		CallID:      rec.CallID,
		PhoneNumber: rec.PhoneNumber,
		CampaignID:  rec.CampaignID,
	}
	if c, cerr := s.Campaigns.Get(ctx, rec.CampaignID); cerr == nil {
		req.CampaignName = c.Name
	}
	extID, err := s.Provider.InitiateCall(ctx, req)
	if err != nil {
		if domain.IsRetriableTaskError(err) {
			slog.Warn("provider initiate failed",
				slog.String("call_id", rec.CallID),
				slog.Int("attempt_count", rec.AttemptCount),
				slog.Any("error", err))
			return fmt.Errorf("op=usecase.HandleInitiate: %w", err)
		}
		// The provider rejected the request outright. That is a definitive
		// outcome for this record, not a bus failure.
		slog.Error("provider rejected call", slog.String("call_id", rec.CallID), slog.Any("error", err))
		s.failCall(ctx, rec.CallID, rec.PhoneNumber, rec.CampaignID, fmt.Sprintf("provider rejected call: %v", err))
		return nil
	}

	if _, err := s.Calls.Transition(ctx, p.CallID, func(c *domain.CallRecord) error {
		if c.Status == domain.CallProcessing {
			c.Status = domain.CallInitiated
		}
		if c.ExternalCallID == nil {
			c.ExternalCallID = &extID
		}
		return nil
	}); err != nil {
		slog.Error("post-dial transition failed", slog.String("call_id", p.CallID), slog.Any("error", err))
	}
	slog.Info("call dispatched to provider",
		slog.String("call_id", p.CallID), slog.String("external_call_id", extID))
	return nil
}

// ApplyCallback applies one provider-reported status to a record and settles
// the consequences: slot release, retry parking or terminal bookkeeping.
// A callback for an already terminal record only backfills call_duration.
func (s LifecycleService) ApplyCallback(ctx domain.Context, p domain.CallbackTaskPayload) (domain.CallRecord, error) {
	if p.CallID == "" {
		return domain.CallRecord{}, fmt.Errorf("%w: callback missing call_id", domain.ErrInvalidArgument)
	}
	if !domain.CallbackStatuses[p.Status] {
		return domain.CallRecord{}, fmt.Errorf("%w: unknown callback status %q", domain.ErrInvalidArgument, p.Status)
	}

	var late bool
	rec, err := s.Calls.Transition(ctx, p.CallID, func(c *domain.CallRecord) error {
		if c.ExternalCallID == nil && p.ExternalCallID != nil {
			c.ExternalCallID = p.ExternalCallID
		}
		if c.Status.IsTerminal() {
			late = true
			if c.CallSeconds == nil && p.CallDuration != nil {
				c.CallSeconds = p.CallDuration
			}
			return nil
		}
		switch p.Status {
		case domain.CallPicked:
			c.Status = domain.CallCompleted
			if p.CallDuration != nil {
				c.CallSeconds = p.CallDuration
			}
		case domain.CallDisconnected, domain.CallRNR:
			if c.HasAttemptsLeft() {
				c.Status = p.Status
				t := time.Now().UTC().Add(retryFloor)
				c.NextRetryAt = &t
			} else {
				c.Status = domain.CallFailed
				c.Error = ptr(fmt.Sprintf("Max retry attempts reached (%d)", c.MaxAttempts))
			}
		case domain.CallFailed:
			c.Status = domain.CallFailed
			if c.Error == nil {
				c.Error = ptr("provider reported FAILED")
			}
		}
		return nil
	})
	if err != nil {
		return domain.CallRecord{}, fmt.Errorf("op=usecase.ApplyCallback: %w", err)
	}
	if late {
		slog.Info("late callback backfilled", slog.String("call_id", p.CallID), slog.String("status", string(p.Status)))
		return rec, nil
	}

	// Every applied callback parks or terminates the record, so the slot is
	// released in all three branches.
	if err := s.Admission.EndTracking(ctx, p.CallID, rec.PhoneNumber); err != nil {
		slog.Error("slot release failed", slog.String("call_id", p.CallID), slog.Any("error", err))
	}
	switch rec.Status {
	case domain.CallCompleted:
		secs := 0
		if rec.CallSeconds != nil {
			secs = *rec.CallSeconds
		}
		s.bump(ctx, domain.CallCompleted, secs)
	case domain.CallFailed:
		if p.Status != domain.CallFailed {
			// Exhaustion path. The raw provider status was already counted
			// at the boundary; FAILED is counted here.
			s.bump(ctx, domain.CallFailed, 0)
		}
	}
	s.publishCallback(ctx, rec, p.Status)
	s.kick(ctx, rec.CampaignID)
	slog.Info("callback applied",
		slog.String("call_id", p.CallID),
		slog.String("provider_status", string(p.Status)),
		slog.String("record_status", string(rec.Status)))
	return rec, nil
}

// CountCallbackStatus counts one raw provider status against the daily
// rollup. The public callback endpoint calls this after a successful apply;
// the bus path counts in HandleExternalCallback instead, so each delivered
// callback is counted exactly once.
func (s LifecycleService) CountCallbackStatus(ctx domain.Context, status domain.CallStatus) {
	s.bump(ctx, status, 0)
}

// externalCallbackBody is the provider-facing callback shape. Unknown fields
// are ignored.
type externalCallbackBody struct {
	CallID         string  `json:"call_id"`
	Status         string  `json:"status"`
	CallDuration   *int    `json:"call_duration"`
	ExternalCallID *string `json:"external_call_id"`
}

// HandleExternalCallback parses a raw provider callback and hands the typed
// payload to the callback task. Parsing and applying are separate bus stages
// so a malformed body dead-letters under external_callback while a store
// outage during the apply retries under the callback budget. The raw status
// counter is bumped here because this path bypasses the public endpoint.
func (s LifecycleService) HandleExternalCallback(ctx domain.Context, p domain.ExternalCallbackPayload) error {
	var body externalCallbackBody
	if err := json.Unmarshal(p.Body, &body); err != nil {
		return fmt.Errorf("%w: external callback body: %v", domain.ErrSchemaInvalid, err)
	}
	callID := body.CallID
	if callID == "" {
		callID = p.CallID
	}
	if callID == "" {
		return fmt.Errorf("%w: external callback missing call_id", domain.ErrSchemaInvalid)
	}
	status := domain.CallStatus(strings.ToUpper(strings.TrimSpace(body.Status)))
	if !domain.CallbackStatuses[status] {
		return fmt.Errorf("%w: external callback status %q", domain.ErrSchemaInvalid, body.Status)
	}
	s.bump(ctx, status, 0)
	if _, err := s.Bus.EnqueueCallback(ctx, domain.CallbackTaskPayload{
		CallID:         callID,
		Status:         status,
		CallDuration:   body.CallDuration,
		ExternalCallID: body.ExternalCallID,
	}); err != nil {
		return fmt.Errorf("%w: enqueue callback for %s: %v", domain.ErrServiceUnavailable, callID, err)
	}
	return nil
}

// FinalizeInitiateFailure runs when the bus exhausts initiate deliveries.
// The record fails and its slot is released before the dead letter commits,
// so a stuck payload can never pin capacity.
func (s LifecycleService) FinalizeInitiateFailure(ctx domain.Context, payload []byte, cause error) {
	var p domain.InitiateTaskPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.CallID == "" {
		s.deadLetter(ctx, domain.DLQTopicCallInitiation, payload, cause)
		return
	}
	s.failCall(ctx, p.CallID, p.PhoneNumber, p.CampaignID, fmt.Sprintf("call initiation failed: %v", cause))
	s.deadLetter(ctx, domain.DLQTopicCallInitiation, payload, cause)
}

// FinalizeCallbackFailure dead-letters an undeliverable callback. The record
// keeps its last consistent state but its slot is released.
func (s LifecycleService) FinalizeCallbackFailure(ctx domain.Context, payload []byte, cause error) {
	var p domain.CallbackTaskPayload
	if err := json.Unmarshal(payload, &p); err == nil && p.CallID != "" {
		s.releaseByCallID(ctx, p.CallID)
	}
	s.deadLetter(ctx, domain.DLQTopicCallback, payload, cause)
}

// FinalizeExternalCallbackFailure dead-letters an undeliverable provider
// callback body.
func (s LifecycleService) FinalizeExternalCallbackFailure(ctx domain.Context, payload []byte, cause error) {
	var p domain.ExternalCallbackPayload
	if err := json.Unmarshal(payload, &p); err == nil && p.CallID != "" {
		s.releaseByCallID(ctx, p.CallID)
	}
	s.deadLetter(ctx, domain.DLQTopicExternalCallback, payload, cause)
}

// failCall moves a record to FAILED, releases its slot and lets the queue
// processor refill the freed capacity. Already terminal records are left
// untouched but still release.
func (s LifecycleService) failCall(ctx domain.Context, callID, number string, campaignID int64, reason string) {
	if _, err := s.Calls.Transition(ctx, callID, func(c *domain.CallRecord) error {
		if c.Status.IsTerminal() {
			return errNoop
		}
		c.Status = domain.CallFailed
		c.Error = ptr(reason)
		return nil
	}); err != nil && !errors.Is(err, errNoop) {
		slog.Error("fail transition failed", slog.String("call_id", callID), slog.Any("error", err))
	}
	if err := s.Admission.EndTracking(ctx, callID, number); err != nil {
		slog.Error("slot release failed", slog.String("call_id", callID), slog.Any("error", err))
	}
	s.bump(ctx, domain.CallFailed, 0)
	s.kick(ctx, campaignID)
}

func (s LifecycleService) releaseByCallID(ctx domain.Context, callID string) {
	rec, err := s.Calls.Get(ctx, callID)
	if err != nil {
		slog.Error("release lookup failed", slog.String("call_id", callID), slog.Any("error", err))
		return
	}
	if err := s.Admission.EndTracking(ctx, callID, rec.PhoneNumber); err != nil {
		slog.Error("slot release failed", slog.String("call_id", callID), slog.Any("error", err))
	}
	s.kick(ctx, rec.CampaignID)
}

func (s LifecycleService) deadLetter(ctx domain.Context, topic string, payload []byte, cause error) {
	d := domain.DeadLetter{Topic: topic, Payload: payload, Error: cause.Error()}
	if err := s.DLQ.Insert(ctx, d); err != nil {
		slog.Error("dead letter insert failed", slog.String("topic", topic), slog.Any("error", err))
		return
	}
	if err := s.Metrics.BumpDeadLetter(ctx, time.Now().UTC()); err != nil {
		slog.Warn("dead letter metric failed", slog.Any("error", err))
	}
	slog.Error("task dead-lettered", slog.String("topic", topic), slog.Any("cause", cause))
}

func (s LifecycleService) publishCallback(ctx domain.Context, rec domain.CallRecord, raw domain.CallStatus) {
	if s.Events == nil {
		return
	}
	e := domain.CallEvent{
		EventType:   domain.EventCallback,
		CallID:      rec.CallID,
		CampaignID:  rec.CampaignID,
		PhoneNumber: rec.PhoneNumber,
		Status:      raw,
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.Events.PublishCallEvent(ctx, e); err != nil {
		slog.Warn("event publish failed", slog.String("call_id", rec.CallID), slog.Any("error", err))
	}
}

func (s LifecycleService) bump(ctx domain.Context, status domain.CallStatus, callSeconds int) {
	concurrent, err := s.Registry.Count(ctx)
	if err != nil {
		concurrent = 0
	}
	if err := s.Metrics.Bump(ctx, time.Now().UTC(), status, callSeconds, concurrent); err != nil {
		slog.Warn("metrics bump failed", slog.String("status", string(status)), slog.Any("error", err))
	}
}

func (s LifecycleService) kick(ctx domain.Context, campaignID int64) {
	if _, err := s.Bus.EnqueueQueueDrain(ctx, campaignID, 0); err != nil {
		slog.Warn("queue drain kick failed", slog.Int64("campaign_id", campaignID), slog.Any("error", err))
	}
}
