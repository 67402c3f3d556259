package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
	"github.com/fairyhunter13/call-campaign-orchestrator/pkg/phonenum"
)

// Disposition says how an admitted initiate request was satisfied.
type Disposition string

const (
	DispositionImmediate Disposition = "immediate"
	DispositionQueued    Disposition = "queued"
)

// AdmissionService decides whether a call may start now, tracks held
// concurrency slots, and owns the initiate entry points.
type AdmissionService struct {
	Campaigns domain.CampaignRepository
	Numbers   domain.PhoneNumberRepository
	Calls     domain.CallRepository
	Holdings  domain.SlotHoldingRepository
	Registry  domain.SlotRegistry
	Pending   domain.PendingQueue
	Bus       domain.TaskBus
	Metrics   domain.MetricsRepository
	Events    domain.EventPublisher

	MaxConcurrent int64
	MaxAttempts   int
}

// NewAdmissionService constructs an AdmissionService with its dependencies.
func NewAdmissionService(
	campaigns domain.CampaignRepository,
	numbers domain.PhoneNumberRepository,
	calls domain.CallRepository,
	holdings domain.SlotHoldingRepository,
	registry domain.SlotRegistry,
	pending domain.PendingQueue,
	bus domain.TaskBus,
	metrics domain.MetricsRepository,
	events domain.EventPublisher,
	maxConcurrent int64,
	maxAttempts int,
) AdmissionService {
	return AdmissionService{
		Campaigns:     campaigns,
		Numbers:       numbers,
		Calls:         calls,
		Holdings:      holdings,
		Registry:      registry,
		Pending:       pending,
		Bus:           bus,
		Metrics:       metrics,
		Events:        events,
		MaxConcurrent: maxConcurrent,
		MaxAttempts:   maxAttempts,
	}
}

// CanStart is the pure admission decision: capacity first, then the
// per-number duplicate window. It mutates nothing.
func (s AdmissionService) CanStart(ctx domain.Context, number string) (domain.AdmissionVerdict, error) {
	count, err := s.Registry.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: slot registry: %v", domain.ErrServiceUnavailable, err)
	}
	if count >= s.MaxConcurrent {
		return domain.AdmissionCapacityFull, nil
	}
	locked, err := s.Registry.HasLock(ctx, number)
	if err != nil {
		return "", fmt.Errorf("%w: slot registry: %v", domain.ErrServiceUnavailable, err)
	}
	if locked {
		return domain.AdmissionDuplicate, nil
	}
	return domain.AdmissionOk, nil
}

// StartTracking atomically claims a concurrency slot and records the durable
// holding. On a non-Ok verdict nothing is held. A holding insert failure
// rolls the registry claim back so the counter never leaks.
func (s AdmissionService) StartTracking(ctx domain.Context, callID, number string, campaignID int64) (domain.AdmissionVerdict, error) {
	verdict, err := s.Registry.Acquire(ctx, callID, number)
	if err != nil {
		return "", fmt.Errorf("%w: slot registry: %v", domain.ErrServiceUnavailable, err)
	}
	if verdict != domain.AdmissionOk {
		return verdict, nil
	}
	h := domain.SlotHolding{CallID: callID, PhoneNumber: number, CampaignID: campaignID, StartedAt: time.Now().UTC()}
	if err := s.Holdings.Insert(ctx, h); err != nil {
		if rerr := s.Registry.Release(ctx, callID, number); rerr != nil {
			slog.Error("slot rollback failed", slog.String("call_id", callID), slog.Any("error", rerr))
		}
		return "", fmt.Errorf("op=usecase.StartTracking: %w", err)
	}
	return domain.AdmissionOk, nil
}

// EndTracking releases a held slot exactly once. The holding row is the
// idempotency token: only the delete that actually removed it performs the
// registry release, so double invocations and races cannot decrement twice.
func (s AdmissionService) EndTracking(ctx domain.Context, callID, number string) error {
	existed, err := s.Holdings.Delete(ctx, callID)
	if err != nil {
		return fmt.Errorf("op=usecase.EndTracking: %w", err)
	}
	if !existed {
		return nil
	}
	if err := s.Registry.Release(ctx, callID, number); err != nil {
		// The token is consumed; failing here would poison a committed
		// transition. The duplicate lock expires on its TTL.
		slog.Error("slot release failed after holding delete",
			slog.String("call_id", callID), slog.Any("error", err))
	}
	return nil
}

// InitiateCall admits a single outbound call. Capacity overflow is deflected:
// the record is still created and the number parks on the campaign queue with
// its call id, so the client observes one consistent shape either way.
func (s AdmissionService) InitiateCall(ctx domain.Context, campaignID int64, rawNumber string) (domain.CallRecord, Disposition, error) {
	if !phonenum.Valid(rawNumber) {
		return domain.CallRecord{}, "", fmt.Errorf("%w: invalid phone number format", domain.ErrInvalidArgument)
	}
	number := phonenum.Normalize(rawNumber)
	if _, err := s.activeCampaign(ctx, campaignID); err != nil {
		return domain.CallRecord{}, "", err
	}

	callID := uuid.NewString()
	verdict, err := s.StartTracking(ctx, callID, number, campaignID)
	if err != nil {
		return domain.CallRecord{}, "", err
	}
	switch verdict {
	case domain.AdmissionDuplicate:
		return domain.CallRecord{}, "", fmt.Errorf("%w: %s", domain.ErrDuplicateCall, number)
	case domain.AdmissionCapacityFull:
		rec, err := s.createRecord(ctx, callID, campaignID, number, nil)
		if err != nil {
			return domain.CallRecord{}, "", err
		}
		entry := domain.QueueEntry{CampaignID: campaignID, PhoneNumber: number, CallID: callID}
		if err := s.Pending.PushBack(ctx, entry); err != nil {
			s.abandonRecord(ctx, callID, "pending queue unavailable")
			return domain.CallRecord{}, "", fmt.Errorf("%w: pending queue: %v", domain.ErrServiceUnavailable, err)
		}
		s.publishInitiation(ctx, rec)
		s.kick(ctx, campaignID, 0)
		slog.Info("call queued at capacity",
			slog.String("call_id", callID), slog.Int64("campaign_id", campaignID))
		return rec, DispositionQueued, nil
	}

	now := time.Now().UTC()
	rec, err := s.createRecord(ctx, callID, campaignID, number, &now)
	if err != nil {
		_ = s.EndTracking(ctx, callID, number)
		return domain.CallRecord{}, "", err
	}
	s.publishInitiation(ctx, rec)
	if _, err := s.Bus.EnqueueInitiate(ctx, domain.InitiateTaskPayload{CallID: callID, PhoneNumber: number, CampaignID: campaignID}); err != nil {
		s.abandonRecord(ctx, callID, "task enqueue failed")
		_ = s.EndTracking(ctx, callID, number)
		return domain.CallRecord{}, "", fmt.Errorf("%w: task bus: %v", domain.ErrServiceUnavailable, err)
	}
	slog.Info("call initiated",
		slog.String("call_id", callID), slog.Int64("campaign_id", campaignID))
	return rec, DispositionImmediate, nil
}

// BulkResult is the aggregate outcome of one bulk initiate request.
type BulkResult struct {
	BatchID            string
	TotalRequested     int
	ImmediateProcessed int
	QueuedForLater     int
	Failed             int
	CallIDs            []string
	Errors             []string
	TotalInQueue       int64
}

// BulkInitiate admits a batch of numbers for one campaign. Each number gets
// an independent verdict; capacity overflow parks bare numbers on the
// campaign queue and their records are created when the queue drains.
func (s AdmissionService) BulkInitiate(ctx domain.Context, campaignID int64, rawNumbers []string, useCampaignNumbers bool) (BulkResult, error) {
	if _, err := s.activeCampaign(ctx, campaignID); err != nil {
		return BulkResult{}, err
	}
	numbers := rawNumbers
	if useCampaignNumbers {
		rows, err := s.Numbers.ListActive(ctx, campaignID)
		if err != nil {
			return BulkResult{}, fmt.Errorf("op=usecase.BulkInitiate: %w", err)
		}
		numbers = make([]string, 0, len(rows))
		for _, p := range rows {
			numbers = append(numbers, p.Number)
		}
	}
	if len(numbers) == 0 {
		return BulkResult{}, fmt.Errorf("%w: no phone numbers to dial", domain.ErrInvalidArgument)
	}

	res := BulkResult{BatchID: uuid.NewString(), TotalRequested: len(numbers)}
	queuedAny := false
	for _, raw := range numbers {
		if !phonenum.Valid(raw) {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: invalid phone number format", raw))
			continue
		}
		number := phonenum.Normalize(raw)
		callID := uuid.NewString()
		verdict, err := s.StartTracking(ctx, callID, number, campaignID)
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", number, err))
			continue
		}
		switch verdict {
		case domain.AdmissionDuplicate:
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("Call to %s already in progress", number))
		case domain.AdmissionCapacityFull:
			entry := domain.QueueEntry{CampaignID: campaignID, PhoneNumber: number}
			if err := s.Pending.PushBack(ctx, entry); err != nil {
				res.Failed++
				res.Errors = append(res.Errors, fmt.Sprintf("%s: pending queue: %v", number, err))
				continue
			}
			res.QueuedForLater++
			queuedAny = true
		default:
			now := time.Now().UTC()
			rec, err := s.createRecord(ctx, callID, campaignID, number, &now)
			if err != nil {
				_ = s.EndTracking(ctx, callID, number)
				res.Failed++
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", number, err))
				continue
			}
			s.publishInitiation(ctx, rec)
			if _, err := s.Bus.EnqueueInitiate(ctx, domain.InitiateTaskPayload{CallID: callID, PhoneNumber: number, CampaignID: campaignID}); err != nil {
				s.abandonRecord(ctx, callID, "task enqueue failed")
				_ = s.EndTracking(ctx, callID, number)
				res.Failed++
				res.Errors = append(res.Errors, fmt.Sprintf("%s: task bus: %v", number, err))
				continue
			}
			res.ImmediateProcessed++
			res.CallIDs = append(res.CallIDs, callID)
		}
	}
	if queuedAny {
		s.kick(ctx, campaignID, 0)
	}
	if size, err := s.Pending.Size(ctx, campaignID); err == nil {
		res.TotalInQueue = size
	}
	slog.Info("bulk initiate finished",
		slog.String("batch_id", res.BatchID),
		slog.Int64("campaign_id", campaignID),
		slog.Int("immediate", res.ImmediateProcessed),
		slog.Int("queued", res.QueuedForLater),
		slog.Int("failed", res.Failed))
	return res, nil
}

func (s AdmissionService) activeCampaign(ctx domain.Context, id int64) (domain.Campaign, error) {
	c, err := s.Campaigns.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Campaign{}, fmt.Errorf("%w: campaign not found or inactive", domain.ErrNotFound)
		}
		return domain.Campaign{}, fmt.Errorf("op=usecase.activeCampaign: %w", err)
	}
	if !c.Active {
		return domain.Campaign{}, fmt.Errorf("%w: campaign not found or inactive", domain.ErrNotFound)
	}
	return c, nil
}

// createRecord persists the INITIATED row for attempt one and feeds the daily
// rollup. lastAttempt is nil for queued records that have not dialed yet.
func (s AdmissionService) createRecord(ctx domain.Context, callID string, campaignID int64, number string, lastAttempt *time.Time) (domain.CallRecord, error) {
	now := time.Now().UTC()
	rec := domain.CallRecord{
		CallID:        callID,
		CampaignID:    campaignID,
		PhoneNumber:   number,
		Status:        domain.CallInitiated,
		AttemptCount:  1,
		MaxAttempts:   s.MaxAttempts,
		CreatedAt:     now,
		UpdatedAt:     now,
		LastAttemptAt: lastAttempt,
	}
	if err := s.Calls.Create(ctx, rec); err != nil {
		return domain.CallRecord{}, fmt.Errorf("op=usecase.createRecord: %w", err)
	}
	s.bump(ctx, domain.CallInitiated, 0)
	return rec, nil
}

// abandonRecord fails a record that no worker will ever pick up.
func (s AdmissionService) abandonRecord(ctx domain.Context, callID, reason string) {
	if _, err := s.Calls.Transition(ctx, callID, func(c *domain.CallRecord) error {
		c.Status = domain.CallFailed
		c.Error = ptr(reason)
		return nil
	}); err != nil {
		slog.Error("abandon transition failed", slog.String("call_id", callID), slog.Any("error", err))
	}
}

func (s AdmissionService) publishInitiation(ctx domain.Context, rec domain.CallRecord) {
	if s.Events == nil {
		return
	}
	e := domain.CallEvent{
		EventType:   domain.EventCallInitiation,
		CallID:      rec.CallID,
		CampaignID:  rec.CampaignID,
		PhoneNumber: rec.PhoneNumber,
		Status:      rec.Status,
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.Events.PublishCallEvent(ctx, e); err != nil {
		slog.Warn("event publish failed", slog.String("call_id", rec.CallID), slog.Any("error", err))
	}
}

func (s AdmissionService) bump(ctx domain.Context, status domain.CallStatus, callSeconds int) {
	concurrent, err := s.Registry.Count(ctx)
	if err != nil {
		concurrent = 0
	}
	if err := s.Metrics.Bump(ctx, time.Now().UTC(), status, callSeconds, concurrent); err != nil {
		slog.Warn("metrics bump failed", slog.String("status", string(status)), slog.Any("error", err))
	}
}

func (s AdmissionService) kick(ctx domain.Context, campaignID int64, delay time.Duration) {
	if _, err := s.Bus.EnqueueQueueDrain(ctx, campaignID, delay); err != nil {
		// The minutely safety net re-kicks stuck queues.
		slog.Warn("queue drain kick failed", slog.Int64("campaign_id", campaignID), slog.Any("error", err))
	}
}

func ptr(s string) *string { return &s }
