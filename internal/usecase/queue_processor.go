package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

// QueueProcessorService drains campaign pending queues into freed
// concurrency slots.
type QueueProcessorService struct {
	Campaigns domain.CampaignRepository
	Calls     domain.CallRepository
	Pending   domain.PendingQueue
	Registry  domain.SlotRegistry
	Bus       domain.TaskBus
	Admission AdmissionService

	MaxConcurrent int64
	ReArmDelay    time.Duration
}

// NewQueueProcessorService constructs a QueueProcessorService.
func NewQueueProcessorService(
	campaigns domain.CampaignRepository,
	calls domain.CallRepository,
	pending domain.PendingQueue,
	registry domain.SlotRegistry,
	bus domain.TaskBus,
	admission AdmissionService,
	maxConcurrent int64,
	reArmDelay time.Duration,
) QueueProcessorService {
	return QueueProcessorService{
		Campaigns:     campaigns,
		Calls:         calls,
		Pending:       pending,
		Registry:      registry,
		Bus:           bus,
		Admission:     admission,
		MaxConcurrent: maxConcurrent,
		ReArmDelay:    reArmDelay,
	}
}

// DrainStats reports one drain pass.
type DrainStats struct {
	Processed int
	Requeued  int
	Dropped   int
	Remaining int64
}

// Drain pops at most the number of free slots from the campaign's queue and
// admits each entry through the same gate as direct initiations. Entries
// that lose a race for capacity go back to the tail; the pass re-arms itself
// while entries remain and progress was made.
func (s QueueProcessorService) Drain(ctx domain.Context, campaignID int64) (DrainStats, error) {
	campaign, err := s.Campaigns.Get(ctx, campaignID)
	if err != nil {
		return DrainStats{}, fmt.Errorf("op=usecase.Drain: %w", err)
	}
	if !campaign.Active {
		slog.Info("drain skipped, campaign inactive", slog.Int64("campaign_id", campaignID))
		return DrainStats{}, nil
	}
	count, err := s.Registry.Count(ctx)
	if err != nil {
		return DrainStats{}, fmt.Errorf("%w: slot registry: %v", domain.ErrServiceUnavailable, err)
	}
	size, err := s.Pending.Size(ctx, campaignID)
	if err != nil {
		return DrainStats{}, fmt.Errorf("op=usecase.Drain: %w", err)
	}
	st := DrainStats{Remaining: size}
	available := s.MaxConcurrent - count
	if available <= 0 || size == 0 {
		return st, nil
	}
	n := available
	if size < n {
		n = size
	}
	entries, err := s.Pending.PopFrontN(ctx, campaignID, int(n))
	if err != nil {
		return st, fmt.Errorf("op=usecase.Drain: %w", err)
	}

	for _, e := range entries {
		callID := e.CallID
		if callID == "" {
			callID = uuid.NewString()
		}
		verdict, err := s.Admission.StartTracking(ctx, callID, e.PhoneNumber, campaignID)
		if err != nil {
			slog.Error("drain admission failed", slog.String("number", e.PhoneNumber), slog.Any("error", err))
			s.requeue(ctx, e)
			st.Requeued++
			continue
		}
		switch verdict {
		case domain.AdmissionCapacityFull:
			// Raced against a direct initiation for the freed slot.
			s.requeue(ctx, e)
			st.Requeued++
		case domain.AdmissionDuplicate:
			s.dropDuplicate(ctx, e)
			st.Dropped++
		default:
			if err := s.activate(ctx, e, callID); err != nil {
				_ = s.Admission.EndTracking(ctx, callID, e.PhoneNumber)
				if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
					slog.Warn("dropping unusable queue entry",
						slog.String("call_id", callID), slog.Any("error", err))
					st.Dropped++
				} else {
					s.requeue(ctx, e)
					st.Requeued++
				}
				continue
			}
			st.Processed++
		}
	}

	if remaining, err := s.Pending.Size(ctx, campaignID); err == nil {
		st.Remaining = remaining
	}
	if st.Remaining > 0 && st.Processed > 0 {
		s.Admission.kick(ctx, campaignID, s.ReArmDelay)
	}
	slog.Info("queue drained",
		slog.Int64("campaign_id", campaignID),
		slog.Int("processed", st.Processed),
		slog.Int("requeued", st.Requeued),
		slog.Int("dropped", st.Dropped),
		slog.Int64("remaining", st.Remaining))
	return st, nil
}

// SafetyNet kicks a drain for every active campaign with a non-empty queue.
// It backstops lost drain tasks; an extra drain on a busy queue is harmless.
func (s QueueProcessorService) SafetyNet(ctx domain.Context) (int, error) {
	campaigns, err := s.Campaigns.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("op=usecase.SafetyNet: %w", err)
	}
	kicked := 0
	for _, c := range campaigns {
		size, err := s.Pending.Size(ctx, c.ID)
		if err != nil {
			slog.Warn("queue size check failed", slog.Int64("campaign_id", c.ID), slog.Any("error", err))
			continue
		}
		if size == 0 {
			continue
		}
		if _, err := s.Bus.EnqueueQueueDrain(ctx, c.ID, 0); err != nil {
			slog.Warn("safety net kick failed", slog.Int64("campaign_id", c.ID), slog.Any("error", err))
			continue
		}
		kicked++
	}
	return kicked, nil
}

// activate turns one popped entry into a dialable record. Entries that carry
// a call id reuse the record created at deflection time; bare entries get a
// fresh record here.
func (s QueueProcessorService) activate(ctx domain.Context, e domain.QueueEntry, callID string) error {
	now := time.Now().UTC()
	if e.CallID != "" {
		if _, err := s.Calls.Transition(ctx, callID, func(c *domain.CallRecord) error {
			if c.Status.IsTerminal() {
				return fmt.Errorf("%w: record already terminal", domain.ErrConflict)
			}
			c.LastAttemptAt = &now
			return nil
		}); err != nil {
			return err
		}
	} else {
		rec, err := s.Admission.createRecord(ctx, callID, e.CampaignID, e.PhoneNumber, &now)
		if err != nil {
			return err
		}
		s.Admission.publishInitiation(ctx, rec)
	}
	if _, err := s.Bus.EnqueueInitiate(ctx, domain.InitiateTaskPayload{CallID: callID, PhoneNumber: e.PhoneNumber, CampaignID: e.CampaignID}); err != nil {
		return fmt.Errorf("%w: task bus: %v", domain.ErrServiceUnavailable, err)
	}
	return nil
}

// dropDuplicate discards an entry whose number is already dialing. An entry
// that carries a deflection record fails that record so it cannot linger in
// INITIATED forever.
func (s QueueProcessorService) dropDuplicate(ctx domain.Context, e domain.QueueEntry) {
	slog.Info("dropping duplicate queue entry",
		slog.Int64("campaign_id", e.CampaignID), slog.String("call_id", e.CallID))
	if e.CallID == "" {
		return
	}
	if _, err := s.Calls.Transition(ctx, e.CallID, func(c *domain.CallRecord) error {
		if c.Status.IsTerminal() {
			return errNoop
		}
		c.Status = domain.CallFailed
		c.Error = ptr(fmt.Sprintf("Call to %s already in progress", e.PhoneNumber))
		return nil
	}); err != nil {
		if !errors.Is(err, errNoop) {
			slog.Error("duplicate drop transition failed", slog.String("call_id", e.CallID), slog.Any("error", err))
		}
		return
	}
	s.Admission.bump(ctx, domain.CallFailed, 0)
}

// requeue pushes an entry back to the tail with a fresh enqueue time.
func (s QueueProcessorService) requeue(ctx domain.Context, e domain.QueueEntry) {
	e.QueuedAt = time.Time{}
	if err := s.Pending.PushBack(ctx, e); err != nil {
		slog.Error("requeue failed, entry lost",
			slog.Int64("campaign_id", e.CampaignID),
			slog.String("number", e.PhoneNumber),
			slog.Any("error", err))
	}
}
