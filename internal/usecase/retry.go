package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/service/schedule"
)

// RetryService is the minutely ticker that re-emits parked DISCONNECTED and
// RNR records according to the schedule rules.
type RetryService struct {
	Calls     domain.CallRepository
	Oracle    *schedule.Oracle
	Admission AdmissionService
	Bus       domain.TaskBus
}

// NewRetryService constructs a RetryService.
func NewRetryService(calls domain.CallRepository, oracle *schedule.Oracle, admission AdmissionService, bus domain.TaskBus) RetryService {
	return RetryService{Calls: calls, Oracle: oracle, Admission: admission, Bus: bus}
}

// TickStats reports one ticker pass.
type TickStats struct {
	Scanned  int
	Emitted  int
	Deferred int
	Swept    int
}

// Tick scans due records oldest first and re-emits at most the configured
// number per pass, sequentially. Records outside their campaign's calling
// window are pushed to the next opening; capacity exhaustion ends the pass
// early since every later record would hit the same wall.
func (s RetryService) Tick(ctx domain.Context, now time.Time) (TickStats, error) {
	sched := s.Oracle.Scheduler()
	batch, err := s.Calls.DueForRetry(ctx, now, sched.BatchSize)
	if err != nil {
		return TickStats{}, fmt.Errorf("op=usecase.Tick: %w", err)
	}
	st := TickStats{Scanned: len(batch)}

	for _, rec := range batch {
		if st.Emitted >= sched.MaxConcurrentRetries {
			break
		}
		view := s.Oracle.View(rec.CampaignID)
		win, open := view.InWindow(now)
		next, _ := view.NextRetry(now)
		if !open {
			s.pushRetry(ctx, rec, next)
			st.Deferred++
			continue
		}

		verdict, err := s.Admission.StartTracking(ctx, rec.CallID, rec.PhoneNumber, rec.CampaignID)
		if err != nil {
			slog.Error("retry admission failed", slog.String("call_id", rec.CallID), slog.Any("error", err))
			continue
		}
		switch verdict {
		case domain.AdmissionCapacityFull:
			slog.Info("retry pass stopped at capacity", slog.Int("emitted", st.Emitted))
			return st, nil
		case domain.AdmissionDuplicate:
			// The number is mid-flight elsewhere; the record stays due.
			continue
		}

		prior := rec
		_, terr := s.Calls.Transition(ctx, rec.CallID, func(c *domain.CallRecord) error {
			if !c.Status.IsRetryWaiting() || !c.HasAttemptsLeft() {
				return errNoop
			}
			c.Status = domain.CallRetrying
			c.AttemptCount++
			t := now
			c.LastAttemptAt = &t
			n := next
			c.NextRetryAt = &n
			if win.MaxAttempts > 0 {
				c.MaxAttempts = win.MaxAttempts
			}
			return nil
		})
		if terr != nil {
			if !errors.Is(terr, errNoop) {
				slog.Error("retry transition failed", slog.String("call_id", rec.CallID), slog.Any("error", terr))
			}
			_ = s.Admission.EndTracking(ctx, rec.CallID, rec.PhoneNumber)
			continue
		}

		if _, err := s.Bus.EnqueueInitiate(ctx, domain.InitiateTaskPayload{
			CallID:      rec.CallID,
			PhoneNumber: rec.PhoneNumber,
			CampaignID:  rec.CampaignID,
		}); err != nil {
			slog.Error("retry enqueue failed", slog.String("call_id", rec.CallID), slog.Any("error", err))
			if _, rerr := s.Calls.Transition(ctx, rec.CallID, func(c *domain.CallRecord) error {
				c.Status = prior.Status
				c.AttemptCount = prior.AttemptCount
				c.LastAttemptAt = prior.LastAttemptAt
				t := now.Add(retryFloor)
				c.NextRetryAt = &t
				return nil
			}); rerr != nil {
				slog.Error("retry revert failed", slog.String("call_id", rec.CallID), slog.Any("error", rerr))
			}
			_ = s.Admission.EndTracking(ctx, rec.CallID, rec.PhoneNumber)
			continue
		}

		s.Admission.bump(ctx, domain.CallRetrying, 0)
		slog.Info("retry emitted",
			slog.String("call_id", rec.CallID),
			slog.Int("attempt_count", prior.AttemptCount+1),
			slog.Time("next_retry_at", next))
		st.Emitted++
	}

	st.Swept = s.sweepExhausted(ctx)
	return st, nil
}

// pushRetry moves a due record's next attempt to the campaign's next open
// window. No write happens when the stored time already matches.
func (s RetryService) pushRetry(ctx domain.Context, rec domain.CallRecord, next time.Time) {
	if rec.NextRetryAt != nil && rec.NextRetryAt.Equal(next) {
		return
	}
	if _, err := s.Calls.Transition(ctx, rec.CallID, func(c *domain.CallRecord) error {
		if !c.Status.IsRetryWaiting() {
			return errNoop
		}
		n := next
		c.NextRetryAt = &n
		return nil
	}); err != nil && !errors.Is(err, errNoop) {
		slog.Error("retry defer failed", slog.String("call_id", rec.CallID), slog.Any("error", err))
	}
}

// sweepExhausted fails any non-terminal record that already burned its
// attempt budget. Normally the callback path does this; the sweep catches
// records orphaned by crashes or rule tightening.
func (s RetryService) sweepExhausted(ctx domain.Context) int {
	batch, err := s.Calls.ExhaustedNonTerminal(ctx, 100)
	if err != nil {
		slog.Error("exhausted sweep scan failed", slog.Any("error", err))
		return 0
	}
	swept := 0
	campaigns := make(map[int64]bool)
	for _, rec := range batch {
		reason := fmt.Sprintf("Max retry attempts reached (%d)", rec.MaxAttempts)
		if _, err := s.Calls.Transition(ctx, rec.CallID, func(c *domain.CallRecord) error {
			if c.Status.IsTerminal() {
				return errNoop
			}
			c.Status = domain.CallFailed
			c.Error = ptr(reason)
			return nil
		}); err != nil {
			if !errors.Is(err, errNoop) {
				slog.Error("exhausted sweep transition failed", slog.String("call_id", rec.CallID), slog.Any("error", err))
			}
			continue
		}
		_ = s.Admission.EndTracking(ctx, rec.CallID, rec.PhoneNumber)
		s.Admission.bump(ctx, domain.CallFailed, 0)
		campaigns[rec.CampaignID] = true
		swept++
	}
	for cid := range campaigns {
		s.Admission.kick(ctx, cid, 0)
	}
	if swept > 0 {
		slog.Warn("failed exhausted records", slog.Int("count", swept))
	}
	return swept
}
