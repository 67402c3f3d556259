package asynqadp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

func TestQueueFor(t *testing.T) {
	cases := map[string]string{
		domain.TaskInitiateCall:     QueueCalls,
		domain.TaskProcessCallback:  QueueCalls,
		domain.TaskExternalCallback: QueueCalls,
		domain.TaskQueueDrain:       QueueDrain,
		domain.TaskRetryTick:        QueueMaintenance,
		domain.TaskRetentionCleanup: QueueMaintenance,
		"unknown":                   QueueMaintenance,
	}
	for taskType, want := range cases {
		if got := queueFor(taskType); got != want {
			t.Fatalf("queueFor(%s) = %s, want %s", taskType, got, want)
		}
	}
}

func TestRetryDelay_PolicyCurve(t *testing.T) {
	task := asynq.NewTask(domain.TaskInitiateCall, nil)
	if d := retryDelay(0, errors.New("x"), task); d != 60*time.Second {
		t.Fatalf("first retry delay = %v, want 60s", d)
	}
	if d := retryDelay(1, errors.New("x"), task); d != 120*time.Second {
		t.Fatalf("second retry delay = %v, want 120s", d)
	}
	if d := retryDelay(2, errors.New("x"), task); d != 240*time.Second {
		t.Fatalf("third retry delay = %v, want 240s", d)
	}

	ext := asynq.NewTask(domain.TaskExternalCallback, nil)
	if d := retryDelay(0, errors.New("x"), ext); d != 5*time.Second {
		t.Fatalf("external callback first delay = %v, want 5s", d)
	}

	// Unknown types fall back to asynq's default curve.
	unknown := asynq.NewTask("unknown", nil)
	if d := retryDelay(1, errors.New("x"), unknown); d <= 0 {
		t.Fatalf("default delay should be positive, got %v", d)
	}
}

func TestDispatch_Success(t *testing.T) {
	var got []byte
	h := dispatch(Registration{
		Type:    domain.TaskInitiateCall,
		Handler: func(_ context.Context, payload []byte) error { got = payload; return nil },
	})
	task := asynq.NewTask(domain.TaskInitiateCall, []byte(`{"call_id":"c-1"}`))
	if err := h(context.Background(), task); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if string(got) != `{"call_id":"c-1"}` {
		t.Fatalf("payload not passed through: %s", got)
	}
}

func TestDispatch_NonRetriableSkipsRetry(t *testing.T) {
	finalCalled := false
	cause := fmt.Errorf("bad payload: %w", domain.ErrInvalidArgument)
	h := dispatch(Registration{
		Type:    domain.TaskProcessCallback,
		Handler: func(_ context.Context, _ []byte) error { return cause },
		OnFinalFailure: func(_ context.Context, _ []byte, err error) {
			finalCalled = true
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("final failure cause = %v", err)
			}
		},
	})
	err := h(context.Background(), asynq.NewTask(domain.TaskProcessCallback, nil))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("non-retriable error must skip retry, got %v", err)
	}
	if !finalCalled {
		t.Fatalf("final failure hook not called")
	}
}

func TestDispatch_RetriableWithoutBudgetIsFinal(t *testing.T) {
	// Outside a real asynq server no retry metadata is present, which reads
	// as a zero budget: the failure is final but stays a plain error.
	finalCalled := false
	cause := fmt.Errorf("provider down: %w", domain.ErrUpstreamFailure)
	h := dispatch(Registration{
		Type:           domain.TaskInitiateCall,
		Handler:        func(_ context.Context, _ []byte) error { return cause },
		OnFinalFailure: func(_ context.Context, _ []byte, _ error) { finalCalled = true },
	})
	err := h(context.Background(), asynq.NewTask(domain.TaskInitiateCall, nil))
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("retriable final failure must not carry SkipRetry")
	}
	if !finalCalled {
		t.Fatalf("final failure hook not called")
	}
}

func TestNewWorker_Basics(t *testing.T) {
	w, err := NewWorker("redis://localhost:6379/15", 4, nil, []Registration{
		{Type: domain.TaskInitiateCall, Handler: func(_ context.Context, _ []byte) error { return nil }},
	})
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	if w == nil {
		t.Fatalf("worker nil")
	}
	w.Stop() // should not panic

	if _, err := NewWorker("invalid://url", 4, map[string]int{QueueDrain: 1}, nil); err == nil {
		t.Fatalf("expected error for bad URI")
	}
}

func TestNewScheduler_RegistersEntries(t *testing.T) {
	s, err := NewScheduler("redis://localhost:6379/15", 0, 0)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	if s == nil {
		t.Fatalf("scheduler nil")
	}

	if _, err := NewScheduler("invalid://url", time.Minute, time.Hour); err == nil {
		t.Fatalf("expected error for bad URI")
	}
}
