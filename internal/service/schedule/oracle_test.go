package schedule

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testRules = `
defaults:
  max_attempts: 3
  retry_interval_minutes: 45
  concurrent_call_limit: 100
scheduler:
  batch_size: 100
  max_concurrent_retries: 50
global_rules:
  - name: weekday-business-hours
    days: [monday, tuesday, wednesday, thursday, friday]
    time_slots:
      - start_time: "09:00"
        end_time: "17:00"
        max_attempts: 4
        retry_interval_minutes: 30
campaign_rules:
  - campaign_id: 42
    rules:
      - name: weekend-only
        days: [saturday, sunday]
        time_slots:
          - start_time: "10:00"
            end_time: "14:00"
            max_attempts: 2
            retry_interval_minutes: 15
`

func testOracle(t *testing.T) *Oracle {
	t.Helper()
	path := filepath.Join(t.TempDir(), "retry_config.yaml")
	if err := os.WriteFile(path, []byte(testRules), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	o := NewOracle(path)
	if err := o.Load(); err != nil {
		t.Fatalf("load rules: %v", err)
	}
	return o
}

// 2025-06-02 is a Monday.
func monday(hour, minute int) time.Time {
	return time.Date(2025, 6, 2, hour, minute, 0, 0, time.UTC)
}

func TestInWindow_InclusiveEndpointsAtMinuteGranularity(t *testing.T) {
	v := testOracle(t).View(1)

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"start boundary", monday(9, 0), true},
		{"inside", monday(12, 30), true},
		{"end boundary", monday(17, 0), true},
		{"end boundary with seconds", monday(17, 0).Add(45 * time.Second), true},
		{"minute before start", monday(8, 59), false},
		{"minute after end", monday(17, 1), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, got := v.InWindow(tc.t); got != tc.want {
				t.Fatalf("InWindow(%v) = %v, want %v", tc.t, got, tc.want)
			}
		})
	}
}

func TestInWindow_DayMustMatch(t *testing.T) {
	v := testOracle(t).View(1)

	saturday := time.Date(2025, 6, 7, 12, 0, 0, 0, time.UTC)
	if _, ok := v.InWindow(saturday); ok {
		t.Fatalf("expected saturday noon outside weekday-only windows")
	}
}

func TestInWindow_ReturnsMatchedSlotKnobs(t *testing.T) {
	v := testOracle(t).View(1)

	w, ok := v.InWindow(monday(10, 0))
	if !ok {
		t.Fatalf("expected monday 10:00 inside window")
	}
	if w.MaxAttempts != 4 {
		t.Fatalf("expected slot max_attempts 4, got %d", w.MaxAttempts)
	}
	if w.RetryIntervalMinutes != 30 {
		t.Fatalf("expected slot interval 30, got %d", w.RetryIntervalMinutes)
	}
}

func TestCampaignRules_FullyReplaceGlobal(t *testing.T) {
	o := testOracle(t)

	// Campaign 42 runs weekends only: a Monday inside the global window is
	// closed for it but open for everyone else.
	if _, ok := o.View(42).InWindow(monday(10, 0)); ok {
		t.Fatalf("campaign rules should replace, not merge with, global rules")
	}
	if _, ok := o.View(1).InWindow(monday(10, 0)); !ok {
		t.Fatalf("global window should apply to campaigns without their own rules")
	}

	saturday := time.Date(2025, 6, 7, 11, 0, 0, 0, time.UTC)
	if _, ok := o.View(42).InWindow(saturday); !ok {
		t.Fatalf("campaign window should apply on saturday")
	}
}

func TestNextRetry_IntervalKeepsWithinSlot(t *testing.T) {
	v := testOracle(t).View(1)

	at := monday(10, 0)
	next, w := v.NextRetry(at)
	if w == nil {
		t.Fatalf("expected active window")
	}
	if want := monday(10, 30); !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestNextRetry_IntervalPastSlotEndJumpsToNextOpening(t *testing.T) {
	v := testOracle(t).View(1)

	// 16:45 + 30m = 17:15, past the 17:00 close, so the next opening is
	// Tuesday 09:00.
	at := monday(16, 45)
	next, w := v.NextRetry(at)
	if w == nil {
		t.Fatalf("expected a window for the next opening")
	}
	want := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestNextRetry_BeforeTodaysWindowUsesTodaysStart(t *testing.T) {
	v := testOracle(t).View(1)

	at := monday(7, 15)
	next, _ := v.NextRetry(at)
	if want := monday(9, 0); !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestNextRetry_AfterFridayCloseWrapsToMonday(t *testing.T) {
	v := testOracle(t).View(1)

	friday := time.Date(2025, 6, 6, 18, 0, 0, 0, time.UTC)
	next, _ := v.NextRetry(friday)
	want := time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestNextRetry_SingleDayRuleWrapsFullWeek(t *testing.T) {
	const weekendOnly = `
global_rules:
  - name: saturday-morning
    days: [saturday]
    time_slots:
      - start_time: "10:00"
        end_time: "12:00"
`
	rs, err := ParseRuleSet([]byte(weekendOnly))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	o := NewOracle("unused")
	o.Install(rs)
	v := o.View(1)

	// Saturday 13:00: today's only slot already closed, the next opening is
	// the same weekday one week out.
	saturday := time.Date(2025, 6, 7, 13, 0, 0, 0, time.UTC)
	next, w := v.NextRetry(saturday)
	if w == nil {
		t.Fatalf("expected a window one week ahead")
	}
	want := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestNextRetry_NoRulesFallsBackToDefaultInterval(t *testing.T) {
	o := NewOracle("does-not-exist.yaml")
	v := o.View(1)

	at := monday(10, 0)
	next, w := v.NextRetry(at)
	if w != nil {
		t.Fatalf("expected no window, got %+v", w)
	}
	if want := at.Add(60 * time.Minute); !next.Equal(want) {
		t.Fatalf("expected default interval push to %v, got %v", want, next)
	}
}

func TestLoad_BadFileKeepsPreviousRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retry_config.yaml")
	if err := os.WriteFile(path, []byte(testRules), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	o := NewOracle(path)
	if err := o.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := os.WriteFile(path, []byte("global_rules: [{days: [noday]}]"), 0o600); err != nil {
		t.Fatalf("write bad rules: %v", err)
	}
	if err := o.Load(); err == nil {
		t.Fatalf("expected reload of invalid rules to fail")
	}

	// The previous rule set must still answer.
	if _, ok := o.View(1).InWindow(monday(10, 0)); !ok {
		t.Fatalf("expected previous rules to stay active after failed reload")
	}
}

func TestScheduler_KnobsFromFile(t *testing.T) {
	o := testOracle(t)
	s := o.Scheduler()
	if s.BatchSize != 100 || s.MaxConcurrentRetries != 50 {
		t.Fatalf("unexpected scheduler knobs: %+v", s)
	}
}

func TestParseRuleSet_Validation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown day", `global_rules: [{name: r, days: [funday], time_slots: [{start_time: "09:00", end_time: "10:00"}]}]`},
		{"bad hour", `global_rules: [{name: r, days: [monday], time_slots: [{start_time: "25:00", end_time: "26:00"}]}]`},
		{"missing colon", `global_rules: [{name: r, days: [monday], time_slots: [{start_time: "0900", end_time: "1000"}]}]`},
		{"start after end", `global_rules: [{name: r, days: [monday], time_slots: [{start_time: "17:00", end_time: "09:00"}]}]`},
		{"bad campaign id", `campaign_rules: [{campaign_id: 0, rules: []}]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseRuleSet([]byte(tc.doc)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestParseRuleSet_SlotInheritsDefaults(t *testing.T) {
	doc := `
defaults:
  max_attempts: 5
  retry_interval_minutes: 20
global_rules:
  - name: sparse
    days: [monday]
    time_slots:
      - start_time: "09:00"
        end_time: "17:00"
`
	rs, err := ParseRuleSet([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	slot := rs.GlobalRules[0].TimeSlots[0]
	if slot.MaxAttempts != 5 {
		t.Fatalf("expected inherited max_attempts 5, got %d", slot.MaxAttempts)
	}
	if slot.RetryIntervalMinutes != 20 {
		t.Fatalf("expected inherited interval 20, got %d", slot.RetryIntervalMinutes)
	}
}

func TestParseRuleSet_DeclarationOrderBreaksTies(t *testing.T) {
	doc := `
global_rules:
  - name: first
    days: [monday]
    time_slots:
      - start_time: "09:00"
        end_time: "17:00"
        retry_interval_minutes: 10
  - name: second
    days: [monday]
    time_slots:
      - start_time: "08:00"
        end_time: "18:00"
        retry_interval_minutes: 99
`
	rs, err := ParseRuleSet([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	o := NewOracle("unused")
	o.Install(rs)

	w, ok := o.View(1).InWindow(monday(10, 0))
	if !ok {
		t.Fatalf("expected overlapping windows to match")
	}
	if w.RuleName != "first" {
		t.Fatalf("expected first declared rule to win, got %q", w.RuleName)
	}
}
