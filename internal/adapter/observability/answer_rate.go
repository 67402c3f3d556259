package observability

import (
	"log/slog"
	"strconv"
	"sync"
)

// AnswerRateMonitor watches one campaign's rolling answer rate against a
// baseline. An answer is any callback that reports the call was picked up;
// disconnects, ring-no-answers and failures count against the rate. A
// sustained drop usually means a burned caller id or a bad number list, so
// the monitor warns and exposes the drift as a gauge instead of failing
// anything.
type AnswerRateMonitor struct {
	mu          sync.Mutex
	baseline    float64
	hasBaseline bool
	outcomes    []bool
	windowSize  int
	threshold   float64
	campaignID  int64
}

// NewAnswerRateMonitor creates a monitor over a rolling window of windowSize
// outcomes that warns when the rate drifts more than threshold from the
// baseline.
func NewAnswerRateMonitor(campaignID int64, windowSize int, threshold float64) *AnswerRateMonitor {
	if windowSize <= 0 {
		windowSize = 20
	}
	return &AnswerRateMonitor{
		outcomes:   make([]bool, 0, windowSize),
		windowSize: windowSize,
		threshold:  threshold,
		campaignID: campaignID,
	}
}

// SetBaseline pins the expected answer rate. Without an explicit baseline
// the first full window becomes the baseline.
func (m *AnswerRateMonitor) SetBaseline(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseline = rate
	m.hasBaseline = true
	slog.Info("answer rate baseline set",
		slog.Int64("campaign_id", m.campaignID),
		slog.Float64("baseline", rate))
}

// Observe records one call outcome and re-evaluates drift once the window
// is full.
func (m *AnswerRateMonitor) Observe(answered bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.outcomes = append(m.outcomes, answered)
	if len(m.outcomes) > m.windowSize {
		m.outcomes = m.outcomes[1:]
	}
	if len(m.outcomes) < m.windowSize {
		return
	}

	rate := m.rateLocked()
	if !m.hasBaseline {
		m.baseline = rate
		m.hasBaseline = true
		slog.Info("answer rate baseline learned",
			slog.Int64("campaign_id", m.campaignID),
			slog.Float64("baseline", rate))
		return
	}

	drift := rate - m.baseline
	if drift < 0 {
		drift = -drift
	}
	RecordAnswerRateDrift(strconv.FormatInt(m.campaignID, 10), drift)
	if drift > m.threshold {
		slog.Warn("answer rate drift detected",
			slog.Int64("campaign_id", m.campaignID),
			slog.Float64("answer_rate", rate),
			slog.Float64("baseline", m.baseline),
			slog.Float64("drift", drift),
			slog.Float64("threshold", m.threshold))
	}
}

// Rate returns the rolling answer rate and whether any outcomes were seen.
func (m *AnswerRateMonitor) Rate() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.outcomes) == 0 {
		return 0, false
	}
	return m.rateLocked(), true
}

// Baseline returns the active baseline and whether one is set.
func (m *AnswerRateMonitor) Baseline() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseline, m.hasBaseline
}

// Reset clears the window and the baseline.
func (m *AnswerRateMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = m.outcomes[:0]
	m.baseline = 0
	m.hasBaseline = false
}

func (m *AnswerRateMonitor) rateLocked() float64 {
	answered := 0
	for _, ok := range m.outcomes {
		if ok {
			answered++
		}
	}
	return float64(answered) / float64(len(m.outcomes))
}

// AnswerRateTracker holds one monitor per campaign, created lazily with
// shared window and threshold settings.
type AnswerRateTracker struct {
	mu         sync.Mutex
	monitors   map[int64]*AnswerRateMonitor
	windowSize int
	threshold  float64
}

// NewAnswerRateTracker creates an empty tracker.
func NewAnswerRateTracker(windowSize int, threshold float64) *AnswerRateTracker {
	return &AnswerRateTracker{
		monitors:   make(map[int64]*AnswerRateMonitor),
		windowSize: windowSize,
		threshold:  threshold,
	}
}

// Observe records one outcome for the campaign's monitor.
func (t *AnswerRateTracker) Observe(campaignID int64, answered bool) {
	t.monitor(campaignID).Observe(answered)
}

// Rate returns the campaign's rolling answer rate.
func (t *AnswerRateTracker) Rate(campaignID int64) (float64, bool) {
	t.mu.Lock()
	m, ok := t.monitors[campaignID]
	t.mu.Unlock()
	if !ok {
		return 0, false
	}
	return m.Rate()
}

// SetBaseline pins the expected rate for one campaign.
func (t *AnswerRateTracker) SetBaseline(campaignID int64, rate float64) {
	t.monitor(campaignID).SetBaseline(rate)
}

// Reset drops all campaign monitors.
func (t *AnswerRateTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.monitors = make(map[int64]*AnswerRateMonitor)
}

func (t *AnswerRateTracker) monitor(campaignID int64) *AnswerRateMonitor {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m, ok := t.monitors[campaignID]; ok {
		return m
	}
	m := NewAnswerRateMonitor(campaignID, t.windowSize, t.threshold)
	t.monitors[campaignID] = m
	return m
}
