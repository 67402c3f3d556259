// Command mockprovider stands in for the external telephony provider in
// local stacks and end-to-end runs. It answers the orchestrator's
// initiate-call requests with a generated external_call_id, then reports a
// weighted-random outcome back through the orchestrator's callback endpoint
// after a short delay, the way the real provider would.
//
// Outcome weights, callback delay and failure injection are all
// environment-driven, so a run can be scripted to exercise retries (RNR
// heavy weights), provider outages (MOCK_INITIATE_FAILURE_RATE) or slow
// upstreams (MOCK_INITIATE_STALL).
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

type config struct {
	Port        int           `env:"MOCK_PORT" envDefault:"8001"`
	CallbackURL string        `env:"ORCHESTRATOR_CALLBACK_URL" envDefault:"http://localhost:8080/callback"`
	AuthToken   string        `env:"X_AUTH_TOKEN" envDefault:"dev-token-12345"`
	DelayMin    time.Duration `env:"MOCK_DELAY_MIN" envDefault:"2s"`
	DelayMax    time.Duration `env:"MOCK_DELAY_MAX" envDefault:"8s"`
	// OutcomeWeights picks the reported status, e.g. "PICKED:60,RNR:40".
	OutcomeWeights string `env:"MOCK_OUTCOME_WEIGHTS" envDefault:"PICKED:60,DISCONNECTED:20,RNR:15,FAILED:5"`
	// InitiateFailureRate injects 503s on that fraction of initiate calls.
	InitiateFailureRate float64 `env:"MOCK_INITIATE_FAILURE_RATE" envDefault:"0"`
	// InitiateStall delays every initiate response, for timeout testing.
	InitiateStall time.Duration `env:"MOCK_INITIATE_STALL" envDefault:"0"`
}

type outcome struct {
	status domain.CallStatus
	weight int
}

// parseOutcomes turns "PICKED:60,RNR:40" into a weighted table. Only the
// callback status alphabet is accepted.
func parseOutcomes(s string) ([]outcome, int, error) {
	var out []outcome
	total := 0
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(kv) != 2 {
			return nil, 0, fmt.Errorf("outcome %q: want STATUS:WEIGHT", part)
		}
		st := domain.CallStatus(strings.ToUpper(strings.TrimSpace(kv[0])))
		if !domain.CallbackStatuses[st] {
			return nil, 0, fmt.Errorf("outcome %q: unknown status", kv[0])
		}
		w, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil || w <= 0 {
			return nil, 0, fmt.Errorf("outcome %q: weight must be a positive integer", part)
		}
		out = append(out, outcome{status: st, weight: w})
		total += w
	}
	if total == 0 {
		return nil, 0, fmt.Errorf("no outcomes configured")
	}
	return out, total, nil
}

type activeCall struct {
	ExternalCallID string    `json:"external_call_id"`
	PhoneNumber    string    `json:"phone_number"`
	CampaignID     int64     `json:"campaign_id"`
	InitiatedAt    time.Time `json:"initiated_at"`
}

// simulator tracks in-flight mock calls and delivers their callbacks.
type simulator struct {
	cfg      config
	outcomes []outcome
	total    int
	hc       *http.Client

	mu     sync.Mutex
	active map[string]activeCall
}

func newSimulator(cfg config, outcomes []outcome, total int) *simulator {
	return &simulator{
		cfg:      cfg,
		outcomes: outcomes,
		total:    total,
		hc:       &http.Client{Timeout: 10 * time.Second},
		active:   make(map[string]activeCall),
	}
}

func (s *simulator) pick() domain.CallStatus {
	n := rand.IntN(s.total)
	for _, o := range s.outcomes {
		if n < o.weight {
			return o.status
		}
		n -= o.weight
	}
	return s.outcomes[len(s.outcomes)-1].status
}

// simulate waits out the configured delay, then reports the drawn outcome.
func (s *simulator) simulate(callID string) {
	delay := s.cfg.DelayMin
	if spread := s.cfg.DelayMax - s.cfg.DelayMin; spread > 0 {
		delay += time.Duration(rand.Int64N(int64(spread)))
	}
	time.Sleep(delay)

	status := s.pick()
	duration := 0
	if status == domain.CallPicked {
		duration = 10 + rand.IntN(111)
	}
	s.deliver(callID, status, duration)
}

// deliver PUTs one callback to the orchestrator and forgets the call.
func (s *simulator) deliver(callID string, status domain.CallStatus, duration int) {
	s.mu.Lock()
	call, ok := s.active[callID]
	delete(s.active, callID)
	s.mu.Unlock()
	if !ok {
		return
	}

	body, _ := json.Marshal(map[string]any{
		"call_id":          callID,
		"status":           string(status),
		"call_duration":    duration,
		"external_call_id": call.ExternalCallID,
	})
	req, err := http.NewRequest(http.MethodPut, s.cfg.CallbackURL, bytes.NewReader(body))
	if err != nil {
		slog.Error("callback build failed", slog.String("call_id", callID), slog.Any("error", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Auth-Token", s.cfg.AuthToken)

	resp, err := s.hc.Do(req)
	if err != nil {
		slog.Error("callback delivery failed",
			slog.String("call_id", callID),
			slog.String("url", s.cfg.CallbackURL),
			slog.Any("error", err))
		return
	}
	_ = resp.Body.Close()
	slog.Info("callback delivered",
		slog.String("call_id", callID),
		slog.String("status", string(status)),
		slog.Int("call_duration", duration),
		slog.Int("response_status", resp.StatusCode))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *simulator) healthHandler(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	n := len(s.active)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"service":      "mock-call-provider",
		"active_calls": n,
	})
}

func (s *simulator) initiateHandler(w http.ResponseWriter, r *http.Request) {
	if s.cfg.InitiateStall > 0 {
		time.Sleep(s.cfg.InitiateStall)
	}
	if s.cfg.InitiateFailureRate > 0 && rand.Float64() < s.cfg.InitiateFailureRate {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "injected failure"})
		return
	}

	var req domain.ProviderInitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.CallID == "" || req.PhoneNumber == "" || req.CampaignID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "call_id, phone_number and campaign_id are required"})
		return
	}

	extID := "ext_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	s.mu.Lock()
	s.active[req.CallID] = activeCall{
		ExternalCallID: extID,
		PhoneNumber:    req.PhoneNumber,
		CampaignID:     req.CampaignID,
		InitiatedAt:    time.Now().UTC(),
	}
	s.mu.Unlock()
	go s.simulate(req.CallID)

	slog.Info("call accepted",
		slog.String("call_id", req.CallID),
		slog.String("external_call_id", extID),
		slog.String("phone_number", req.PhoneNumber))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"external_call_id": extID,
		"call_id":          req.CallID,
		"status":           "initiated",
	})
}

func (s *simulator) activeCallsHandler(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	calls := make(map[string]activeCall, len(s.active))
	for k, v := range s.active {
		calls[k] = v
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"active_calls": calls, "count": len(calls)})
}

// simulateCallbackHandler triggers an immediate callback for one in-flight
// call, bypassing the delay and the weighted draw.
func (s *simulator) simulateCallbackHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CallID string `json:"call_id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CallID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "call_id is required"})
		return
	}
	status := domain.CallStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if req.Status == "" {
		status = domain.CallPicked
	}
	if !domain.CallbackStatuses[status] {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
		return
	}
	s.mu.Lock()
	_, ok := s.active[req.CallID]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "call not found"})
		return
	}
	duration := 0
	if status == domain.CallPicked {
		duration = 10 + rand.IntN(111)
	}
	s.deliver(req.CallID, status, duration)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "callback_sent": true})
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(slog.String("service", "mockprovider"))
	slog.SetDefault(logger)

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		slog.Error("config parse failed", slog.Any("error", err))
		os.Exit(1)
	}
	outcomes, total, err := parseOutcomes(cfg.OutcomeWeights)
	if err != nil {
		slog.Error("invalid MOCK_OUTCOME_WEIGHTS", slog.Any("error", err))
		os.Exit(1)
	}

	sim := newSimulator(cfg, outcomes, total)
	r := chi.NewRouter()
	r.Get("/health", sim.healthHandler)
	r.Post("/api/initiate-call", sim.initiateHandler)
	r.Get("/api/active-calls", sim.activeCallsHandler)
	r.Post("/api/simulate-callback", sim.simulateCallbackHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("mock provider listening",
		slog.String("addr", addr),
		slog.String("callback_url", cfg.CallbackURL),
		slog.String("outcomes", cfg.OutcomeWeights))
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("listener error", slog.Any("error", err))
		os.Exit(1)
	}
}
