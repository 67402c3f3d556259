package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

func TestParseOutcomes(t *testing.T) {
	outcomes, total, err := parseOutcomes("PICKED:60,DISCONNECTED:20,RNR:15,FAILED:5")
	require.NoError(t, err)
	assert.Equal(t, 100, total)
	require.Len(t, outcomes, 4)
	assert.Equal(t, domain.CallPicked, outcomes[0].status)
	assert.Equal(t, 60, outcomes[0].weight)

	_, _, err = parseOutcomes("COMPLETED:100")
	require.Error(t, err, "statuses outside the callback alphabet are rejected")

	_, _, err = parseOutcomes("PICKED:-1")
	require.Error(t, err)

	_, _, err = parseOutcomes("PICKED")
	require.Error(t, err)
}

func TestPickRespectsSingleOutcome(t *testing.T) {
	outcomes, total, err := parseOutcomes("RNR:10")
	require.NoError(t, err)
	sim := newSimulator(config{}, outcomes, total)
	for i := 0; i < 20; i++ {
		assert.Equal(t, domain.CallRNR, sim.pick())
	}
}

// receivedCallback captures what the orchestrator-side stub saw. The stub
// only records; assertions run on the test goroutine.
type receivedCallback struct {
	method string
	auth   string
	body   map[string]any
}

func callbackStub(t *testing.T, ch chan<- receivedCallback) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		ch <- receivedCallback{method: r.Method, auth: r.Header.Get("X-Auth-Token"), body: body}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestInitiateDeliversCallback(t *testing.T) {
	got := make(chan receivedCallback, 1)
	orch := callbackStub(t, got)
	defer orch.Close()

	outcomes, total, err := parseOutcomes("PICKED:1")
	require.NoError(t, err)
	sim := newSimulator(config{
		CallbackURL: orch.URL,
		AuthToken:   "tok",
		DelayMin:    time.Millisecond,
		DelayMax:    2 * time.Millisecond,
	}, outcomes, total)

	req := httptest.NewRequest(http.MethodPost, "/api/initiate-call",
		strings.NewReader(`{"call_id":"c1","phone_number":"+15551230001","campaign_id":1}`))
	rec := httptest.NewRecorder()
	sim.initiateHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.NotEmpty(t, resp["external_call_id"])

	select {
	case cb := <-got:
		assert.Equal(t, http.MethodPut, cb.method)
		assert.Equal(t, "tok", cb.auth)
		assert.Equal(t, "c1", cb.body["call_id"])
		assert.Equal(t, "PICKED", cb.body["status"])
		assert.Equal(t, resp["external_call_id"], cb.body["external_call_id"])
		assert.GreaterOrEqual(t, cb.body["call_duration"].(float64), float64(10))
	case <-time.After(5 * time.Second):
		t.Fatal("no callback delivered")
	}
}

func TestInitiateValidation(t *testing.T) {
	outcomes, total, _ := parseOutcomes("PICKED:1")
	sim := newSimulator(config{}, outcomes, total)

	req := httptest.NewRequest(http.MethodPost, "/api/initiate-call",
		strings.NewReader(`{"phone_number":"+15551230001"}`))
	rec := httptest.NewRecorder()
	sim.initiateHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/initiate-call", strings.NewReader("{"))
	rec = httptest.NewRecorder()
	sim.initiateHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInitiateFailureInjection(t *testing.T) {
	outcomes, total, _ := parseOutcomes("PICKED:1")
	sim := newSimulator(config{InitiateFailureRate: 1.0}, outcomes, total)

	req := httptest.NewRequest(http.MethodPost, "/api/initiate-call",
		strings.NewReader(`{"call_id":"c1","phone_number":"+15551230001","campaign_id":1}`))
	rec := httptest.NewRecorder()
	sim.initiateHandler(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSimulateCallbackHandler(t *testing.T) {
	got := make(chan receivedCallback, 1)
	orch := callbackStub(t, got)
	defer orch.Close()

	outcomes, total, _ := parseOutcomes("PICKED:1")
	// A long delay keeps the automatic simulation out of the way.
	sim := newSimulator(config{
		CallbackURL: orch.URL,
		AuthToken:   "tok",
		DelayMin:    time.Minute,
		DelayMax:    time.Minute,
	}, outcomes, total)

	req := httptest.NewRequest(http.MethodPost, "/api/initiate-call",
		strings.NewReader(`{"call_id":"c2","phone_number":"+15551230002","campaign_id":1}`))
	rec := httptest.NewRecorder()
	sim.initiateHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/simulate-callback",
		strings.NewReader(`{"call_id":"c2","status":"rnr"}`))
	rec = httptest.NewRecorder()
	sim.simulateCallbackHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case cb := <-got:
		assert.Equal(t, "c2", cb.body["call_id"])
		assert.Equal(t, "RNR", cb.body["status"])
		assert.Equal(t, float64(0), cb.body["call_duration"])
	case <-time.After(5 * time.Second):
		t.Fatal("no callback delivered")
	}

	// The call is forgotten once its callback went out.
	req = httptest.NewRequest(http.MethodPost, "/api/simulate-callback",
		strings.NewReader(`{"call_id":"c2"}`))
	rec = httptest.NewRecorder()
	sim.simulateCallbackHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	outcomes, total, _ := parseOutcomes("PICKED:1")
	sim := newSimulator(config{}, outcomes, total)

	rec := httptest.NewRecorder()
	sim.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, float64(0), resp["active_calls"])
}
