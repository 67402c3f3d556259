package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/adapter/observability"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/config"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

func testCfg(baseURL string) config.Config {
	return config.Config{
		ProviderBaseURL:                baseURL,
		ProviderTimeout:                2 * time.Second,
		ProviderBackoffMaxElapsed:      80 * time.Millisecond,
		ProviderBackoffInitialInterval: 10 * time.Millisecond,
		ProviderBackoffMaxInterval:     20 * time.Millisecond,
		ProviderBackoffMultiplier:      2.0,
	}
}

func initiateReq() domain.ProviderInitiateRequest {
	return domain.ProviderInitiateRequest{
		CallID:       "c-1",
		PhoneNumber:  "15551234567",
		CampaignID:   7,
		CampaignName: "leads",
	}
}

func TestInitiateCall_Success(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/initiate-call", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req domain.ProviderInitiateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "c-1", req.CallID)
		require.Equal(t, "15551234567", req.PhoneNumber)
		require.Equal(t, int64(7), req.CampaignID)
		require.Equal(t, "leads", req.CampaignName)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"external_call_id": "EXT-77"})
	}))
	defer ts.Close()

	c := New(testCfg(ts.URL), nil)
	extID, err := c.InitiateCall(context.Background(), initiateReq())
	require.NoError(t, err)
	assert.Equal(t, "EXT-77", extID)
	assert.Equal(t, observability.BreakerClosed, c.breaker.State())
}

func TestInitiateCall_ValidatesRequest(t *testing.T) {
	t.Parallel()
	c := New(testCfg("http://127.0.0.1:1"), nil)

	_, err := c.InitiateCall(context.Background(), domain.ProviderInitiateRequest{PhoneNumber: "15551234567"})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = c.InitiateCall(context.Background(), domain.ProviderInitiateRequest{CallID: "c-1"})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestInitiateCall_RejectionIsPermanent(t *testing.T) {
	t.Parallel()
	var hits atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, `{"detail":"unknown campaign"}`, http.StatusUnprocessableEntity)
	}))
	defer ts.Close()

	c := New(testCfg(ts.URL), nil)
	_, err := c.InitiateCall(context.Background(), initiateReq())
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.False(t, domain.IsRetriableTaskError(err))

	// A rejection is answered traffic: no retry, and the breaker stays closed.
	assert.Equal(t, int64(1), hits.Load())
	assert.Equal(t, observability.BreakerClosed, c.breaker.State())
	assert.Equal(t, 0, c.breaker.Failures())
}

func TestInitiateCall_RetriesUpstreamFailures(t *testing.T) {
	t.Parallel()
	var hits atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := New(testCfg(ts.URL), nil)
	_, err := c.InitiateCall(context.Background(), initiateReq())
	require.ErrorIs(t, err, domain.ErrUpstreamFailure)
	assert.True(t, domain.IsRetriableTaskError(err))
	assert.GreaterOrEqual(t, hits.Load(), int64(2))
	assert.Equal(t, 1, c.breaker.Failures())
}

func TestInitiateCall_RecoversMidRetry(t *testing.T) {
	t.Parallel()
	var hits atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "blip", http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"external_call_id": "EXT-2"})
	}))
	defer ts.Close()

	c := New(testCfg(ts.URL), nil)
	extID, err := c.InitiateCall(context.Background(), initiateReq())
	require.NoError(t, err)
	assert.Equal(t, "EXT-2", extID)
	assert.Equal(t, int64(2), hits.Load())
	assert.Equal(t, 0, c.breaker.Failures())
}

func TestInitiateCall_TimeoutMapsToUpstreamTimeout(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]any{"external_call_id": "EXT-3"})
	}))
	defer ts.Close()

	cfg := testCfg(ts.URL)
	cfg.ProviderTimeout = 30 * time.Millisecond
	c := New(cfg, nil)

	_, err := c.InitiateCall(context.Background(), initiateReq())
	require.ErrorIs(t, err, domain.ErrUpstreamTimeout)
	assert.True(t, domain.IsRetriableTaskError(err))
}

func TestInitiateCall_EmptyExternalIDFails(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer ts.Close()

	c := New(testCfg(ts.URL), nil)
	_, err := c.InitiateCall(context.Background(), initiateReq())
	require.ErrorIs(t, err, domain.ErrUpstreamFailure)
}

// stubPacer refuses every reservation with a fixed wait.
type stubPacer struct{ wait time.Duration }

func (s stubPacer) Reserve(context.Context, string, int64) (bool, time.Duration, error) {
	return false, s.wait, nil
}

func TestInitiateCall_PacedDialIsRetriable(t *testing.T) {
	t.Parallel()
	var hits atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"external_call_id": "EXT-4"})
	}))
	defer ts.Close()

	c := New(testCfg(ts.URL), stubPacer{wait: 500 * time.Millisecond})
	_, err := c.InitiateCall(context.Background(), initiateReq())
	require.ErrorIs(t, err, domain.ErrUpstreamFailure)
	assert.True(t, domain.IsRetriableTaskError(err))
	assert.Equal(t, int64(0), hits.Load(), "a paced dial must not reach the provider")
	assert.Equal(t, 0, c.breaker.Failures(), "pacing is not a provider failure")
}

func TestInitiateCall_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	t.Parallel()
	var hits atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	cfg := testCfg(ts.URL)
	cfg.ProviderBackoffMaxElapsed = 15 * time.Millisecond
	cfg.ProviderBackoffInitialInterval = 5 * time.Millisecond
	c := New(cfg, nil)

	for i := 0; i < 5; i++ {
		_, err := c.InitiateCall(context.Background(), initiateReq())
		require.ErrorIs(t, err, domain.ErrUpstreamFailure)
	}
	require.Equal(t, observability.BreakerOpen, c.breaker.State())

	before := hits.Load()
	_, err := c.InitiateCall(context.Background(), initiateReq())
	require.ErrorIs(t, err, domain.ErrUpstreamFailure)
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, before, hits.Load(), "open breaker must not dial out")
}
