// Package provider implements the outbound telephony client.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"log/slog"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/adapter/observability"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/config"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

const initiatePath = "/api/initiate-call"

// DialBudgetKey names the shared dial budget across all campaigns and
// replicas. Startup registers the calls-per-minute budget under this key.
const DialBudgetKey = "provider:initiate"

// DialPacer meters outbound dials against the provider's calls-per-minute
// ceiling. A denial is transient: the task queue redials after the hint.
type DialPacer interface {
	Reserve(ctx context.Context, key string, cost int64) (bool, time.Duration, error)
}

// Client implements domain.ProviderClient against the external call service.
type Client struct {
	cfg     config.Config
	hc      *http.Client
	breaker *observability.Breaker
	pacer   DialPacer
}

// New constructs a provider client with the configured request timeout.
// pacer may be nil; dials are then unmetered.
func New(cfg config.Config, pacer DialPacer) *Client {
	return &Client{
		cfg: cfg,
		hc: &http.Client{
			Timeout:   cfg.ProviderTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: observability.NewBreaker("provider", "initiate_call", 5, 30*time.Second),
		pacer:   pacer,
	}
}

// getBackoffConfig returns a configured ExponentialBackOff for in-attempt retries.
func (c *Client) getBackoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()

	maxElapsed, initial, maxInterval, multiplier := c.cfg.GetProviderBackoff()
	expo.MaxElapsedTime = maxElapsed
	expo.InitialInterval = initial
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier

	return expo
}

// InitiateCall posts the dial request to the provider and returns its call id.
//
// Transient failures (5xx, network errors, timeouts) are retried in-attempt
// with exponential backoff and feed the circuit breaker; the returned error
// stays retriable so the task queue redelivers past MaxElapsedTime. A 4xx is
// the caller's fault: it neither retries nor trips the breaker, and maps to
// domain.ErrInvalidArgument so the record fails terminally.
func (c *Client) InitiateCall(ctx domain.Context, req domain.ProviderInitiateRequest) (string, error) {
	if req.CallID == "" || req.PhoneNumber == "" {
		return "", fmt.Errorf("%w: call_id and phone_number required", domain.ErrInvalidArgument)
	}
	if err := c.breaker.Allow(); err != nil {
		slog.Warn("provider circuit open, refusing dial",
			slog.String("call_id", req.CallID),
			slog.Int64("campaign_id", req.CampaignID))
		return "", fmt.Errorf("%w: provider circuit open", domain.ErrUpstreamFailure)
	}
	if c.pacer != nil {
		ok, wait, perr := c.pacer.Reserve(ctx, DialBudgetKey, 1)
		if perr == nil && !ok {
			observability.ProviderRequestsTotal.WithLabelValues("initiate_call", "paced").Inc()
			slog.Info("provider dial paced",
				slog.String("call_id", req.CallID),
				slog.Duration("retry_after", wait))
			return "", fmt.Errorf("%w: dial budget exhausted, retry in %s", domain.ErrUpstreamFailure, wait.Round(time.Millisecond))
		}
	}

	b, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal initiate request: %w", err)
	}
	endpoint := c.cfg.ProviderBaseURL + initiatePath

	var out struct {
		ExternalCallID string `json:"external_call_id"`
	}
	op := func() error {
		start := time.Now()
		// Recreate the request each attempt to avoid reusing a consumed body.
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Content-Type", "application/json")
		resp, err := c.hc.Do(r)
		observability.ProviderRequestDuration.WithLabelValues("initiate_call").Observe(time.Since(start).Seconds())
		if err != nil {
			observability.ProviderRequestsTotal.WithLabelValues("initiate_call", "error").Inc()
			slog.Warn("provider request failed",
				slog.String("call_id", req.CallID),
				slog.String("endpoint", endpoint),
				slog.Any("error", err))
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			observability.ProviderRequestsTotal.WithLabelValues("initiate_call", "error").Inc()
			return err
		}

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// Client error: non-retryable, the request itself is bad.
			observability.ProviderRequestsTotal.WithLabelValues("initiate_call", "rejected").Inc()
			bodySnippet := string(bodyBytes)
			if len(bodySnippet) > 512 {
				bodySnippet = bodySnippet[:512]
			}
			slog.Warn("provider rejected initiate",
				slog.String("call_id", req.CallID),
				slog.Int("status", resp.StatusCode),
				slog.String("body", bodySnippet))
			return backoff.Permanent(fmt.Errorf("%w: provider status %d", domain.ErrInvalidArgument, resp.StatusCode))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// 5xx and others: retryable.
			observability.ProviderRequestsTotal.WithLabelValues("initiate_call", "upstream_error").Inc()
			slog.Error("provider non-2xx",
				slog.String("call_id", req.CallID),
				slog.Int("status", resp.StatusCode),
				slog.String("endpoint", endpoint))
			return fmt.Errorf("provider status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(bodyBytes, &out); err != nil {
			observability.ProviderRequestsTotal.WithLabelValues("initiate_call", "error").Inc()
			slog.Error("provider decode error",
				slog.String("call_id", req.CallID),
				slog.Any("error", err))
			return err
		}
		observability.ProviderRequestsTotal.WithLabelValues("initiate_call", "success").Inc()
		return nil
	}

	bo := backoff.WithContext(c.getBackoffConfig(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return "", c.classify(req.CallID, err)
	}
	if out.ExternalCallID == "" {
		c.breaker.Failure()
		return "", fmt.Errorf("%w: provider returned no external_call_id", domain.ErrUpstreamFailure)
	}

	c.breaker.Success()
	slog.Info("provider accepted call",
		slog.String("call_id", req.CallID),
		slog.String("external_call_id", out.ExternalCallID),
		slog.Int64("campaign_id", req.CampaignID))
	return out.ExternalCallID, nil
}

// classify maps a post-retry failure onto the domain error taxonomy and
// settles the breaker. Rejections count as breaker successes: the provider
// answered, the request was just bad.
func (c *Client) classify(callID string, err error) error {
	if errors.Is(err, domain.ErrInvalidArgument) {
		c.breaker.Success()
		return err
	}
	c.breaker.Failure()
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		slog.Error("provider timed out after retries", slog.String("call_id", callID), slog.Any("error", err))
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	slog.Error("provider failed after retries", slog.String("call_id", callID), slog.Any("error", err))
	return fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
}
