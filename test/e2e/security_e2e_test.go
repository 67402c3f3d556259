//go:build e2e
// +build e2e

package e2e_test

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawGet issues a request without the helper's auth header so the suite can
// observe what an unauthenticated caller sees.
func rawGet(t *testing.T, client *http.Client, path string, header map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func TestE2E_Security_TokenRequired(t *testing.T) {
	t.Parallel()
	client := newClient()
	skipUnlessUp(t, client)

	resp := rawGet(t, client, "/campaigns", nil)
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusOK {
		t.Skip("auth disabled in this deployment; skipping token checks")
	}
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "error envelope missing: %v", body)
	assert.Equal(t, "unauthorized", errObj["code"])

	resp2 := rawGet(t, client, "/campaigns", map[string]string{"X-Auth-Token": "definitely-wrong"})
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestE2E_Security_OpenEndpoints(t *testing.T) {
	t.Parallel()
	client := newClient()
	skipUnlessUp(t, client)

	resp := rawGet(t, client, "/healthz", nil)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Readiness may report 503 when a dependency is down; it must never
	// demand credentials.
	ready := rawGet(t, client, "/readyz", nil)
	defer func() { _ = ready.Body.Close() }()
	assert.NotEqual(t, http.StatusUnauthorized, ready.StatusCode)

	docs := rawGet(t, client, "/openapi.yaml", nil)
	defer func() { _ = docs.Body.Close() }()
	assert.Equal(t, http.StatusOK, docs.StatusCode)
	spec, err := io.ReadAll(docs.Body)
	require.NoError(t, err)
	assert.Contains(t, string(spec), "openapi:")
}

func TestE2E_Security_ResponseHeaders(t *testing.T) {
	t.Parallel()
	client := newClient()
	skipUnlessUp(t, client)

	resp := rawGet(t, client, "/healthz", nil)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'none'", resp.Header.Get("Content-Security-Policy"))
	assert.Equal(t, "no-referrer", resp.Header.Get("Referrer-Policy"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestE2E_Security_AdminGuarded(t *testing.T) {
	t.Parallel()
	client := newClient()
	skipUnlessUp(t, client)

	// Unmounted without configured credentials (404), challenged otherwise.
	resp := rawGet(t, client, "/admin/dlq", nil)
	defer func() { _ = resp.Body.Close() }()
	require.Contains(t, []int{http.StatusNotFound, http.StatusUnauthorized}, resp.StatusCode)
	if resp.StatusCode == http.StatusUnauthorized {
		assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "Basic")
	}
}
