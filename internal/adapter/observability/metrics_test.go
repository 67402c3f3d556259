package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPMetricsMiddleware_Basic(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	mw := HTTPMetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(204) }))
	mw.ServeHTTP(rec, r)
	if rec.Result().StatusCode != 204 {
		t.Fatalf("want 204")
	}
}

func TestTaskMetricsHelpers(t *testing.T) {
	InitMetrics()
	EnqueueTask("call:initiate")
	StartProcessingTask("call:initiate")
	CompleteTask("call:initiate")
	FailTask("call:initiate")
	ObserveAdmission("ok")
	ObserveCallOutcome("COMPLETED")
	SetActiveCalls(3)
	SetQueueDepth(1, 12)
	ObserveCallDuration(45)
	DeadLetterWritten("call_initiation")
	RecordCircuitBreakerStatus("provider", "initiate_call", 1)
	RecordAnswerRateDrift("7", 0.25)
}
