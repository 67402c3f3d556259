package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total number of outbound provider requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Provider request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)

	TasksEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasks_enqueued_total",
			Help: "Total number of tasks enqueued",
		},
		[]string{"type"},
	)
	TasksProcessing = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tasks_processing",
			Help: "Number of tasks currently processing",
		},
		[]string{"type"},
	)
	TasksCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasks_completed_total",
			Help: "Total number of tasks completed",
		},
		[]string{"type"},
	)
	TasksFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasks_failed_total",
			Help: "Total number of tasks that exhausted their retries or were rejected",
		},
		[]string{"type"},
	)
	TasksRetriedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasks_retried_total",
			Help: "Total number of task attempts handed back for redelivery",
		},
		[]string{"type"},
	)

	AdmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_admissions_total",
			Help: "Total number of admission decisions by verdict",
		},
		[]string{"verdict"},
	)
	CallOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_outcomes_total",
			Help: "Total number of call lifecycle outcomes by status",
		},
		[]string{"status"},
	)
	ActiveCalls = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_calls",
			Help: "Calls currently holding a concurrency slot",
		},
	)
	PendingQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pending_queue_depth",
			Help: "Numbers waiting in the per-campaign pending queue",
		},
		[]string{"campaign_id"},
	)
	CallDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "call_duration_seconds",
			Help:    "Distribution of completed call durations in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)
	DeadLettersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dead_letters_total",
			Help: "Total number of dead-letter rows written by topic",
		},
		[]string{"topic"},
	)
	CircuitBreakerStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name", "operation"},
	)
	AnswerRateDrift = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "answer_rate_drift",
			Help: "Absolute drift of the rolling answer rate from its baseline",
		},
		[]string{"campaign_id"},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderRequestDuration)
	prometheus.MustRegister(TasksEnqueuedTotal)
	prometheus.MustRegister(TasksProcessing)
	prometheus.MustRegister(TasksCompletedTotal)
	prometheus.MustRegister(TasksFailedTotal)
	prometheus.MustRegister(TasksRetriedTotal)
	prometheus.MustRegister(AdmissionsTotal)
	prometheus.MustRegister(CallOutcomesTotal)
	prometheus.MustRegister(ActiveCalls)
	prometheus.MustRegister(PendingQueueDepth)
	prometheus.MustRegister(CallDurationSeconds)
	prometheus.MustRegister(DeadLettersTotal)
	prometheus.MustRegister(CircuitBreakerStatus)
	prometheus.MustRegister(AnswerRateDrift)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			// fallback when route pattern is unavailable
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

func EnqueueTask(taskType string) {
	TasksEnqueuedTotal.WithLabelValues(taskType).Inc()
}

func StartProcessingTask(taskType string) {
	TasksProcessing.WithLabelValues(taskType).Inc()
}

func CompleteTask(taskType string) {
	TasksProcessing.WithLabelValues(taskType).Dec()
	TasksCompletedTotal.WithLabelValues(taskType).Inc()
}

func FailTask(taskType string) {
	TasksProcessing.WithLabelValues(taskType).Dec()
	TasksFailedTotal.WithLabelValues(taskType).Inc()
}

// RetryTask marks one attempt as handed back to the bus for redelivery.
func RetryTask(taskType string) {
	TasksProcessing.WithLabelValues(taskType).Dec()
	TasksRetriedTotal.WithLabelValues(taskType).Inc()
}

func ObserveAdmission(verdict string) {
	AdmissionsTotal.WithLabelValues(verdict).Inc()
}

func ObserveCallOutcome(status string) {
	CallOutcomesTotal.WithLabelValues(status).Inc()
}

func SetActiveCalls(n int64) {
	ActiveCalls.Set(float64(n))
}

func SetQueueDepth(campaignID, n int64) {
	PendingQueueDepth.WithLabelValues(strconv.FormatInt(campaignID, 10)).Set(float64(n))
}

func ObserveCallDuration(seconds int) {
	if seconds >= 0 {
		CallDurationSeconds.Observe(float64(seconds))
	}
}

func DeadLetterWritten(topic string) {
	DeadLettersTotal.WithLabelValues(topic).Inc()
}

func RecordCircuitBreakerStatus(name, operation string, state int) {
	CircuitBreakerStatus.WithLabelValues(name, operation).Set(float64(state))
}

func RecordAnswerRateDrift(campaignID string, drift float64) {
	AnswerRateDrift.WithLabelValues(campaignID).Set(drift)
}

