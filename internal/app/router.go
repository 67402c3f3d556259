package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	httpserver "github.com/fairyhunter13/call-campaign-orchestrator/internal/adapter/httpserver"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/adapter/observability"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming
// spaces. An empty input means any origin.
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler: instrumentation middleware, the
// open health and docs endpoints, the Basic-auth admin surface, and the
// token-guarded API. Prometheus scraping is not served here; it lives on
// the internal metrics listener.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(30 * time.Second))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Liveness, readiness and docs stay reachable without credentials.
	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Get("/openapi.yaml", srv.OpenAPIServe())

	// Operator surface; guards itself with Basic auth and mounts nothing
	// when no admin credentials are configured.
	srv.MountAdmin(r)

	r.Group(func(api chi.Router) {
		api.Use(httpserver.TokenAuth(cfg))

		api.Get("/campaigns", srv.ListCampaignsHandler())
		api.Get("/campaigns/{id}", srv.GetCampaignHandler())
		api.Get("/metrics", srv.MetricsOverviewHandler())

		// Mutating endpoints carry the per-IP rate limit; the provider
		// callback shares it, so the default leaves headroom over the
		// expected callback rate.
		api.Group(func(mut chi.Router) {
			mut.Use(httpserver.RateLimit(cfg.RateLimitPerMin))
			mut.Post("/campaigns", srv.CreateCampaignHandler())
			mut.Post("/phone-numbers", srv.AddPhoneNumbersHandler())
			mut.Post("/phone-numbers/import", srv.ImportPhoneNumbersHandler())
			mut.Post("/initiate-call", srv.InitiateCallHandler())
			mut.Post("/bulk-initiate-calls", srv.BulkInitiateCallsHandler())
			mut.Put("/callback", srv.CallbackHandler())
			mut.Post("/external-callback", srv.ExternalCallbackHandler())
		})
	})

	return httpserver.SecurityHeaders(r)
}
