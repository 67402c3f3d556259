package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
)

// MountAdmin mounts the operator surface under /admin. These routes sit
// outside the X-Auth-Token middleware and are guarded by HTTP Basic instead;
// without admin credentials in the environment nothing is mounted.
func (s *Server) MountAdmin(r chi.Router) {
	if !s.Cfg.AdminEnabled() {
		return
	}
	r.Route("/admin", func(ar chi.Router) {
		ar.Use(AdminBasicAuth(s.Cfg))
		ar.Get("/dlq", s.AdminDLQListHandler())
		ar.Post("/dlq/reprocess", s.AdminDLQReprocessHandler())
		ar.Get("/queues", s.AdminQueuesHandler())
	})
}

type deadLetterDTO struct {
	ID          int64           `json:"id"`
	Topic       string          `json:"topic"`
	Payload     json.RawMessage `json:"payload"`
	Error       string          `json:"error"`
	RetryCount  int             `json:"retry_count"`
	Processed   bool            `json:"processed"`
	CreatedAt   time.Time       `json:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	LastRetryAt *time.Time      `json:"last_retry_at,omitempty"`
}

// AdminDLQListHandler handles GET /admin/dlq. The optional limit query
// bounds the page; the service default applies otherwise.
func (s *Server) AdminDLQListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeError(w, r, fmt.Errorf("%w: limit must be a positive integer", domain.ErrInvalidArgument), nil)
				return
			}
			limit = n
		}
		items, err := s.DLQ.List(r.Context(), limit)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]deadLetterDTO, 0, len(items))
		for _, d := range items {
			out = append(out, deadLetterDTO{
				ID:          d.ID,
				Topic:       d.Topic,
				Payload:     d.Payload,
				Error:       d.Error,
				RetryCount:  d.RetryCount,
				Processed:   d.Processed,
				CreatedAt:   d.CreatedAt,
				ProcessedAt: d.ProcessedAt,
				LastRetryAt: d.LastRetryAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"entries": out, "count": len(out)})
	}
}

// AdminDLQReprocessHandler handles POST /admin/dlq/reprocess: one manual
// replay pass over the unprocessed dead letters.
func (s *Server) AdminDLQReprocessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.DLQ.Reprocess(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{
			"scanned":  stats.Scanned,
			"requeued": stats.Requeued,
			"failed":   stats.Failed,
		})
	}
}

// AdminQueuesHandler handles GET /admin/queues: pending-queue depth per
// active campaign.
func (s *Server) AdminQueuesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		depths, err := s.Metrics.QueueDepths(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		type queueDTO struct {
			CampaignID   int64  `json:"campaign_id"`
			CampaignName string `json:"campaign_name"`
			Size         int64  `json:"size"`
		}
		out := make([]queueDTO, 0, len(depths))
		for _, q := range depths {
			out = append(out, queueDTO{CampaignID: q.CampaignID, CampaignName: q.CampaignName, Size: q.Size})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"queues": out})
	}
}
