package httpserver

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/config"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
	"github.com/fairyhunter13/call-campaign-orchestrator/internal/usecase"
)

// maxBodyBytes caps JSON request bodies; maxImportBytes caps CSV uploads.
const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 10 << 20
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg       config.Config
	Campaigns usecase.CampaignService
	Admission usecase.AdmissionService
	Lifecycle usecase.LifecycleService
	Metrics   usecase.MetricsService
	DLQ       usecase.DLQService
	Bus       domain.TaskBus

	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
	KafkaCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, campaigns usecase.CampaignService, admission usecase.AdmissionService, lifecycle usecase.LifecycleService, metrics usecase.MetricsService, dlq usecase.DLQService, bus domain.TaskBus, dbCheck, redisCheck, kafkaCheck func(context.Context) error) *Server {
	return &Server{
		Cfg:        cfg,
		Campaigns:  campaigns,
		Admission:  admission,
		Lifecycle:  lifecycle,
		Metrics:    metrics,
		DLQ:        dlq,
		Bus:        bus,
		DBCheck:    dbCheck,
		RedisCheck: redisCheck,
		KafkaCheck: kafkaCheck,
	}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// acceptsJSON rejects requests whose Accept header excludes JSON; every
// endpoint here answers JSON only.
func acceptsJSON(w http.ResponseWriter, r *http.Request) bool {
	a := r.Header.Get("Accept")
	if a == "" || strings.Contains(a, "*/*") || strings.Contains(a, "application/json") {
		return true
	}
	writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{
		Code: "bad_request", Message: "not acceptable", Details: map[string]string{"accept": a},
	}})
	return false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument)
	}
	return nil
}

func validationDetails(err error) map[string]string {
	verrs := map[string]string{}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			verrs[strings.ToLower(fe.Field())] = fe.Tag()
		}
	}
	return verrs
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidArgument, name)
	}
	return id, nil
}

// Wire shapes. Domain entities carry no JSON tags, so every endpoint maps
// through an explicit DTO.

type campaignDTO struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toCampaignDTO(c domain.Campaign) campaignDTO {
	return campaignDTO{ID: c.ID, Name: c.Name, Description: c.Description, IsActive: c.Active, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

type phoneNumberDTO struct {
	ID         int64     `json:"id"`
	CampaignID int64     `json:"campaign_id"`
	Number     string    `json:"number"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

type campaignDetailDTO struct {
	campaignDTO
	PhoneNumbers []phoneNumberDTO `json:"phone_numbers"`
	PhoneCount   int              `json:"phone_count"`
}

type callRecordDTO struct {
	CallID         string     `json:"call_id"`
	CampaignID     int64      `json:"campaign_id"`
	PhoneNumber    string     `json:"phone_number"`
	Status         string     `json:"status"`
	AttemptCount   int        `json:"attempt_count"`
	MaxAttempts    int        `json:"max_attempts"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
	NextRetryAt    *time.Time `json:"next_retry_at,omitempty"`
	CallSeconds    *int       `json:"total_call_seconds,omitempty"`
	ExternalCallID *string    `json:"external_call_id,omitempty"`
	Error          *string    `json:"error_message,omitempty"`
}

func toCallRecordDTO(rec domain.CallRecord) callRecordDTO {
	return callRecordDTO{
		CallID:         rec.CallID,
		CampaignID:     rec.CampaignID,
		PhoneNumber:    rec.PhoneNumber,
		Status:         string(rec.Status),
		AttemptCount:   rec.AttemptCount,
		MaxAttempts:    rec.MaxAttempts,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
		LastAttemptAt:  rec.LastAttemptAt,
		NextRetryAt:    rec.NextRetryAt,
		CallSeconds:    rec.CallSeconds,
		ExternalCallID: rec.ExternalCallID,
		Error:          rec.Error,
	}
}

type addNumbersResponse struct {
	CreatedCount   int      `json:"created_count"`
	CreatedNumbers []string `json:"created_numbers"`
	Errors         []string `json:"errors"`
}

func toAddNumbersResponse(res usecase.AddNumbersResult) addNumbersResponse {
	out := addNumbersResponse{CreatedCount: res.CreatedCount, CreatedNumbers: res.CreatedNumbers, Errors: res.Errors}
	if out.CreatedNumbers == nil {
		out.CreatedNumbers = []string{}
	}
	if out.Errors == nil {
		out.Errors = []string{}
	}
	return out
}

type queueInfoDTO struct {
	CampaignID   int64 `json:"campaign_id"`
	TotalInQueue int64 `json:"total_in_queue"`
}

type bulkInitiateResponse struct {
	BatchID            string       `json:"batch_id"`
	TotalRequested     int          `json:"total_requested"`
	ImmediateProcessed int          `json:"immediate_processed"`
	QueuedForLater     int          `json:"queued_for_later"`
	Failed             int          `json:"failed"`
	CallIDs            []string     `json:"call_ids"`
	Errors             []string     `json:"errors"`
	QueueInfo          queueInfoDTO `json:"queue_info"`
}

type dailyMetricsDTO struct {
	Date                     string `json:"date"`
	TotalCallsInitiated      int64  `json:"total_calls_initiated"`
	TotalCallsPicked         int64  `json:"total_calls_picked"`
	TotalCallsDisconnected   int64  `json:"total_calls_disconnected"`
	TotalCallsRNR            int64  `json:"total_calls_rnr"`
	TotalCallsFailed         int64  `json:"total_calls_failed"`
	TotalRetries             int64  `json:"total_retries"`
	PeakConcurrentCalls      int64  `json:"peak_concurrent_calls"`
	TotalCallDurationSeconds int64  `json:"total_call_duration_seconds"`
	DLQEntriesCreated        int64  `json:"dlq_entries_created"`
}

func toDailyMetricsDTO(m domain.DailyMetrics) dailyMetricsDTO {
	return dailyMetricsDTO{
		Date:                     m.Date.Format("2006-01-02"),
		TotalCallsInitiated:      m.CallsInitiated,
		TotalCallsPicked:         m.CallsPicked,
		TotalCallsDisconnected:   m.CallsDisconnected,
		TotalCallsRNR:            m.CallsRNR,
		TotalCallsFailed:         m.CallsFailed,
		TotalRetries:             m.Retries,
		PeakConcurrentCalls:      m.PeakConcurrentCalls,
		TotalCallDurationSeconds: m.TotalCallDurationSec,
		DLQEntriesCreated:        m.DLQEntries,
	}
}

// CreateCampaignHandler handles POST /campaigns.
func (s *Server) CreateCampaignHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		var req struct {
			Name        string `json:"name" validate:"required,max=255"`
			Description string `json:"description" validate:"max=2000"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), validationDetails(err))
			return
		}
		c, err := s.Campaigns.Create(r.Context(), req.Name, req.Description)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, toCampaignDTO(c))
	}
}

// ListCampaignsHandler handles GET /campaigns.
func (s *Server) ListCampaignsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.Campaigns.List(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]campaignDTO, 0, len(list))
		for _, c := range list {
			out = append(out, toCampaignDTO(c))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GetCampaignHandler handles GET /campaigns/{id}. The detail view includes
// the campaign's active numbers.
func (s *Server) GetCampaignHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		c, err := s.Campaigns.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeAPIError(w, http.StatusNotFound, "not_found", "Campaign not found", nil)
				return
			}
			writeError(w, r, err, nil)
			return
		}
		nums, err := s.Campaigns.ListNumbers(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		detail := campaignDetailDTO{campaignDTO: toCampaignDTO(c), PhoneNumbers: make([]phoneNumberDTO, 0, len(nums)), PhoneCount: len(nums)}
		for _, p := range nums {
			detail.PhoneNumbers = append(detail.PhoneNumbers, phoneNumberDTO{ID: p.ID, CampaignID: p.CampaignID, Number: p.Number, IsActive: p.Active, CreatedAt: p.CreatedAt})
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

// AddPhoneNumbersHandler handles POST /phone-numbers.
func (s *Server) AddPhoneNumbersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		var req struct {
			CampaignID   int64    `json:"campaign_id" validate:"required,gt=0"`
			PhoneNumbers []string `json:"phone_numbers" validate:"required,min=1"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: campaign_id and phone_numbers are required", domain.ErrInvalidArgument), validationDetails(err))
			return
		}
		res, err := s.Campaigns.AddNumbers(r.Context(), req.CampaignID, req.PhoneNumbers)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeAPIError(w, http.StatusNotFound, "not_found", "Campaign not found", nil)
				return
			}
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, toAddNumbersResponse(res))
	}
}

// ImportPhoneNumbersHandler handles POST /phone-numbers/import: a multipart
// CSV upload with one number per row. The content is sniffed, not trusted
// from the filename.
func (s *Server) ImportPhoneNumbersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "too large") {
				writeAPIError(w, http.StatusRequestEntityTooLarge, "bad_request", "payload too large", map[string]int64{"max_bytes": maxImportBytes})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		campaignID, err := strconv.ParseInt(r.FormValue("campaign_id"), 10, 64)
		if err != nil || campaignID <= 0 {
			writeError(w, r, fmt.Errorf("%w: campaign_id must be a positive integer", domain.ErrInvalidArgument), nil)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: file is required", domain.ErrInvalidArgument), map[string]string{"field": "file"})
			return
		}
		defer func() { _ = file.Close() }()
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: file read: %v", domain.ErrInvalidArgument, err), nil)
			return
		}

		// Headerless CSVs sniff as text/plain, so both are accepted.
		mt := mimetype.Detect(data)
		if !mt.Is("text/csv") && !mt.Is("text/plain") {
			writeAPIError(w, http.StatusUnsupportedMediaType, "bad_request", "file must be CSV", map[string]string{"mime": mt.String(), "filename": header.Filename})
			return
		}
		numbers, err := numbersFromCSV(data)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		if len(numbers) == 0 {
			writeError(w, r, fmt.Errorf("%w: file contains no phone numbers", domain.ErrInvalidArgument), nil)
			return
		}
		res, err := s.Campaigns.AddNumbers(r.Context(), campaignID, numbers)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeAPIError(w, http.StatusNotFound, "not_found", "Campaign not found", nil)
				return
			}
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, toAddNumbersResponse(res))
	}
}

// numbersFromCSV takes the first column of every row. A leading header row
// named number/phone_number/phone/msisdn is skipped.
func numbersFromCSV(data []byte) ([]string, error) {
	rd := csv.NewReader(strings.NewReader(string(data)))
	rd.FieldsPerRecord = -1
	rows, err := rd.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv parse: %v", err)
	}
	out := make([]string, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(row[0])
		if v == "" {
			continue
		}
		if i == 0 {
			switch strings.ToLower(v) {
			case "number", "phone_number", "phone", "msisdn":
				continue
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// InitiateCallHandler handles POST /initiate-call. A call deflected to the
// pending queue still answers 201 with its record; the client cannot tell
// queued from immediate.
func (s *Server) InitiateCallHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		var req struct {
			CampaignID  int64  `json:"campaign_id" validate:"required,gt=0"`
			PhoneNumber string `json:"phone_number" validate:"required"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: campaign_id and phone_number are required", domain.ErrInvalidArgument), validationDetails(err))
			return
		}
		rec, _, err := s.Admission.InitiateCall(r.Context(), req.CampaignID, req.PhoneNumber)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrDuplicateCall):
				// The message echoes the number as the client submitted it.
				writeAPIError(w, http.StatusTooManyRequests, "too_many_requests", fmt.Sprintf("Call to %s already in progress", req.PhoneNumber), nil)
			case errors.Is(err, domain.ErrNotFound):
				writeAPIError(w, http.StatusNotFound, "not_found", "Campaign not found or inactive", nil)
			default:
				writeError(w, r, err, nil)
			}
			return
		}
		writeJSON(w, http.StatusCreated, toCallRecordDTO(rec))
	}
}

// BulkInitiateCallsHandler handles POST /bulk-initiate-calls. The body names
// numbers explicitly or asks for the campaign's stored list.
func (s *Server) BulkInitiateCallsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		var req struct {
			CampaignID         int64    `json:"campaign_id" validate:"required,gt=0"`
			PhoneNumbers       []string `json:"phone_numbers"`
			UseCampaignNumbers bool     `json:"use_campaign_numbers"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: campaign_id is required", domain.ErrInvalidArgument), validationDetails(err))
			return
		}
		if !req.UseCampaignNumbers && len(req.PhoneNumbers) == 0 {
			writeError(w, r, fmt.Errorf("%w: phone_numbers or use_campaign_numbers is required", domain.ErrInvalidArgument), nil)
			return
		}
		res, err := s.Admission.BulkInitiate(r.Context(), req.CampaignID, req.PhoneNumbers, req.UseCampaignNumbers)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeAPIError(w, http.StatusNotFound, "not_found", "Campaign not found or inactive", nil)
				return
			}
			writeError(w, r, err, nil)
			return
		}
		out := bulkInitiateResponse{
			BatchID:            res.BatchID,
			TotalRequested:     res.TotalRequested,
			ImmediateProcessed: res.ImmediateProcessed,
			QueuedForLater:     res.QueuedForLater,
			Failed:             res.Failed,
			CallIDs:            res.CallIDs,
			Errors:             res.Errors,
			QueueInfo:          queueInfoDTO{CampaignID: req.CampaignID, TotalInQueue: res.TotalInQueue},
		}
		if out.CallIDs == nil {
			out.CallIDs = []string{}
		}
		if out.Errors == nil {
			out.Errors = []string{}
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

// CallbackHandler handles PUT /callback: the provider reports a call
// outcome. The apply is synchronous so redeliveries observe the row in
// arrival order; storage trouble answers 503 and the provider redelivers.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		var req struct {
			CallID         string  `json:"call_id"`
			Status         string  `json:"status"`
			CallDuration   *int    `json:"call_duration"`
			ExternalCallID *string `json:"external_call_id"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		if req.CallID == "" || strings.TrimSpace(req.Status) == "" {
			writeAPIError(w, http.StatusBadRequest, "bad_request", "call_id and status are required", nil)
			return
		}
		status := domain.CallStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
		if !domain.CallbackStatuses[status] {
			writeAPIError(w, http.StatusBadRequest, "bad_request", "Invalid status. Must be one of: PICKED, DISCONNECTED, RNR, FAILED", map[string]string{"status": req.Status})
			return
		}
		rec, err := s.Lifecycle.ApplyCallback(r.Context(), domain.CallbackTaskPayload{
			CallID:         req.CallID,
			Status:         status,
			CallDuration:   req.CallDuration,
			ExternalCallID: req.ExternalCallID,
		})
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				writeAPIError(w, http.StatusNotFound, "not_found", "Call not found", nil)
			case errors.Is(err, domain.ErrInvalidArgument):
				writeError(w, r, err, nil)
			default:
				writeError(w, r, fmt.Errorf("%w: apply callback: %v", domain.ErrServiceUnavailable, err), nil)
			}
			return
		}
		s.Lifecycle.CountCallbackStatus(r.Context(), status)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"call_id": rec.CallID,
			"status":  string(status),
		})
	}
}

// ExternalCallbackHandler handles POST /external-callback: the raw provider
// body is accepted as-is and parsed on the bus, so a slow store cannot make
// the provider time out.
func (s *Server) ExternalCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: body read: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		var peek struct {
			CallID string `json:"call_id"`
		}
		if err := json.Unmarshal(body, &peek); err != nil {
			writeError(w, r, fmt.Errorf("%w: body must be JSON", domain.ErrInvalidArgument), nil)
			return
		}
		if peek.CallID == "" {
			writeError(w, r, fmt.Errorf("%w: call_id is required", domain.ErrInvalidArgument), nil)
			return
		}
		taskID, err := s.Bus.EnqueueExternalCallback(r.Context(), domain.ExternalCallbackPayload{CallID: peek.CallID, Body: body})
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: task bus: %v", domain.ErrServiceUnavailable, err), nil)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"call_id": peek.CallID, "task_id": taskID})
	}
}

// MetricsOverviewHandler handles GET /metrics: live concurrency plus the
// last week of daily rollups.
func (s *Server) MetricsOverviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ov := s.Metrics.Overview(r.Context())
		recent := make([]dailyMetricsDTO, 0, len(ov.Recent))
		for _, m := range ov.Recent {
			recent = append(recent, toDailyMetricsDTO(m))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"current_concurrent_calls": ov.CurrentConcurrentCalls,
			"max_concurrent_calls":     ov.MaxConcurrentCalls,
			"recent_metrics":           recent,
			"system_status":            ov.SystemStatus,
		})
	}
}

// HealthzHandler reports process liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler probes Postgres, Redis and the event broker.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 3)
		run := func(name string, fn func(context.Context) error) {
			if fn == nil {
				return
			}
			if err := fn(ctx); err != nil {
				checks = append(checks, check{Name: name, OK: false, Details: err.Error()})
				return
			}
			checks = append(checks, check{Name: name, OK: true})
		}
		run("db", s.DBCheck)
		run("redis", s.RedisCheck)
		run("kafka", s.KafkaCheck)
		ok := true
		for _, c := range checks {
			if !c.OK {
				ok = false
				break
			}
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]interface{}{"checks": checks})
	}
}

// OpenAPIServe serves api/openapi.yaml if present.
func (s *Server) OpenAPIServe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := os.ReadFile("api/openapi.yaml")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}
}
