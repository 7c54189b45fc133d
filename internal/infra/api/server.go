package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/model"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/infra/logging"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/infra/redis"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/usecase"
)

// Server exposes the job and batch lifecycle over HTTP.
type Server struct {
	jobs    usecase.JobUseCase
	batches usecase.BatchUseCase
	runner  usecase.GenerationRunner
	events  *usecase.Broadcaster
	limiter *redis.RateLimiter

	submitLimit int // submissions per owner per minute, 0 disables
	log         *zerolog.Logger
}

func NewServer(
	jobs usecase.JobUseCase,
	batches usecase.BatchUseCase,
	runner usecase.GenerationRunner,
	events *usecase.Broadcaster,
	limiter *redis.RateLimiter,
	submitLimit int,
	log *zerolog.Logger,
) *Server {
	return &Server{
		jobs:        jobs,
		batches:     batches,
		runner:      runner,
		events:      events,
		limiter:     limiter,
		submitLimit: submitLimit,
		log:         log,
	}
}

// Handler builds the full route tree including middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Owner())

		r.With(Timeout(10 * time.Second)).Post("/jobs", s.handleCreateJob)
		r.With(Timeout(5 * time.Second)).Get("/jobs/{id}", s.handleGetJob)
		r.With(Timeout(5 * time.Second)).Post("/jobs/{id}/cancel", s.handleCancelJob)

		r.With(Timeout(15 * time.Second)).Post("/batches", s.handleCreateBatch)
		r.With(Timeout(5 * time.Second)).Get("/batches/{id}", s.handleGetBatch)
		r.With(Timeout(5 * time.Second)).Get("/batches", s.handleListBatches)

		r.Get("/events", s.handleEvents)
	})
	return r
}

type generationItem struct {
	Keyword           string `json:"keyword"`
	TargetWords       int    `json:"target_words"`
	Tone              string `json:"tone"`
	Industry          string `json:"industry"`
	EnableLinks       bool   `json:"enable_links"`
	ForceRefreshLinks bool   `json:"force_refresh_links"`
}

func (g generationItem) toRequest() model.GenerationRequest {
	return model.GenerationRequest{
		Keyword:            g.Keyword,
		TargetWords:        g.TargetWords,
		Tone:               g.Tone,
		Industry:           g.Industry,
		EnableAugmentation: g.EnableLinks,
		ForceRefreshLinks:  g.ForceRefreshLinks,
	}
}

type createBatchBody struct {
	Name  string           `json:"name"`
	Items []generationItem `json:"items"`
}

type jobView struct {
	ID        string                  `json:"id"`
	BatchID   string                  `json:"batch_id,omitempty"`
	Status    string                  `json:"status"`
	Progress  int                     `json:"progress"`
	Stage     string                  `json:"stage,omitempty"`
	Keyword   string                  `json:"keyword"`
	Attempt   int                     `json:"attempt"`
	Result    *model.GenerationResult `json:"result,omitempty"`
	Error     *model.JobError         `json:"error,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func viewJob(j *model.Job) jobView {
	return jobView{
		ID:        j.ID,
		BatchID:   j.BatchID,
		Status:    string(j.Status),
		Progress:  j.Progress,
		Stage:     j.Stage,
		Keyword:   j.Request.Keyword,
		Attempt:   j.Attempt,
		Result:    j.Result,
		Error:     j.Error,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

type batchView struct {
	ID             string    `json:"id"`
	Name           string    `json:"name,omitempty"`
	Status         string    `json:"status"`
	JobIDs         []string  `json:"job_ids"`
	TotalItems     int       `json:"total_items"`
	CompletedCount int       `json:"completed_count"`
	FailedCount    int       `json:"failed_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func viewBatch(b *model.Batch) batchView {
	return batchView{
		ID:             b.ID,
		Name:           b.Name,
		Status:         string(b.Status),
		JobIDs:         b.JobIDs,
		TotalItems:     b.TotalItems,
		CompletedCount: b.CompletedCount,
		FailedCount:    b.FailedCount,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if !s.allowSubmit(r.Context(), w, owner) {
		return
	}

	var body generationItem
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := s.jobs.Create(r.Context(), owner, body.toRequest())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// standalone jobs run outside the batch pool; the run must not die
	// with the request context
	runCtx := logging.WithJobID(logging.WithOwnerID(context.Background(), owner), job.ID)
	go s.runner.Run(runCtx, job.ID)

	writeJSON(w, http.StatusAccepted, viewJob(job))
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewJob(job))
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewJob(job))
}

func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if !s.allowSubmit(r.Context(), w, owner) {
		return
	}

	var body createBatchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	items := make([]model.GenerationRequest, 0, len(body.Items))
	for _, it := range body.Items {
		items = append(items, it.toRequest())
	}

	batch, err := s.batches.CreateBatch(r.Context(), owner, items, body.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewBatch(batch))
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := s.batches.GetBatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewBatch(batch))
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := s.batches.ListBatches(r.Context(), ownerFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]batchView, 0, len(batches))
	for _, b := range batches {
		views = append(views, viewBatch(b))
	}
	writeJSON(w, http.StatusOK, views)
}

// handleEvents streams lifecycle events as server-sent events, filtered
// to the calling owner.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	owner := ownerFrom(r)

	ch, cancel := s.events.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, open := <-ch:
			if !open {
				return
			}
			if ev.OwnerID != "" && ev.OwnerID != owner {
				continue
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
			flusher.Flush()
		}
	}
}

func (s *Server) allowSubmit(ctx context.Context, w http.ResponseWriter, owner string) bool {
	if s.limiter == nil || s.submitLimit <= 0 {
		return true
	}
	ok, err := s.limiter.Allow(ctx, redis.OwnerSubmitKey(owner), s.submitLimit, time.Minute)
	if err != nil {
		// limiter outage must not block submissions
		s.log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		return true
	}
	if !ok {
		writeJSONError(w, http.StatusTooManyRequests, "submission rate limit exceeded")
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrEmptyBatch),
		errors.Is(err, domain.ErrBatchTooLarge):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Msg("request failed")
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
