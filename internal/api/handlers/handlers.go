package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/bevdash/salesblitz/internal/api/middleware"
	"github.com/bevdash/salesblitz/internal/domain"
	"github.com/bevdash/salesblitz/internal/jobs"
	"github.com/bevdash/salesblitz/internal/pipeline"
)

// CategorizationRunner produces one organization's classified accounts.
// Satisfied by *pipeline.Engine; a run with forced=false reuses valid
// cache entries, so serving dashboard loads through it is cheap.
type CategorizationRunner interface {
	Run(ctx context.Context, orgID string, forced bool) ([]domain.BlitzAccount, pipeline.RunStats, error)
}

// AccountsHandler serves the classified account list.
type AccountsHandler struct {
	runner    CategorizationRunner
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(runner CategorizationRunner, publisher jobs.Publisher, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{
		runner:    runner,
		publisher: publisher,
		log:       log,
	}
}

// ListAccounts handles GET /api/orgs/{orgID}/accounts
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request, orgID string) {
	ctx := r.Context()

	filter, err := parseAccountFilter(r.URL.Query())
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	accounts, stats, err := h.runner.Run(ctx, orgID, false)
	if err != nil {
		h.log.Error().Err(err).Str("organization_id", orgID).Msg("Categorization run failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to categorize accounts")
		return
	}

	accounts = filterAccounts(accounts, filter)
	sortAccounts(accounts, filter.Sort, filter.Order)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accountViews(accounts),
		"count":    len(accounts),
		"stats": map[string]int{
			"cache_hits":    stats.CacheHits,
			"recategorized": stats.Recategorized,
			"ai_refined":    stats.AIRefined,
		},
	})
}

// Recategorize handles POST /api/orgs/{orgID}/recategorize
func (h *AccountsHandler) Recategorize(w http.ResponseWriter, r *http.Request, orgID string) {
	ctx := r.Context()

	// The body is optional; forced defaults to true because the endpoint
	// exists to override the cache.
	req := struct {
		Forced *bool `json:"forced"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	forced := true
	if req.Forced != nil {
		forced = *req.Forced
	}

	job := &jobs.RecategorizeJob{
		OrganizationID: orgID,
		Forced:         forced,
	}

	if err := h.publisher.PublishRecategorize(ctx, job); err != nil {
		h.log.Error().Err(err).Str("organization_id", orgID).Msg("Failed to enqueue recategorization job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue recategorization job")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("organization_id", orgID).
		Bool("forced", forced).
		Msg("Recategorization job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":          job.JobID,
		"organization_id": orgID,
		"status":          string(job.Status),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		OrganizationID: query.Get("organization_id"),
		Status:         jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
