package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nemanja-m/mrsched/internal/coordinator/core"
	"github.com/nemanja-m/mrsched/internal/shared/config"
	"github.com/nemanja-m/mrsched/internal/shared/logging"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

type API struct {
	jobService core.JobService
	logger     logging.Logger
}

func NewAPI(jobService core.JobService, logger logging.Logger) *API {
	return &API{
		jobService: jobService,
		logger:     logger,
	}
}

// Routes returns the API router with request id, logging and recovery
// middleware installed.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		RequestIDMiddleware,
		LoggingMiddleware(a.logger),
		RecoveryMiddleware(a.logger),
	)

	r.Get("/healthz", a.health)
	r.Route("/api/jobs", func(r chi.Router) {
		r.Post("/", a.submitJob)
		r.Get("/", a.listJobs)
		r.Get("/{id}", a.getJob)
		r.Get("/{id}/status", a.getJobStatus)
		r.Get("/{id}/tasks", a.getJobTasks)
	})
	return r
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// submitJob handles POST /api/jobs
func (a *API) submitJob(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if strings.TrimSpace(req.App) == "" {
		respondError(w, http.StatusBadRequest, "validation failed", "application name is required")
		return
	}
	if len(req.Input.Paths) == 0 {
		respondError(w, http.StatusBadRequest, "validation failed", "at least one input path is required")
		return
	}

	inputFiles, err := core.FindLocalFiles(req.Input.Paths)
	if err == nil {
		inputFiles, err = core.AbsPaths(inputFiles)
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid input paths", err.Error())
		return
	}
	if req.Output.Dir != "" {
		if req.Output.Dir, err = filepath.Abs(req.Output.Dir); err != nil {
			respondError(w, http.StatusBadRequest, "invalid output directory", err.Error())
			return
		}
	}

	jobID, err := a.jobService.SubmitJob(req.ToSubmission(inputFiles))
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidSubmission):
			respondError(w, http.StatusBadRequest, "validation failed", err.Error())
		case errors.Is(err, core.ErrUnknownApplication):
			respondError(w, http.StatusUnprocessableEntity, "unknown application", err.Error())
		default:
			a.logger.Error("Failed to submit job", "app", req.App, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to submit job", err.Error())
		}
		return
	}

	job, err := a.jobService.GetJob(jobID)
	if err != nil {
		// Pruned between submit and read; the id is still valid to report.
		respondJSON(w, http.StatusCreated, SubmitJobResponse{JobID: jobID})
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/jobs/%d", jobID))
	respondJSON(w, http.StatusCreated, ToSubmitJobResponse(job))
}

// listJobs handles GET /api/jobs with filters and pagination
func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var filter core.JobFilter
	if statusParam := query.Get("status"); statusParam != "" {
		status, err := parseJobStatus(statusParam)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid status", err.Error())
			return
		}
		filter.Status = &status
	}

	filter.Limit = defaultListLimit
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			filter.Limit = min(l, maxListLimit)
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			filter.Offset = o
		}
	}

	jobs, total, err := a.jobService.GetJobs(filter)
	if err != nil {
		a.logger.Error("Failed to list jobs", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list jobs", err.Error())
		return
	}

	summaries := make([]JobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, ToJobSummary(job))
	}

	var nextOffset *int
	if end := filter.Offset + len(jobs); end < total {
		nextOffset = &end
	}

	respondJSON(w, http.StatusOK, ListJobsResponse{
		Jobs:       summaries,
		Total:      total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
		NextOffset: nextOffset,
	})
}

// getJob handles GET /api/jobs/{id}
func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	job, ok := a.lookupJob(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, ToGetJobResponse(job))
}

// getJobStatus handles GET /api/jobs/{id}/status
func (a *API) getJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseJobID(w, r)
	if !ok {
		return
	}

	result := a.jobService.PollJob(jobID)
	if result.InvalidJobID {
		respondError(w, http.StatusNotFound, "job not found", "")
		return
	}

	respondJSON(w, http.StatusOK, JobStatusResponse{
		JobID:  jobID,
		Done:   result.Done,
		Failed: result.Failed,
	})
}

// getJobTasks handles GET /api/jobs/{id}/tasks
func (a *API) getJobTasks(w http.ResponseWriter, r *http.Request) {
	job, ok := a.lookupJob(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, ToGetTasksResponse(job))
}

func (a *API) lookupJob(w http.ResponseWriter, r *http.Request) (*core.Job, bool) {
	jobID, ok := parseJobID(w, r)
	if !ok {
		return nil, false
	}

	job, err := a.jobService.GetJob(jobID)
	if err != nil {
		if errors.Is(err, core.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, "job not found", "")
		} else {
			a.logger.Error("Failed to get job", "job_id", jobID, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to get job", err.Error())
		}
		return nil, false
	}
	return job, true
}

func parseJobID(w http.ResponseWriter, r *http.Request) (int, bool) {
	jobID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || jobID < 0 {
		respondError(w, http.StatusBadRequest, "invalid job ID", "job ID must be a non-negative integer")
		return 0, false
	}
	return jobID, true
}

func parseJobStatus(s string) (core.JobStatus, error) {
	switch status := core.JobStatus(strings.ToUpper(s)); status {
	case core.JobStatusPending, core.JobStatusRunning, core.JobStatusDone, core.JobStatusFailed:
		return status, nil
	default:
		return "", fmt.Errorf("unknown job status %q", s)
	}
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, statusCode int, error string, message string) {
	resp := ErrorResponse{
		Error:   error,
		Message: message,
		Code:    statusCode,
	}
	respondJSON(w, statusCode, resp)
}

func NewServer(cfg config.RESTConfig, jobService core.JobService, logger logging.Logger) *http.Server {
	api := NewAPI(jobService, logger)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
