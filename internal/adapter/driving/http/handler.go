// Package httphandler is the HTTP driving adapter: the conversion REST API
// and the per-project status feed.
package httphandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ericfisherdev/nextshift/internal/application"
	"github.com/ericfisherdev/nextshift/internal/domain/model"
	"github.com/ericfisherdev/nextshift/internal/domain/port/driven"
)

// Handler serves the REST API.
type Handler struct {
	vercel     driven.VercelClient
	jobs       driven.JobStore
	history    driven.JobHistoryStore
	convertSvc *application.ConvertService
	logger     *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	vercel driven.VercelClient,
	jobs driven.JobStore,
	history driven.JobHistoryStore,
	convertSvc *application.ConvertService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		vercel:     vercel,
		jobs:       jobs,
		history:    history,
		convertSvc: convertSvc,
		logger:     logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/projects", h.ListProjects)
	mux.HandleFunc("GET /api/v1/projects/{id}", h.GetProject)
	mux.HandleFunc("GET /api/v1/projects/{id}/env", h.GetProjectEnvVars)
	mux.HandleFunc("POST /api/v1/projects/{id}/convert", h.StartConversion)
	mux.HandleFunc("GET /api/v1/projects/{id}/status", h.StatusFeed)
	mux.HandleFunc("GET /api/v1/history", h.ListHistory)
	mux.HandleFunc("GET /api/v1/history/{id}", h.ListProjectHistory)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListProjects returns all projects visible to the configured token.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.vercel.GetProjects(r.Context())
	if err != nil {
		h.logger.Error("failed to list projects", "error", err)
		writeError(w, http.StatusBadGateway, "failed to list projects from Vercel")
		return
	}

	resp := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		resp = append(resp, toProjectResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetProject returns a single project by id.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	project, err := h.vercel.GetProject(r.Context(), id)
	if errors.Is(err, driven.ErrProjectNotFound) {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get project", "project", id, "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch project from Vercel")
		return
	}

	writeJSON(w, http.StatusOK, toProjectResponse(*project))
}

// GetProjectEnvVars returns the environment variables configured on a
// project.
func (h *Handler) GetProjectEnvVars(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	envs, err := h.vercel.GetProjectEnvVars(r.Context(), id)
	if errors.Is(err, driven.ErrProjectNotFound) {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get project env vars", "project", id, "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch environment variables from Vercel")
		return
	}

	resp := make([]EnvVarResponse, 0, len(envs))
	for _, e := range envs {
		resp = append(resp, EnvVarResponse{Key: e.Key, Value: e.Value, Target: e.Target})
	}
	writeJSON(w, http.StatusOK, resp)
}

// StartConversion triggers a conversion run and returns immediately. All
// progress is observed through the status feed.
func (h *Handler) StartConversion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.convertSvc.Start(r.Context(), id, model.ConvertOptions{
		EnableCache:      req.EnableCache,
		CacheNamespaceID: req.CacheNamespaceID,
		CreateBranch:     req.CreateBranch,
		BranchName:       req.BranchName,
		CommitAndPush:    req.CommitAndPush,
		ManifestSubPath:  req.ManifestSubPath,
	})
	switch {
	case errors.Is(err, driven.ErrProjectNotFound):
		writeError(w, http.StatusNotFound, "project not found")
		return
	case errors.Is(err, application.ErrConversionActive):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, application.ErrNoRepository):
		// The job is finalized as failed; tell the caller why directly too.
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		h.logger.Error("failed to start conversion", "project", id, "error", err)
		writeError(w, http.StatusBadGateway, "failed to start conversion")
		return
	}

	writeJSON(w, http.StatusAccepted, ConvertAcceptedResponse{ProjectID: id, Status: string(model.JobStatusCloning)})
}

// StatusFeed streams job snapshots as Server-Sent Events until the job
// reaches a terminal state or the client disconnects.
func (h *Handler) StatusFeed(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for snap := range h.jobs.Subscribe(r.Context(), id) {
		data, err := json.Marshal(toJobSnapshot(snap))
		if err != nil {
			h.logger.Error("failed to marshal job snapshot", "project", id, "error", err)
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()
	}
}

// ListHistory returns recent terminal jobs across all projects. The limit
// query parameter caps the result, defaulting to 50.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := h.history.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list history", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toHistoryResponses(entries))
}

// ListProjectHistory returns all terminal jobs recorded for one project.
func (h *Handler) ListProjectHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	entries, err := h.history.ListByProject(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list project history", "project", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toHistoryResponses(entries))
}

// Health is the liveness endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
