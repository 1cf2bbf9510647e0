package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/nextshift/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// ProjectResponse is the JSON representation of a source-platform project.
type ProjectResponse struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Framework string              `json:"framework"`
	Repo      *RepositoryResponse `json:"repository,omitempty"`
}

// RepositoryResponse is the JSON representation of a project's repository
// association, post-normalization fields included as reported.
type RepositoryResponse struct {
	Type             string `json:"type"`
	URL              string `json:"url,omitempty"`
	Org              string `json:"org,omitempty"`
	RepoSlug         string `json:"repo,omitempty"`
	DefaultBranch    string `json:"default_branch,omitempty"`
	ProductionBranch string `json:"production_branch,omitempty"`
}

// EnvVarResponse is the JSON representation of one environment variable.
type EnvVarResponse struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Target string `json:"target"`
}

// ConvertRequest is the JSON body for the start conversion endpoint.
type ConvertRequest struct {
	EnableCache      bool   `json:"enable_cache"`
	CacheNamespaceID string `json:"cache_namespace_id"`
	CreateBranch     bool   `json:"create_branch"`
	BranchName       string `json:"branch_name"`
	CommitAndPush    bool   `json:"commit_and_push"`
	ManifestSubPath  string `json:"manifest_sub_path"`
}

// ConvertAcceptedResponse acknowledges a started conversion.
type ConvertAcceptedResponse struct {
	ProjectID string `json:"project_id"`
	Status    string `json:"status"`
}

// JobSnapshotResponse is one status feed event.
type JobSnapshotResponse struct {
	Status  string   `json:"status"`
	Logs    []string `json:"logs"`
	Message string   `json:"message,omitempty"`
}

// HistoryResponse is the JSON representation of a terminal job.
type HistoryResponse struct {
	ID         int64    `json:"id"`
	ProjectID  string   `json:"project_id"`
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	Logs       []string `json:"logs"`
	StartedAt  string   `json:"started_at"`
	FinishedAt string   `json:"finished_at"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

func toProjectResponse(p model.Project) ProjectResponse {
	resp := ProjectResponse{
		ID:        p.ID,
		Name:      p.Name,
		Framework: p.Framework,
	}
	if p.Repo != nil {
		resp.Repo = &RepositoryResponse{
			Type:             p.Repo.Type,
			URL:              p.Repo.URL,
			Org:              p.Repo.Org,
			RepoSlug:         p.Repo.RepoSlug,
			DefaultBranch:    p.Repo.DefaultBranch,
			ProductionBranch: p.Repo.ProductionBranch,
		}
	}
	return resp
}

func toJobSnapshot(job model.Job) JobSnapshotResponse {
	logs := job.Logs
	if logs == nil {
		logs = []string{}
	}
	return JobSnapshotResponse{
		Status:  string(job.Status),
		Logs:    logs,
		Message: job.Message,
	}
}

func toHistoryResponses(entries []model.HistoryEntry) []HistoryResponse {
	resp := make([]HistoryResponse, 0, len(entries))
	for _, e := range entries {
		logs := e.Logs
		if logs == nil {
			logs = []string{}
		}
		resp = append(resp, HistoryResponse{
			ID:         e.ID,
			ProjectID:  e.ProjectID,
			Status:     string(e.Status),
			Message:    e.Message,
			Logs:       logs,
			StartedAt:  e.StartedAt.UTC().Format(time.RFC3339),
			FinishedAt: e.FinishedAt.UTC().Format(time.RFC3339),
		})
	}
	return resp
}
