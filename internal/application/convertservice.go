package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/nextshift/internal/domain/model"
	"github.com/ericfisherdev/nextshift/internal/domain/port/driven"
)

// ErrNoRepository is returned when the source platform reports no repository
// connected to the project. No acquisition is attempted.
var ErrNoRepository = errors.New("no repository connected")

// ErrConversionActive is returned when a run is already in flight for the
// project. Concurrent runs would race on the same checkout directory.
var ErrConversionActive = errors.New("a conversion is already running for this project")

const commitMessage = "Migrate deployment configuration from Vercel to Cloudflare Workers"

// ConvertService orchestrates one conversion run per project: acquisition,
// the pipeline, optional commit-and-push, and job finalization. Start is
// fire-and-forget; all progress is observed through the job store.
type ConvertService struct {
	vercel      driven.VercelClient
	repos       driven.RepoManager
	jobs        driven.JobStore
	history     driven.JobHistoryStore
	branches    driven.BranchResolver
	runner      CommandRunner
	storageRoot string
}

// NewConvertService creates a ConvertService. branches and history may be
// nil; runner may be nil to use ExecRunner.
func NewConvertService(
	vercel driven.VercelClient,
	repos driven.RepoManager,
	jobs driven.JobStore,
	history driven.JobHistoryStore,
	branches driven.BranchResolver,
	runner CommandRunner,
	storageRoot string,
) *ConvertService {
	return &ConvertService{
		vercel:      vercel,
		repos:       repos,
		jobs:        jobs,
		history:     history,
		branches:    branches,
		runner:      runner,
		storageRoot: storageRoot,
	}
}

// Start resolves the project, initializes its job, and kicks off the run on
// a background goroutine. It returns before any filesystem work happens.
func (s *ConvertService) Start(ctx context.Context, projectID string, opts model.ConvertOptions) error {
	project, err := s.vercel.GetProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("fetching project %s: %w", projectID, err)
	}

	if !s.jobs.Begin(project.ID) {
		return ErrConversionActive
	}

	if project.Repo == nil {
		s.jobs.Append(project.ID, "No repository is connected to this project")
		s.finalize(project.ID, model.JobStatusFailed, "No repository connected", "", time.Now())
		return ErrNoRepository
	}

	// The run outlives the triggering request.
	go s.run(context.WithoutCancel(ctx), project, opts)

	return nil
}

// run executes the full conversion sequence to a terminal state. Any panic
// is caught and classified as an unexpected failure so the job never hangs
// in a non-terminal state.
func (s *ConvertService) run(ctx context.Context, project *model.Project, opts model.ConvertOptions) {
	startedAt := time.Now()

	defer func() {
		if v := recover(); v != nil {
			detail := fmt.Sprintf("%v", v)
			slog.Error("unexpected conversion failure", "project", project.ID, "panic", v)
			s.jobs.Append(project.ID, "Unexpected failure during conversion", detail)
			s.finalize(project.ID, model.JobStatusFailed, "Unexpected failure during conversion", detail, startedAt)
		}
	}()

	repoURL, branch, err := s.resolveRepo(ctx, project.Repo)
	if err != nil {
		s.jobs.Append(project.ID, err.Error())
		s.finalize(project.ID, model.JobStatusFailed, err.Error(), "", startedAt)
		return
	}

	s.jobs.Append(project.ID, fmt.Sprintf("Acquiring repository %s...", repoURL))
	acquired := s.repos.Acquire(ctx, repoURL, project.ID, branch, s.storageRoot)
	s.jobs.Append(project.ID, acquired.Message)
	if !acquired.Success {
		s.finalize(project.ID, model.JobStatusFailed, acquired.Message, errDetail(acquired.Err), startedAt)
		return
	}

	if opts.CreateBranch && opts.BranchName != "" {
		if s.repos.CreateBranch(acquired.LocalPath, opts.BranchName) {
			s.jobs.Append(project.ID, fmt.Sprintf("Created branch %s", opts.BranchName))
		} else {
			s.jobs.Append(project.ID, fmt.Sprintf("Warning: could not create branch %s, continuing on the current branch", opts.BranchName))
		}
	}

	s.jobs.SetStatus(project.ID, model.JobStatusConverting, "", "")

	pipeline := NewPipeline(s.runner, func(line string) {
		s.jobs.Append(project.ID, line)
	})
	result := pipeline.Run(ctx, PipelineConfig{
		CheckoutPath:     acquired.LocalPath,
		ProjectName:      projectName(project),
		ManifestSubPath:  opts.ManifestSubPath,
		EnableCache:      opts.EnableCache,
		CacheNamespaceID: opts.CacheNamespaceID,
	})

	if result.Success && opts.CommitAndPush {
		if s.repos.CommitAndPush(ctx, acquired.LocalPath, commitMessage) {
			s.jobs.Append(project.ID, "Committed and pushed converted configuration")
		} else {
			s.jobs.Append(project.ID, "Warning: commit and push failed, converted files remain in the local checkout")
		}
	}

	status := model.JobStatusFailed
	if result.Success {
		status = model.JobStatusSuccess
	}
	s.finalize(project.ID, status, result.Message, "", startedAt)
}

// resolveRepo normalizes the repository descriptor into a clone URL and
// branch. Provider-link descriptors for GitHub get an HTTPS URL synthesized;
// a missing branch is resolved through the branch resolver when available.
func (s *ConvertService) resolveRepo(ctx context.Context, repo *model.RepositoryDescriptor) (string, string, error) {
	url := repo.URL
	if url == "" && repo.Type == "github" && repo.Org != "" && repo.RepoSlug != "" {
		url = fmt.Sprintf("https://github.com/%s/%s", repo.Org, repo.RepoSlug)
	}
	if url == "" {
		return "", "", fmt.Errorf("repository descriptor has no usable URL (type %q)", repo.Type)
	}

	branch := repo.DefaultBranch
	if branch == "" {
		branch = repo.ProductionBranch
	}
	if branch == "" && s.branches != nil && repo.Org != "" && repo.RepoSlug != "" {
		resolved, err := s.branches.DefaultBranch(ctx, repo.Org, repo.RepoSlug)
		if err != nil {
			slog.Warn("default branch resolution failed, deferring to remote default",
				"org", repo.Org, "repo", repo.RepoSlug, "error", err)
		} else {
			branch = resolved
		}
	}

	return url, branch, nil
}

// finalize moves the job to its terminal state and records it in the
// history store.
func (s *ConvertService) finalize(projectID string, status model.JobStatus, message, detail string, startedAt time.Time) {
	s.jobs.SetStatus(projectID, status, message, detail)

	if s.history == nil {
		return
	}
	snap := s.jobs.Snapshot(projectID)
	entry := model.HistoryEntry{
		ProjectID:  projectID,
		Status:     status,
		Message:    message,
		Logs:       snap.Logs,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
	if err := s.history.Record(context.Background(), entry); err != nil {
		slog.Error("recording job history failed", "project", projectID, "error", err)
	}
}

func projectName(p *model.Project) string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
