package driven

import (
	"context"

	"github.com/ericfisherdev/nextshift/internal/domain/model"
)

// RepoManager defines the driven port for repository acquisition and
// mutation. Only the handful of git operations the conversion needs are
// exposed; this is deliberately not a general-purpose git client.
type RepoManager interface {
	// Acquire clones repoURL into storageRoot/projectID, or refreshes an
	// existing valid checkout. branch may be empty, in which case the
	// remote default branch is used. A directory that exists but is not a
	// valid repository is removed and cloned fresh.
	Acquire(ctx context.Context, repoURL, projectID, branch, storageRoot string) model.AcquireResult
	// CreateBranch creates and checks out a new local branch. Callers
	// treat failure as non-fatal.
	CreateBranch(localPath, name string) bool
	// CommitAndPush stages all changes, commits with message, and pushes
	// HEAD to the matching remote branch. Callers treat failure as
	// non-fatal.
	CommitAndPush(ctx context.Context, localPath, message string) bool
}

// BranchResolver resolves the default branch of a hosted repository when the
// source platform's descriptor does not carry one. Best-effort: callers fall
// back to the remote default at clone time on error.
type BranchResolver interface {
	DefaultBranch(ctx context.Context, org, repo string) (string, error)
}
