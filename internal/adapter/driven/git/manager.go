// Package git implements the RepoManager port using the go-git library.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/ericfisherdev/nextshift/internal/domain/model"
	"github.com/ericfisherdev/nextshift/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RepoManager = (*Manager)(nil)

const (
	commitAuthorName  = "nextshift"
	commitAuthorEmail = "nextshift@localhost"
)

// Manager implements the driven.RepoManager port with go-git. An optional
// token is used as HTTPS basic auth for private repositories.
type Manager struct {
	token string
}

// NewManager creates a Manager. token may be empty for public repositories.
func NewManager(token string) *Manager {
	return &Manager{token: token}
}

// auth returns the transport auth method, or nil when no token is configured.
func (m *Manager) auth() transport.AuthMethod {
	if m.token == "" {
		return nil
	}
	// GitHub and GitLab both accept a token as the basic-auth password with
	// any non-empty username.
	return &githttp.BasicAuth{Username: "x-access-token", Password: m.token}
}

// Acquire clones repoURL into storageRoot/projectID or refreshes an existing
// checkout. See the port documentation for the full contract.
func (m *Manager) Acquire(ctx context.Context, repoURL, projectID, branch, storageRoot string) model.AcquireResult {
	localPath := filepath.Join(storageRoot, projectID)

	if err := os.MkdirAll(storageRoot, 0o755); err != nil {
		return failure(localPath, fmt.Sprintf("Failed to create storage root %s: %v", storageRoot, err), err)
	}

	if _, statErr := os.Stat(localPath); statErr == nil {
		repo, openErr := gogit.PlainOpen(localPath)
		if openErr == nil {
			return m.refresh(ctx, repo, localPath, branch)
		}

		// Exists but is not a usable repository: remove and fall through
		// to a fresh clone.
		slog.Warn("local path is not a valid repository, removing",
			"path", localPath, "error", openErr)
		if rmErr := os.RemoveAll(localPath); rmErr != nil {
			return failure(localPath,
				fmt.Sprintf("Local path %s is not a valid repository and could not be removed: %v", localPath, rmErr),
				rmErr)
		}
	}

	return m.clone(ctx, repoURL, localPath, branch)
}

// refresh checks out the requested branch (best-effort) and pulls the latest
// changes into an existing checkout.
func (m *Manager) refresh(ctx context.Context, repo *gogit.Repository, localPath, branch string) model.AcquireResult {
	wt, err := repo.Worktree()
	if err != nil {
		return failure(localPath, fmt.Sprintf("Failed to open worktree at %s: %v", localPath, err), err)
	}

	if branch != "" {
		checkoutErr := wt.Checkout(&gogit.CheckoutOptions{
			Branch: plumbing.NewBranchReferenceName(branch),
		})
		if checkoutErr != nil {
			slog.Warn("branch checkout failed, staying on current branch",
				"path", localPath, "branch", branch, "error", checkoutErr)
		}
	}

	pullErr := wt.PullContext(ctx, &gogit.PullOptions{
		RemoteName: "origin",
		Auth:       m.auth(),
	})
	if pullErr != nil && !errors.Is(pullErr, gogit.NoErrAlreadyUpToDate) {
		return failure(localPath, fmt.Sprintf("Failed to pull latest changes: %v", pullErr), pullErr)
	}

	return model.AcquireResult{
		Success:   true,
		LocalPath: localPath,
		Message:   "Repository already exists, pulled latest changes",
	}
}

// clone performs a fresh clone. branch is passed separately from the clone
// options so an empty branch cleanly falls back to the remote default
// instead of producing a reference-not-found error.
func (m *Manager) clone(ctx context.Context, repoURL, localPath, branch string) model.AcquireResult {
	url := sanitizeURL(repoURL)

	opts := &gogit.CloneOptions{
		URL:  url,
		Auth: m.auth(),
	}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}

	if _, err := gogit.PlainCloneContext(ctx, localPath, false, opts); err != nil {
		return failure(localPath, classifyCloneError(url, err), err)
	}

	return model.AcquireResult{
		Success:   true,
		LocalPath: localPath,
		Message:   fmt.Sprintf("Cloned %s", url),
	}
}

// CreateBranch creates and checks out a new local branch. Failure is logged
// and reported to the caller as false; the conversion proceeds on whatever
// branch acquisition produced.
func (m *Manager) CreateBranch(localPath, name string) bool {
	repo, err := gogit.PlainOpen(localPath)
	if err != nil {
		slog.Error("branch creation failed, cannot open repository",
			"path", localPath, "error", err)
		return false
	}

	wt, err := repo.Worktree()
	if err != nil {
		slog.Error("branch creation failed, cannot open worktree",
			"path", localPath, "error", err)
		return false
	}

	err = wt.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: true,
	})
	if err != nil {
		slog.Error("branch creation failed", "path", localPath, "branch", name, "error", err)
		return false
	}

	return true
}

// CommitAndPush stages everything, commits, and pushes HEAD. Failure is
// logged and reported as false; publishing is best-effort.
func (m *Manager) CommitAndPush(ctx context.Context, localPath, message string) bool {
	repo, err := gogit.PlainOpen(localPath)
	if err != nil {
		slog.Error("commit failed, cannot open repository", "path", localPath, "error", err)
		return false
	}

	wt, err := repo.Worktree()
	if err != nil {
		slog.Error("commit failed, cannot open worktree", "path", localPath, "error", err)
		return false
	}

	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		slog.Error("staging changes failed", "path", localPath, "error", err)
		return false
	}

	_, err = wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  commitAuthorName,
			Email: commitAuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		slog.Error("commit failed", "path", localPath, "error", err)
		return false
	}

	err = repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: "origin",
		Auth:       m.auth(),
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		slog.Error("push failed", "path", localPath, "error", err)
		return false
	}

	return true
}

// sanitizeURL trims whitespace and surrounding quote characters that leak in
// from copy-pasted or shell-quoted configuration.
func sanitizeURL(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), `"'`)
}

// classifyCloneError maps a clone failure onto a human-readable message for
// the job log.
func classifyCloneError(url string, err error) string {
	msg := err.Error()
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired),
		strings.Contains(msg, "authentication required"),
		strings.Contains(msg, "Authentication failed"):
		return fmt.Sprintf("Authentication failed cloning %s: check the configured token's repository access", url)
	case errors.Is(err, transport.ErrRepositoryNotFound),
		strings.Contains(msg, "not found"):
		return fmt.Sprintf("Repository %s was not found or is not accessible", url)
	case errors.Is(err, gogit.ErrRepositoryAlreadyExists),
		strings.Contains(msg, "already exists"):
		return fmt.Sprintf("Local path conflict cloning %s: %v", url, err)
	default:
		return fmt.Sprintf("Failed to clone %s: %v", url, err)
	}
}

func failure(localPath, message string, err error) model.AcquireResult {
	return model.AcquireResult{
		LocalPath: localPath,
		Message:   message,
		Err:       err,
	}
}
