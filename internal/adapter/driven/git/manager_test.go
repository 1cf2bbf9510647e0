package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initSourceRepo creates a working repository with one commit, usable as a
// local clone source.
func initSourceRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test repo\n"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial commit", &gogit.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@localhost", When: time.Now()},
	})
	require.NoError(t, err)

	return dir
}

// initBareMirror clones source into a bare repository, so pushes to it are
// accepted like a hosted remote.
func initBareMirror(t *testing.T, source string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "mirror.git")
	_, err := gogit.PlainClone(dir, true, &gogit.CloneOptions{URL: source})
	require.NoError(t, err)
	return dir
}

func TestAcquire_FreshClone(t *testing.T) {
	source := initSourceRepo(t)
	storage := t.TempDir()
	m := NewManager("")

	res := m.Acquire(context.Background(), source, "prj_1", "", storage)

	require.True(t, res.Success, "acquire failed: %s", res.Message)
	assert.Equal(t, filepath.Join(storage, "prj_1"), res.LocalPath)

	_, err := gogit.PlainOpen(res.LocalPath)
	assert.NoError(t, err, "local path must be a valid repository")
}

func TestAcquire_QuotedURLClonesLikeTrimmed(t *testing.T) {
	source := initSourceRepo(t)
	storage := t.TempDir()
	m := NewManager("")

	res := m.Acquire(context.Background(), "  '"+source+"'  ", "prj_1", "", storage)

	require.True(t, res.Success, "acquire failed: %s", res.Message)
	_, err := gogit.PlainOpen(res.LocalPath)
	assert.NoError(t, err)
}

func TestAcquire_ExistingCheckoutPullsLatest(t *testing.T) {
	source := initSourceRepo(t)
	storage := t.TempDir()
	m := NewManager("")

	first := m.Acquire(context.Background(), source, "prj_1", "", storage)
	require.True(t, first.Success, "first acquire failed: %s", first.Message)

	second := m.Acquire(context.Background(), source, "prj_1", "", storage)
	require.True(t, second.Success, "second acquire failed: %s", second.Message)
	assert.Contains(t, second.Message, "pulled latest")
}

func TestAcquire_UnknownBranchOnRefreshIsNonFatal(t *testing.T) {
	source := initSourceRepo(t)
	storage := t.TempDir()
	m := NewManager("")

	first := m.Acquire(context.Background(), source, "prj_1", "", storage)
	require.True(t, first.Success, "first acquire failed: %s", first.Message)

	// Refresh with a branch that does not exist: falls back to the
	// current branch with a warning rather than failing.
	second := m.Acquire(context.Background(), source, "prj_1", "no-such-branch", storage)
	assert.True(t, second.Success, "refresh failed: %s", second.Message)
}

func TestAcquire_NonRepositoryPathIsReplaced(t *testing.T) {
	source := initSourceRepo(t)
	storage := t.TempDir()
	stale := filepath.Join(storage, "prj_1")
	require.NoError(t, os.MkdirAll(stale, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stale, "junk.txt"), []byte("leftover"), 0o644))

	m := NewManager("")
	res := m.Acquire(context.Background(), source, "prj_1", "", storage)

	require.True(t, res.Success, "acquire failed: %s", res.Message)
	_, err := gogit.PlainOpen(res.LocalPath)
	assert.NoError(t, err, "path must be a valid repository after replacement")
	assert.NoFileExists(t, filepath.Join(res.LocalPath, "junk.txt"))
}

func TestAcquire_MissingRemoteIsClassified(t *testing.T) {
	storage := t.TempDir()
	m := NewManager("")

	res := m.Acquire(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"), "prj_1", "", storage)

	require.False(t, res.Success)
	assert.Error(t, res.Err)
	assert.NotEmpty(t, res.Message)
}

func TestCreateBranch(t *testing.T) {
	source := initSourceRepo(t)
	storage := t.TempDir()
	m := NewManager("")

	res := m.Acquire(context.Background(), source, "prj_1", "", storage)
	require.True(t, res.Success, "acquire failed: %s", res.Message)

	require.True(t, m.CreateBranch(res.LocalPath, "migrate-to-cloudflare"))

	repo, err := gogit.PlainOpen(res.LocalPath)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/migrate-to-cloudflare", head.Name().String())
}

func TestCreateBranch_InvalidPath(t *testing.T) {
	m := NewManager("")
	assert.False(t, m.CreateBranch(t.TempDir(), "anything"))
}

func TestCommitAndPush(t *testing.T) {
	source := initSourceRepo(t)
	mirror := initBareMirror(t, source)
	storage := t.TempDir()
	m := NewManager("")

	res := m.Acquire(context.Background(), mirror, "prj_1", "", storage)
	require.True(t, res.Success, "acquire failed: %s", res.Message)

	require.NoError(t, os.WriteFile(filepath.Join(res.LocalPath, "wrangler.jsonc"), []byte("{}\n"), 0o644))

	require.True(t, m.CommitAndPush(context.Background(), res.LocalPath, "migrate config"))

	// The mirror's branch advanced to the new commit.
	local, err := gogit.PlainOpen(res.LocalPath)
	require.NoError(t, err)
	localHead, err := local.Head()
	require.NoError(t, err)

	remote, err := gogit.PlainOpen(mirror)
	require.NoError(t, err)
	remoteRef, err := remote.Reference(localHead.Name(), true)
	require.NoError(t, err)
	assert.Equal(t, localHead.Hash(), remoteRef.Hash())
}

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"clean", "https://github.com/acme/app", "https://github.com/acme/app"},
		{"whitespace", "  https://github.com/acme/app \n", "https://github.com/acme/app"},
		{"single quotes", "'https://github.com/acme/app'", "https://github.com/acme/app"},
		{"double quotes", `"https://github.com/acme/app"`, "https://github.com/acme/app"},
		{"quotes and whitespace", ` "https://github.com/acme/app" `, "https://github.com/acme/app"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeURL(tt.in))
		})
	}
}

func TestClassifyCloneError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"auth", errAuthRequired{}, "Authentication failed"},
		{"not found", errNotFound{}, "not found or is not accessible"},
		{"conflict", errAlreadyExists{}, "Local path conflict"},
		{"generic", errGeneric{}, "Failed to clone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := classifyCloneError("https://github.com/acme/app", tt.err)
			assert.Contains(t, msg, tt.want)
		})
	}
}

type errAuthRequired struct{}

func (errAuthRequired) Error() string { return "authentication required" }

type errNotFound struct{}

func (errNotFound) Error() string { return "repository not found" }

type errAlreadyExists struct{}

func (errAlreadyExists) Error() string { return "repository already exists" }

type errGeneric struct{}

func (errGeneric) Error() string { return "unexpected EOF" }
