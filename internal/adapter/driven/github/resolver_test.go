package github_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	githubadapter "github.com/ericfisherdev/nextshift/internal/adapter/driven/github"
)

func newTestResolver(t *testing.T, handler http.HandlerFunc) *githubadapter.Resolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	resolver, err := githubadapter.NewResolverWithHTTPClient(srv.Client(), srv.URL)
	require.NoError(t, err)
	return resolver
}

func TestDefaultBranch(t *testing.T) {
	resolver := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/my-app", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 1, "name": "my-app", "default_branch": "main"}`))
	})

	branch, err := resolver.DefaultBranch(context.Background(), "acme", "my-app")
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
}

func TestDefaultBranch_NotFound(t *testing.T) {
	resolver := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Not Found"}`))
	})

	_, err := resolver.DefaultBranch(context.Background(), "acme", "gone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acme/gone")
}

func TestDefaultBranch_MissingField(t *testing.T) {
	resolver := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 1, "name": "odd"}`))
	})

	_, err := resolver.DefaultBranch(context.Background(), "acme", "odd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no default branch")
}
