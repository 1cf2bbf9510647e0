// Package github implements the BranchResolver port using the go-github
// library.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/nextshift/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BranchResolver = (*Resolver)(nil)

// Resolver resolves repository default branches through the GitHub REST API.
type Resolver struct {
	gh *gh.Client
}

// NewResolver creates a Resolver with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewResolver(token string) *Resolver {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &Resolver{gh: client}
}

// NewResolverWithHTTPClient creates a Resolver with a custom http.Client and
// base URL. This constructor is intended for testing against an httptest
// server.
func NewResolverWithHTTPClient(httpClient *http.Client, baseURL string) (*Resolver, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	// go-github requires a trailing slash on the base URL.
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	client.BaseURL = u

	return &Resolver{gh: client}, nil
}

// DefaultBranch returns the repository's default branch name.
func (r *Resolver) DefaultBranch(ctx context.Context, org, repo string) (string, error) {
	repository, _, err := r.gh.Repositories.Get(ctx, org, repo)
	if err != nil {
		return "", fmt.Errorf("fetching repository %s/%s: %w", org, repo, err)
	}
	if repository.GetDefaultBranch() == "" {
		return "", fmt.Errorf("repository %s/%s reports no default branch", org, repo)
	}
	return repository.GetDefaultBranch(), nil
}
