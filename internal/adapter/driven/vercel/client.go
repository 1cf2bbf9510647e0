// Package vercel implements the VercelClient port against the Vercel REST
// API. Only the read endpoints the conversion needs are wrapped.
package vercel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ericfisherdev/nextshift/internal/domain/model"
	"github.com/ericfisherdev/nextshift/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.VercelClient = (*Client)(nil)

const defaultBaseURL = "https://api.vercel.com"

// Client talks to the Vercel REST API with a bearer token, optionally
// scoped to a team.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	teamID  string
}

// NewClient creates a Client for the production API. teamID may be empty
// for personal accounts.
func NewClient(token, teamID string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: defaultBaseURL,
		token:   token,
		teamID:  teamID,
	}
}

// NewClientWithBaseURL creates a Client against an alternate base URL. This
// constructor is intended for testing against an httptest server.
func NewClientWithBaseURL(httpClient *http.Client, baseURL, token, teamID string) *Client {
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		teamID:  teamID,
	}
}

// GetProject fetches a single project by id or name.
func (c *Client) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var project model.Project
	if err := c.get(ctx, "/v9/projects/"+url.PathEscape(id), nil, &project); err != nil {
		return nil, fmt.Errorf("fetching project %s: %w", id, err)
	}
	return &project, nil
}

// GetProjects lists all projects visible to the token.
func (c *Client) GetProjects(ctx context.Context) ([]model.Project, error) {
	var resp struct {
		Projects []model.Project `json:"projects"`
	}
	if err := c.get(ctx, "/v9/projects", nil, &resp); err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return resp.Projects, nil
}

// envVarWire is the wire shape of one environment variable. Vercel returns
// target as either a string or an array of deployment targets.
type envVarWire struct {
	Key    string     `json:"key"`
	Value  string     `json:"value"`
	Target envTargets `json:"target"`
}

type envTargets []string

func (t *envTargets) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = envTargets{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*t = envTargets(many)
	return nil
}

// GetProjectEnvVars fetches the decrypted environment variables for a
// project.
func (c *Client) GetProjectEnvVars(ctx context.Context, id string) ([]model.EnvVar, error) {
	var resp struct {
		Envs []envVarWire `json:"envs"`
	}
	query := url.Values{"decrypt": {"true"}}
	if err := c.get(ctx, "/v9/projects/"+url.PathEscape(id)+"/env", query, &resp); err != nil {
		return nil, fmt.Errorf("fetching env vars for project %s: %w", id, err)
	}

	envs := make([]model.EnvVar, 0, len(resp.Envs))
	for _, e := range resp.Envs {
		envs = append(envs, model.EnvVar{
			Key:    e.Key,
			Value:  e.Value,
			Target: strings.Join(e.Target, ","),
		})
	}
	return envs, nil
}

// get performs an authenticated GET and decodes the JSON response into out.
// Non-2xx responses are surfaced with the API's error message when present.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	if c.teamID != "" {
		query.Set("teamId", c.teamID)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("vercel API returned 404: %s: %w", apiErrorMessage(body), driven.ErrProjectNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("vercel API returned %d: %s", resp.StatusCode, apiErrorMessage(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// apiErrorMessage extracts the error message from a Vercel error body,
// falling back to a body prefix.
func apiErrorMessage(body []byte) string {
	var wrapper struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Error.Message != "" {
		return wrapper.Error.Message
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
