// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	VercelToken  string
	VercelTeamID string
	GitHubToken  string
	StorageRoot  string
	ListenAddr   string
	DBPath       string
	FeedInterval time.Duration
}

// Load reads configuration from environment variables and returns a
// validated Config. NEXTSHIFT_VERCEL_TOKEN is required; everything else has
// a default or is optional: NEXTSHIFT_VERCEL_TEAM_ID (team scoping),
// NEXTSHIFT_GITHUB_TOKEN (private clones and default-branch resolution),
// NEXTSHIFT_STORAGE_ROOT (repos), NEXTSHIFT_LISTEN_ADDR (127.0.0.1:8080),
// NEXTSHIFT_DB_PATH (nextshift.db), NEXTSHIFT_FEED_INTERVAL (1s).
func Load() (*Config, error) {
	vercelToken := os.Getenv("NEXTSHIFT_VERCEL_TOKEN")
	if vercelToken == "" {
		return nil, fmt.Errorf("NEXTSHIFT_VERCEL_TOKEN is required")
	}

	storageRoot := "repos"
	if v, ok := os.LookupEnv("NEXTSHIFT_STORAGE_ROOT"); ok {
		storageRoot = v
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("NEXTSHIFT_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "nextshift.db"
	if v, ok := os.LookupEnv("NEXTSHIFT_DB_PATH"); ok {
		dbPath = v
	}

	feedInterval := time.Second
	if v, ok := os.LookupEnv("NEXTSHIFT_FEED_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("NEXTSHIFT_FEED_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("NEXTSHIFT_FEED_INTERVAL must be positive, got %q", v)
		}
		feedInterval = parsed
	}

	return &Config{
		VercelToken:  vercelToken,
		VercelTeamID: os.Getenv("NEXTSHIFT_VERCEL_TEAM_ID"),
		GitHubToken:  os.Getenv("NEXTSHIFT_GITHUB_TOKEN"),
		StorageRoot:  storageRoot,
		ListenAddr:   listenAddr,
		DBPath:       dbPath,
		FeedInterval: feedInterval,
	}, nil
}
