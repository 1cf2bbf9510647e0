package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	gitadapter "github.com/ericfisherdev/nextshift/internal/adapter/driven/git"
	githubadapter "github.com/ericfisherdev/nextshift/internal/adapter/driven/github"
	"github.com/ericfisherdev/nextshift/internal/adapter/driven/memory"
	sqliteadapter "github.com/ericfisherdev/nextshift/internal/adapter/driven/sqlite"
	verceladapter "github.com/ericfisherdev/nextshift/internal/adapter/driven/vercel"
	httphandler "github.com/ericfisherdev/nextshift/internal/adapter/driving/http"
	"github.com/ericfisherdev/nextshift/internal/application"
	"github.com/ericfisherdev/nextshift/internal/config"
	"github.com/ericfisherdev/nextshift/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"storage_root", cfg.StorageRoot,
		"db_path", cfg.DBPath,
		"feed_interval", cfg.FeedInterval,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	vercelClient := verceladapter.NewClient(cfg.VercelToken, cfg.VercelTeamID)
	repoManager := gitadapter.NewManager(cfg.GitHubToken)
	jobStore := memory.NewJobStore(cfg.FeedInterval)
	historyRepo := sqliteadapter.NewHistoryRepo(db)

	// Assign through the interface variable only when enabled so the
	// service's nil check sees a nil interface, not a typed-nil pointer.
	var branchResolver driven.BranchResolver
	if cfg.GitHubToken != "" {
		branchResolver = githubadapter.NewResolver(cfg.GitHubToken)
		slog.Info("github default-branch resolver enabled")
	}

	// 6. Create the conversion service.
	convertSvc := application.NewConvertService(
		vercelClient,
		repoManager,
		jobStore,
		historyRepo,
		branchResolver,
		application.ExecRunner{},
		cfg.StorageRoot,
	)

	// 7. Create HTTP handler and server.
	handler := httphandler.NewHandler(vercelClient, jobStore, historyRepo, convertSvc, slog.Default())
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(handler, slog.Default()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// 8. Graceful shutdown. Running conversions continue to a terminal
	// state only if they finish within the drain window.
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return nil
}
