// Package app initializes and orchestrates countpkg's components: the
// store, the crawl pool, the snapshot scheduler, the audit trail, and the
// read-only query server, grounded on the teacher's internal/app.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sevigo/countpkg/internal/api"
	"github.com/sevigo/countpkg/internal/auditdb"
	"github.com/sevigo/countpkg/internal/config"
	"github.com/sevigo/countpkg/internal/crawler"
	"github.com/sevigo/countpkg/internal/ghclient"
	"github.com/sevigo/countpkg/internal/planner"
	"github.com/sevigo/countpkg/internal/snapshot"
	"github.com/sevigo/countpkg/internal/store"
)

// App holds the main application components.
type App struct {
	Store *store.Store
	Pool  *crawler.Pool
	Audit auditdb.Store
	Cfg   *config.Config

	logger      *slog.Logger
	server      *api.Server
	scheduler   *snapshot.Scheduler
	auditDB     *auditdb.DB
	runID       int64
	credentials []ghclient.Credential
}

// NewApp sets up the application with all its dependencies, returning a
// cleanup function that releases the audit database connection.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, func(), error) {
	logger.Info("initializing countpkg",
		"language", cfg.Language,
		"search_period", cfg.SearchPeriod.Period,
		"search_slice", cfg.SearchPeriod.Slice,
		"workers", cfg.Credentials.WorkerCount(),
	)

	backend := store.NewRedisBackend(cfg.Store.Addr, cfg.Store.Password, cfg.Store.DB)
	retry := store.RetryConfig{Attempts: cfg.Store.RetryAttempts, Delay: cfg.Store.RetryDelay}
	st := store.New(backend, retry)

	auditConn, auditCleanup, err := auditdb.NewDatabase(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize audit database: %w", err)
	}
	auditStore := auditdb.NewStore(auditConn)

	credentials, err := buildCredentials(cfg.Credentials)
	if err != nil {
		auditCleanup()
		return nil, nil, fmt.Errorf("failed to build github credentials: %w", err)
	}

	slices, err := planner.SlicePeriod(cfg.SearchPeriod.Period, cfg.SearchPeriod.Slice, cfg.SearchPeriod.NewestFirst)
	if err != nil {
		auditCleanup()
		return nil, nil, fmt.Errorf("failed to plan search time slices: %w", err)
	}

	run := auditRunFor(cfg, len(credentials))
	runID, err := auditStore.StartRun(ctx, &run)
	if err != nil {
		auditCleanup()
		return nil, nil, fmt.Errorf("failed to record crawl run: %w", err)
	}
	logger = logger.With("run_id", run.ExternalID)

	spec := crawler.SearchSpec{
		Keyword:    cfg.SearchRepo.Keyword,
		Sort:       cfg.SearchRepo.Sort,
		Order:      cfg.SearchRepo.Order,
		PerPage:    cfg.SearchRepo.PerPage,
		Qualifiers: cfg.SearchRepo.Qualifiers,
	}
	pool := crawler.New(st, spec, slices, logger.With("component", "crawler"))

	scheduler := snapshot.New(st, cfg.Store.SnapshotEvery, logger.With("component", "snapshot"))
	httpServer := api.NewServer(cfg, st, pool, logger.With("component", "api"))

	a := &App{
		Store:       st,
		Pool:        pool,
		Audit:       auditStore,
		Cfg:         cfg,
		logger:      logger,
		server:      httpServer,
		scheduler:   scheduler,
		auditDB:     auditConn,
		runID:       runID,
		credentials: credentials,
	}

	return a, func() {
		auditCleanup()
	}, nil
}

func auditRunFor(cfg *config.Config, workers int) auditdb.Run {
	return auditdb.Run{
		ExternalID:   auditdb.NewExternalID(),
		Keyword:      cfg.SearchRepo.Keyword,
		SearchPeriod: cfg.SearchPeriod.Period,
		SearchSlice:  cfg.SearchPeriod.Slice,
		WorkerCount:  workers,
		StartedAt:    time.Now().UTC(),
	}
}

func buildCredentials(cfg config.CredentialsConfig) ([]ghclient.Credential, error) {
	var creds []ghclient.Credential
	for _, t := range cfg.Tokens {
		creds = append(creds, ghclient.TokenCredential{WorkerName: t.Name, Token: t.Token})
	}
	for i, a := range cfg.Apps {
		creds = append(creds, ghclient.AppCredential{
			WorkerName:     fmt.Sprintf("app-%d", i),
			AppID:          a.AppID,
			InstallationID: a.InstallationID,
			PrivateKeyPath: a.PrivateKeyPath,
		})
	}
	for i := 0; i < cfg.Anonymous; i++ {
		creds = append(creds, ghclient.AnonymousCredential{WorkerName: fmt.Sprintf("anon-%d", i)})
	}
	if len(creds) == 0 {
		return nil, errors.New("no worker credentials configured")
	}
	return creds, nil
}

// Run starts the crawl pool, the snapshot scheduler, and the HTTP query
// server concurrently, blocking until ctx is canceled or the crawl pool
// exits.
func (a *App) Run(ctx context.Context) error {
	go func() {
		if err := a.scheduler.Run(ctx); err != nil {
			a.logger.Error("snapshot scheduler stopped with error", "error", err)
		}
	}()

	go func() {
		if err := a.server.Start(); err != nil {
			a.logger.Error("api server stopped with error", "error", err)
		}
	}()

	err := a.Pool.Run(ctx, a.credentials)

	status := "completed"
	if err != nil {
		status = "failed"
	}
	if finishErr := a.Audit.FinishRun(context.Background(), a.runID, status, err); finishErr != nil {
		a.logger.Error("failed to record crawl run completion", "error", finishErr)
	}
	return err
}

// Stop shuts down the API server gracefully.
func (a *App) Stop() error {
	a.logger.Info("shutting down countpkg")
	a.Pool.Stop()
	return a.server.Stop()
}
