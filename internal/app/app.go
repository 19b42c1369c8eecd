// Package app wires the application components together.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/stockscout/stockscout/internal/blob"
	"github.com/stockscout/stockscout/internal/clients"
	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/config"
	"github.com/stockscout/stockscout/internal/handlers"
	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/mcp"
	"github.com/stockscout/stockscout/internal/research"
	"github.com/stockscout/stockscout/internal/scheduler"
	"github.com/stockscout/stockscout/internal/storage"
)

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Storage   interfaces.StorageManager
	Blobs     interfaces.ObjectStore
	Engine    *research.Engine
	Scheduler *scheduler.Scheduler

	// HTTP handlers
	HealthHandler        *handlers.HealthHandler
	VersionHandler       *handlers.VersionHandler
	SchedulesHandler     *handlers.SchedulesHandler
	RunOnceHandler       *handlers.RunOnceHandler
	RunsHandler          *handlers.RunsHandler
	ReportsHandler       *handlers.ReportsHandler
	TrackedStocksHandler *handlers.TrackedStocksHandler
	ArtifactsHandler     *handlers.ArtifactsHandler
	MCPHandler           *mcp.Handler
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.IsDevMode() {
		logger.Warn().Msg("RUNNING IN DEV MODE — requests without auth headers run as the dev user")
	} else if env != "prod" && env != "" {
		logger.Warn().
			Str("environment", cfg.Environment).
			Msg("unrecognized environment value, defaulting to prod behavior")
	}

	store, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.Storage = store

	blobs, err := blob.NewStore(logger, &cfg.Blob)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}
	a.Blobs = blobs

	searcher := clients.NewBingSearcher(logger, &cfg.Search)
	extractor := clients.NewPageExtractor()
	synth := clients.NewOpenAIClient(logger, &cfg.OpenAI)
	prices := clients.NewStooqFeed(logger, &cfg.Prices)
	email := clients.NewSMTPSender(logger, &cfg.Email)

	a.Engine = research.NewEngine(logger, cfg, store, blobs, searcher, extractor, synth, prices, email)
	a.Scheduler = scheduler.New(logger, cfg, store, blobs, a.Engine)

	a.initHandlers(prices)

	// Pick up runs interrupted by the last shutdown before the sweep
	// can double-start them.
	if err := a.Engine.Resume(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("Failed to resume interrupted runs")
	}

	logger.Info().Str("storage", cfg.Storage.Backend).Msg("application initialization complete")

	return a, nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers(prices interfaces.PriceFeed) {
	a.HealthHandler = handlers.NewHealthHandler(a.Logger, a.Config)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.SchedulesHandler = handlers.NewSchedulesHandler(a.Logger, a.Storage, a.Blobs, a.Engine)
	a.RunOnceHandler = handlers.NewRunOnceHandler(a.Logger, a.Engine)
	a.RunsHandler = handlers.NewRunsHandler(a.Logger, a.Storage)
	a.ReportsHandler = handlers.NewReportsHandler(a.Logger, a.Config, a.Storage, a.Blobs, a.Engine)
	a.TrackedStocksHandler = handlers.NewTrackedStocksHandler(a.Logger, a.Storage, prices)
	a.ArtifactsHandler = handlers.NewArtifactsHandler(a.Logger, a.Blobs)
	a.MCPHandler = mcp.NewHandler(a.Config, a.Logger, a.Storage, a.Engine)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close drains in-flight research runs and releases resources.
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Engine != nil {
		a.Engine.Wait()
	}
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}
