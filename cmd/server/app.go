package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskly-api/internal/config"
	"github.com/phrazzld/taskly-api/internal/job"
	"github.com/phrazzld/taskly-api/internal/platform/filestore"
	"github.com/phrazzld/taskly-api/internal/platform/postgres"
	"github.com/phrazzld/taskly-api/internal/service"
	"github.com/phrazzld/taskly-api/internal/service/auth"
)

// application holds the shared dependencies so they can be closed together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	blobs *filestore.Store

	accountService service.AccountService
	taskService    service.TaskService
	tagService     service.TagService

	retention *job.RetentionJob
	scheduler *job.Scheduler
}

// newApplication wires stores, services and the retention job on top of an
// open database connection.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	hasher := auth.NewBcrypt(cfg.Auth.BCryptCost)

	app.blobs, err = filestore.NewOS(cfg.Storage.Root, cfg.Storage.PublicBaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	users := postgres.NewPostgresUserStore(db, logger)
	tokens := postgres.NewPostgresTokenStore(db, logger)
	tasks := postgres.NewPostgresTaskStore(db, logger)
	tags := postgres.NewPostgresTagStore(db, logger)
	attachments := postgres.NewPostgresAttachmentStore(db, logger)

	accounts, err := service.NewAccountService(db, users, tokens, jwtService, hasher, hasher, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create account service: %w", err)
	}
	app.accountService = accounts

	taskService, err := service.NewTaskService(
		db,
		tasks,
		tags,
		attachments,
		app.blobs,
		cfg.Storage.MaxUploadBytes,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}
	app.taskService = taskService

	app.tagService, err = service.NewTagService(db, tags, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create tag service: %w", err)
	}

	app.retention, err = job.NewRetentionJob(
		taskService,
		accounts,
		cfg.Retention.Window,
		cfg.Retention.BatchSize,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retention job: %w", err)
	}

	if cfg.Retention.Enabled {
		app.scheduler, err = job.NewScheduler(app.retention, cfg.Retention, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create retention scheduler: %w", err)
		}
	}

	logger.Info("application initialized successfully",
		"storage_root", cfg.Storage.Root,
		"retention_enabled", cfg.Retention.Enabled)
	return app, nil
}

// Run starts the scheduler and serves HTTP until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	if app.scheduler != nil {
		app.scheduler.Start()
	}

	router := newRouter(routerDeps{
		accounts: app.accountService,
		tasks:    app.taskService,
		tags:     app.tagService,
		urls:     app.blobs,
	}, app.logger)

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// purgeOnce runs the retention job immediately, bounded by the configured max runtime.
func (app *application) purgeOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, app.config.Retention.MaxRuntime)
	defer cancel()

	result, err := app.retention.Purge(ctx)
	app.logger.Info("manual purge finished",
		"purged", result.Purged,
		"failed", result.Failed,
		"tokens_pruned", result.TokensPruned)
	return err
}

// cleanup stops background work and closes the database.
func (app *application) cleanup() {
	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
