// Package main implements the entry point for the Taskly API server, which
// serves the task, tag and account endpoints and runs the daily retention job.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/joho/godotenv"
	"github.com/phrazzld/taskly-api/internal/config"
	"github.com/phrazzld/taskly-api/internal/platform/logger"
	"github.com/phrazzld/taskly-api/internal/redact"
)

// options are the command-line switches accepted by the server binary.
type options struct {
	migrate       string
	migrationName string
	purgeArchived bool
	envFile       string
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options

	fset := flag.NewFlagSet("server", flag.ContinueOnError)
	fset.SetOutput(output)
	fset.StringVar(&opts.migrate, "migrate", "", "Run a migration command: up|down|status|create|version")
	fset.StringVar(&opts.migrationName, "name", "", "Name for the new migration file (used with -migrate=create)")
	fset.BoolVar(&opts.purgeArchived, "purge-archived", false, "Purge expired archived tasks once and exit")
	fset.StringVar(&opts.envFile, "env-file", ".env", "Optional dotenv file loaded before configuration")

	if err := fset.Parse(args); err != nil {
		return options{}, err
	}
	if opts.migrate != "" && opts.purgeArchived {
		return options{}, errors.New("-migrate and -purge-archived cannot be combined")
	}
	if opts.migrate == "create" && opts.migrationName == "" {
		return options{}, errors.New("-name is required with -migrate=create")
	}
	return opts, nil
}

// loadEnvFile loads path into the process environment. A missing file is not
// an error; existing variables are never overwritten.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("server exited with error", "error", redact.Error(err))
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	if err := loadEnvFile(opts.envFile); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	if opts.migrate != "" {
		return runMigrations(cfg, log, opts.migrate, opts.migrationName)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := setupAppDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}

	app, err := newApplication(cfg, log, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.cleanup()

	if opts.purgeArchived {
		return app.purgeOnce(ctx)
	}
	return app.Run(ctx)
}
