package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/config"
	"github.com/phrazzld/taskly-api/internal/platform/postgres"
	"github.com/pressly/goose/v3"
)

// migrationsSourceDir is where new migration files are written by -migrate=create.
// It is relative to the repository root.
const migrationsSourceDir = "internal/platform/postgres/migrations"

var migrationCommands = []string{"up", "down", "status", "create", "version"}

// slogGooseLogger adapts goose.Logger to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

// Printf forwards goose progress output at info level.
func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf logs at error level. It does not exit; goose returns the error to the caller.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func isMigrationCommand(command string) bool {
	for _, c := range migrationCommands {
		if c == command {
			return true
		}
	}
	return false
}

// runMigrations executes a goose command against the configured database
// using the migrations embedded in the postgres package.
func runMigrations(cfg *config.Config, logger *slog.Logger, command, name string) error {
	if !isMigrationCommand(command) {
		return fmt.Errorf("unknown migration command %q (expected one of %s)",
			command, strings.Join(migrationCommands, ", "))
	}

	migrationLogger := logger.With(
		"component", "migrations",
		"command", command,
		"correlation_id", uuid.New().String(),
	)
	goose.SetLogger(&slogGooseLogger{logger: migrationLogger})
	goose.SetTableName(postgres.MigrationsTable)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	// create writes a new file to disk, so it reads the source tree instead of
	// the embedded copy and needs no database.
	if command == "create" {
		goose.SetBaseFS(nil)
		if err := goose.Create(nil, migrationsSourceDir, name, "sql"); err != nil {
			return fmt.Errorf("failed to create migration %q: %w", name, err)
		}
		return nil
	}

	db, err := setupAppDatabase(context.Background(), cfg.Database, migrationLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			migrationLogger.Error("error closing database connection", "error", err)
		}
	}()

	goose.SetBaseFS(postgres.Migrations)
	start := time.Now()
	if err := executeMigration(db, command); err != nil {
		migrationLogger.Error("migration command failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return fmt.Errorf("migration command %q failed: %w", command, err)
	}

	migrationLogger.Info("migration command completed",
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func executeMigration(db *sql.DB, command string) error {
	switch command {
	case "up":
		return goose.Up(db, postgres.MigrationsDir)
	case "down":
		return goose.Down(db, postgres.MigrationsDir)
	case "status":
		return goose.Status(db, postgres.MigrationsDir)
	case "version":
		return goose.Version(db, postgres.MigrationsDir)
	default:
		return fmt.Errorf("unsupported migration command %q", command)
	}
}
