// Package campusops holds the assets embedded into the binaries: email
// templates and the SQL migrations.
package campusops

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
)

//go:embed templates/emails
var EmailFS embed.FS

//go:embed migrations/*.sql
var MigrationFS embed.FS

// Config holds the configuration settings for running migrations.
type Config struct {
	// ctx is the context for all operations.
	ctx context.Context

	// logger is the logger used for logging messages.
	logger *slog.Logger

	// db is the database connection used for migrations.
	db *sql.DB
}

func NewConfig(ctx context.Context, db *sql.DB) *Config {
	return &Config{
		ctx:    ctx,
		db:     db,
		logger: slog.Default(),
	}
}

// SetDB sets the database connection.
func (c *Config) SetDB(db *sql.DB) {
	c.db = db
}

// SetLogger sets the logger.
func (c *Config) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// Migrate applies every embedded migration not yet recorded in
// schema_migrations, each in its own transaction, in file name order. It
// returns the versions applied.
func (c *Config) Migrate() ([]string, error) {
	if c.db == nil {
		return nil, fmt.Errorf("migrate: no database connection")
	}

	if _, err := c.db.ExecContext(c.ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	done, err := c.appliedVersions()
	if err != nil {
		return nil, err
	}

	files, err := fs.Glob(MigrationFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(files)

	var applied []string
	for _, file := range files {
		version := strings.TrimSuffix(strings.TrimPrefix(file, "migrations/"), ".sql")
		if done[version] {
			continue
		}
		body, err := MigrationFS.ReadFile(file)
		if err != nil {
			return applied, fmt.Errorf("failed to read %s: %w", file, err)
		}
		if err := c.apply(version, string(body)); err != nil {
			return applied, err
		}
		c.logger.Info("Applied migration", "version", version)
		applied = append(applied, version)
	}
	return applied, nil
}

func (c *Config) appliedVersions() (map[string]bool, error) {
	rows, err := c.db.QueryContext(c.ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		done[v] = true
	}
	return done, rows.Err()
}

func (c *Config) apply(version, body string) error {
	tx, err := c.db.BeginTx(c.ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	if _, err := tx.ExecContext(c.ctx, body); err != nil {
		tx.Rollback()
		return fmt.Errorf("migration %s failed: %w", version, err)
	}
	if _, err := tx.ExecContext(c.ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %s: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", version, err)
	}
	return nil
}
