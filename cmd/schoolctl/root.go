package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dangerclosesec/campusops/internal/config"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	verbose bool
	cfg     *config.Config
	log     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "schoolctl",
	Short: "Campus Ops operator CLI",
	Long: `schoolctl runs operator tasks against the Campus Ops database.

Database settings are read from the same environment variables as the API
(DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME, DB_SSLMODE, DB_SCHEMA).

Example usage:
  schoolctl migrate
  schoolctl create-admin --email ops@example.com --role super_admin
  schoolctl seed-roles --org 5b7f...
  schoolctl issue-setup-link --org 5b7f... --user 9e21...`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(log)
		cfg = config.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// openSQL opens a plain database/sql connection through lib/pq.
func openSQL(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

// openGorm opens a gorm session on top of a lib/pq connection.
func openGorm(ctx context.Context) (*gorm.DB, func(), error) {
	sqlDB, err := openSQL(ctx)
	if err != nil {
		return nil, nil, err
	}
	level := logger.Silent
	if verbose {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:  logger.Default.LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("opening gorm session: %w", err)
	}
	return db, func() { sqlDB.Close() }, nil
}
