// Package pg owns the PostgreSQL connection pool and schema migrations
// for the fee router's persisted state.
package pg

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver with database/sql
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var EmbedMigrations embed.FS

// Config holds the PostgreSQL configuration.
type Config struct {
	Logger   *slog.Logger
	Host     string
	Port     string
	Database string
	Username string
	Password string
	SSLMode  string
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == "" {
		cfg.Port = "5432"
	}
	if cfg.Database == "" {
		return errors.New("database is required")
	}
	if cfg.Username == "" {
		return errors.New("username is required")
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	return nil
}

// ConnStr returns the PostgreSQL connection string.
func (cfg *Config) ConnStr() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)
}

// NewPool opens a pgx connection pool and verifies connectivity.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnStr())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	cfg.Logger.Info("pg: connected", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)
	return pool, nil
}

// MigrateUp runs all pending migrations against the configured database.
func MigrateUp(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return MigrateUpConnStr(cfg.Logger, cfg.ConnStr())
}

// MigrateUpConnStr runs all pending migrations against connStr.
func MigrateUpConnStr(log *slog.Logger, connStr string) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	goose.SetBaseFS(EmbedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	log.Info("pg: running migrations (up)")
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("pg: migrations completed")
	return nil
}

// MigrateStatus prints the migration status.
func MigrateStatus(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	db, err := sql.Open("pgx", cfg.ConnStr())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(EmbedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Status(db, "migrations"); err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	return nil
}
