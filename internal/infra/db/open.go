package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"trendpost/internal/pkg/config"
)

// ConnectionConfig holds database connection pool configuration.
type ConnectionConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConnectionConfig returns the default connection pool configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 1 * time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// Open creates and configures a new database connection pool.
// It reads DATABASE_URL from the environment and applies pool settings from
// DB_MAX_OPEN_CONNS / DB_MAX_IDLE_CONNS / DB_CONN_MAX_LIFETIME / DB_CONN_MAX_IDLE_TIME.
func Open() (*sql.DB, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	cfg := getConnectionConfigFromEnv()
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	slog.Info("database connection pool configured",
		slog.Int("max_open_conns", cfg.MaxOpenConns),
		slog.Int("max_idle_conns", cfg.MaxIdleConns),
		slog.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
		slog.Duration("conn_max_idle_time", cfg.ConnMaxIdleTime))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// getConnectionConfigFromEnv reads pool settings from the environment with
// the fail-open loaders: unset or invalid values keep the defaults.
func getConnectionConfigFromEnv() ConnectionConfig {
	cfg := DefaultConnectionConfig()

	positiveInt := func(v int) error {
		if v <= 0 {
			return fmt.Errorf("must be positive, got %d", v)
		}
		return nil
	}
	positiveDuration := func(d time.Duration) error {
		if d <= 0 {
			return fmt.Errorf("must be positive, got %v", d)
		}
		return nil
	}
	warned := func(warning string, fallback bool) {
		if fallback {
			slog.Warn("database pool setting ignored", slog.String("warning", warning))
		}
	}

	maxOpen := config.EnvInt("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns, positiveInt)
	cfg.MaxOpenConns = maxOpen.Value
	warned(maxOpen.Warning, maxOpen.Fallback)

	maxIdle := config.EnvInt("DB_MAX_IDLE_CONNS", cfg.MaxIdleConns, positiveInt)
	cfg.MaxIdleConns = maxIdle.Value
	warned(maxIdle.Warning, maxIdle.Fallback)

	lifetime := config.EnvDuration("DB_CONN_MAX_LIFETIME", cfg.ConnMaxLifetime, positiveDuration)
	cfg.ConnMaxLifetime = lifetime.Value
	warned(lifetime.Warning, lifetime.Fallback)

	idleTime := config.EnvDuration("DB_CONN_MAX_IDLE_TIME", cfg.ConnMaxIdleTime, positiveDuration)
	cfg.ConnMaxIdleTime = idleTime.Value
	warned(idleTime.Warning, idleTime.Fallback)

	return cfg
}
