package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"event-checkout/internal/config"
	"event-checkout/internal/logger"
)

type DB struct {
	*sql.DB
	logger *zap.Logger
}

// DSN returns the connection string for cfg
func DSN(cfg config.DatabaseConfig) string {
	// Use full URL if available, otherwise construct from components
	if cfg.URL != "" {
		return cfg.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// NewConnection opens and pings a Postgres connection pool
func NewConnection(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	db, err := sql.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, logger: logger.OrNop(log)}, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// RunMigrations runs all pending database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	return NewMigrator(db.DB, db.logger).RunMigrations(ctx)
}

// MigrationStatus reports which migrations are applied
func (db *DB) MigrationStatus(ctx context.Context) ([]MigrationState, error) {
	return NewMigrator(db.DB, db.logger).Status(ctx)
}
