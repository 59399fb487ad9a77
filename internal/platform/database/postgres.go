package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"cpdash/internal/platform/config"
	"cpdash/internal/platform/logger"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"go.uber.org/zap"
)

//go:embed schema.sql
var schemaSQL string

var DB *sql.DB

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// Connect opens the pool and waits for Postgres to answer, retrying while the
// server is still starting.
func Connect() error {
	cfg := config.AppConfig
	db, err := sql.Open("pgx", cfg.DBConnStr)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)

	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			break
		}
		if attempt == connectAttempts {
			db.Close()
			return fmt.Errorf("connecting to database after %d attempts: %w", attempt, err)
		}
		logger.Log.Warn("database not ready, retrying",
			zap.Int("attempt", attempt), zap.Duration("backoff", connectBackoff), zap.Error(err))
		time.Sleep(connectBackoff)
	}

	DB = db
	logger.Log.Info("connected to PostgreSQL", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
	return nil
}

// Migrate applies the idempotent schema. Every statement uses IF NOT EXISTS.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	logger.Log.Info("database schema up to date")
	return nil
}

func Close() {
	if DB != nil {
		DB.Close()
		logger.Log.Info("database connection closed")
	}
}
