// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS accrual_events (
			event_id SERIAL PRIMARY KEY,
			event_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			denom VARCHAR(128) NOT NULL,
			yield_amount NUMERIC(78, 0) NOT NULL,
			tax_amount NUMERIC(78, 0) NOT NULL,
			rate_value NUMERIC(78, 0) NOT NULL,
			rate_scale NUMERIC(78, 0) NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_accrual_events_timestamp ON accrual_events(event_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_accrual_events_denom ON accrual_events(denom);

		CREATE TABLE IF NOT EXISTS tax_collections (
			collection_id SERIAL PRIMARY KEY,
			collection_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			collected_coin VARCHAR(256) NOT NULL,
			treasury VARCHAR(128) NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tax_collections_timestamp ON tax_collections(collection_timestamp DESC);

		CREATE TABLE IF NOT EXISTS supply_events (
			event_id SERIAL PRIMARY KEY,
			event_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			op VARCHAR(16) NOT NULL,
			holder VARCHAR(128) NOT NULL,
			shares NUMERIC(78, 0) NOT NULL,
			total_supply NUMERIC(78, 0) NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_supply_events_timestamp ON supply_events(event_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_supply_events_holder ON supply_events(holder);

		CREATE TABLE IF NOT EXISTS jit_events (
			event_id SERIAL PRIMARY KEY,
			event_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			phase VARCHAR(16) NOT NULL,
			executed BOOLEAN NOT NULL,
			tick_lower INTEGER NOT NULL,
			tick_upper INTEGER NOT NULL,
			liquidity_delta NUMERIC(78, 0) NOT NULL,
			amount0 NUMERIC(78, 0) NOT NULL,
			amount1 NUMERIC(78, 0) NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_jit_events_timestamp ON jit_events(event_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_jit_events_phase ON jit_events(phase);

		CREATE TABLE IF NOT EXISTS engine_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			snapshot JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_engine_snapshots_timestamp ON engine_snapshots(snapshot_timestamp DESC);
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
