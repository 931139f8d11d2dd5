// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

var ErrDBNotInitialized = errors.New("database not initialized")

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

	DB.SetMaxOpenConns(10)
	DB.SetMaxIdleConns(10)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		DB = nil
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Str("host", cfg.Host).Str("db", cfg.DBName).Msg("Connected to the PostgreSQL database")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
		DB = nil
	}
}

// Enabled reports whether InitDB succeeded.
func Enabled() bool {
	return DB != nil
}

// schemaSQL holds every table the toolkit writes. Amounts are NUMERIC(78, 0) so any
// uint256 fits; they are read back as text and parsed into big.Int.
const schemaSQL = `
	CREATE TABLE IF NOT EXISTS multisig_submissions (
		submission_id BIGSERIAL PRIMARY KEY,
		network VARCHAR(32) NOT NULL,
		wallet VARCHAR(42) NOT NULL,
		tx_id BIGINT NOT NULL,
		target VARCHAR(42) NOT NULL,
		method VARCHAR(128) NOT NULL DEFAULT '',
		data_hex TEXT NOT NULL,
		value NUMERIC(78, 0) NOT NULL DEFAULT 0,
		submit_tx_hash VARCHAR(66) NOT NULL,
		submitter VARCHAR(42) NOT NULL,
		submitted_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		confirmations INTEGER NOT NULL DEFAULT 0,
		executed BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT uq_multisig_submissions_wallet_tx UNIQUE (wallet, tx_id)
	);
	CREATE INDEX IF NOT EXISTS idx_multisig_submissions_pending ON multisig_submissions(executed, submitted_at DESC);

	CREATE TABLE IF NOT EXISTS distribution_runs (
		run_id BIGSERIAL PRIMARY KEY,
		run_uuid UUID NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		kind VARCHAR(16) NOT NULL,
		network VARCHAR(32) NOT NULL,
		csv_hash VARCHAR(66) NOT NULL,
		token VARCHAR(42) NOT NULL,
		row_count INTEGER NOT NULL,
		total TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		finished_at TIMESTAMPTZ,
		completed INTEGER NOT NULL DEFAULT 0,
		submitted INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_distribution_runs_name_hash ON distribution_runs(name, csv_hash, started_at DESC);

	CREATE TABLE IF NOT EXISTS distribution_entries (
		entry_id BIGSERIAL PRIMARY KEY,
		run_id BIGINT NOT NULL REFERENCES distribution_runs(run_id) ON DELETE CASCADE,
		line INTEGER NOT NULL,
		address VARCHAR(42) NOT NULL,
		amount TEXT NOT NULL,
		status VARCHAR(16) NOT NULL,
		step VARCHAR(16) NOT NULL DEFAULT '',
		tx_hashes TEXT[] NOT NULL DEFAULT '{}',
		multisig_tx_id BIGINT,
		vesting VARCHAR(42),
		message TEXT NOT NULL DEFAULT '',
		entry_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT uq_distribution_entries_run_line UNIQUE (run_id, line)
	);
	ALTER TABLE distribution_entries ADD COLUMN IF NOT EXISTS step VARCHAR(16) NOT NULL DEFAULT '';

	CREATE TABLE IF NOT EXISTS check_results (
		check_id BIGSERIAL PRIMARY KEY,
		batch_id UUID NOT NULL,
		name VARCHAR(64) NOT NULL,
		subject VARCHAR(128) NOT NULL,
		expected NUMERIC(78, 0),
		actual NUMERIC(78, 0),
		tolerance NUMERIC(78, 0),
		passed BOOLEAN NOT NULL,
		skipped BOOLEAN NOT NULL DEFAULT FALSE,
		message TEXT NOT NULL DEFAULT '',
		check_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_check_results_batch ON check_results(batch_id);
	CREATE INDEX IF NOT EXISTS idx_check_results_timestamp ON check_results(check_timestamp DESC);

	-- Cycle counter table for persistent watcher cycle tracking
	CREATE TABLE IF NOT EXISTS watch_cycle_counter (
		id INTEGER PRIMARY KEY DEFAULT 1,
		current_cycle INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT single_row_check CHECK (id = 1)
	);

	INSERT INTO watch_cycle_counter (id, current_cycle)
	VALUES (1, 0)
	ON CONFLICT (id) DO NOTHING;
`

// Tables lists the schema's tables in drop order.
var Tables = []string{
	"check_results",
	"distribution_entries",
	"distribution_runs",
	"multisig_submissions",
	"watch_cycle_counter",
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return ErrDBNotInitialized
	}
	if _, err := DB.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured")
	return nil
}

// DropSchema removes every table. Used by `sovops db reset`.
func DropSchema() error {
	if DB == nil {
		return ErrDBNotInitialized
	}
	for _, table := range Tables {
		if _, err := DB.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
		log.Info().Str("table", table).Msg("Dropped table")
	}
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return ErrDBNotInitialized
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
