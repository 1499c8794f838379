package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"terminal-bridge/src/helpers"
	"terminal-bridge/src/logger"
	"terminal-bridge/src/models"

	"github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	sqlTradeStore
	Config *models.MConfig
	Schema string
}

var postgresDialect = sqlDialect{
	name:       "postgres",
	positional: true,
	isConflict: func(err error) bool {
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == "23505"
	},
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	// Schema is named after the executable so several bridges can share a database
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return newPostgresDB(cfg, log, name), nil
}

func newPostgresDB(cfg *models.MConfig, log *logger.Logger, schema string) *PostgresDB {
	quoted := pq.QuoteIdentifier(schema)
	return &PostgresDB{
		sqlTradeStore: sqlTradeStore{
			Logger:       log,
			dialect:      postgresDialect,
			tradesTable:  quoted + ".trade_records",
			configsTable: quoted + ".trade_configurations",
		},
		Config: cfg,
		Schema: schema,
	}
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	err = helpers.RetryWithBackoff(d.Logger, "postgres ping", 5, 500*time.Millisecond, db.Ping)
	if err != nil {
		return err
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pq.QuoteIdentifier(d.Schema))); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			ticket BIGINT NOT NULL UNIQUE,
			symbol TEXT,
			side TEXT,
			volume DOUBLE PRECISION,
			entry_price DOUBLE PRECISION,
			sl DOUBLE PRECISION,
			tp DOUBLE PRECISION,
			entry_time BIGINT,
			exit_price DOUBLE PRECISION,
			exit_time BIGINT,
			profit_loss DOUBLE PRECISION,
			change_percent DOUBLE PRECISION,
			bot_id TEXT,
			bot_name TEXT,
			estimated BOOLEAN NOT NULL DEFAULT FALSE,
			created_at BIGINT
		);
	`, d.tradesTable)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create trade_records: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			ticket BIGINT NOT NULL UNIQUE,
			user_id TEXT,
			bot_id TEXT,
			bot_name TEXT,
			strategy TEXT,
			magic_number BIGINT,
			entry_time BIGINT,
			max_risk_per_trade DOUBLE PRECISION,
			trade_size_usd DOUBLE PRECISION,
			leverage DOUBLE PRECISION,
			asset_type TEXT,
			risk_reward_ratio DOUBLE PRECISION,
			stop_loss_pips DOUBLE PRECISION,
			take_profit_pips DOUBLE PRECISION,
			max_loss_threshold DOUBLE PRECISION,
			entry_trigger TEXT,
			exit_trigger TEXT,
			max_daily_trades BIGINT,
			time_window TEXT,
			rsi_period BIGINT,
			moving_average_period BIGINT,
			bollinger_bands_period BIGINT,
			bb_deviation DOUBLE PRECISION,
			auto_stop_enabled BOOLEAN,
			max_consecutive_losses BIGINT,
			auto_trading_enabled BOOLEAN,
			profit_loss DOUBLE PRECISION,
			change_percent DOUBLE PRECISION,
			created_at BIGINT,
			updated_at BIGINT
		);
	`, d.configsTable)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create trade_configurations: %w", err)
	}

	return nil
}
