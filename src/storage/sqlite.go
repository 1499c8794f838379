package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"terminal-bridge/src/helpers"
	"terminal-bridge/src/logger"
	"terminal-bridge/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	sqlTradeStore
	Config *models.MConfig
}

var sqliteDialect = sqlDialect{
	name: "sqlite",
	isConflict: func(err error) bool {
		return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
	},
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		sqlTradeStore: sqlTradeStore{
			Logger:       log,
			dialect:      sqliteDialect,
			tradesTable:  "trade_records",
			configsTable: "trade_configurations",
		},
		Config: cfg,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	err = helpers.RetryWithBackoff(d.Logger, "sqlite ping", 3, 200*time.Millisecond, db.Ping)
	if err != nil {
		return err
	}

	// A single connection serialises writers from both close detectors
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		d.Logger.Warning("Failed to set busy timeout: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS trade_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticket INTEGER NOT NULL UNIQUE,
			symbol TEXT,
			side TEXT,
			volume REAL,
			entry_price REAL,
			sl REAL,
			tp REAL,
			entry_time INTEGER,
			exit_price REAL,
			exit_time INTEGER,
			profit_loss REAL,
			change_percent REAL,
			bot_id TEXT,
			bot_name TEXT,
			estimated INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create trade_records: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS trade_configurations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticket INTEGER NOT NULL UNIQUE,
			user_id TEXT,
			bot_id TEXT,
			bot_name TEXT,
			strategy TEXT,
			magic_number INTEGER,
			entry_time INTEGER,
			max_risk_per_trade REAL,
			trade_size_usd REAL,
			leverage REAL,
			asset_type TEXT,
			risk_reward_ratio REAL,
			stop_loss_pips REAL,
			take_profit_pips REAL,
			max_loss_threshold REAL,
			entry_trigger TEXT,
			exit_trigger TEXT,
			max_daily_trades INTEGER,
			time_window TEXT,
			rsi_period INTEGER,
			moving_average_period INTEGER,
			bollinger_bands_period INTEGER,
			bb_deviation REAL,
			auto_stop_enabled INTEGER,
			max_consecutive_losses INTEGER,
			auto_trading_enabled INTEGER,
			profit_loss REAL,
			change_percent REAL,
			created_at INTEGER,
			updated_at INTEGER
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create trade_configurations: %w", err)
	}

	if _, err := d.DB.Exec("CREATE INDEX IF NOT EXISTS idx_trade_records_exit_time ON trade_records (exit_time)"); err != nil {
		return fmt.Errorf("failed to index trade_records: %w", err)
	}
	return nil
}
