package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"terminal-bridge/src/helpers"
	"terminal-bridge/src/logger"
	"terminal-bridge/src/models"
)

// -----------------------------------------------------------------------------
// Shared trade persistence for the SQLite and Postgres backends
// -----------------------------------------------------------------------------

type sqlDialect struct {
	name string
	// positional turns ? placeholders into $1, $2, ...
	positional bool
	// isConflict recognises a unique violation on ticket
	isConflict func(error) bool
}

type sqlTradeStore struct {
	DB     *sql.DB
	Logger *logger.Logger

	dialect      sqlDialect
	tradesTable  string
	configsTable string
}

var tradeRecordColumns = []string{
	"ticket", "symbol", "side", "volume", "entry_price", "sl", "tp", "entry_time",
	"exit_price", "exit_time", "profit_loss", "change_percent", "bot_id", "bot_name",
	"estimated", "created_at",
}

// Configuration columns filled once and never overwritten.
var configColumns = []string{
	"user_id", "bot_id", "bot_name", "strategy", "magic_number", "entry_time",
	"max_risk_per_trade", "trade_size_usd", "leverage", "asset_type", "risk_reward_ratio",
	"stop_loss_pips", "take_profit_pips", "max_loss_threshold", "entry_trigger", "exit_trigger",
	"max_daily_trades", "time_window", "rsi_period", "moving_average_period",
	"bollinger_bands_period", "bb_deviation", "auto_stop_enabled", "max_consecutive_losses",
	"auto_trading_enabled",
}

// Outcome columns refreshed whenever a value is provided.
var outcomeColumns = []string{"profit_loss", "change_percent"}

// -----------------------------------------------------------------------------

func (s *sqlTradeStore) rebind(query string) string {
	if !s.dialect.positional {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// -----------------------------------------------------------------------------

// UpsertTradeRecord inserts the record unless its ticket is already stored.
// Lookup first, with the unique constraint on ticket as backstop.
func (s *sqlTradeStore) UpsertTradeRecord(ctx context.Context, rec models.MTradeRecord) (bool, error) {
	var exists int
	err := s.DB.QueryRowContext(ctx, s.rebind(fmt.Sprintf("SELECT 1 FROM %s WHERE ticket = ?", s.tradesTable)), rec.Ticket).Scan(&exists)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, helpers.NewPersistenceError("lookup trade record", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (%s)
		ON CONFLICT (ticket) DO NOTHING
	`, s.tradesTable, strings.Join(tradeRecordColumns, ", "), placeholders(len(tradeRecordColumns)))

	res, err := s.DB.ExecContext(ctx, s.rebind(query),
		rec.Ticket, rec.Symbol, rec.Side, rec.Volume, rec.EntryPrice, rec.StopLoss, rec.TakeProfit, rec.EntryTime,
		rec.ExitPrice, rec.ExitTime, rec.ProfitLoss, rec.ChangePercent, nullString(rec.BotID), nullString(rec.BotName),
		rec.Estimated, time.Now().UTC().Unix(),
	)
	if err != nil {
		if s.dialect.isConflict(err) {
			return false, nil
		}
		return false, helpers.NewPersistenceError("insert trade record", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, helpers.NewPersistenceError("insert trade record", err)
	}
	return n == 1, nil
}

// -----------------------------------------------------------------------------

// UpsertTradeConfigSnapshot creates the snapshot row or fills its null
// configuration fields. Outcome fields are replaced when provided.
func (s *sqlTradeStore) UpsertTradeConfigSnapshot(ctx context.Context, ticket int64, meta models.MBotMeta, snap models.MTradeConfigSnapshot) error {
	columns := append(append([]string{"ticket"}, configColumns...), outcomeColumns...)
	columns = append(columns, "created_at", "updated_at")

	var sets []string
	for _, c := range configColumns {
		sets = append(sets, fmt.Sprintf("%s = COALESCE(%s.%s, excluded.%s)", c, s.baseName(s.configsTable), c, c))
	}
	for _, c := range outcomeColumns {
		sets = append(sets, fmt.Sprintf("%s = COALESCE(excluded.%s, %s.%s)", c, c, s.baseName(s.configsTable), c))
	}
	sets = append(sets, "updated_at = excluded.updated_at")

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (%s)
		ON CONFLICT (ticket) DO UPDATE SET
			%s
	`, s.configsTable, strings.Join(columns, ", "), placeholders(len(columns)), strings.Join(sets, ",\n\t\t\t"))

	now := time.Now().UTC().Unix()
	args := []interface{}{
		ticket,
		nullString(meta.UserID), nullString(meta.BotID), nullString(meta.BotName), nullString(meta.Strategy),
		nullInt(meta.MagicNumber), nullInt(meta.EntryTime),
		snap.MaxRiskPerTrade, snap.TradeSizeUSD, snap.Leverage, snap.AssetType, snap.RiskRewardRatio,
		snap.StopLossPips, snap.TakeProfitPips, snap.MaxLossThreshold, snap.EntryTrigger, snap.ExitTrigger,
		snap.MaxDailyTrades, snap.TimeWindow, snap.RsiPeriod, snap.MovingAveragePeriod,
		snap.BollingerBandsPeriod, snap.BBDeviation, snap.AutoStopEnabled, snap.MaxConsecutiveLosses,
		snap.AutoTradingEnabled,
		snap.ProfitLoss, snap.ChangePercent,
		now, now,
	}

	if _, err := s.DB.ExecContext(ctx, s.rebind(query), args...); err != nil {
		return helpers.NewPersistenceError("upsert trade configuration", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *sqlTradeStore) GetTradeRecord(ctx context.Context, ticket int64) (*models.MTradeRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE ticket = ?", strings.Join(tradeRecordColumns[:15], ", "), s.tradesTable)
	rec, err := scanTradeRecord(s.DB.QueryRowContext(ctx, s.rebind(query), ticket))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewPersistenceError("get trade record", err)
	}
	return rec, nil
}

// -----------------------------------------------------------------------------

func (s *sqlTradeStore) ListTradeRecords(ctx context.Context, limit int) ([]models.MTradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY exit_time DESC, ticket DESC LIMIT ?", strings.Join(tradeRecordColumns[:15], ", "), s.tradesTable)

	rows, err := s.DB.QueryContext(ctx, s.rebind(query), limit)
	if err != nil {
		return nil, helpers.NewPersistenceError("list trade records", err)
	}
	defer rows.Close()

	var out []models.MTradeRecord
	for rows.Next() {
		rec, err := scanTradeRecord(rows)
		if err != nil {
			return nil, helpers.NewPersistenceError("scan trade record", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------

func (s *sqlTradeStore) GetTradeConfigSnapshot(ctx context.Context, ticket int64) (*models.MTradeConfigRecord, error) {
	columns := append(append([]string{"ticket"}, configColumns...), outcomeColumns...)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE ticket = ?", strings.Join(columns, ", "), s.configsTable)

	var (
		rec                              models.MTradeConfigRecord
		userID, botID, botName, strategy sql.NullString
		magic, entryTime                 sql.NullInt64
	)
	snap := &rec.MTradeConfigSnapshot
	err := s.DB.QueryRowContext(ctx, s.rebind(query), ticket).Scan(
		&rec.Ticket,
		&userID, &botID, &botName, &strategy, &magic, &entryTime,
		&snap.MaxRiskPerTrade, &snap.TradeSizeUSD, &snap.Leverage, &snap.AssetType, &snap.RiskRewardRatio,
		&snap.StopLossPips, &snap.TakeProfitPips, &snap.MaxLossThreshold, &snap.EntryTrigger, &snap.ExitTrigger,
		&snap.MaxDailyTrades, &snap.TimeWindow, &snap.RsiPeriod, &snap.MovingAveragePeriod,
		&snap.BollingerBandsPeriod, &snap.BBDeviation, &snap.AutoStopEnabled, &snap.MaxConsecutiveLosses,
		&snap.AutoTradingEnabled,
		&snap.ProfitLoss, &snap.ChangePercent,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewPersistenceError("get trade configuration", err)
	}

	rec.UserID = userID.String
	rec.BotID = botID.String
	rec.BotName = botName.String
	rec.Strategy = strategy.String
	rec.MagicNumber = magic.Int64
	rec.EntryTime = entryTime.Int64
	return &rec, nil
}

// -----------------------------------------------------------------------------

func (s *sqlTradeStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTradeRecord(row rowScanner) (*models.MTradeRecord, error) {
	var (
		rec            models.MTradeRecord
		botID, botName sql.NullString
	)
	err := row.Scan(
		&rec.Ticket, &rec.Symbol, &rec.Side, &rec.Volume, &rec.EntryPrice, &rec.StopLoss, &rec.TakeProfit, &rec.EntryTime,
		&rec.ExitPrice, &rec.ExitTime, &rec.ProfitLoss, &rec.ChangePercent, &botID, &botName, &rec.Estimated,
	)
	if err != nil {
		return nil, err
	}
	rec.BotID = botID.String
	rec.BotName = botName.String
	return &rec, nil
}

// baseName strips a schema qualifier; ON CONFLICT clauses reference the bare table.
func (s *sqlTradeStore) baseName(table string) string {
	if i := strings.LastIndex(table, "."); i >= 0 {
		return table[i+1:]
	}
	return table
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
