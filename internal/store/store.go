// Package store persists trade intents, technical signals, and closed
// trades in sqlite. The intent queue is the only structure shared between
// the decision core and the execution consumer; every status transition
// happens inside a transaction so a claim is atomic.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"phoenix/internal/model"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the sqlite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at dbPath and runs migrations.
func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS trade_intents (
			id          TEXT PRIMARY KEY,
			asset       TEXT NOT NULL,
			side        TEXT NOT NULL,
			entry_price REAL NOT NULL,
			stop_loss   REAL NOT NULL,
			take_profit REAL NOT NULL,
			score       INTEGER NOT NULL,
			strategy    TEXT NOT NULL,
			timeframe   TEXT NOT NULL,
			status      TEXT NOT NULL DEFAULT 'NEW',
			created_at  TIMESTAMP NOT NULL,
			updated_at  TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_intents_status ON trade_intents(status, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_intents_asset ON trade_intents(asset, status);`,
		`CREATE TABLE IF NOT EXISTS technical_signals (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			asset       TEXT NOT NULL,
			timeframe   TEXT NOT NULL,
			strategy    TEXT NOT NULL,
			signal      TEXT NOT NULL,
			entry_price REAL NOT NULL,
			stop_loss   REAL NOT NULL,
			take_profit REAL NOT NULL,
			details     TEXT,
			created_at  TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS closed_trades (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			asset        TEXT NOT NULL,
			side         TEXT NOT NULL,
			entry_price  REAL NOT NULL,
			exit_price   REAL NOT NULL,
			stop_loss    REAL NOT NULL,
			take_profit  REAL NOT NULL,
			strategy     TEXT NOT NULL,
			entry_time   TIMESTAMP NOT NULL,
			exit_time    TIMESTAMP NOT NULL,
			pnl          REAL NOT NULL,
			close_reason TEXT NOT NULL
		);`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// InsertIntent persists a NEW trade intent and returns it with its id.
func (s *Store) InsertIntent(ctx context.Context, intent model.TradeIntent) (model.TradeIntent, error) {
	if intent.ID == "" {
		intent.ID = uuid.NewString()
	}
	if intent.Status == "" {
		intent.Status = model.IntentNew
	}
	now := time.Now().UTC()
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = now
	}
	intent.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trade_intents
		 (id, asset, side, entry_price, stop_loss, take_profit, score, strategy, timeframe, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		intent.ID, intent.Asset, string(intent.Side), intent.EntryPrice, intent.StopLoss,
		intent.TakeProfit, intent.Score, intent.Strategy, intent.Timeframe,
		string(intent.Status), intent.CreatedAt, intent.UpdatedAt,
	)
	if err != nil {
		return model.TradeIntent{}, fmt.Errorf("insert intent: %w", err)
	}
	return intent, nil
}

// HasActiveIntent reports whether a NEW or PROCESSING intent exists for
// the asset.
func (s *Store) HasActiveIntent(ctx context.Context, asset string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM trade_intents WHERE asset = ? AND status IN ('NEW', 'PROCESSING')`,
		asset,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count active intents: %w", err)
	}
	return n > 0, nil
}

// ClaimNew atomically selects up to limit NEW intents in creation order and
// marks them PROCESSING before returning them. This is the query-then-lock
// step that guarantees at-most-one consumer acts on an intent.
func (s *Store) ClaimNew(ctx context.Context, limit int) ([]model.TradeIntent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, asset, side, entry_price, stop_loss, take_profit, score, strategy, timeframe, status, created_at, updated_at
		 FROM trade_intents WHERE status = 'NEW' ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select new intents: %w", err)
	}
	intents, err := scanIntents(rows)
	if err != nil {
		return nil, err
	}
	if len(intents) == 0 {
		return nil, tx.Commit()
	}

	now := time.Now().UTC()
	for i := range intents {
		if _, err := tx.ExecContext(ctx,
			`UPDATE trade_intents SET status = 'PROCESSING', updated_at = ? WHERE id = ?`,
			now, intents[i].ID,
		); err != nil {
			return nil, fmt.Errorf("mark intent %s processing: %w", intents[i].ID, err)
		}
		intents[i].Status = model.IntentProcessing
		intents[i].UpdatedAt = now
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim tx: %w", err)
	}
	return intents, nil
}

// SetIntentStatus transitions a claimed intent to a terminal status
// (or back to NEW for a retry).
func (s *Store) SetIntentStatus(ctx context.Context, id string, status model.IntentStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE trade_intents SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update intent %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("intent %s not found", id)
	}
	return nil
}

// ResetStaleProcessing returns PROCESSING intents older than the timeout
// back to NEW. This sweeps up intents orphaned by a consumer that crashed
// after the claim.
func (s *Store) ResetStaleProcessing(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.ExecContext(ctx,
		`UPDATE trade_intents SET status = 'NEW', updated_at = ?
		 WHERE status = 'PROCESSING' AND updated_at < ?`,
		time.Now().UTC(), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stale intents: %w", err)
	}
	return res.RowsAffected()
}

// RecentIntents returns the latest intents, newest first.
func (s *Store) RecentIntents(ctx context.Context, limit int) ([]model.TradeIntent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, asset, side, entry_price, stop_loss, take_profit, score, strategy, timeframe, status, created_at, updated_at
		 FROM trade_intents ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent intents: %w", err)
	}
	return scanIntents(rows)
}

func scanIntents(rows *sql.Rows) ([]model.TradeIntent, error) {
	defer rows.Close()
	var out []model.TradeIntent
	for rows.Next() {
		var it model.TradeIntent
		var side, status string
		if err := rows.Scan(&it.ID, &it.Asset, &side, &it.EntryPrice, &it.StopLoss,
			&it.TakeProfit, &it.Score, &it.Strategy, &it.Timeframe, &status,
			&it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan intent: %w", err)
		}
		it.Side = model.Side(side)
		it.Status = model.IntentStatus(status)
		out = append(out, it)
	}
	return out, rows.Err()
}

// InsertSignal appends a technical-signal log entry.
func (s *Store) InsertSignal(ctx context.Context, sig model.TechnicalSignal) error {
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO technical_signals
		 (asset, timeframe, strategy, signal, entry_price, stop_loss, take_profit, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.Asset, sig.Timeframe, sig.Strategy, sig.Signal,
		sig.EntryPrice, sig.StopLoss, sig.TakeProfit, sig.Details, sig.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// InsertClosedTrade persists a completed trade.
func (s *Store) InsertClosedTrade(ctx context.Context, t model.ClosedTrade) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO closed_trades
		 (asset, side, entry_price, exit_price, stop_loss, take_profit, strategy, entry_time, exit_time, pnl, close_reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Asset, string(t.Side), t.EntryPrice, t.ExitPrice, t.StopLoss, t.TakeProfit,
		t.Strategy, t.EntryTime, t.ExitTime, t.PnL, string(t.Reason),
	)
	if err != nil {
		return fmt.Errorf("insert closed trade: %w", err)
	}
	return nil
}

// RecentTrades returns the latest closed trades, newest first.
func (s *Store) RecentTrades(ctx context.Context, limit int) ([]model.ClosedTrade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT asset, side, entry_price, exit_price, stop_loss, take_profit, strategy, entry_time, exit_time, pnl, close_reason
		 FROM closed_trades ORDER BY exit_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent trades: %w", err)
	}
	defer rows.Close()
	var out []model.ClosedTrade
	for rows.Next() {
		var t model.ClosedTrade
		var side, reason string
		if err := rows.Scan(&t.Asset, &side, &t.EntryPrice, &t.ExitPrice, &t.StopLoss,
			&t.TakeProfit, &t.Strategy, &t.EntryTime, &t.ExitTime, &t.PnL, &reason); err != nil {
			return nil, fmt.Errorf("scan closed trade: %w", err)
		}
		t.Side = model.Side(side)
		t.Reason = model.CloseReason(reason)
		out = append(out, t)
	}
	return out, rows.Err()
}
