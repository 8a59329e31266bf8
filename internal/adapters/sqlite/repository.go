package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.TradeRepository interface using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

var _ ports.TradeRepository = (*Repository)(nil)

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/journal.db"
	}

	dsn := dbPath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
			cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
			return nil, err
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, fmt.Errorf("%w: %v", ports.ErrDBConnection, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, fmt.Errorf("%w: %v", ports.ErrDBConnection, err)
	}

	// A single connection serialises writers; the close CAS relies on SQLite's own locking either way
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL CHECK (side IN ('buy', 'sell')),
		quantity REAL NOT NULL,
		lot_size REAL NOT NULL DEFAULT 1,
		entry_price REAL NOT NULL,
		stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL,
		entry_time TIMESTAMP NOT NULL,
		fees REAL NOT NULL DEFAULT 0,
		exit_price REAL DEFAULT NULL,
		exit_time TIMESTAMP DEFAULT NULL,
		pnl REAL DEFAULT NULL,
		exit_reason TEXT DEFAULT NULL,
		notes TEXT NOT NULL DEFAULT '',
		checklist_data TEXT NOT NULL DEFAULT '{}',
		checklist_score INTEGER DEFAULT NULL,
		checklist_grade TEXT DEFAULT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_entry_time ON trades (entry_time);
	CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades (exit_time);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades (symbol);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

const tradeColumns = `id, symbol, side, quantity, lot_size, entry_price, stop_loss, take_profit,
	entry_time, fees, exit_price, exit_time, pnl, exit_reason, notes, checklist_data,
	checklist_score, checklist_grade, created_at, updated_at`

// ListTrades retrieves trades ordered by entry time descending. A limit <= 0 returns all rows.
func (r *Repository) ListTrades(ctx context.Context, limit, offset int) ([]*domain.Trade, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + tradeColumns + ` FROM trades ORDER BY entry_time DESC, rowid DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list trades: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan trade during ListTrades: %v", ports.ErrQueryFailed, err)
		}
		trades = append(trades, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating trade rows: %v", ports.ErrQueryFailed, err)
	}
	return trades, nil
}

// CountTrades returns the number of stored trades.
func (r *Repository) CountTrades(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count trades: %v", ports.ErrQueryFailed, err)
	}
	return count, nil
}

// GetTrade retrieves a trade by its ID.
func (r *Repository) GetTrade(ctx context.Context, id string) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = ?`
	t, err := scanTrade(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("trade %s: %w", id, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: get trade %s: %v", ports.ErrQueryFailed, id, err)
	}
	return t, nil
}

// CreateTrade saves a new trade record.
func (r *Repository) CreateTrade(ctx context.Context, t *domain.Trade) error {
	if t.ID == "" {
		return fmt.Errorf("%w: trade ID is required", ports.ErrInvalidRequest)
	}
	checklist, err := json.Marshal(t.Checklist)
	if err != nil {
		return fmt.Errorf("failed to encode checklist for trade %s: %w", t.ID, err)
	}

	query := `INSERT INTO trades (` + tradeColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		t.ID, t.Symbol, string(t.Side), t.Quantity, t.EffectiveLotSize(), t.EntryPrice, t.StopLoss, t.TakeProfit,
		t.EntryTime.UTC(), t.Fees, nullFloat(t.ExitPrice), nullTime(t.ExitTime), nullFloat(t.PnL),
		nullReason(t.ExitReason), t.Notes, string(checklist), nullScore(t.ChecklistScore), nullGrade(t.ChecklistGrade),
		t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("trade %s: %w", t.ID, ports.ErrDuplicateEntry)
		}
		return fmt.Errorf("%w: insert trade %s: %v", ports.ErrQueryFailed, t.ID, err)
	}
	r.logger.Debug(ctx, "Trade created", map[string]interface{}{"tradeID": t.ID, "symbol": t.Symbol, "side": t.Side})
	return nil
}

// UpdateTrade writes the editable fields of an open trade.
func (r *Repository) UpdateTrade(ctx context.Context, t *domain.Trade) error {
	checklist, err := json.Marshal(t.Checklist)
	if err != nil {
		return fmt.Errorf("failed to encode checklist for trade %s: %w", t.ID, err)
	}

	const query = `
	UPDATE trades
	SET symbol = ?, quantity = ?, lot_size = ?, stop_loss = ?, take_profit = ?, fees = ?,
	    notes = ?, checklist_data = ?, checklist_score = ?, checklist_grade = ?, updated_at = ?
	WHERE id = ? AND exit_time IS NULL AND exit_price IS NULL`

	result, err := r.db.ExecContext(ctx, query,
		t.Symbol, t.Quantity, t.EffectiveLotSize(), t.StopLoss, t.TakeProfit, t.Fees,
		t.Notes, string(checklist), nullScore(t.ChecklistScore), nullGrade(t.ChecklistGrade), t.UpdatedAt.UTC(),
		t.ID)
	if err != nil {
		return fmt.Errorf("%w: update trade %s: %v", ports.ErrUpdateFailed, t.ID, err)
	}
	if err := r.checkOpenWrite(ctx, result, t.ID); err != nil {
		return err
	}
	r.logger.Debug(ctx, "Trade updated", map[string]interface{}{"tradeID": t.ID})
	return nil
}

// CloseTrade writes all exit fields in one statement, guarded on the trade still being open.
func (r *Repository) CloseTrade(ctx context.Context, id string, u domain.ExitUpdate) error {
	const query = `
	UPDATE trades
	SET exit_price = ?, exit_time = ?, pnl = ?, exit_reason = ?, updated_at = ?
	WHERE id = ? AND exit_time IS NULL AND exit_price IS NULL`

	result, err := r.db.ExecContext(ctx, query,
		u.ExitPrice, u.ExitTime.UTC(), u.PnL, string(u.ExitReason), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("%w: close trade %s: %v", ports.ErrUpdateFailed, id, err)
	}
	if err := r.checkOpenWrite(ctx, result, id); err != nil {
		return err
	}
	r.logger.Debug(ctx, "Trade closed", map[string]interface{}{"tradeID": id, "pnl": u.PnL, "exitReason": u.ExitReason})
	return nil
}

// checkOpenWrite turns a zero-row guarded update into ErrNotFound or ErrTradeAlreadyClosed.
func (r *Repository) checkOpenWrite(ctx context.Context, result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected for trade %s: %v", ports.ErrUpdateFailed, id, err)
	}
	if rowsAffected > 0 {
		return nil
	}
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%w: check trade %s: %v", ports.ErrQueryFailed, id, err)
	}
	if exists == 0 {
		return fmt.Errorf("trade %s: %w", id, ports.ErrNotFound)
	}
	return fmt.Errorf("trade %s: %w", id, ports.ErrTradeAlreadyClosed)
}

// DeleteTrade removes a trade by its ID.
func (r *Repository) DeleteTrade(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete trade %s: %v", ports.ErrDeleteFailed, id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected for delete %s: %v", ports.ErrDeleteFailed, id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("trade %s: %w", id, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Trade deleted", map[string]interface{}{"tradeID": id})
	return nil
}

// ClearTrades removes every trade.
func (r *Repository) ClearTrades(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM trades`)
	if err != nil {
		return 0, fmt.Errorf("%w: clear trades: %v", ports.ErrDeleteFailed, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected for clear: %v", ports.ErrDeleteFailed, err)
	}
	r.logger.Info(ctx, "All trades cleared", map[string]interface{}{"deleted": n})
	return n, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanTrade scans a row into a domain.Trade struct.
func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var (
		side           string
		exitPrice, pnl sql.NullFloat64
		exitTime       sql.NullTime
		exitReason     sql.NullString
		checklist      string
		score          sql.NullInt64
		grade          sql.NullString
	)
	err := s.Scan(
		&t.ID, &t.Symbol, &side, &t.Quantity, &t.LotSize, &t.EntryPrice, &t.StopLoss, &t.TakeProfit,
		&t.EntryTime, &t.Fees, &exitPrice, &exitTime, &pnl, &exitReason, &t.Notes, &checklist,
		&score, &grade, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	t.Side = domain.Side(side)

	if exitPrice.Valid {
		t.ExitPrice = &exitPrice.Float64
	}
	if exitTime.Valid {
		et := exitTime.Time.UTC()
		t.ExitTime = &et
	}
	if pnl.Valid {
		t.PnL = &pnl.Float64
	}
	if exitReason.Valid {
		reason := domain.ExitReason(exitReason.String)
		t.ExitReason = &reason
	}
	if checklist != "" {
		if err := json.Unmarshal([]byte(checklist), &t.Checklist); err != nil {
			return nil, fmt.Errorf("decode checklist for trade %s: %w", t.ID, err)
		}
	}
	if score.Valid {
		v := int(score.Int64)
		t.ChecklistScore = &v
	}
	if grade.Valid {
		g := domain.Grade(grade.String)
		t.ChecklistGrade = &g
	}
	t.EntryTime = t.EntryTime.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullReason(r *domain.ExitReason) sql.NullString {
	if r == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*r), Valid: true}
}

func nullScore(s *int) sql.NullInt64 {
	if s == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*s), Valid: true}
}

func nullGrade(g *domain.Grade) sql.NullString {
	if g == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*g), Valid: true}
}
