package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"consensus-trader/internal/models"
)

// SQLiteStore implements RunStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based run store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Runs table, one row per completed engine run
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		mode TEXT NOT NULL,
		initial_capital REAL NOT NULL,
		final_cash REAL NOT NULL,
		portfolio_value REAL NOT NULL,
		realized_pnl REAL NOT NULL,
		trade_count INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Trades table, the append-only trade log of each run
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		side TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price REAL NOT NULL,
		realized_pnl REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	-- Cash history table, one sample per processed tick
	CREATE TABLE IF NOT EXISTS cash_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		cash REAL NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	-- Create indexes for performance
	CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(timestamp);
	CREATE INDEX IF NOT EXISTS idx_cash_history_run ON cash_history(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun saves a run record and returns its assigned ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *RunRecord) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (started_at, mode, initial_capital, final_cash, portfolio_value, realized_pnl, trade_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.StartedAt, run.Mode, run.InitialCapital, run.FinalCash, run.PortfolioValue, run.RealizedPnL, run.TradeCount)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}
	run.ID = id
	return id, nil
}

// SaveTrades saves a run's trade log to the database.
func (s *SQLiteStore) SaveTrades(ctx context.Context, runID int64, trades []models.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (run_id, symbol, timestamp, side, quantity, price, realized_pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		_, err := stmt.ExecContext(ctx, runID, t.Symbol, t.Timestamp, string(t.Side), t.Quantity, t.Price, t.RealizedPnL)
		if err != nil {
			return fmt.Errorf("failed to insert trade: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// SaveCashHistory saves a run's per-tick cash samples to the database.
func (s *SQLiteStore) SaveCashHistory(ctx context.Context, runID int64, points []models.CashPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cash_history (run_id, timestamp, cash)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, runID, p.Timestamp, p.Cash); err != nil {
			return fmt.Errorf("failed to insert cash point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRuns retrieves the most recent runs.
func (s *SQLiteStore) GetRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT id, started_at, mode, initial_capital, final_cash, portfolio_value, realized_pnl, trade_count
		FROM runs ORDER BY started_at DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Mode, &r.InitialCapital, &r.FinalCash, &r.PortfolioValue, &r.RealizedPnL, &r.TradeCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// GetTrades retrieves trades from the database.
func (s *SQLiteStore) GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	query := "SELECT symbol, timestamp, side, quantity, price, realized_pnl FROM trades WHERE 1=1"
	args := []interface{}{}

	if filter.RunID > 0 {
		query += " AND run_id = ?"
		args = append(args, filter.RunID)
	}
	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Side != "" {
		query += " AND side = ?"
		args = append(args, string(filter.Side))
	}

	query += " ORDER BY timestamp ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		var side string
		if err := rows.Scan(&t.Symbol, &t.Timestamp, &side, &t.Quantity, &t.Price, &t.RealizedPnL); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.Side = models.Side(side)
		trades = append(trades, t)
	}

	return trades, rows.Err()
}

// GetCashHistory retrieves a run's cash samples in tick order.
func (s *SQLiteStore) GetCashHistory(ctx context.Context, runID int64) ([]models.CashPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, cash FROM cash_history WHERE run_id = ? ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cash history: %w", err)
	}
	defer rows.Close()

	var points []models.CashPoint
	for rows.Next() {
		var p models.CashPoint
		if err := rows.Scan(&p.Timestamp, &p.Cash); err != nil {
			return nil, fmt.Errorf("failed to scan cash point: %w", err)
		}
		points = append(points, p)
	}

	return points, rows.Err()
}
