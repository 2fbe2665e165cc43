// Package journal persists closed round trips so feedback tuning keeps its
// trailing window across restarts.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"arbiter/internal/types"
)

// Store manages the closed-trade journal on SQLite.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// NewStore opens the journal at path, creating the schema if missing.
func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("journal path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS closed_trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			agent TEXT NOT NULL,
			symbol TEXT NOT NULL,
			entry_price REAL NOT NULL,
			exit_price REAL NOT NULL,
			quantity REAL NOT NULL,
			closed_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_closed_trades_agent_closed ON closed_trades(agent, closed_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_closed_trades_symbol ON closed_trades(symbol);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying DB.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Append records one closed trade.
func (s *Store) Append(ctx context.Context, trade types.ClosedTrade) error {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return fmt.Errorf("journal store not initialized")
	}
	closedAt := trade.ClosedAt
	if closedAt.IsZero() {
		closedAt = time.Now()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO closed_trades (agent, symbol, entry_price, exit_price, quantity, closed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(trade.Agent),
		strings.ToUpper(strings.TrimSpace(trade.Symbol)),
		trade.EntryPrice,
		trade.ExitPrice,
		trade.Quantity,
		closedAt.UnixMilli(),
		time.Now().UnixMilli(),
	)
	return err
}

// Recent returns up to limit trades per agent, newest first.
func (s *Store) Recent(ctx context.Context, limitPerAgent int) ([]types.ClosedTrade, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return nil, fmt.Errorf("journal store not initialized")
	}
	if limitPerAgent <= 0 || limitPerAgent > 500 {
		limitPerAgent = 100
	}
	rows, err := db.QueryContext(ctx, `
		SELECT agent, symbol, entry_price, exit_price, quantity, closed_at FROM (
			SELECT *, ROW_NUMBER() OVER (PARTITION BY agent ORDER BY closed_at DESC, id DESC) AS rn
			FROM closed_trades
		) WHERE rn <= ?
		ORDER BY closed_at DESC, id DESC`, limitPerAgent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.ClosedTrade
	for rows.Next() {
		var (
			trade    types.ClosedTrade
			agent    string
			closedAt int64
		)
		if err := rows.Scan(&agent, &trade.Symbol, &trade.EntryPrice, &trade.ExitPrice, &trade.Quantity, &closedAt); err != nil {
			return nil, err
		}
		trade.Agent = types.AgentID(agent)
		trade.ClosedAt = time.UnixMilli(closedAt)
		out = append(out, trade)
	}
	return out, rows.Err()
}

// Count returns the journal's total row count.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return 0, fmt.Errorf("journal store not initialized")
	}
	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM closed_trades`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
