package pricefeed

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/convert"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// StoredQuote is the last good price fetched for a currency.
type StoredQuote struct {
	Currency  convert.Currency
	Value     float64
	Source    string
	UpdatedAt time.Time
}

// QuoteStore persists last good quotes across restarts.
type QuoteStore interface {
	Save(q StoredQuote) error
	LoadAll() (map[convert.Currency]StoredQuote, error)
}

// SQLiteStore keeps quotes in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLiteStore opens (or creates) the database and runs migrations.
func OpenSQLiteStore(logger *zap.Logger, dbPath string) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("quote store opened", zap.String("op", "pricefeed.OpenSQLiteStore"), zap.String("path", dbPath))
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS quotes (
			currency   TEXT PRIMARY KEY,
			value      REAL NOT NULL,
			source     TEXT,
			updated_at INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create quotes table: %w", err)
		}
	}
	return nil
}

// Save upserts q.
func (s *SQLiteStore) Save(q StoredQuote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO quotes (currency, value, source, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(currency) DO UPDATE SET value = excluded.value, source = excluded.source, updated_at = excluded.updated_at`,
		string(q.Currency), q.Value, q.Source, q.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save quote %s: %w", q.Currency, err)
	}
	return nil
}

// LoadAll returns every stored quote keyed by currency.
func (s *SQLiteStore) LoadAll() (map[convert.Currency]StoredQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT currency, value, source, updated_at FROM quotes`)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	out := make(map[convert.Currency]StoredQuote)
	for rows.Next() {
		var (
			q      StoredQuote
			code   string
			source sql.NullString
			ts     int64
		)
		if err := rows.Scan(&code, &q.Value, &source, &ts); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		q.Currency = convert.Currency(code)
		q.Source = source.String
		q.UpdatedAt = time.Unix(ts, 0).UTC()
		out[q.Currency] = q
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
