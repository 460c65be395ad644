package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/minerjirou/crypto-trade-bot/internal/domain"
	"github.com/minerjirou/crypto-trade-bot/pkg/quant"
)

// TradeStore is the queryable SQLite mirror of the audit trail, plus a
// small metadata key-value table for run bookkeeping.
type TradeStore struct {
	db *sql.DB
}

// NewTradeStore opens the SQLite database at dbPath with WAL mode
// enabled and creates the schema if missing.
func NewTradeStore(dbPath string) (*TradeStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", pragma, err)
		}
	}

	// prices and sizes are stored as exact decimal text, never floats
	schema := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			kind TEXT NOT NULL,
			side TEXT NOT NULL,
			price TEXT NOT NULL,
			size TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(ts);`,
		`CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &TradeStore{db: db}, nil
}

// SaveTrade stores one audit record.
func (s *TradeStore) SaveTrade(ctx context.Context, rec domain.AuditRecord) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO trades (ts, kind, side, price, size) VALUES (?, ?, ?, ?, ?)",
		rec.Ts.UnixMilli(), string(rec.Kind), string(rec.Side),
		rec.Price.String(), rec.Size.String(),
	)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// LoadTrades returns all records at or after since, oldest first.
func (s *TradeStore) LoadTrades(ctx context.Context, since time.Time) ([]domain.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT ts, kind, side, price, size FROM trades WHERE ts >= ? ORDER BY ts ASC, id ASC",
		since.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var records []domain.AuditRecord
	for rows.Next() {
		var (
			millis      int64
			kind, side  string
			price, size string
		)
		if err := rows.Scan(&millis, &kind, &side, &price, &size); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}

		priceDec, err := quant.ParseDecimal(price)
		if err != nil {
			return nil, fmt.Errorf("trade at %d: bad price: %w", millis, err)
		}
		sizeDec, err := quant.ParseDecimal(size)
		if err != nil {
			return nil, fmt.Errorf("trade at %d: bad size: %w", millis, err)
		}

		records = append(records, domain.AuditRecord{
			Ts:    time.UnixMilli(millis).UTC(),
			Kind:  domain.AuditKind(kind),
			Side:  domain.Side(side),
			Price: priceDec,
			Size:  sizeDec,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return records, nil
}

// CountByKind returns how many records of one kind exist, for quick
// sanity queries.
func (s *TradeStore) CountByKind(ctx context.Context, kind domain.AuditKind) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM trades WHERE kind = ?", string(kind)).Scan(&n)
	return n, err
}

// UpsertMetadata saves a key-value pair to the metadata table.
func (s *TradeStore) UpsertMetadata(ctx context.Context, key, value string, ts int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, ts,
	)
	return err
}

// GetMetadata retrieves a value from the metadata table. A missing key
// reads as the empty string.
func (s *TradeStore) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Close closes the database connection.
func (s *TradeStore) Close() error {
	return s.db.Close()
}
