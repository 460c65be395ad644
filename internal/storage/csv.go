// Package storage persists the bot's trail: a human-readable CSV audit
// log, a SQLite trade store, and JSON position snapshots for restart
// recovery.
package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/minerjirou/crypto-trade-bot/internal/domain"
)

var csvHeader = []string{"timestamp", "event", "side", "price", "size"}

// TradeLog is the append-only CSV audit log. One row per ORDER,
// EXECUTION or STOP event, flushed on every append so a crash loses at
// most the row being written.
type TradeLog struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

// NewTradeLog opens (or creates) the log at path, writing the header
// only when the file is new.
func NewTradeLog(path string) (*TradeLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("trade log dir: %w", err)
	}

	info, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr) || (statErr == nil && info.Size() == 0)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}

	log := &TradeLog{file: file, w: csv.NewWriter(file)}
	if isNew {
		if err := log.writeRow(csvHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	return log, nil
}

// Append writes one audit row.
func (l *TradeLog) Append(rec domain.AuditRecord) error {
	return l.writeRow([]string{
		rec.Ts.UTC().Format(time.RFC3339Nano),
		string(rec.Kind),
		string(rec.Side),
		rec.Price.String(),
		rec.Size.String(),
	})
}

func (l *TradeLog) writeRow(row []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.w.Write(row); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}

func (l *TradeLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}
