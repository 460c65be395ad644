package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minerjirou/crypto-trade-bot/pkg/quant"
)

// Snapshot captures the inventory ledger's position legs. They are the
// one piece of state the venue cannot restore for us: open orders and
// balances can be re-fetched, accumulated per-side notional cannot.
type Snapshot struct {
	TsUnix  int64  `json:"ts"`
	Pair    string `json:"pair"`
	BuyLeg  string `json:"buy_leg"`  // decimal text
	SellLeg string `json:"sell_leg"` // decimal text
}

// Legs parses the stored decimal legs.
func (s *Snapshot) Legs() (buy, sell decimal.Decimal, err error) {
	buy, err = quant.ParseDecimal(s.BuyLeg)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("snapshot buy leg: %w", err)
	}
	sell, err = quant.ParseDecimal(s.SellLeg)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("snapshot sell leg: %w", err)
	}
	return buy, sell, nil
}

// SnapshotManager saves and loads ledger snapshots as JSON files.
type SnapshotManager struct {
	dir string
}

func NewSnapshotManager(dir string) *SnapshotManager {
	return &SnapshotManager{dir: dir}
}

// Save writes a snapshot for the given pair and legs.
func (sm *SnapshotManager) Save(pair string, buy, sell decimal.Decimal) error {
	if err := os.MkdirAll(sm.dir, 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	snap := Snapshot{
		TsUnix:  time.Now().Unix(),
		Pair:    pair,
		BuyLeg:  buy.String(),
		SellLeg: sell.String(),
	}

	path := filepath.Join(sm.dir, fmt.Sprintf("snapshot_%d.json", snap.TsUnix))
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	slog.Debug("Ledger snapshot saved", slog.String("path", path))
	return nil
}

// LoadLatest returns the most recent snapshot, or nil when none exists.
func (sm *SnapshotManager) LoadLatest() (*Snapshot, error) {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}

	var latestPath string
	var latestTs int64

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var ts int64
		if _, err := fmt.Sscanf(entry.Name(), "snapshot_%d.json", &ts); err != nil {
			continue
		}
		if ts > latestTs {
			latestTs = ts
			latestPath = filepath.Join(sm.dir, entry.Name())
		}
	}

	if latestPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(latestPath)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	slog.Info("Ledger snapshot loaded",
		slog.String("path", latestPath),
		slog.String("buy_leg", snap.BuyLeg),
		slog.String("sell_leg", snap.SellLeg))
	return &snap, nil
}

// Cleanup removes old snapshots, keeping only the latest keepCount.
func (sm *SnapshotManager) Cleanup(keepCount int) error {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	type snapFile struct {
		path string
		ts   int64
	}
	var files []snapFile

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var ts int64
		if _, err := fmt.Sscanf(entry.Name(), "snapshot_%d.json", &ts); err == nil {
			files = append(files, snapFile{path: filepath.Join(sm.dir, entry.Name()), ts: ts})
		}
	}

	if len(files) <= keepCount {
		return nil
	}

	// newest first; small N, a simple sort is plenty
	for i := 0; i < len(files); i++ {
		for j := i + 1; j < len(files); j++ {
			if files[j].ts > files[i].ts {
				files[i], files[j] = files[j], files[i]
			}
		}
	}

	for i := keepCount; i < len(files); i++ {
		if err := os.Remove(files[i].path); err != nil {
			slog.Warn("Failed to remove old snapshot", slog.String("path", files[i].path))
		}
	}
	return nil
}
