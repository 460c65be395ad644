// Package app wires the process together: config, logging, storage,
// the instance lock and ledger recovery. cmd/bot stays thin and calls
// Bootstrap once.
package app

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/minerjirou/crypto-trade-bot/internal/domain"
	"github.com/minerjirou/crypto-trade-bot/internal/event"
	"github.com/minerjirou/crypto-trade-bot/internal/infra"
	"github.com/minerjirou/crypto-trade-bot/internal/storage"
)

// App bundles everything Bootstrap opened. Close releases it in
// reverse order.
type App struct {
	Config    *infra.Config
	Store     *storage.TradeStore
	Audit     *storage.TradeLog
	Snapshots *storage.SnapshotManager
	Ledger    *domain.PositionLedger

	unlock func()
}

// Bootstrap performs the startup sequence: env file, config, logger,
// per-mode data directories, the single-instance lock, storage and
// ledger restore. Paper and real data never share files.
func Bootstrap() (*App, error) {
	// .env is a convenience for API keys in development; absence is fine.
	_ = godotenv.Load()

	event.Warmup()

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return nil, err
	}
	if _, err := infra.NewLogger(cfg); err != nil {
		return nil, err
	}
	infra.PrintBanner(cfg)

	workDir := infra.GetWorkspaceDir()
	dataDir := infra.ModeDataDir(workDir, cfg.Mode())
	if err := infra.EnsureDir(dataDir); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewTradeStore(filepath.Join(dataDir, "trades.db"))
	if err != nil {
		unlock()
		return nil, fmt.Errorf("open trade store: %w", err)
	}
	audit, err := storage.NewTradeLog(filepath.Join(dataDir, "trades.csv"))
	if err != nil {
		store.Close()
		unlock()
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	snapshots := storage.NewSnapshotManager(filepath.Join(dataDir, "snapshots"))

	a := &App{
		Config:    cfg,
		Store:     store,
		Audit:     audit,
		Snapshots: snapshots,
		Ledger:    domain.NewPositionLedger(),
		unlock:    unlock,
	}
	a.restoreLedger()

	slog.Info("✅ Storage ready",
		slog.String("data_dir", dataDir),
		slog.String("mode", cfg.Mode()))
	return a, nil
}

// restoreLedger reloads the position legs from the latest snapshot.
// Anything that goes wrong here means starting flat, never a refusal
// to start.
func (a *App) restoreLedger() {
	snap, err := a.Snapshots.LoadLatest()
	if err != nil {
		slog.Warn("Snapshot restore failed, starting with a flat ledger",
			slog.String("error", err.Error()))
		return
	}
	if snap == nil {
		return
	}
	if snap.Pair != a.Config.Trading.Pair {
		slog.Warn("Ignoring snapshot for a different pair",
			slog.String("snapshot_pair", snap.Pair),
			slog.String("pair", a.Config.Trading.Pair))
		return
	}
	buy, sell, err := snap.Legs()
	if err != nil {
		slog.Warn("Snapshot unreadable, starting with a flat ledger",
			slog.String("error", err.Error()))
		return
	}
	a.Ledger.Restore(buy, sell)
	slog.Info("🔁 Position ledger restored",
		slog.String("buy_leg", buy.String()),
		slog.String("sell_leg", sell.String()))
}

// SaveSnapshot persists the current ledger legs and prunes old files.
func (a *App) SaveSnapshot() {
	buy, sell := a.Ledger.Legs()
	if err := a.Snapshots.Save(a.Config.Trading.Pair, buy, sell); err != nil {
		slog.Error("Ledger snapshot failed", slog.String("error", err.Error()))
		return
	}
	if err := a.Snapshots.Cleanup(10); err != nil {
		slog.Warn("Snapshot cleanup failed", slog.String("error", err.Error()))
	}
}

// Close flushes and releases everything Bootstrap opened.
func (a *App) Close() {
	if a.Audit != nil {
		if err := a.Audit.Close(); err != nil {
			slog.Error("Audit log close failed", slog.String("error", err.Error()))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			slog.Error("Trade store close failed", slog.String("error", err.Error()))
		}
	}
	if a.unlock != nil {
		a.unlock()
	}
}
