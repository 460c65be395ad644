package engine

import (
	"context"
	"log/slog"
	"strconv"
)

// SeedMirror loads the venue's open orders into the mirror once at
// startup. A failed fetch leaves the mirror empty; the periodic resync
// repairs it.
func (e *Engine) SeedMirror(ctx context.Context) {
	orders, err := e.gateway.OpenOrders(ctx, e.info.Pair)
	if err != nil {
		slog.Warn("Mirror seed failed, starting empty", slog.String("error", err.Error()))
		return
	}
	e.book.Replace(orders)
	slog.Info("Order mirror seeded",
		slog.String("pair", e.info.Pair),
		slog.Int("orders", len(orders)))
}

// Resync replaces the mirror with venue truth and reports the drift.
// This is the recovery path for externally canceled orders, missed
// stream messages and anything else that desyncs local belief.
func (e *Engine) Resync(ctx context.Context) {
	orders, err := e.gateway.OpenOrders(ctx, e.info.Pair)
	if err != nil {
		slog.Error("Resync fetch failed", slog.String("error", err.Error()))
		return
	}

	added, removed := e.book.Replace(orders)
	if len(added) > 0 || len(removed) > 0 {
		slog.Warn("🔁 Mirror drift repaired",
			slog.Any("unknown_to_mirror", added),
			slog.Any("gone_from_venue", removed),
			slog.Int("resting", len(orders)))
	} else {
		slog.Debug("Resync clean", slog.Int("resting", len(orders)))
	}

	if e.store != nil {
		now := e.clock.Now().UnixMilli()
		if err := e.store.UpsertMetadata(ctx, "last_resync", strconv.FormatInt(now, 10), now); err != nil {
			slog.Error("Resync metadata write failed", slog.String("error", err.Error()))
		}
	}
}
