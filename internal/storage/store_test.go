package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minerjirou/crypto-trade-bot/internal/domain"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func newTestStore(t *testing.T) *TradeStore {
	t.Helper()
	store, err := NewTradeStore(filepath.Join(t.TempDir(), "trades.db"))
	if err != nil {
		t.Fatalf("NewTradeStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestTradeStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.UnixMilli(1700000000000).UTC()
	records := []domain.AuditRecord{
		{Ts: base, Kind: domain.AuditOrder, Side: domain.SideBuy, Price: dec(t, "99.900"), Size: dec(t, "13.5135")},
		{Ts: base.Add(time.Second), Kind: domain.AuditExecution, Side: domain.SideBuy, Price: dec(t, "99.900"), Size: dec(t, "13.5135")},
		{Ts: base.Add(2 * time.Second), Kind: domain.AuditStop, Side: domain.SideSell, Price: dec(t, "97.902"), Size: dec(t, "4.0040")},
	}
	for _, rec := range records {
		if err := store.SaveTrade(ctx, rec); err != nil {
			t.Fatalf("SaveTrade: %v", err)
		}
	}

	loaded, err := store.LoadTrades(ctx, base)
	if err != nil {
		t.Fatalf("LoadTrades: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("got %d records, want 3", len(loaded))
	}

	if loaded[0].Kind != domain.AuditOrder || !loaded[0].Ts.Equal(base) {
		t.Errorf("record 0 = %+v", loaded[0])
	}
	// decimals must survive exactly, trailing zeros included
	if loaded[2].Price.String() != "97.902" || loaded[2].Size.String() != "4.004" {
		t.Errorf("record 2 = %s @ %s", loaded[2].Size, loaded[2].Price)
	}
	if !loaded[1].Price.Equal(dec(t, "99.9")) {
		t.Errorf("record 1 price = %s", loaded[1].Price)
	}
}

func TestTradeStore_LoadSinceFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.UnixMilli(1700000000000).UTC()
	for i := 0; i < 5; i++ {
		rec := domain.AuditRecord{
			Ts: base.Add(time.Duration(i) * time.Minute), Kind: domain.AuditOrder,
			Side: domain.SideBuy, Price: dec(t, "100"), Size: dec(t, "1"),
		}
		if err := store.SaveTrade(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	loaded, err := store.LoadTrades(ctx, base.Add(3*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 2 {
		t.Errorf("got %d records, want 2", len(loaded))
	}
}

func TestTradeStore_CountByKind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.UnixMilli(1700000000000).UTC()
	kinds := []domain.AuditKind{domain.AuditOrder, domain.AuditOrder, domain.AuditExecution}
	for i, kind := range kinds {
		rec := domain.AuditRecord{
			Ts: base.Add(time.Duration(i) * time.Second), Kind: kind,
			Side: domain.SideSell, Price: dec(t, "100"), Size: dec(t, "1"),
		}
		if err := store.SaveTrade(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	orders, err := store.CountByKind(ctx, domain.AuditOrder)
	if err != nil {
		t.Fatal(err)
	}
	if orders != 2 {
		t.Errorf("ORDER count = %d, want 2", orders)
	}
	stops, err := store.CountByKind(ctx, domain.AuditStop)
	if err != nil {
		t.Fatal(err)
	}
	if stops != 0 {
		t.Errorf("STOP count = %d, want 0", stops)
	}
}

func TestTradeStore_Metadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpsertMetadata(ctx, "run_mode", "paper", 1000); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertMetadata(ctx, "run_mode", "real", 2000); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetMetadata(ctx, "run_mode")
	if err != nil {
		t.Fatal(err)
	}
	if got != "real" {
		t.Errorf("run_mode = %q, want real", got)
	}

	missing, err := store.GetMetadata(ctx, "nope")
	if err != nil {
		t.Fatal(err)
	}
	if missing != "" {
		t.Errorf("missing key = %q, want empty", missing)
	}
}
