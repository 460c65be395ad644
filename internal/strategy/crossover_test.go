package strategy

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minerjirou/crypto-trade-bot/internal/domain"
	"github.com/minerjirou/crypto-trade-bot/internal/execution"
	"github.com/minerjirou/crypto-trade-bot/internal/infra"
	"github.com/minerjirou/crypto-trade-bot/internal/infra/bitbank"
	"github.com/minerjirou/crypto-trade-bot/internal/storage"
)

type stubCandles struct {
	mu    sync.Mutex
	bars  []domain.Candle
	err   error
	calls int
}

func (s *stubCandles) Candles(ctx context.Context, pair, candleType string, day time.Time) ([]domain.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.Candle, len(s.bars))
	copy(out, s.bars)
	return out, nil
}

func (s *stubCandles) set(closes ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars = s.bars[:0]
	for _, c := range closes {
		s.bars = append(s.bars, domain.Candle{Close: dec(c)})
	}
}

type traderHarness struct {
	trader  *CrossoverTrader
	gateway *execution.MockGateway
	candles *stubCandles
	cfg     *infra.Config
}

func newTraderHarness(t *testing.T, store *storage.TradeStore) *traderHarness {
	t.Helper()
	cfg := infra.DefaultConfig()
	cfg.Strategy.Crossover.Enabled = true
	cfg.Strategy.Crossover.FastWindow = 3
	cfg.Strategy.Crossover.SlowWindow = 5
	cfg.Strategy.Crossover.PollSeconds = 1

	gateway := execution.NewMockGateway()
	gateway.BalancesFn = func(ctx context.Context) ([]domain.Balance, error) {
		return []domain.Balance{{Asset: "jpy", Free: dec("100000")}}, nil
	}
	candles := &stubCandles{}

	trader, err := NewCrossoverTrader(Deps{
		Config:  &cfg,
		Gateway: gateway,
		Candles: candles,
		Store:   store,
		Clock:   infra.RealClock{},
	})
	if err != nil {
		t.Fatalf("NewCrossoverTrader: %v", err)
	}
	return &traderHarness{trader: trader, gateway: gateway, candles: candles, cfg: &cfg}
}

// Rising closes: fast (100+101+102)/3 = 101 sits above slow 503/5 = 100.6.
func (h *traderHarness) goldenBars() { h.candles.set("100", "100", "100", "101", "102") }

// Falling closes: fast (100+99+98)/3 = 99 sits below slow 500/5 = 100.
func (h *traderHarness) deadBars() { h.candles.set("102", "101", "100", "99", "98") }

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestCrossoverTrader_GoldenCrossEntersOnce(t *testing.T) {
	h := newTraderHarness(t, nil)
	h.goldenBars()
	ctx := context.Background()

	h.trader.poll(ctx)

	calls := h.gateway.MarketCalls()
	if len(calls) != 1 {
		t.Fatalf("market calls = %d, want 1", len(calls))
	}
	// 100000 * 0.1 / 102 floored to four digits.
	assertMarketCall(t, calls[0], "xrp_jpy", domain.SideBuy, "98.0392")
	if !h.trader.inPos || !h.trader.held.Equal(dec("98.0392")) {
		t.Fatalf("position = (%v, %s), want (true, 98.0392)", h.trader.inPos, h.trader.held)
	}

	// The latch stops a re-entry while the trend persists.
	h.trader.poll(ctx)
	if got := len(h.gateway.MarketCalls()); got != 1 {
		t.Fatalf("market calls after second poll = %d, want 1", got)
	}
}

func TestCrossoverTrader_DeadCrossSellsHeldSize(t *testing.T) {
	h := newTraderHarness(t, nil)
	ctx := context.Background()
	h.goldenBars()
	h.trader.poll(ctx)

	h.deadBars()
	h.trader.poll(ctx)

	calls := h.gateway.MarketCalls()
	if len(calls) != 2 {
		t.Fatalf("market calls = %d, want 2", len(calls))
	}
	assertMarketCall(t, calls[1], "xrp_jpy", domain.SideSell, "98.0392")
	if h.trader.inPos {
		t.Fatal("still in position after exit")
	}

	// Flat now, so a continued downtrend places nothing.
	h.trader.poll(ctx)
	if got := len(h.gateway.MarketCalls()); got != 2 {
		t.Fatalf("market calls after third poll = %d, want 2", got)
	}
}

func TestCrossoverTrader_WaitsForFullWindow(t *testing.T) {
	h := newTraderHarness(t, nil)
	h.candles.set("100", "101", "102")

	h.trader.poll(context.Background())

	if got := len(h.gateway.MarketCalls()); got != 0 {
		t.Fatalf("market calls = %d, want 0 with a short window", got)
	}
}

func TestCrossoverTrader_FetchErrorSkipsPoll(t *testing.T) {
	h := newTraderHarness(t, nil)
	h.candles.err = errors.New("dial tcp: i/o timeout")

	h.trader.poll(context.Background())

	if got := len(h.gateway.MarketCalls()); got != 0 {
		t.Fatalf("market calls = %d, want 0 after fetch error", got)
	}
	if h.trader.inPos {
		t.Fatal("entered a position without candles")
	}
}

func TestCrossoverTrader_EntryFailureRetriesNextPoll(t *testing.T) {
	h := newTraderHarness(t, nil)
	ctx := context.Background()
	h.goldenBars()

	h.gateway.PlaceMarketFn = func(ctx context.Context, pair string, side domain.Side, size decimal.Decimal) (*bitbank.OrderAck, error) {
		return nil, errors.New("dial tcp: connection refused")
	}
	h.trader.poll(ctx)
	if h.trader.inPos {
		t.Fatal("position flipped on a failed placement")
	}

	h.gateway.PlaceMarketFn = nil
	h.trader.poll(ctx)
	if !h.trader.inPos {
		t.Fatal("no retry on the next poll")
	}
	if got := len(h.gateway.MarketCalls()); got != 2 {
		t.Fatalf("market calls = %d, want 2", got)
	}
}

func TestCrossoverTrader_VenueRejectionStaysFlat(t *testing.T) {
	h := newTraderHarness(t, nil)
	h.goldenBars()
	h.gateway.PlaceMarketFn = func(ctx context.Context, pair string, side domain.Side, size decimal.Decimal) (*bitbank.OrderAck, error) {
		return nil, &bitbank.APIError{Code: bitbank.CodeInsufficientFunds}
	}

	h.trader.poll(context.Background())

	if h.trader.inPos {
		t.Fatal("position flipped on a rejected placement")
	}
}

func TestCrossoverTrader_ExitFailureKeepsPosition(t *testing.T) {
	h := newTraderHarness(t, nil)
	ctx := context.Background()
	h.goldenBars()
	h.trader.poll(ctx)

	h.deadBars()
	h.gateway.PlaceMarketFn = func(ctx context.Context, pair string, side domain.Side, size decimal.Decimal) (*bitbank.OrderAck, error) {
		return nil, errors.New("dial tcp: i/o timeout")
	}
	h.trader.poll(ctx)
	if !h.trader.inPos || !h.trader.held.Equal(dec("98.0392")) {
		t.Fatal("position dropped even though the exit never reached the venue")
	}

	h.gateway.PlaceMarketFn = nil
	h.trader.poll(ctx)
	if h.trader.inPos {
		t.Fatal("exit not retried on the next poll")
	}
}

func TestCrossoverTrader_NoBalanceNoEntry(t *testing.T) {
	h := newTraderHarness(t, nil)
	h.goldenBars()
	h.gateway.BalancesFn = func(ctx context.Context) ([]domain.Balance, error) {
		return []domain.Balance{}, nil
	}

	h.trader.poll(context.Background())

	if got := len(h.gateway.MarketCalls()); got != 0 {
		t.Fatalf("market calls = %d, want 0 with an empty account", got)
	}
	if h.trader.inPos {
		t.Fatal("entered with no balance")
	}
}

func TestCrossoverTrader_DustIsRaisedToMinLot(t *testing.T) {
	h := newTraderHarness(t, nil)
	h.goldenBars()
	h.gateway.BalancesFn = func(ctx context.Context) ([]domain.Balance, error) {
		return []domain.Balance{{Asset: "jpy", Free: dec("0.001")}}, nil
	}

	h.trader.poll(context.Background())

	calls := h.gateway.MarketCalls()
	if len(calls) != 1 {
		t.Fatalf("market calls = %d, want 1 at the lot floor", len(calls))
	}
	assertMarketCall(t, calls[0], "xrp_jpy", domain.SideBuy, "0.0001")
}

func TestCrossoverTrader_RestoresPositionAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewTradeStore(filepath.Join(dir, "trades.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	first := newTraderHarness(t, store)
	first.goldenBars()
	first.trader.poll(ctx)
	if !first.trader.inPos {
		t.Fatal("first trader never entered")
	}

	// A fresh trader over the same store picks up the held size.
	second := newTraderHarness(t, store)
	if !second.trader.inPos || !second.trader.held.Equal(dec("98.0392")) {
		t.Fatalf("restored position = (%v, %s), want (true, 98.0392)",
			second.trader.inPos, second.trader.held)
	}

	second.deadBars()
	second.trader.poll(ctx)
	if second.trader.inPos {
		t.Fatal("restored trader did not exit on a dead cross")
	}

	// And the exit clears the slot for the next restart.
	third := newTraderHarness(t, store)
	if third.trader.inPos {
		t.Fatal("cleared position came back after restart")
	}

	orders, err := store.CountByKind(ctx, domain.AuditOrder)
	if err != nil {
		t.Fatal(err)
	}
	if orders != 2 {
		t.Fatalf("audited ORDER rows = %d, want 2 (entry and exit)", orders)
	}
}

func TestCrossoverTrader_RunLifecycle(t *testing.T) {
	h := newTraderHarness(t, nil)
	h.goldenBars()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.trader.Start(ctx)
	waitFor(t, 2*time.Second, func() bool {
		return len(h.gateway.MarketCalls()) >= 1
	}, "no market order from the poll loop")

	done := make(chan struct{})
	go func() {
		h.trader.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func assertMarketCall(t *testing.T, got execution.MarketCall, pair string, side domain.Side, size string) {
	t.Helper()
	if got.Pair != pair || got.Side != side || !got.Size.Equal(dec(size)) {
		t.Fatalf("market call = {%s %s %s}, want {%s %s %s}",
			got.Pair, got.Side, got.Size, pair, side, size)
	}
}
