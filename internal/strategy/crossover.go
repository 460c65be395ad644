package strategy

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minerjirou/crypto-trade-bot/internal/domain"
	"github.com/minerjirou/crypto-trade-bot/internal/execution"
	"github.com/minerjirou/crypto-trade-bot/internal/infra"
	"github.com/minerjirou/crypto-trade-bot/internal/infra/bitbank"
	"github.com/minerjirou/crypto-trade-bot/internal/storage"
	"github.com/minerjirou/crypto-trade-bot/pkg/quant"
)

// heldKey is the metadata slot where the trader persists its open
// position size so a restart does not orphan a held long.
const heldKey = "crossover_held"

// CandleSource fetches one day of candlesticks. *bitbank.Client
// satisfies it; tests supply canned bars.
type CandleSource interface {
	Candles(ctx context.Context, pair, candleType string, day time.Time) ([]domain.Candle, error)
}

// Deps wires the crossover trader.
type Deps struct {
	Config  *infra.Config
	Gateway execution.Gateway
	Candles CandleSource
	Audit   *storage.TradeLog
	Store   *storage.TradeStore
	Clock   infra.Clock
}

// CrossoverTrader polls candlesticks and flips one long position on
// SMA signals: it buys when the fast average sits above the slow one
// and it is flat, and sells the held size when the fast average drops
// below. The position latch doubles as the crossing memory, so a
// sustained trend triggers exactly one entry.
//
// All orders leave through the shared execution gateway and are
// audited as ORDER rows, the same as the maker's.
type CrossoverTrader struct {
	cfg     *infra.Config
	info    domain.PairInfo
	gateway execution.Gateway
	candles CandleSource
	audit   *storage.TradeLog
	store   *storage.TradeStore
	clock   infra.Clock

	// Candle buckets on the venue roll at JST midnight regardless of
	// where the bot runs.
	jst *time.Location

	sma    *SMAPair
	inPos  bool
	held   decimal.Decimal
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCrossoverTrader builds the trader and restores any persisted
// position from the trade store.
func NewCrossoverTrader(d Deps) (*CrossoverTrader, error) {
	info, err := d.Config.PairInfo()
	if err != nil {
		return nil, err
	}
	cross := d.Config.Strategy.Crossover
	sma, err := NewSMAPair(cross.FastWindow, cross.SlowWindow)
	if err != nil {
		return nil, err
	}
	t := &CrossoverTrader{
		cfg:     d.Config,
		info:    info,
		gateway: d.Gateway,
		candles: d.Candles,
		audit:   d.Audit,
		store:   d.Store,
		clock:   d.Clock,
		jst:     time.FixedZone("JST", 9*60*60),
		sma:     sma,
	}
	t.restoreHeld()
	return t, nil
}

// restoreHeld reloads the persisted position size. An empty slot means
// the trader shut down flat.
func (t *CrossoverTrader) restoreHeld() {
	if t.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	raw, err := t.store.GetMetadata(ctx, heldKey)
	if err != nil {
		slog.Warn("Crossover position restore failed", slog.String("error", err.Error()))
		return
	}
	if raw == "" {
		return
	}
	held, err := decimal.NewFromString(raw)
	if err != nil || held.Sign() <= 0 {
		slog.Warn("Ignoring malformed persisted position", slog.String("value", raw))
		return
	}
	t.inPos = true
	t.held = held
	slog.Info("🔁 Crossover position restored",
		slog.String("pair", t.info.Pair),
		slog.String("held", held.String()))
}

// Start launches the poll loop.
func (t *CrossoverTrader) Start(ctx context.Context) {
	ctx, t.cancel = context.WithCancel(ctx)
	t.wg.Add(1)
	go t.run(ctx)
	slog.Info("🚀 Crossover trader started",
		slog.String("pair", t.info.Pair),
		slog.Int("fast", t.cfg.Strategy.Crossover.FastWindow),
		slog.Int("slow", t.cfg.Strategy.Crossover.SlowWindow),
		slog.Int("poll_seconds", t.cfg.Strategy.Crossover.PollSeconds))
}

// Stop halts the loop and waits for an in-flight poll to finish.
func (t *CrossoverTrader) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	t.wg.Wait()
}

func (t *CrossoverTrader) run(ctx context.Context) {
	defer t.wg.Done()

	t.poll(ctx)
	ticker := time.NewTicker(time.Duration(t.cfg.Strategy.Crossover.PollSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.poll(ctx)
		}
	}
}

// poll refetches today's candles, rebuilds both averages from scratch
// and acts on the signal. Rebuilding per poll keeps the windows exact
// even when the feed skips or backfills minutes.
func (t *CrossoverTrader) poll(ctx context.Context) {
	cross := t.cfg.Strategy.Crossover
	day := t.clock.Now().In(t.jst)
	candles, err := t.candles.Candles(ctx, t.info.Pair, cross.CandleType, day)
	if err != nil {
		slog.Error("Candle fetch failed", slog.String("error", err.Error()))
		return
	}
	if len(candles) == 0 {
		slog.Debug("No candles for bucket", slog.String("day", day.Format("20060102")))
		return
	}

	t.sma.Reset()
	for _, c := range candles {
		t.sma.Push(c.Close)
	}
	if !t.sma.Ready() {
		slog.Debug("Crossover window not filled",
			slog.Int("candles", len(candles)),
			slog.Int("need", cross.SlowWindow))
		return
	}

	fast, slow := t.sma.Values()
	last := candles[len(candles)-1].Close
	if last.Sign() <= 0 {
		return
	}

	switch {
	case !t.inPos && fast.GreaterThan(slow):
		slog.Info("📈 Golden cross",
			slog.String("fast", fast.StringFixed(3)),
			slog.String("slow", slow.StringFixed(3)),
			slog.String("last", last.String()))
		t.enter(ctx, last)
	case t.inPos && fast.LessThan(slow):
		slog.Info("📉 Dead cross",
			slog.String("fast", fast.StringFixed(3)),
			slog.String("slow", slow.StringFixed(3)),
			slog.String("last", last.String()))
		t.exit(ctx, last)
	default:
		slog.Debug("Crossover idle",
			slog.String("fast", fast.StringFixed(3)),
			slog.String("slow", slow.StringFixed(3)),
			slog.Bool("in_position", t.inPos))
	}
}

// enter sizes a market buy off the free quote balance and the last
// close. The position flips only after the venue accepts the order.
func (t *CrossoverTrader) enter(ctx context.Context, last decimal.Decimal) {
	balances, err := t.gateway.Balances(ctx)
	if err != nil {
		slog.Error("Balance fetch failed", slog.String("error", err.Error()))
		return
	}
	quote, _ := domain.FindBalance(balances, t.info.Quote)
	if quote.Free.Sign() <= 0 {
		slog.Warn("No quote balance for entry", slog.String("asset", t.info.Quote))
		return
	}
	// FloorToLot raises dust to the venue minimum; an unaffordable lot
	// comes back as a rejection and the trader stays flat.
	size := quant.FloorToLot(
		quote.Free.Mul(t.cfg.Strategy.Crossover.TradeRatio.Decimal).Div(last),
		t.info.SizeDigits, t.info.MinLot)

	t.auditRecord(ctx, domain.AuditOrder, domain.SideBuy, last, size)
	ack, err := t.gateway.PlaceMarket(ctx, t.info.Pair, domain.SideBuy, size)
	if err != nil {
		var apiErr *bitbank.APIError
		if errors.As(err, &apiErr) {
			slog.Error("Entry rejected by venue", slog.String("error", apiErr.Error()))
		} else {
			slog.Error("Entry failed", slog.String("error", err.Error()))
		}
		return
	}
	t.inPos = true
	t.held = size
	t.persistHeld(ctx)
	infra.CountOrderPlaced(t.info.Pair, string(domain.SideBuy), "crossover")
	slog.Info("📌 Market buy placed",
		slog.Int64("order_id", ack.OrderID),
		slog.String("size", size.String()),
		slog.String("ref_price", last.String()))
}

// exit unwinds exactly the size the trader bought, not a resized guess
// from the current balance, so the maker's inventory on the same
// account is never touched.
func (t *CrossoverTrader) exit(ctx context.Context, last decimal.Decimal) {
	size := t.held
	if size.Sign() <= 0 {
		t.inPos = false
		t.held = decimal.Decimal{}
		return
	}

	t.auditRecord(ctx, domain.AuditOrder, domain.SideSell, last, size)
	ack, err := t.gateway.PlaceMarket(ctx, t.info.Pair, domain.SideSell, size)
	if err != nil {
		var apiErr *bitbank.APIError
		if errors.As(err, &apiErr) {
			slog.Error("Exit rejected by venue", slog.String("error", apiErr.Error()))
		} else {
			slog.Error("Exit failed", slog.String("error", err.Error()))
		}
		return
	}
	t.inPos = false
	t.held = decimal.Decimal{}
	t.persistHeld(ctx)
	infra.CountOrderPlaced(t.info.Pair, string(domain.SideSell), "crossover")
	slog.Info("📌 Market sell placed",
		slog.Int64("order_id", ack.OrderID),
		slog.String("size", size.String()),
		slog.String("ref_price", last.String()))
}

func (t *CrossoverTrader) persistHeld(ctx context.Context) {
	if t.store == nil {
		return
	}
	value := ""
	if t.inPos {
		value = t.held.String()
	}
	now := t.clock.Now().UTC().UnixMilli()
	if err := t.store.UpsertMetadata(ctx, heldKey, value, now); err != nil {
		slog.Error("Crossover position persist failed", slog.String("error", err.Error()))
	}
}

func (t *CrossoverTrader) auditRecord(ctx context.Context, kind domain.AuditKind, side domain.Side, price, size decimal.Decimal) {
	rec := domain.AuditRecord{
		Ts:    t.clock.Now().UTC(),
		Kind:  kind,
		Side:  side,
		Price: price,
		Size:  size,
	}
	if t.audit != nil {
		if err := t.audit.Append(rec); err != nil {
			slog.Error("Audit log write failed", slog.String("error", err.Error()))
		}
	}
	if t.store != nil {
		if err := t.store.SaveTrade(ctx, rec); err != nil {
			slog.Error("Trade store write failed", slog.String("error", err.Error()))
		}
	}
}
