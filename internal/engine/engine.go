// Package engine is the reconciliation core: it consumes typed market
// events from a single inbox, maintains the local view of price,
// inventory and resting orders, and converges the venue's open-order set
// toward the desired two-sided grid. All venue mutations are issued from
// one worker goroutine, so no two passes ever overlap.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/minerjirou/crypto-trade-bot/internal/domain"
	"github.com/minerjirou/crypto-trade-bot/internal/event"
	"github.com/minerjirou/crypto-trade-bot/internal/execution"
	"github.com/minerjirou/crypto-trade-bot/internal/infra"
	"github.com/minerjirou/crypto-trade-bot/internal/storage"
)

const (
	inboxSize = 1024
	fillQueue = 256
)

// Deps bundles the engine's collaborators. Audit and Store failures are
// non-fatal at runtime; everything else is required. Observer is the
// paper gateway's fill model and stays nil in dry-run and real modes.
type Deps struct {
	Config   *infra.Config
	Gateway  execution.Gateway
	Audit    *storage.TradeLog
	Store    *storage.TradeStore
	Ledger   *domain.PositionLedger
	Observer execution.BookObserver
	Clock    infra.Clock
	Seq      *uint64
}

// Engine owns the market state, the order mirror and the position
// ledger. External code talks to it through Inbox() only.
type Engine struct {
	cfg     *infra.Config
	info    domain.PairInfo
	gateway execution.Gateway
	audit   *storage.TradeLog
	store   *storage.TradeStore
	ledger  *domain.PositionLedger
	market  *domain.MarketState
	book    *domain.OpenOrderBook
	obs     execution.BookObserver
	clock   infra.Clock
	seq     *uint64

	inbox   chan event.Event
	wake    chan struct{}
	resyncC chan struct{}
	fillC   chan domain.Fill

	// seenExec keeps a bounded window of execution IDs so a stream
	// reconnect replaying recent fills cannot double-count inventory.
	seenExec map[int64]struct{}
	execRing []int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(d Deps) (*Engine, error) {
	info, err := d.Config.PairInfo()
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:      d.Config,
		info:     info,
		gateway:  d.Gateway,
		audit:    d.Audit,
		store:    d.Store,
		ledger:   d.Ledger,
		market:   domain.NewMarketState(info.Pair, d.Config.Maker.VolWindow),
		book:     domain.NewOpenOrderBook(),
		obs:      d.Observer,
		clock:    d.Clock,
		seq:      d.Seq,
		inbox:    make(chan event.Event, inboxSize),
		wake:     make(chan struct{}, 1),
		resyncC:  make(chan struct{}, 1),
		fillC:    make(chan domain.Fill, fillQueue),
		seenExec: make(map[int64]struct{}),
	}, nil
}

// Inbox is where connectivity workers and the paper gateway push events.
func (e *Engine) Inbox() chan<- event.Event {
	return e.inbox
}

// BindGateway attaches the execution gateway and, in paper mode, the
// fill-model observer. Wiring is two-phase because the paper gateway
// needs the engine's inbox before it can be built. Call before Start.
func (e *Engine) BindGateway(gw execution.Gateway, obs execution.BookObserver) {
	e.gateway = gw
	e.obs = obs
}

// Start launches the dispatcher and worker goroutines plus the resync
// ticker when one is configured.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(2)
	go e.runDispatcher(ctx)
	go e.runWorker(ctx)

	if e.cfg.Maker.ResyncSeconds > 0 {
		e.wg.Add(1)
		go e.runResyncTicker(ctx)
	}

	slog.Info("🚀 Engine started",
		slog.String("pair", e.info.Pair),
		slog.Int("resync_seconds", e.cfg.Maker.ResyncSeconds))
}

// Stop cancels both loops and waits for them to drain.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	slog.Info("Engine stopped", slog.String("pair", e.info.Pair))
}

// auditRecord appends one row to the CSV log and the SQLite store. Both
// are best-effort: a failed write is logged and the pass carries on.
func (e *Engine) auditRecord(ctx context.Context, kind domain.AuditKind, side domain.Side, price, size decimal.Decimal) {
	rec := domain.AuditRecord{
		Ts:    e.clock.Now().UTC(),
		Kind:  kind,
		Side:  side,
		Price: price,
		Size:  size,
	}
	if e.audit != nil {
		if err := e.audit.Append(rec); err != nil {
			slog.Error("Audit log write failed", slog.String("error", err.Error()))
		}
	}
	if e.store != nil {
		if err := e.store.SaveTrade(ctx, rec); err != nil {
			slog.Error("Trade store write failed", slog.String("error", err.Error()))
		}
	}
}

// freeQuoteBalance fetches the free quote-currency amount. A missing
// asset entry means a zero balance, not an error.
func (e *Engine) freeQuoteBalance(ctx context.Context) (decimal.Decimal, error) {
	balances, err := e.gateway.Balances(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	b, ok := domain.FindBalance(balances, e.info.Quote)
	if !ok {
		return decimal.Zero, nil
	}
	return b.Free, nil
}
