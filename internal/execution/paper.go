package execution

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minerjirou/crypto-trade-bot/internal/domain"
	"github.com/minerjirou/crypto-trade-bot/internal/event"
	"github.com/minerjirou/crypto-trade-bot/internal/infra"
	"github.com/minerjirou/crypto-trade-bot/internal/infra/bitbank"
	"github.com/minerjirou/crypto-trade-bot/pkg/quant"
	"github.com/minerjirou/crypto-trade-bot/pkg/safe"
)

// PaperGateway simulates the venue in-process. Balances are carried in
// fixed point (quote in micros, base in sats) with overflow-checked
// arithmetic; resting orders lock funds exactly like the venue does.
//
// Fill model: the gateway watches top-of-book through ObserveBook. A
// resting buy fills when the ask reaches its price, a resting sell when
// the bid does, always at the order's own limit price. Post-only
// rejection is not simulated; an order placed through the book fills on
// the next sweep. Fills are pushed into the dispatcher inbox as
// execution events, same as the private stream would.
type PaperGateway struct {
	info  domain.PairInfo
	clock infra.Clock
	inbox chan<- event.Event
	seq   *uint64

	mu          sync.Mutex
	freeQuote   int64 // micros
	freeBase    int64 // sats
	lockedQuote int64
	lockedBase  int64
	bidMicros   quant.PriceMicros
	askMicros   quant.PriceMicros
	resting     map[int64]domain.OpenOrder
	nextOrder   int64
	nextExec    int64
}

func NewPaperGateway(cfg *infra.Config, inbox chan<- event.Event, seq *uint64, clock infra.Clock) (*PaperGateway, error) {
	info, err := cfg.PairInfo()
	if err != nil {
		return nil, err
	}
	g := &PaperGateway{
		info:      info,
		clock:     clock,
		inbox:     inbox,
		seq:       seq,
		freeQuote: int64(quant.ToPriceMicros(cfg.Trading.PaperBalance.Decimal)),
		resting:   make(map[int64]domain.OpenOrder),
	}
	slog.Info("📄 Paper trading ready",
		slog.String("pair", info.Pair),
		slog.String("balance", cfg.Trading.PaperBalance.String()+" "+strings.ToUpper(info.Quote)))
	return g, nil
}

// ObserveBook feeds the latest top-of-book into the fill model. The
// dispatcher calls this after applying each book update.
func (g *PaperGateway) ObserveBook(bid, ask quant.PriceMicros) {
	if bid <= 0 || ask <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bidMicros, g.askMicros = bid, ask
	g.sweepLocked(g.clock.Now())
}

func (g *PaperGateway) Balances(ctx context.Context) ([]domain.Balance, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return []domain.Balance{
		{
			Asset:  g.info.Base,
			Free:   quant.QtySats(g.freeBase).Decimal(),
			Locked: quant.QtySats(g.lockedBase).Decimal(),
		},
		{
			Asset:  g.info.Quote,
			Free:   quant.PriceMicros(g.freeQuote).Decimal(),
			Locked: quant.PriceMicros(g.lockedQuote).Decimal(),
		},
	}, nil
}

func (g *PaperGateway) OpenOrders(ctx context.Context, pair string) ([]domain.OpenOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.OpenOrder, 0, len(g.resting))
	for _, o := range g.resting {
		if o.Pair == pair {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out, nil
}

func (g *PaperGateway) PlaceLimit(ctx context.Context, pair string, side domain.Side, price, size decimal.Decimal, postOnly bool) (*bitbank.OrderAck, error) {
	priceM := quant.ToPriceMicros(price)
	sizeS := quant.ToQtySats(size)
	if !side.Valid() || priceM <= 0 || sizeS <= 0 {
		return nil, &bitbank.APIError{Endpoint: "paper/order", Code: bitbank.CodeSystemError}
	}
	notional := notionalMicros(priceM, sizeS)

	g.mu.Lock()
	defer g.mu.Unlock()

	switch side {
	case domain.SideBuy:
		if notional > g.freeQuote {
			return nil, &bitbank.APIError{Endpoint: "paper/order", Code: bitbank.CodeInsufficientFunds}
		}
		g.freeQuote = safe.Sub(g.freeQuote, notional)
		g.lockedQuote = safe.Add(g.lockedQuote, notional)
	case domain.SideSell:
		if int64(sizeS) > g.freeBase {
			return nil, &bitbank.APIError{Endpoint: "paper/order", Code: bitbank.CodeInsufficientFunds}
		}
		g.freeBase = safe.Sub(g.freeBase, int64(sizeS))
		g.lockedBase = safe.Add(g.lockedBase, int64(sizeS))
	}

	now := g.clock.Now()
	g.nextOrder++
	o := domain.OpenOrder{
		OrderID:  g.nextOrder,
		Pair:     pair,
		Side:     side,
		Price:    price,
		Size:     size,
		PlacedAt: now,
	}
	g.resting[o.OrderID] = o
	g.sweepLocked(now)

	return &bitbank.OrderAck{
		OrderID:    o.OrderID,
		Pair:       pair,
		Side:       side,
		Price:      price,
		Size:       size,
		AcceptedAt: now.UTC(),
		Status:     "UNFILLED",
	}, nil
}

func (g *PaperGateway) PlaceMarket(ctx context.Context, pair string, side domain.Side, size decimal.Decimal) (*bitbank.OrderAck, error) {
	sizeS := quant.ToQtySats(size)
	if !side.Valid() || sizeS <= 0 {
		return nil, &bitbank.APIError{Endpoint: "paper/order", Code: bitbank.CodeSystemError}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.bidMicros <= 0 || g.askMicros <= 0 {
		return nil, &bitbank.APIError{Endpoint: "paper/order", Code: bitbank.CodeSystemError}
	}

	// Taker: buy lifts the ask, sell hits the bid.
	priceM := g.askMicros
	if side == domain.SideSell {
		priceM = g.bidMicros
	}
	notional := notionalMicros(priceM, sizeS)

	switch side {
	case domain.SideBuy:
		if notional > g.freeQuote {
			return nil, &bitbank.APIError{Endpoint: "paper/order", Code: bitbank.CodeInsufficientFunds}
		}
		g.freeQuote = safe.Sub(g.freeQuote, notional)
		g.freeBase = safe.Add(g.freeBase, int64(sizeS))
	case domain.SideSell:
		if int64(sizeS) > g.freeBase {
			return nil, &bitbank.APIError{Endpoint: "paper/order", Code: bitbank.CodeInsufficientFunds}
		}
		g.freeBase = safe.Sub(g.freeBase, int64(sizeS))
		g.freeQuote = safe.Add(g.freeQuote, notional)
	}

	now := g.clock.Now()
	g.nextOrder++
	id := g.nextOrder
	g.emitFill(id, side, priceM, sizeS, now)

	return &bitbank.OrderAck{
		OrderID:      id,
		Pair:         pair,
		Side:         side,
		Size:         size,
		AveragePrice: priceM.Decimal(),
		AcceptedAt:   now.UTC(),
		Status:       "FULLY_FILLED",
	}, nil
}

func (g *PaperGateway) Cancel(ctx context.Context, pair string, orderID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	o, ok := g.resting[orderID]
	if !ok {
		// Same contract as the venue: canceling a gone order succeeds.
		slog.Debug("Paper cancel for unknown order", slog.Int64("order_id", orderID))
		return nil
	}
	priceM := quant.ToPriceMicros(o.Price)
	sizeS := quant.ToQtySats(o.Size)
	switch o.Side {
	case domain.SideBuy:
		notional := notionalMicros(priceM, sizeS)
		g.lockedQuote = safe.Sub(g.lockedQuote, notional)
		g.freeQuote = safe.Add(g.freeQuote, notional)
	case domain.SideSell:
		g.lockedBase = safe.Sub(g.lockedBase, int64(sizeS))
		g.freeBase = safe.Add(g.freeBase, int64(sizeS))
	}
	delete(g.resting, orderID)
	return nil
}

// sweepLocked fills every resting order the current book has crossed.
// Callers hold g.mu.
func (g *PaperGateway) sweepLocked(now time.Time) {
	if g.bidMicros <= 0 || g.askMicros <= 0 {
		return
	}
	for id, o := range g.resting {
		priceM := quant.ToPriceMicros(o.Price)
		var crossed bool
		switch o.Side {
		case domain.SideBuy:
			crossed = g.askMicros <= priceM
		case domain.SideSell:
			crossed = g.bidMicros >= priceM
		}
		if !crossed {
			continue
		}

		sizeS := quant.ToQtySats(o.Size)
		notional := notionalMicros(priceM, sizeS)
		switch o.Side {
		case domain.SideBuy:
			g.lockedQuote = safe.Sub(g.lockedQuote, notional)
			g.freeBase = safe.Add(g.freeBase, int64(sizeS))
		case domain.SideSell:
			g.lockedBase = safe.Sub(g.lockedBase, int64(sizeS))
			g.freeQuote = safe.Add(g.freeQuote, notional)
		}
		delete(g.resting, id)
		g.emitFill(o.OrderID, o.Side, priceM, sizeS, now)
		slog.Info("📄 Paper fill",
			slog.Int64("order_id", o.OrderID),
			slog.String("side", string(o.Side)),
			slog.String("price", o.Price.String()),
			slog.String("size", o.Size.String()))
	}
}

// emitFill pushes a synthetic execution event into the inbox, dropping
// on overflow exactly like the stream worker does.
func (g *PaperGateway) emitFill(orderID int64, side domain.Side, price quant.PriceMicros, size quant.QtySats, now time.Time) {
	g.nextExec++
	ev := &event.ExecutionFillEvent{
		BaseEvent: event.BaseEvent{
			Seq: quant.NextSeq(g.seq),
			Ts:  quant.StampOf(now),
		},
		Pair:        g.info.Pair,
		ExecID:      g.nextExec,
		OrderID:     orderID,
		Side:        string(side),
		PriceMicros: price,
		SizeSats:    size,
	}
	select {
	case g.inbox <- ev:
	default:
		slog.Error("Inbox full, paper fill dropped", slog.Int64("order_id", orderID))
		infra.CountEventDrop("execution_fill")
	}
}

// notionalMicros returns price*size in quote micros.
func notionalMicros(price quant.PriceMicros, size quant.QtySats) int64 {
	return safe.Div(safe.Mul(int64(price), int64(size)), quant.QtyScale)
}
