package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/minerjirou/crypto-trade-bot/internal/domain"
	"github.com/minerjirou/crypto-trade-bot/internal/event"
	"github.com/minerjirou/crypto-trade-bot/internal/infra"
	"github.com/minerjirou/crypto-trade-bot/pkg/quant"
)

// runDispatcher is the single consumer of the inbox. It applies each
// event to local state and hands the venue-mutating work to the worker
// through coalescing signal channels, so a burst of book updates
// collapses into one reconcile pass instead of a backlog.
func (e *Engine) runDispatcher(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.inbox:
			e.dispatch(ctx, ev)
		}
	}
}

func (e *Engine) dispatch(ctx context.Context, ev event.Event) {
	switch ev := ev.(type) {
	case *event.BookUpdateEvent:
		e.onBookUpdate(ev)
	case *event.ExecutionFillEvent:
		e.onExecutionFill(ctx, ev)
	case *event.ResyncTickEvent:
		signal(e.resyncC)
	default:
		slog.Warn("Unhandled event type", slog.Int("type", int(ev.GetType())))
	}
}

func (e *Engine) onBookUpdate(ev *event.BookUpdateEvent) {
	defer event.ReleaseBookUpdate(ev)

	bid := ev.BidMicros.Decimal()
	ask := ev.AskMicros.Decimal()
	if !e.market.ApplyTopOfBook(bid, ask, e.clock.Now()) {
		return
	}
	if mid, ok := e.market.Mid(); ok {
		infra.SetMidPrice(e.info.Pair, mid.InexactFloat64())
	}
	if e.obs != nil {
		e.obs.ObserveBook(ev.BidMicros, ev.AskMicros)
	}
	signal(e.wake)
}

func (e *Engine) onExecutionFill(ctx context.Context, ev *event.ExecutionFillEvent) {
	side := domain.Side(ev.Side)
	if !side.Valid() {
		slog.Warn("Fill with unknown side dropped", slog.String("side", ev.Side))
		return
	}
	f := domain.Fill{
		ExecID:     ev.ExecID,
		OrderID:    ev.OrderID,
		Pair:       ev.Pair,
		Side:       side,
		Price:      ev.PriceMicros.Decimal(),
		Size:       ev.SizeSats.Decimal(),
		ExecutedAt: ev.GetTs().Time(),
	}
	// Fills are never dropped; the queue absorbs bursts while a pass
	// holds the worker.
	select {
	case e.fillC <- f:
	case <-ctx.Done():
	}
}

// runResyncTicker feeds periodic resync events through the inbox so the
// mirror refresh follows the same ordered path as everything else.
func (e *Engine) runResyncTicker(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(time.Duration(e.cfg.Maker.ResyncSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ev := &event.ResyncTickEvent{BaseEvent: event.BaseEvent{
				Seq: quant.NextSeq(e.seq),
				Ts:  quant.StampOf(e.clock.Now()),
			}}
			select {
			case e.inbox <- ev:
			default:
				// A full inbox already guarantees a busy engine; the
				// next tick will land.
			}
		}
	}
}

// signal arms a capacity-1 channel without ever blocking. An already
// armed channel means the pending pass will observe this change too.
func signal(c chan struct{}) {
	select {
	case c <- struct{}{}:
	default:
	}
}
