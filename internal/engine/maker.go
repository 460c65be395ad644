package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minerjirou/crypto-trade-bot/internal/domain"
	"github.com/minerjirou/crypto-trade-bot/internal/infra"
	"github.com/minerjirou/crypto-trade-bot/internal/infra/bitbank"
	"github.com/minerjirou/crypto-trade-bot/pkg/quant"
)

var one = decimal.NewFromInt(1)

// sides fixes the iteration order of every per-side loop.
var sides = [2]domain.Side{domain.SideBuy, domain.SideSell}

// Reconcile runs one convergence pass: refresh balance, gate on risk and
// volatility, cancel orders that drifted off the grid, fill in the
// missing grid legs, then enforce the stop-loss caps. Steps run in that
// order and a transport failure aborts whatever remains; the next book
// update retries naturally. Venue rejections only skip the order they
// rejected.
func (e *Engine) Reconcile(ctx context.Context) {
	mid, ok := e.market.Mid()
	if !ok {
		return
	}
	infra.CountReconcilePass(e.info.Pair)

	balance, err := e.freeQuoteBalance(ctx)
	if err != nil {
		slog.Error("Balance refresh failed, pass aborted", slog.String("error", err.Error()))
		infra.CountReconcileSkip(e.info.Pair, "balance_error")
		return
	}
	if balance.Sign() <= 0 {
		slog.Warn("No free balance, pass skipped", slog.String("balance", balance.String()))
		infra.CountReconcileSkip(e.info.Pair, "no_balance")
		return
	}
	if e.market.IsVolatile(e.cfg.Maker.VolThreshold.Decimal) {
		slog.Warn("⚠️ Volatile market, grid frozen", slog.String("mid", mid.String()))
		infra.CountReconcileSkip(e.info.Pair, "volatile")
		return
	}

	desired := e.desiredPrices(mid)

	if err := e.cancelStale(ctx, desired); err != nil {
		return
	}
	if err := e.ensureGrid(ctx, mid, balance, desired); err != nil {
		return
	}
	e.checkStopLoss(ctx, mid, balance)
}

// desiredPrices computes the one quote each side should rest at for the
// given mid.
func (e *Engine) desiredPrices(mid decimal.Decimal) map[domain.Side]decimal.Decimal {
	entry := e.cfg.Maker.EntryOffset.Decimal
	digits := e.cfg.Maker.PriceDigits
	return map[domain.Side]decimal.Decimal{
		domain.SideBuy:  quant.Quantize(mid.Mul(one.Sub(entry)), digits),
		domain.SideSell: quant.Quantize(mid.Mul(one.Add(entry)), digits),
	}
}

// cancelStale removes every tracked order that is older than the
// staleness threshold or no longer sits at its side's desired price.
// The mirror entry goes away only on cancel acknowledgment; the venue
// treating the order as already gone counts as acknowledged.
func (e *Engine) cancelStale(ctx context.Context, desired map[domain.Side]decimal.Decimal) error {
	now := e.clock.Now()
	maxAge := time.Duration(e.cfg.Maker.StaleSeconds) * time.Second

	for _, o := range e.book.All() {
		age := now.Sub(o.PlacedAt)
		stale := age > maxAge
		mispriced := !o.Price.Equal(desired[o.Side])
		if !stale && !mispriced {
			continue
		}
		reason := "mispriced"
		if stale {
			reason = "stale"
		}

		if err := e.gateway.Cancel(ctx, o.Pair, o.OrderID); err != nil {
			var apiErr *bitbank.APIError
			if errors.As(err, &apiErr) {
				slog.Error("Cancel rejected by venue",
					slog.Int64("order_id", o.OrderID),
					slog.String("error", apiErr.Error()))
				continue
			}
			slog.Error("Cancel failed, pass aborted",
				slog.Int64("order_id", o.OrderID),
				slog.String("error", err.Error()))
			return err
		}

		e.book.Remove(o.OrderID)
		infra.CountOrderCanceled(e.info.Pair, reason)
		slog.Info("🧹 Order canceled",
			slog.Int64("order_id", o.OrderID),
			slog.String("side", string(o.Side)),
			slog.String("price", o.Price.String()),
			slog.String("reason", reason),
			slog.Duration("age", age.Truncate(time.Second)))
	}
	return nil
}

// ensureGrid places the missing leg on each side. One size serves both
// legs; a side is skipped while its position leg exceeds the risk cap or
// while an order already rests at the desired price.
func (e *Engine) ensureGrid(ctx context.Context, mid, balance decimal.Decimal, desired map[domain.Side]decimal.Decimal) error {
	m := &e.cfg.Maker
	size := quant.FloorToLot(balance.Mul(m.OrderFraction.Decimal).Div(mid), m.SizeDigits, m.MinLot.Decimal)
	posCap := balance.Mul(m.MaxPositionRatio.Decimal)

	for _, side := range sides {
		if e.ledger.Leg(side).GreaterThan(posCap) {
			slog.Info("Position cap reached, side skipped",
				slog.String("side", string(side)),
				slog.String("leg", e.ledger.Leg(side).String()),
				slog.String("cap", posCap.String()))
			continue
		}
		if _, exists := e.book.FindAt(side, desired[side]); exists {
			continue
		}
		if err := e.placeLimit(ctx, side, desired[side], size, "grid"); err != nil {
			return err
		}
	}
	return nil
}

// checkStopLoss unwinds any leg that breached its cap: one opposite-side
// order priced unfavorably away from mid, sized to the whole leg. The
// leg is flushed at placement time without waiting for the unwind to
// fill; an unwind that never fills understates exposure until the next
// breach. That matches the accepted risk model.
func (e *Engine) checkStopLoss(ctx context.Context, mid, balance decimal.Decimal) {
	m := &e.cfg.Maker
	posCap := balance.Mul(m.MaxPositionRatio.Decimal)

	for _, side := range sides {
		leg := e.ledger.Leg(side)
		if !leg.GreaterThan(posCap) {
			continue
		}

		unwind := side.Opposite()
		var px decimal.Decimal
		if side == domain.SideBuy {
			px = quant.Quantize(mid.Mul(one.Sub(m.StopOffset.Decimal)), m.PriceDigits)
		} else {
			px = quant.Quantize(mid.Mul(one.Add(m.StopOffset.Decimal)), m.PriceDigits)
		}
		size := quant.FloorToLot(leg.Div(mid), m.SizeDigits, m.MinLot.Decimal)

		slog.Warn("🛑 Position cap breached, unwinding",
			slog.String("side", string(side)),
			slog.String("leg", leg.String()),
			slog.String("cap", posCap.String()),
			slog.String("unwind_price", px.String()))

		if err := e.placeLimit(ctx, unwind, px, size, "stop"); err != nil {
			slog.Error("Stop-loss placement failed", slog.String("error", err.Error()))
		}
		e.auditRecord(ctx, domain.AuditStop, unwind, px, size)
		e.ledger.Flush(side)
		e.publishLegs()
	}
}

// placeLimit issues one post-only limit order and mirrors it on success.
// The ORDER audit row is written before the call so rejected and failed
// placements still leave a trace. A venue rejection returns nil; only
// transport failures propagate to abort the pass.
func (e *Engine) placeLimit(ctx context.Context, side domain.Side, price, size decimal.Decimal, kind string) error {
	e.auditRecord(ctx, domain.AuditOrder, side, price, size)

	ack, err := e.gateway.PlaceLimit(ctx, e.info.Pair, side, price, size, true)
	if err != nil {
		var apiErr *bitbank.APIError
		if errors.As(err, &apiErr) {
			slog.Error("Order rejected by venue",
				slog.String("side", string(side)),
				slog.String("price", price.String()),
				slog.String("size", size.String()),
				slog.String("error", apiErr.Error()))
			return nil
		}
		slog.Error("Order placement failed",
			slog.String("side", string(side)),
			slog.String("price", price.String()),
			slog.String("error", err.Error()))
		return err
	}

	e.book.Record(domain.OpenOrder{
		OrderID:  ack.OrderID,
		Pair:     e.info.Pair,
		Side:     side,
		Price:    price,
		Size:     size,
		PlacedAt: e.clock.Now(),
	})
	infra.CountOrderPlaced(e.info.Pair, string(side), kind)
	slog.Info("📌 Order placed",
		slog.Int64("order_id", ack.OrderID),
		slog.String("kind", kind),
		slog.String("side", string(side)),
		slog.String("price", price.String()),
		slog.String("size", size.String()))
	return nil
}

// publishLegs refreshes the per-side exposure gauges.
func (e *Engine) publishLegs() {
	buy, sell := e.ledger.Legs()
	infra.SetPositionNotional(e.info.Pair, string(domain.SideBuy), buy.InexactFloat64())
	infra.SetPositionNotional(e.info.Pair, string(domain.SideSell), sell.InexactFloat64())
}
