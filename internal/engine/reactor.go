package engine

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/minerjirou/crypto-trade-bot/internal/domain"
	"github.com/minerjirou/crypto-trade-bot/internal/infra"
	"github.com/minerjirou/crypto-trade-bot/pkg/quant"
)

// execWindow bounds the duplicate-fill guard.
const execWindow = 512

// ReactToFill books one fill into the ledger and walks the grid: every
// fill spawns its own take-profit order on the opposite side, offset
// favorably from the fill price, instead of waiting for the next
// reconcile pass.
func (e *Engine) ReactToFill(ctx context.Context, f domain.Fill) {
	if e.isDuplicateFill(f.ExecID) {
		slog.Debug("Duplicate execution ignored", slog.Int64("exec_id", f.ExecID))
		return
	}

	e.ledger.Record(f.Side, f.Price, f.Size)
	infra.CountFill(e.info.Pair, string(f.Side))
	e.publishLegs()
	e.auditRecord(ctx, domain.AuditExecution, f.Side, f.Price, f.Size)

	slog.Info("💰 Fill",
		slog.String("side", string(f.Side)),
		slog.String("price", f.Price.String()),
		slog.String("size", f.Size.String()),
		slog.Int64("order_id", f.OrderID))

	tpSide := f.Side.Opposite()
	tp := e.cfg.Maker.TakeProfitOffset.Decimal
	var tpPrice decimal.Decimal
	if tpSide == domain.SideSell {
		tpPrice = quant.Quantize(f.Price.Mul(one.Add(tp)), e.cfg.Maker.PriceDigits)
	} else {
		tpPrice = quant.Quantize(f.Price.Mul(one.Sub(tp)), e.cfg.Maker.PriceDigits)
	}
	if _, exists := e.book.FindAt(tpSide, tpPrice); exists {
		slog.Debug("Take-profit already resting",
			slog.String("side", string(tpSide)),
			slog.String("price", tpPrice.String()))
		return
	}
	// Placement errors are logged inside; a failed take-profit leaves
	// nothing else in this reaction to abort.
	_ = e.placeLimit(ctx, tpSide, tpPrice, f.Size, "take_profit")
}

// isDuplicateFill records the id and reports whether it was already
// seen. Id zero means the feed supplied none; those are never deduped.
func (e *Engine) isDuplicateFill(id int64) bool {
	if id == 0 {
		return false
	}
	if _, ok := e.seenExec[id]; ok {
		return true
	}
	e.seenExec[id] = struct{}{}
	e.execRing = append(e.execRing, id)
	if len(e.execRing) > execWindow {
		delete(e.seenExec, e.execRing[0])
		e.execRing = e.execRing[1:]
	}
	return false
}
