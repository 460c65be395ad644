package domain

import (
	"sync"

	"github.com/shopspring/decimal"
)

// PositionLedger accumulates notional exposure (price x size, in quote
// currency) per side from fills. It is the source of truth for risk
// checks. A leg only ever grows between flushes; the stop-loss path is
// the sole caller of Flush.
type PositionLedger struct {
	mu   sync.Mutex
	legs map[Side]decimal.Decimal
}

func NewPositionLedger() *PositionLedger {
	return &PositionLedger{legs: map[Side]decimal.Decimal{
		SideBuy:  decimal.Zero,
		SideSell: decimal.Zero,
	}}
}

// Record adds price*size to the leg for the fill's side.
func (l *PositionLedger) Record(side Side, price, size decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.legs[side] = l.legs[side].Add(price.Mul(size))
}

// Leg returns the accumulated notional for one side.
func (l *PositionLedger) Leg(side Side) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.legs[side]
}

// Flush zeroes one leg and returns what it held. Represents the
// assumption that the just-issued unwind order fully closes the tracked
// exposure; the ledger does not wait for the unwind fill.
func (l *PositionLedger) Flush(side Side) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	v := l.legs[side]
	l.legs[side] = decimal.Zero
	return v
}

// Net returns buy leg minus sell leg.
func (l *PositionLedger) Net() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.legs[SideBuy].Sub(l.legs[SideSell])
}

// Legs returns both legs at once, for snapshots.
func (l *PositionLedger) Legs() (buy, sell decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.legs[SideBuy], l.legs[SideSell]
}

// Restore overwrites both legs, for snapshot recovery at startup.
func (l *PositionLedger) Restore(buy, sell decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.legs[SideBuy] = buy
	l.legs[SideSell] = sell
}
