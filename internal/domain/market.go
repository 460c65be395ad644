package domain

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MarketState holds the latest mid-price and a bounded window of recent
// mids for the volatility gate. Mutated only by top-of-book updates.
type MarketState struct {
	mu       sync.RWMutex
	pair     string
	bestBid  decimal.Decimal
	bestAsk  decimal.Decimal
	mid      decimal.Decimal
	hasMid   bool
	mids     []decimal.Decimal
	capacity int
	updated  time.Time
}

var two = decimal.NewFromInt(2)

// NewMarketState creates market state for one pair with a mid window of
// the given capacity.
func NewMarketState(pair string, windowCapacity int) *MarketState {
	return &MarketState{
		pair:     pair,
		capacity: windowCapacity,
		mids:     make([]decimal.Decimal, 0, windowCapacity),
	}
}

func (m *MarketState) Pair() string { return m.pair }

// ApplyTopOfBook sets mid = (bestBid+bestAsk)/2 exactly and appends it to
// the window, evicting the oldest entry at capacity. Zero or negative
// top-of-book values are ignored wholesale.
func (m *MarketState) ApplyTopOfBook(bestBid, bestAsk decimal.Decimal, now time.Time) bool {
	if bestBid.Sign() <= 0 || bestAsk.Sign() <= 0 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bestBid = bestBid
	m.bestAsk = bestAsk
	m.mid = bestBid.Add(bestAsk).Div(two)
	m.hasMid = true
	m.updated = now

	if len(m.mids) == m.capacity {
		copy(m.mids, m.mids[1:])
		m.mids[len(m.mids)-1] = m.mid
	} else {
		m.mids = append(m.mids, m.mid)
	}
	return true
}

// Mid returns the current mid-price. ok is false until the first book
// update arrives.
func (m *MarketState) Mid() (mid decimal.Decimal, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mid, m.hasMid
}

// TopOfBook returns the latest best bid and ask.
func (m *MarketState) TopOfBook() (bid, ask decimal.Decimal, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bestBid, m.bestAsk, m.hasMid
}

// LastUpdate returns the time of the latest applied book update.
func (m *MarketState) LastUpdate() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updated
}

// IsVolatile reports stdev(mids)/mean(mids) > threshold over the recent
// mid window. Undefined (false) until the window is full. The comparison
// is done squared, variance > threshold^2 * mean^2, which keeps the whole
// computation in decimal without a square root.
func (m *MarketState) IsVolatile(threshold decimal.Decimal) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.mids) < m.capacity || m.capacity == 0 {
		return false
	}

	n := decimal.NewFromInt(int64(len(m.mids)))
	sum := decimal.Zero
	for _, v := range m.mids {
		sum = sum.Add(v)
	}
	mean := sum.Div(n)

	variance := decimal.Zero
	for _, v := range m.mids {
		d := v.Sub(mean)
		variance = variance.Add(d.Mul(d))
	}
	variance = variance.Div(n)

	bound := threshold.Mul(threshold).Mul(mean.Mul(mean))
	return variance.GreaterThan(bound)
}

// WindowFull reports whether the mid window has reached capacity.
func (m *MarketState) WindowFull() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.mids) == m.capacity && m.capacity > 0
}
