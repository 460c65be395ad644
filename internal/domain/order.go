package domain

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// OpenOrder is one resting order as the engine believes it to exist on
// the exchange. IDs are issued by the exchange only; the engine never
// fabricates or reuses them.
type OpenOrder struct {
	OrderID  int64
	Pair     string
	Side     Side
	Price    decimal.Decimal
	Size     decimal.Decimal
	PlacedAt time.Time
}

// OpenOrderBook is the local mirror of resting orders, keyed by order ID.
// It is mutated from placement/cancellation acknowledgments and from full
// refreshes against exchange truth; readers get copies.
type OpenOrderBook struct {
	mu     sync.RWMutex
	orders map[int64]OpenOrder
}

func NewOpenOrderBook() *OpenOrderBook {
	return &OpenOrderBook{orders: make(map[int64]OpenOrder)}
}

// Record adds an order after a successful placement acknowledgment.
func (b *OpenOrderBook) Record(o OpenOrder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders[o.OrderID] = o
}

// Remove drops an order after a cancellation acknowledgment. Reports
// whether the order was tracked.
func (b *OpenOrderBook) Remove(orderID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.orders[orderID]
	delete(b.orders, orderID)
	return ok
}

// Replace swaps the whole mirror for a fresh exchange snapshot and
// reports the drift: IDs the mirror did not know and IDs it believed in
// that the exchange no longer has.
func (b *OpenOrderBook) Replace(orders []OpenOrder) (added, removed []int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make(map[int64]OpenOrder, len(orders))
	for _, o := range orders {
		next[o.OrderID] = o
		if _, ok := b.orders[o.OrderID]; !ok {
			added = append(added, o.OrderID)
		}
	}
	for id := range b.orders {
		if _, ok := next[id]; !ok {
			removed = append(removed, id)
		}
	}
	b.orders = next
	return added, removed
}

// FindAt reports whether an order rests at exactly (side, price).
func (b *OpenOrderBook) FindAt(side Side, price decimal.Decimal) (OpenOrder, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, o := range b.orders {
		if o.Side == side && o.Price.Equal(price) {
			return o, true
		}
	}
	return OpenOrder{}, false
}

// All returns a snapshot of every tracked order.
func (b *OpenOrderBook) All() []OpenOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]OpenOrder, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, o)
	}
	return out
}

// Len returns the number of tracked orders.
func (b *OpenOrderBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}
