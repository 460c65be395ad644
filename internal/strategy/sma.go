// Package strategy holds the optional crossover trader, a slow taker
// loop that runs beside the market-making engine and enters or exits a
// single long position on simple-moving-average signals.
package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SMAPair maintains fast and slow simple moving averages over one
// shared ring of closes. The ring holds the slow window; the running
// sum makes each push O(1) and the fast average walks the most recent
// fastN slots on demand.
type SMAPair struct {
	fastN int
	slowN int

	ring    []decimal.Decimal
	head    int
	count   int
	slowSum decimal.Decimal
}

// NewSMAPair allocates a pair of windows. The fast window must be
// strictly shorter than the slow one, otherwise the averages can never
// diverge and the crossover signal is meaningless.
func NewSMAPair(fastN, slowN int) (*SMAPair, error) {
	if fastN < 2 {
		return nil, fmt.Errorf("fast window must be at least 2, got %d", fastN)
	}
	if fastN >= slowN {
		return nil, fmt.Errorf("fast window %d must be shorter than slow window %d", fastN, slowN)
	}
	return &SMAPair{
		fastN: fastN,
		slowN: slowN,
		ring:  make([]decimal.Decimal, slowN),
	}, nil
}

// Reset empties both windows. The trader rebuilds the averages from
// the full candle fetch on every poll, so state never drifts from the
// venue's own history.
func (s *SMAPair) Reset() {
	for i := range s.ring {
		s.ring[i] = decimal.Decimal{}
	}
	s.head = 0
	s.count = 0
	s.slowSum = decimal.Decimal{}
}

// Push appends one close, evicting the oldest once the slow window is
// full.
func (s *SMAPair) Push(close decimal.Decimal) {
	if s.count == s.slowN {
		s.slowSum = s.slowSum.Sub(s.ring[s.head])
	} else {
		s.count++
	}
	s.ring[s.head] = close
	s.slowSum = s.slowSum.Add(close)
	s.head = (s.head + 1) % s.slowN
}

// Ready reports whether enough closes have been pushed to fill the
// slow window.
func (s *SMAPair) Ready() bool {
	return s.count == s.slowN
}

// Values returns the fast and slow averages. Call only when Ready.
func (s *SMAPair) Values() (fast, slow decimal.Decimal) {
	fastSum := decimal.Decimal{}
	idx := s.head
	for i := 0; i < s.fastN; i++ {
		idx--
		if idx < 0 {
			idx = s.slowN - 1
		}
		fastSum = fastSum.Add(s.ring[idx])
	}
	fast = fastSum.Div(decimal.NewFromInt(int64(s.fastN)))
	slow = s.slowSum.Div(decimal.NewFromInt(int64(s.slowN)))
	return fast, slow
}
