package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticker is the public top-of-book summary for one pair.
type Ticker struct {
	Pair string
	Sell decimal.Decimal // best ask
	Buy  decimal.Decimal // best bid
	Last decimal.Decimal
	High decimal.Decimal
	Low  decimal.Decimal
	Vol  decimal.Decimal
	Ts   time.Time
}

// Mid returns the midpoint of the best bid and ask, or zero when
// either side is empty.
func (t Ticker) Mid() decimal.Decimal {
	if t.Buy.Sign() <= 0 || t.Sell.Sign() <= 0 {
		return decimal.Zero
	}
	return t.Buy.Add(t.Sell).Div(two)
}
