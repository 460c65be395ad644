package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLCV bar from the public candlestick endpoint, consumed
// by the crossover strategy.
type Candle struct {
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
	Ts     time.Time
}
