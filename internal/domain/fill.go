package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill is one execution report from the private stream.
type Fill struct {
	ExecID     int64
	OrderID    int64
	Pair       string
	Side       Side
	Price      decimal.Decimal
	Size       decimal.Decimal
	ExecutedAt time.Time
}

// Notional returns price*size in quote currency.
func (f Fill) Notional() decimal.Decimal {
	return f.Price.Mul(f.Size)
}
