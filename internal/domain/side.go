package domain

// Side identifies which half of the book an order or position leg
// belongs to. Values match the venue's wire form.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Valid reports whether s is one of the two known sides.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderType is the venue order type.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)
