package domain

import "github.com/shopspring/decimal"

// Balance is the free/locked amount of one asset as of the last fetch.
// Treated as stale between refreshes; the reconcile pass re-fetches at
// its start.
type Balance struct {
	Asset  string
	Free   decimal.Decimal
	Locked decimal.Decimal
}

// Total returns free plus locked.
func (b Balance) Total() decimal.Decimal {
	return b.Free.Add(b.Locked)
}

// FindBalance picks one asset out of a fetched balance list.
func FindBalance(balances []Balance, asset string) (Balance, bool) {
	for _, b := range balances {
		if b.Asset == asset {
			return b, true
		}
	}
	return Balance{}, false
}
