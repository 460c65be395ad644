package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PairInfo is the trading-rule metadata for one pair: tick and lot
// precision plus the minimum order size the venue accepts.
type PairInfo struct {
	Pair        string
	Base        string // e.g. "xrp"
	Quote       string // e.g. "jpy"
	PriceDigits int32
	SizeDigits  int32
	MinLot      decimal.Decimal
}

// NewPairInfo splits a "base_quote" pair name and bundles it with the
// grid precision rules.
func NewPairInfo(pair string, priceDigits, sizeDigits int32, minLot decimal.Decimal) (PairInfo, error) {
	base, quote, err := SplitPair(pair)
	if err != nil {
		return PairInfo{}, err
	}
	return PairInfo{
		Pair:        pair,
		Base:        base,
		Quote:       quote,
		PriceDigits: priceDigits,
		SizeDigits:  sizeDigits,
		MinLot:      minLot,
	}, nil
}

// SplitPair splits "xrp_jpy" into ("xrp", "jpy").
func SplitPair(pair string) (base, quote string, err error) {
	parts := strings.Split(pair, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed pair %q, want base_quote", pair)
	}
	return parts[0], parts[1], nil
}
