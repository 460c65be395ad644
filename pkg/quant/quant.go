// Package quant holds the fixed-point number types and grid arithmetic
// shared by every component that touches money. Prices and sizes are never
// carried as binary floating point: REST payloads parse into
// decimal.Decimal, stream payloads parse into integer micros/sats.
package quant

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PriceExp = 6 // micros: price * 10^6
	QtyExp   = 8 // sats:   size  * 10^8

	PriceScale = 1_000_000
	QtyScale   = 100_000_000
)

// PriceMicros is a price in fixed-point micros (10^-6).
type PriceMicros int64

// QtySats is a quantity in fixed-point sats (10^-8).
type QtySats int64

// TimeStamp is Unix microseconds.
type TimeStamp int64

// Quantize truncates v toward zero to at most digits fractional digits.
// It never rounds away from zero: Quantize(100.04985, 3) = 100.049.
// Exchanges reject off-grid values, and rounding a price or size up can
// spend balance that is not there.
func Quantize(v decimal.Decimal, digits int32) decimal.Decimal {
	return v.Truncate(digits)
}

// FloorToLot quantizes a size to the lot grid, raising it to lot when the
// truncated value falls below the venue minimum. Orders are never placed
// under the lot.
func FloorToLot(v decimal.Decimal, digits int32, lot decimal.Decimal) decimal.Decimal {
	q := v.Truncate(digits)
	if q.LessThan(lot) {
		return lot
	}
	return q
}

// ParseDecimal parses a venue-supplied numeric string. Empty input and
// anything decimal rejects come back as an error; the REST path treats
// that as a malformed payload.
func ParseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty decimal")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return d, nil
}

// ToPriceMicros converts a decimal price to micros, truncating sub-micro
// digits. Panics if the value does not fit; a price anywhere near int64
// range is corruption, not data.
func ToPriceMicros(d decimal.Decimal) PriceMicros {
	return PriceMicros(toFixed(d, PriceExp))
}

// ToQtySats converts a decimal quantity to sats.
func ToQtySats(d decimal.Decimal) QtySats {
	return QtySats(toFixed(d, QtyExp))
}

func toFixed(d decimal.Decimal, exp int32) int64 {
	shifted := d.Shift(exp).Truncate(0)
	bi := shifted.BigInt()
	if !bi.IsInt64() {
		panic("quant: fixed-point overflow: " + d.String())
	}
	return bi.Int64()
}

// Decimal returns the exact decimal form of the price.
func (p PriceMicros) Decimal() decimal.Decimal {
	return decimal.New(int64(p), -PriceExp)
}

func (p PriceMicros) String() string {
	return p.Decimal().StringFixed(PriceExp)
}

// Decimal returns the exact decimal form of the quantity.
func (q QtySats) Decimal() decimal.Decimal {
	return decimal.New(int64(q), -QtyExp)
}

func (q QtySats) String() string {
	return q.Decimal().StringFixed(QtyExp)
}

// PriceMicrosFromString parses a numeric string straight into micros
// without going through float64. Malformed or overflowing input comes
// back as 0; the stream path drops such updates instead of crashing on a
// bad frame.
func PriceMicrosFromString(s string) PriceMicros {
	return PriceMicros(parseFixedPoint(s, PriceExp))
}

// QtySatsFromString parses a numeric string straight into sats.
func QtySatsFromString(s string) QtySats {
	return QtySats(parseFixedPoint(s, QtyExp))
}

// parseFixedPoint parses "123.456" into an int64 scaled by 10^exp.
// Tolerant by contract: 0 for anything malformed or out of range.
func parseFixedPoint(s string, exp int32) int64 {
	if s == "" || s == "null" {
		return 0
	}
	neg := false
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		s = s[1:]
	}
	intStr, fracStr := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intStr, fracStr = s[:i], s[i+1:]
	}
	if intStr == "" && fracStr == "" {
		return 0
	}

	var n int64
	for i := 0; i < len(intStr); i++ {
		c := intStr[i]
		if c < '0' || c > '9' {
			return 0
		}
		if n > (math.MaxInt64-int64(c-'0'))/10 {
			return 0
		}
		n = n*10 + int64(c-'0')
	}
	for i := int32(0); i < exp; i++ {
		if n > math.MaxInt64/10 {
			return 0
		}
		n *= 10
	}

	var frac int64
	count := int32(0)
	for i := 0; i < len(fracStr) && count < exp; i++ {
		c := fracStr[i]
		if c < '0' || c > '9' {
			return 0
		}
		frac = frac*10 + int64(c-'0')
		count++
	}
	for ; count < exp; count++ {
		frac *= 10
	}

	if n > math.MaxInt64-frac {
		return 0
	}
	n += frac
	if neg {
		n = -n
	}
	return n
}

// NextSeq hands out the next event sequence number atomically.
func NextSeq(ptr *uint64) uint64 {
	return atomic.AddUint64(ptr, 1)
}

// ParseTimeStamp converts a millisecond string (the venue's timestamp
// form) into a TimeStamp.
func ParseTimeStamp(s string) (TimeStamp, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return FromUnixMilli(ms)
}

// FromUnixMilli converts venue milliseconds to a TimeStamp. Out-of-range
// values error rather than wrap.
func FromUnixMilli(ms int64) (TimeStamp, error) {
	if ms > math.MaxInt64/1000 || ms < math.MinInt64/1000 {
		return 0, fmt.Errorf("timestamp out of range: %d", ms)
	}
	return TimeStamp(ms * 1000), nil
}

// Time converts the stamp to a time.Time.
func (t TimeStamp) Time() time.Time {
	return time.UnixMicro(int64(t))
}

// StampOf converts a time.Time to a TimeStamp.
func StampOf(t time.Time) TimeStamp {
	return TimeStamp(t.UnixMicro())
}
