package quant

import (
	"testing"
)

// FuzzPriceMicrosFromString feeds arbitrary strings into the stream-path
// parser. It must never panic; bad input maps to 0.
func FuzzPriceMicrosFromString(f *testing.F) {
	f.Add("1.23")
	f.Add("-0.5")
	f.Add("")
	f.Add("null")
	f.Add("1.2.3")
	f.Add("9223372036854775807")
	f.Add("00000000000000000000.00000000000000000000")
	f.Add("+.")

	f.Fuzz(func(t *testing.T, s string) {
		_ = PriceMicrosFromString(s)
		_ = QtySatsFromString(s)
	})
}

// FuzzParseTimeStamp checks the timestamp parser handles hostile input
// gracefully (error, not panic or silent wrap).
func FuzzParseTimeStamp(f *testing.F) {
	f.Add("0")
	f.Add("1704067200000")
	f.Add("-1")
	f.Add("9223372036854775807")

	f.Fuzz(func(t *testing.T, s string) {
		_, _ = ParseTimeStamp(s)
	})
}

// FuzzQuantize checks truncation invariants over arbitrary inputs.
func FuzzQuantize(f *testing.F) {
	f.Add(int64(10004985), int32(3))
	f.Add(int64(0), int32(0))
	f.Add(int64(-123456), int32(2))

	f.Fuzz(func(t *testing.T, micros int64, digits int32) {
		if digits < 0 {
			digits = -digits
		}
		digits = digits % 9
		v := PriceMicros(micros).Decimal()
		q := Quantize(v, digits)
		if v.Sign() >= 0 && q.GreaterThan(v) {
			t.Errorf("Quantize(%s, %d) = %s exceeds input", v, digits, q)
		}
		if !Quantize(q, digits).Equal(q) {
			t.Errorf("Quantize(%s, %d) not idempotent", v, digits)
		}
	})
}
