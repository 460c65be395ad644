// Package safe provides int64 arithmetic that panics on overflow instead
// of wrapping. Used for fixed-point bookkeeping where a silent wrap would
// corrupt a balance.
package safe

import (
	"math"
)

// Add returns a+b, panicking on overflow.
func Add(a, b int64) int64 {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		panic("safe: add overflow")
	}
	return a + b
}

// Sub returns a-b, panicking on overflow.
func Sub(a, b int64) int64 {
	if (b > 0 && a < math.MinInt64+b) || (b < 0 && a > math.MaxInt64+b) {
		panic("safe: sub overflow")
	}
	return a - b
}

// Mul returns a*b, panicking on overflow.
func Mul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a == 1 {
		return b
	}
	if b == 1 {
		return a
	}
	if a == math.MinInt64 || b == math.MinInt64 {
		panic("safe: mul overflow")
	}
	p := a * b
	if p/b != a {
		panic("safe: mul overflow")
	}
	return p
}

// Div returns a/b, panicking on division by zero and on the one overflow
// case int64 division has (MinInt64 / -1).
func Div(a, b int64) int64 {
	if b == 0 {
		panic("safe: div by zero")
	}
	if a == math.MinInt64 && b == -1 {
		panic("safe: div overflow")
	}
	return a / b
}
