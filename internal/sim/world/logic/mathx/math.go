// Package mathx holds the integer helpers the kernel's rules are written in.
package mathx

import "math"

// FloorDiv divides rounding toward negative infinity. b must be positive.
func FloorDiv(a, b int64) int64 {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}

func Abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

func Min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}


// MulSat multiplies two non-negative values, saturating at math.MaxInt64.
func MulSat(a, b int64) int64 {
	if a != 0 && b > math.MaxInt64/a {
		return math.MaxInt64
	}
	return a * b
}

// AddSat adds two non-negative values, saturating at math.MaxInt64.
func AddSat(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// Percent returns n*pct/100 rounded down for non-negative n and pct in
// 0..100, without overflowing for any n.
func Percent(n, pct int64) int64 {
	return n/100*pct + n%100*pct/100
}
