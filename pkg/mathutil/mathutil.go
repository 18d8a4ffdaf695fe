// Package mathutil provides the rounding and annualization primitives shared
// by the filters, trading and performance packages.
package mathutil

import "math"

// FloorMultiple rounds x down to the nearest multiple of m. m must be > 0.
func FloorMultiple(x, m uint64) uint64 {
	return x - x%m
}

// CeilMultiple rounds x up to the nearest multiple of m. m must be > 0.
func CeilMultiple(x, m uint64) uint64 {
	return FloorMultiple(x+m-1, m)
}

// FloorMultipleOffset rounds x down to the nearest multiple of m, anchored at
// offset rather than at zero.
func FloorMultipleOffset(x, m, offset uint64) uint64 {
	return FloorMultiple(x-offset, m) + offset
}

// CeilMultipleOffset rounds x up to the nearest multiple of m, anchored at
// offset rather than at zero.
func CeilMultipleOffset(x, m, offset uint64) uint64 {
	return CeilMultiple(x-offset, m) + offset
}

// RoundDown truncates x to p decimal digits.
func RoundDown(x float64, p uint32) float64 {
	f := math.Pow(10, float64(p))
	return math.Floor(x*f) / f
}

// RoundHalfUp rounds x to p decimal digits, rounding .5 away from zero for
// non-negative x (the only case the engine ever feeds it).
func RoundHalfUp(x float64, p uint32) float64 {
	f := math.Pow(10, float64(p))
	return math.Floor(x*f+0.5) / f
}

// Annualized projects a return roi achieved over durationMs onto a one-year
// horizon.
func Annualized(durationMs uint64, roi float64) float64 {
	if durationMs == 0 {
		return 0
	}
	const yearMs = 31_556_952_000
	return math.Pow(1+roi, float64(yearMs)/float64(durationMs)) - 1
}
