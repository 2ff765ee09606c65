// Package metrics holds the pure numeric functions shared by every
// aggregation. None of them panic or return errors; invalid input yields a
// sentinel value.
package metrics

import (
	"math"
	"time"
)

// MemoryUsagePercent returns allocated/total as a percentage in [0,100].
// A zero or negative total yields 0, allocated above total yields exactly 100.
func MemoryUsagePercent(allocatedMB, totalMB float64) float64 {
	if !isFinite(allocatedMB) || !isFinite(totalMB) || totalMB <= 0 {
		return 0
	}
	if allocatedMB > totalMB {
		return 100
	}
	return Clamp(allocatedMB/totalMB*100, 0, 100)
}

// IsOverAllocated reports the allocated > total data-quality condition
func IsOverAllocated(allocatedMB, totalMB float64) bool {
	return isFinite(allocatedMB) && isFinite(totalMB) && totalMB > 0 && allocatedMB > totalMB
}

// RuntimeHours returns the whole hours between creation and end, truncated
// toward zero. It is 0 when end is absent, when either timestamp is the zero
// time (unparseable) or when end precedes creation.
func RuntimeHours(creation time.Time, end *time.Time) float64 {
	if end == nil || creation.IsZero() || end.IsZero() {
		return 0
	}
	if end.Before(creation) {
		return 0
	}
	return math.Trunc(end.Sub(creation).Hours())
}

// Average is the mean of the finite values. It returns 0 when nothing
// finite remains.
func Average(values ...float64) float64 {
	sum := 0.0
	n := 0
	for _, v := range values {
		if !isFinite(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Clamp bounds v to [lo,hi]. NaN clamps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NonNegative maps negative and non-finite values to 0
func NonNegative(v float64) float64 {
	if !isFinite(v) || v < 0 {
		return 0
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
