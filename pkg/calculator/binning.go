package calculator

import (
	"fmt"
	"math"
)

// NumBins is the number of ordinal score levels.
const NumBins = 5

// Direction tells which end of the value range earns the top label.
type Direction int

const (
	// HigherIsBetter maps the lowest interval to 1 and the highest to 5.
	HigherIsBetter Direction = iota
	// LowerIsBetter maps the lowest interval to 5 and the highest to 1.
	LowerIsBetter
)

// Bins is an equal-width partition of [min, max] into NumBins intervals.
// Intervals are right-closed, (e[k-1], e[k]], except the first which also
// includes e[0]. A zero-width range is degenerate: every value maps to the
// middle interval.
type Bins struct {
	Edges      [NumBins + 1]float64
	Degenerate bool
}

// NewBins computes the edges over the observed min and max of values.
func NewBins(values []float64) (Bins, error) {
	if len(values) == 0 {
		return Bins{}, fmt.Errorf("no values")
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	var b Bins
	if hi == lo {
		b.Degenerate = true
		for k := range b.Edges {
			b.Edges[k] = lo
		}
		return b, nil
	}
	width := (hi - lo) / NumBins
	for k := 0; k < NumBins; k++ {
		b.Edges[k] = lo + float64(k)*width
	}
	b.Edges[NumBins] = hi
	return b, nil
}

// Index returns the 0-based interval holding v.
func (b Bins) Index(v float64) int {
	if b.Degenerate {
		return NumBins / 2
	}
	for k := 1; k < NumBins; k++ {
		if v <= b.Edges[k] {
			return k - 1
		}
	}
	return NumBins - 1
}

// Label returns the 1..NumBins score of v.
func (b Bins) Label(v float64, dir Direction) int {
	i := b.Index(v)
	if dir == LowerIsBetter {
		return NumBins - i
	}
	return i + 1
}

func distinct(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}
