package calculator

import (
	"math"
	"sort"

	"rfm-score/pkg/models"
)

// Summary holds descriptive statistics of a numeric column.
type Summary struct {
	Count int
	Mean  float64
	Std   float64 // sample standard deviation, 0 when Count < 2
	Min   float64
	Q25   float64
	Q50   float64
	Q75   float64
	Max   float64
}

// Describe computes a Summary; quantiles are linearly interpolated.
func Describe(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	var std float64
	if n > 1 {
		var sq float64
		for _, v := range sorted {
			sq += (v - mean) * (v - mean)
		}
		std = math.Sqrt(sq / float64(n-1))
	}

	return Summary{
		Count: n,
		Mean:  mean,
		Std:   std,
		Min:   sorted[0],
		Q25:   quantile(sorted, 0.25),
		Q50:   quantile(sorted, 0.50),
		Q75:   quantile(sorted, 0.75),
		Max:   sorted[n-1],
	}
}

func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// DescribeScores summarizes each score column.
func DescribeScores(scores []models.CustomerScore) map[string]Summary {
	cols := map[string][]float64{}
	for _, s := range scores {
		cols["r_score"] = append(cols["r_score"], float64(s.RScore))
		cols["f_score"] = append(cols["f_score"], float64(s.FScore))
		cols["m_score"] = append(cols["m_score"], float64(s.MScore))
		cols["rfm_wscore"] = append(cols["rfm_wscore"], s.WeightedScore)
	}
	out := make(map[string]Summary, len(cols))
	for name, values := range cols {
		out[name] = Describe(values)
	}
	return out
}

// Amounts extracts the order amounts of records.
func Amounts(records []models.TransactionRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Amount
	}
	return out
}
