package calculator

import (
	"fmt"
	"sort"

	apperrors "rfm-score/pkg/errors"
	"rfm-score/pkg/models"
)

// Scorer turns customer metrics into RFM scores. MinDistinct, when > 0,
// makes scoring fail for a metric with fewer distinct values; at 0 sparse
// metrics are scored into whichever bins their values reach.
type Scorer struct {
	MinDistinct int
}

// Score scores with the default Scorer.
func Score(metrics map[string]models.CustomerMetrics) (map[string]models.CustomerScore, error) {
	return Scorer{}.Score(metrics)
}

// WeightedScore is r*0.6 + f*0.3 + m*0.1, computed in tenths.
func WeightedScore(r, f, m int) float64 {
	return float64(6*r+3*f+m) / 10
}

// Score bins recency, frequency and monetary independently over the whole
// population and composes the weighted score.
func (s Scorer) Score(metrics map[string]models.CustomerMetrics) (map[string]models.CustomerScore, error) {
	if len(metrics) == 0 {
		return nil, apperrors.NewInsufficientDataError("no customers to score")
	}

	ids := make([]string, 0, len(metrics))
	for id := range metrics {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rv := make([]float64, len(ids))
	fv := make([]float64, len(ids))
	mv := make([]float64, len(ids))
	for i, id := range ids {
		m := metrics[id]
		rv[i] = float64(m.RecencyDays)
		fv[i] = float64(m.Frequency)
		mv[i] = m.Monetary
	}

	rb, err := s.bins("recency", rv)
	if err != nil {
		return nil, err
	}
	fb, err := s.bins("frequency", fv)
	if err != nil {
		return nil, err
	}
	mb, err := s.bins("monetary", mv)
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.CustomerScore, len(ids))
	for i, id := range ids {
		r := rb.Label(rv[i], LowerIsBetter)
		f := fb.Label(fv[i], HigherIsBetter)
		m := mb.Label(mv[i], HigherIsBetter)
		out[id] = models.CustomerScore{
			CustomerID:    id,
			RScore:        r,
			FScore:        f,
			MScore:        m,
			WeightedScore: WeightedScore(r, f, m),
		}
	}
	return out, nil
}

func (s Scorer) bins(metric string, values []float64) (Bins, error) {
	if s.MinDistinct > 0 {
		if n := distinct(values); n < s.MinDistinct {
			return Bins{}, apperrors.NewInsufficientDataError(
				fmt.Sprintf("%s has %d distinct values, need %d", metric, n, s.MinDistinct))
		}
	}
	b, err := NewBins(values)
	if err != nil {
		return Bins{}, apperrors.NewInsufficientDataError(metric + ": " + err.Error())
	}
	return b, nil
}
