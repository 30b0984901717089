package calculator

import (
	"fmt"
	"sort"
	"time"

	apperrors "rfm-score/pkg/errors"
	"rfm-score/pkg/models"
)

const (
	day        = 24 * time.Hour
	dateLayout = "2006-01-02"
)

// Aggregate collapses cleaned transactions into one CustomerMetrics per
// customer. reference is the cutoff date recency is measured from; an order
// dated after it is rejected so recency stays non-negative.
func Aggregate(records []models.TransactionRecord, reference time.Time) (map[string]models.CustomerMetrics, error) {
	out := make(map[string]models.CustomerMetrics)
	amounts := make(map[string][]float64)
	for _, r := range records {
		if r.OrderDate.After(reference) {
			return nil, apperrors.NewInputError(
				fmt.Sprintf("order %s of %s dated %s is after reference date %s",
					r.OrderID, r.CustomerID, r.OrderDate.Format(dateLayout), reference.Format(dateLayout)), nil)
		}
		m, ok := out[r.CustomerID]
		if !ok {
			m = models.CustomerMetrics{CustomerID: r.CustomerID, LastOrder: r.OrderDate}
		}
		if r.OrderDate.After(m.LastOrder) {
			m.LastOrder = r.OrderDate
		}
		m.Frequency++
		amounts[r.CustomerID] = append(amounts[r.CustomerID], r.Amount)
		out[r.CustomerID] = m
	}

	for id, m := range out {
		m.RecencyDays = daysBetween(m.LastOrder, reference)
		m.Monetary = sortedSum(amounts[id])
		out[id] = m
	}
	return out, nil
}

// sortedSum adds values in ascending order so the total does not depend
// on the order rows arrived in.
func sortedSum(values []float64) float64 {
	sort.Float64s(values)
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum
}

// daysBetween returns the number of whole days from a to b, both taken as calendar dates.
func daysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da) / day)
}
