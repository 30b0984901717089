package cleaner

import (
	"fmt"
	"math"
	"strconv"
	"time"

	apperrors "rfm-score/pkg/errors"
	"rfm-score/pkg/models"
)

const (
	// MinAmount is exclusive: orders of this amount or less are dropped.
	MinAmount = 1.0

	DateLayout = "2006-01-02"
)

// Clean drops incomplete rows and rows with amount <= MinAmount, then
// parses the survivors. A surviving row with an unparsable amount or date
// is a fatal format error. The input slice is not modified.
func Clean(rows []models.RawRow) ([]models.TransactionRecord, models.CleanStats, error) {
	stats := models.CleanStats{Total: len(rows)}
	out := make([]models.TransactionRecord, 0, len(rows))

	for _, row := range rows {
		if hasMissing(row) {
			stats.Missing++
			continue
		}

		rawAmount := row.Fields[models.ColAmountInfo]
		amount, err := strconv.ParseFloat(rawAmount, 64)
		if err == nil && (math.IsInf(amount, 0) || math.IsNaN(amount)) {
			err = fmt.Errorf("non-finite amount")
		}
		if err != nil {
			return nil, stats, apperrors.NewFormatError(
				fmt.Sprintf("line %d %s=%q", row.Line, models.ColAmountInfo, rawAmount), err)
		}
		if amount <= MinAmount {
			stats.BelowAmount++
			continue
		}

		rawDate := row.Fields[models.ColOrderDate]
		date, err := time.Parse(DateLayout, rawDate)
		if err != nil {
			return nil, stats, apperrors.NewFormatError(
				fmt.Sprintf("line %d %s=%q", row.Line, models.ColOrderDate, rawDate), err)
		}

		out = append(out, models.TransactionRecord{
			CustomerID: row.CustomerID,
			OrderID:    row.Fields[models.ColOrderID],
			OrderDate:  date,
			Amount:     amount,
		})
	}

	stats.Kept = len(out)
	return out, stats, nil
}

func hasMissing(row models.RawRow) bool {
	if models.IsMissing(row.CustomerID) {
		return true
	}
	for _, col := range models.RequiredColumns {
		if models.IsMissing(row.Fields[col]) {
			return true
		}
	}
	return false
}
