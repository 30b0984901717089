// Package exporter persists the customer score table.
package exporter

import (
	"context"

	"rfm-score/pkg/models"
)

// Destination is one place the score table is written to.
type Destination interface {
	Name() string
	Export(ctx context.Context, scores []models.CustomerScore) (models.ExportResult, error)
}

// Export writes scores to each destination in order, sorted by customer
// id. It stops at the first failing destination; the results gathered so
// far, including the failing one, are returned with the error.
func Export(ctx context.Context, scores map[string]models.CustomerScore, destinations ...Destination) ([]models.ExportResult, error) {
	rows := models.SortedScores(scores)
	results := make([]models.ExportResult, 0, len(destinations))
	for _, d := range destinations {
		res, err := d.Export(ctx, rows)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
