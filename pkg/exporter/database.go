package exporter

import (
	"context"
	"database/sql"
	"io"

	"github.com/schollz/progressbar/v3"

	"rfm-score/pkg/config"
	"rfm-score/pkg/database"
	apperrors "rfm-score/pkg/errors"
	"rfm-score/pkg/models"
)

// DatabaseDestination creates the score table if needed and inserts one
// row per customer stamped with InsertDate.
//
// In config.InsertModeBatch all rows go in one transaction. In
// config.InsertModePerRow every row commits on its own and a failure
// leaves the rows before it in place; the result says how many.
type DatabaseDestination struct {
	DB         *sql.DB
	Dialect    database.Dialect
	Table      string
	Mode       string
	InsertDate string    // YYYY-MM-DD, identical for every row of a run
	Progress   io.Writer // nil disables the progress bar
}

func (d *DatabaseDestination) Name() string { return d.Dialect.Driver }

func (d *DatabaseDestination) Export(ctx context.Context, scores []models.CustomerScore) (models.ExportResult, error) {
	res := models.ExportResult{Destination: d.Name(), Rows: len(scores)}

	if err := database.EnsureScoreTable(ctx, d.DB, d.Dialect, d.Table); err != nil {
		res.Skipped = len(scores)
		return res, apperrors.NewExportError(d.Name(), err)
	}

	bar := d.newBar(len(scores))
	onRow := func() { _ = bar.Add(1) }

	var (
		n   int
		err error
	)
	if d.Mode == config.InsertModePerRow {
		n, err = database.InsertEach(ctx, d.DB, d.Dialect, d.Table, scores, d.InsertDate, onRow)
	} else {
		n, err = database.InsertBatch(ctx, d.DB, d.Dialect, d.Table, scores, d.InsertDate, onRow)
	}
	res.Written = n
	if err != nil {
		if d.Mode == config.InsertModePerRow {
			res.Failed = 1
			res.Skipped = len(scores) - n - 1
		} else {
			res.Failed = len(scores)
		}
		return res, err
	}
	_ = bar.Finish()
	return res, nil
}

func (d *DatabaseDestination) newBar(n int) *progressbar.ProgressBar {
	if d.Progress == nil {
		return progressbar.DefaultSilent(int64(n))
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(d.Progress),
		progressbar.OptionSetDescription("insert "+d.Table),
		progressbar.OptionShowCount(),
	)
}
