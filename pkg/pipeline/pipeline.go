// Package pipeline runs the RFM stages in order: read, clean, aggregate,
// score, export. Each stage consumes the previous stage's output in full.
package pipeline

import (
	"context"
	"database/sql"
	"io"
	"time"

	"github.com/google/uuid"

	"rfm-score/pkg/calculator"
	"rfm-score/pkg/cleaner"
	"rfm-score/pkg/config"
	"rfm-score/pkg/database"
	"rfm-score/pkg/exporter"
	"rfm-score/pkg/logger"
	"rfm-score/pkg/metrics"
	"rfm-score/pkg/models"
	"rfm-score/pkg/reader"
)

const previewRows = 4

// Options carries the collaborators of a run. Zero values get defaults.
type Options struct {
	Log      logger.Logger
	Metrics  *metrics.Metrics
	Now      func() time.Time
	OpenDB   func(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error)
	Progress io.Writer
}

func (o *Options) defaults() {
	if o.Log == nil {
		o.Log = logger.NewNoOpLogger()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.OpenDB == nil {
		o.OpenDB = func(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
			db, _, err := database.Open(ctx, cfg)
			return db, err
		}
	}
}

// Run executes one full pipeline over cfg. The report is returned even on
// failure and reflects how far the run got.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*models.RunReport, error) {
	opts.defaults()
	started := opts.Now()
	report := &models.RunReport{RunID: uuid.NewString()}
	log := opts.Log.WithFields(map[string]interface{}{"run_id": report.RunID})

	defer func() { report.Duration = opts.Now().Sub(started) }()
	if cfg.Metrics.Textfile != "" {
		defer func() {
			if err := opts.Metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
				log.WithError(err).Warn("metrics textfile not written", map[string]interface{}{"path": cfg.Metrics.Textfile})
			}
		}()
	}

	reference, err := cfg.Scoring.Reference()
	if err != nil {
		return report, err
	}
	m := opts.Metrics

	// read
	t := time.Now()
	rows, err := reader.ReadFile(cfg.Input.Path, cfg.Input.IndexColumn)
	if err != nil {
		return report, err
	}
	m.ObserveStage("read", t)
	m.RowsRead.Add(float64(len(rows)))
	report.RawRows = len(rows)
	logAudit(log, reader.AuditRows(rows, cfg.Input.IndexColumn, previewRows), cfg.Input.IndexColumn)

	// clean
	t = time.Now()
	records, stats, err := cleaner.Clean(rows)
	report.Clean = stats
	if err != nil {
		return report, err
	}
	m.ObserveStage("clean", t)
	m.RowsExcluded.WithLabelValues("missing").Add(float64(stats.Missing))
	m.RowsExcluded.WithLabelValues("amount").Add(float64(stats.BelowAmount))
	log.Info("rows cleaned", map[string]interface{}{
		"total":        stats.Total,
		"kept":         stats.Kept,
		"missing":      stats.Missing,
		"below_amount": stats.BelowAmount,
	})
	log.Debug("amount summary", map[string]interface{}{"summary": calculator.Describe(calculator.Amounts(records))})

	// aggregate
	t = time.Now()
	customerMetrics, err := calculator.Aggregate(records, reference)
	if err != nil {
		return report, err
	}
	m.ObserveStage("aggregate", t)
	report.Customers = len(customerMetrics)

	// score
	t = time.Now()
	scores, err := calculator.Scorer{MinDistinct: cfg.Scoring.MinDistinct}.Score(customerMetrics)
	if err != nil {
		return report, err
	}
	m.ObserveStage("score", t)
	m.CustomersScored.Add(float64(len(scores)))
	report.Scores = models.SortedScores(scores)
	log.Info("customers scored", map[string]interface{}{
		"customers":      len(scores),
		"reference_date": cfg.Scoring.ReferenceDate,
	})
	for col, s := range calculator.DescribeScores(report.Scores) {
		log.Debug("score summary", map[string]interface{}{"column": col, "summary": s})
	}

	// export
	destinations, closeDB, err := buildDestinations(ctx, cfg, opts, log)
	if err != nil {
		return report, err
	}
	defer closeDB()

	t = time.Now()
	results, err := exporter.Export(ctx, scores, destinations...)
	report.Exports = results
	for _, r := range results {
		m.RowsExported.WithLabelValues(r.Destination).Add(float64(r.Written))
		if r.Failed > 0 || r.Skipped > 0 {
			m.ExportFailures.WithLabelValues(r.Destination).Inc()
		}
		log.Info("export finished", map[string]interface{}{
			"destination": r.Destination,
			"rows":        r.Rows,
			"written":     r.Written,
			"failed":      r.Failed,
			"skipped":     r.Skipped,
		})
	}
	if err != nil {
		log.WithError(err).Error("export aborted", nil)
		return report, err
	}
	m.ObserveStage("export", t)
	return report, nil
}

func buildDestinations(ctx context.Context, cfg *config.Config, opts Options, log logger.Logger) ([]exporter.Destination, func(), error) {
	var dests []exporter.Destination
	closeDB := func() {}

	if cfg.Output.Path != "" {
		dests = append(dests, &exporter.FileDestination{Path: cfg.Output.Path, IndexColumn: cfg.Input.IndexColumn})
	}
	if !cfg.Database.Enabled {
		return dests, closeDB, nil
	}

	dialect, err := database.NewDialect(cfg.Database.Driver, cfg.Database.Charset)
	if err != nil {
		return nil, closeDB, err
	}
	db, err := opts.OpenDB(ctx, cfg.Database)
	if err != nil {
		return nil, closeDB, err
	}
	log.Info("connected", map[string]interface{}{"driver": cfg.Database.Driver, "table": cfg.Database.Table})
	closeDB = func() { db.Close() }

	dests = append(dests, &exporter.DatabaseDestination{
		DB:         db,
		Dialect:    dialect,
		Table:      cfg.Database.Table,
		Mode:       cfg.Database.InsertMode,
		InsertDate: opts.Now().Format(config.DateLayout),
		Progress:   opts.Progress,
	})
	return dests, closeDB, nil
}

func logAudit(log logger.Logger, a reader.Audit, indexColumn string) {
	log.Info("data overview", map[string]interface{}{
		"rows":              a.Rows,
		"na_columns":        a.NAColumns(indexColumn),
		"rows_with_missing": a.RowsWithMissing,
	})
	for _, row := range a.Preview {
		log.Debug("preview", map[string]interface{}{"line": row.Line, "customer": row.CustomerID, "fields": row.Fields})
	}
}
