package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfm-score/pkg/config"
	"rfm-score/pkg/database"
	apperrors "rfm-score/pkg/errors"
	"rfm-score/pkg/logger"
	"rfm-score/pkg/metrics"
	"rfm-score/pkg/models"
)

const scenarioCSV = `USERID,ORDERDATE,ORDERID,AMOUNTINFO
U1,2016-01-01,1,100
U1,2016-06-01,2,50
U2,2016-03-01,3,5
U2,2016-03-01,4,0.5
`

func fixedNow() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.Local) }

func setup(t *testing.T, input string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(in, []byte(input), 0o644))

	cfg := config.Default()
	cfg.Input.Path = in
	cfg.Output.Path = filepath.Join(dir, "sales_rfm_score.csv")
	return cfg
}

func opts(t *testing.T) Options {
	return Options{Log: logger.NewTestLogger(t), Metrics: metrics.New(), Now: fixedNow}
}

func TestRun_ScenarioToFile(t *testing.T) {
	cfg := setup(t, scenarioCSV)
	o := opts(t)

	report, err := Run(context.Background(), cfg, o)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 4, report.RawRows)
	assert.Equal(t, models.CleanStats{Total: 4, BelowAmount: 1, Kept: 3}, report.Clean)
	assert.Equal(t, 2, report.Customers)
	assert.Equal(t, []models.CustomerScore{
		{CustomerID: "U1", RScore: 5, FScore: 5, MScore: 5, WeightedScore: 5},
		{CustomerID: "U2", RScore: 1, FScore: 1, MScore: 1, WeightedScore: 1},
	}, report.Scores)
	assert.Equal(t, []models.ExportResult{{Destination: "file", Rows: 2, Written: 2}}, report.Exports)

	body, err := os.ReadFile(cfg.Output.Path)
	require.NoError(t, err)
	assert.Equal(t, "USERID,r_score,f_score,m_score,rfm_wscore\nU1,5,5,5,5.0\nU2,1,1,1,1.0\n", string(body))

	assert.Equal(t, 4.0, testutil.ToFloat64(o.Metrics.RowsRead))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.Metrics.RowsExcluded.WithLabelValues("amount")))
	assert.Equal(t, 2.0, testutil.ToFloat64(o.Metrics.CustomersScored))
	assert.Equal(t, 2.0, testutil.ToFloat64(o.Metrics.RowsExported.WithLabelValues("file")))
}

func TestRun_Idempotent(t *testing.T) {
	cfg := setup(t, scenarioCSV)
	first, err := Run(context.Background(), cfg, opts(t))
	require.NoError(t, err)
	firstFile, _ := os.ReadFile(cfg.Output.Path)

	second, err := Run(context.Background(), cfg, opts(t))
	require.NoError(t, err)
	secondFile, _ := os.ReadFile(cfg.Output.Path)

	assert.Equal(t, first.Scores, second.Scores)
	assert.Equal(t, firstFile, secondFile)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func mockOpener(db *sql.DB) func(context.Context, config.DatabaseConfig) (*sql.DB, error) {
	return func(context.Context, config.DatabaseConfig) (*sql.DB, error) { return db, nil }
}

func TestRun_DatabasePerRowPartialFailure(t *testing.T) {
	cfg := setup(t, scenarioCSV)
	cfg.Database.Enabled = true
	cfg.Database.InsertMode = config.InsertModePerRow

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	d, err := database.NewDialect(config.DriverMySQL, cfg.Database.Charset)
	require.NoError(t, err)
	mock.ExpectExec(regexp.QuoteMeta(d.CreateTableSQL("sales_rfm_score"))).
		WillReturnResult(sqlmock.NewResult(0, 0))
	q := regexp.QuoteMeta(d.InsertSQL("sales_rfm_score"))
	mock.ExpectExec(q).WithArgs("U1", int64(5), int64(5), int64(5), 5.0, "2026-10-19").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q).WithArgs("U2", int64(1), int64(1), int64(1), 1.0, "2026-10-19").
		WillReturnError(errors.New("forced failure"))
	mock.ExpectClose()

	o := opts(t)
	o.OpenDB = mockOpener(db)
	report, err := Run(context.Background(), cfg, o)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInsert))

	require.Len(t, report.Exports, 2)
	assert.Equal(t, models.ExportResult{Destination: "file", Rows: 2, Written: 2}, report.Exports[0])
	assert.Equal(t, models.ExportResult{Destination: "mysql", Rows: 2, Written: 1, Failed: 1}, report.Exports[1])
	assert.Equal(t, 1.0, testutil.ToFloat64(o.Metrics.RowsExported.WithLabelValues("mysql")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.Metrics.ExportFailures.WithLabelValues("mysql")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_DatabaseBatch(t *testing.T) {
	cfg := setup(t, scenarioCSV)
	cfg.Output.Path = ""
	cfg.Database.Enabled = true

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS `sales_rfm_score`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `sales_rfm_score`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `sales_rfm_score`").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()
	mock.ExpectClose()

	o := opts(t)
	o.OpenDB = mockOpener(db)
	report, err := Run(context.Background(), cfg, o)
	require.NoError(t, err)
	assert.Equal(t, []models.ExportResult{{Destination: "mysql", Rows: 2, Written: 2}}, report.Exports)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_ConnectionFailureExportsNothing(t *testing.T) {
	cfg := setup(t, scenarioCSV)
	cfg.Database.Enabled = true

	o := opts(t)
	o.OpenDB = func(context.Context, config.DatabaseConfig) (*sql.DB, error) {
		return nil, apperrors.NewConnectionError("localhost:3306", errors.New("connection refused"))
	}
	report, err := Run(context.Background(), cfg, o)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConnection))
	assert.Empty(t, report.Exports)
	assert.Len(t, report.Scores, 2)

	_, statErr := os.Stat(cfg.Output.Path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_MissingColumnAbortsBeforeProcessing(t *testing.T) {
	cfg := setup(t, "USERID,ORDERDATE,AMOUNTINFO\nU1,2016-01-01,100\n")
	report, err := Run(context.Background(), cfg, opts(t))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInput))
	assert.Equal(t, 0, report.RawRows)
}

func TestRun_MalformedDate(t *testing.T) {
	cfg := setup(t, "USERID,ORDERDATE,ORDERID,AMOUNTINFO\nU1,2016/01/01,1,100\n")
	_, err := Run(context.Background(), cfg, opts(t))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeFormat))
}

func TestRun_AllRowsExcluded(t *testing.T) {
	cfg := setup(t, "USERID,ORDERDATE,ORDERID,AMOUNTINFO\nU1,2016-01-01,1,0.5\n")
	report, err := Run(context.Background(), cfg, opts(t))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInsufficientData))
	assert.Equal(t, 1, report.Clean.BelowAmount)
}

func TestRun_WritesMetricsTextfile(t *testing.T) {
	cfg := setup(t, scenarioCSV)
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "rfm.prom")

	_, err := Run(context.Background(), cfg, opts(t))
	require.NoError(t, err)

	body, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(body), "rfm_rows_read_total 4")
}
