package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"rfm-score/pkg/config"
	apperrors "rfm-score/pkg/errors"
	"rfm-score/pkg/models"
)

// Dialect captures the SQL differences between the supported drivers.
type Dialect struct {
	Driver  string
	Charset string
}

// NewDialect validates driver and charset.
func NewDialect(driver, charset string) (Dialect, error) {
	switch driver {
	case config.DriverMySQL, config.DriverPostgres:
	default:
		return Dialect{}, fmt.Errorf("unsupported driver %q", driver)
	}
	if driver == config.DriverMySQL && !config.ValidIdentifier(charset) {
		return Dialect{}, fmt.Errorf("invalid charset %q", charset)
	}
	return Dialect{Driver: driver, Charset: charset}, nil
}

func (d Dialect) quote(table string) string {
	if d.Driver == config.DriverMySQL {
		return "`" + table + "`"
	}
	return `"` + table + `"`
}

func (d Dialect) placeholder(i int) string {
	if d.Driver == config.DriverPostgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// CreateTableSQL is the idempotent DDL of the score table.
func (d Dialect) CreateTableSQL(table string) string {
	intType := "INT"
	options := ""
	if d.Driver == config.DriverMySQL {
		intType = "INT(2)"
		options = " ENGINE=InnoDB DEFAULT CHARSET=" + d.Charset
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	userid      VARCHAR(20),
	r_score     %s,
	f_score     %s,
	m_score     %s,
	rfm_wscore  DECIMAL(10,2),
	insert_date VARCHAR(20)
)%s`, d.quote(table), intType, intType, intType, options)
}

// InsertSQL inserts one score row.
func (d Dialect) InsertSQL(table string) string {
	ph := make([]string, 6)
	for i := range ph {
		ph[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (userid, r_score, f_score, m_score, rfm_wscore, insert_date) VALUES (%s)",
		d.quote(table), strings.Join(ph, ", "))
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// EnsureScoreTable creates table if it does not exist.
func EnsureScoreTable(ctx context.Context, db execer, d Dialect, table string) error {
	if !config.ValidIdentifier(table) {
		return fmt.Errorf("invalid table %q", table)
	}
	if _, err := db.ExecContext(ctx, d.CreateTableSQL(table)); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func insertArgs(s models.CustomerScore, insertDate string) []any {
	return []any{s.CustomerID, int64(s.RScore), int64(s.FScore), int64(s.MScore), s.WeightedScore, insertDate}
}

// InsertBatch writes all rows in one transaction. On any failure the
// transaction is rolled back and zero rows are committed.
func InsertBatch(ctx context.Context, db *sql.DB, d Dialect, table string,
	scores []models.CustomerScore, insertDate string, onRow func()) (int, error) {

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.NewConnectionError("begin transaction", err)
	}
	q := d.InsertSQL(table)
	for _, s := range scores {
		if _, err := tx.ExecContext(ctx, q, insertArgs(s, insertDate)...); err != nil {
			_ = tx.Rollback()
			return 0, apperrors.NewInsertError(s.CustomerID, 0, err)
		}
		if onRow != nil {
			onRow()
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, apperrors.NewInsertError("", 0, fmt.Errorf("commit: %w", err))
	}
	return len(scores), nil
}

// InsertEach writes rows one statement at a time, each committed on its
// own, and stops at the first failure. The returned count is the number
// of rows committed before it.
func InsertEach(ctx context.Context, db execer, d Dialect, table string,
	scores []models.CustomerScore, insertDate string, onRow func()) (int, error) {

	q := d.InsertSQL(table)
	for i, s := range scores {
		if _, err := db.ExecContext(ctx, q, insertArgs(s, insertDate)...); err != nil {
			return i, apperrors.NewInsertError(s.CustomerID, i, err)
		}
		if onRow != nil {
			onRow()
		}
	}
	return len(scores), nil
}
