package reader

import "rfm-score/pkg/models"

// Audit summarizes the completeness of the raw rows before cleaning.
type Audit struct {
	Rows            int
	MissingByColumn map[string]int // column → rows where it is missing
	RowsWithMissing int
	Preview         []models.RawRow
}

// NAColumns returns the columns with at least one missing value, in input-contract order.
func (a Audit) NAColumns(indexColumn string) []string {
	var out []string
	for _, col := range append([]string{indexColumn}, models.RequiredColumns...) {
		if a.MissingByColumn[col] > 0 {
			out = append(out, col)
		}
	}
	return out
}

// AuditRows counts missing values per column and keeps the first preview rows.
func AuditRows(rows []models.RawRow, indexColumn string, preview int) Audit {
	a := Audit{Rows: len(rows), MissingByColumn: map[string]int{}}
	for i, row := range rows {
		if i < preview {
			a.Preview = append(a.Preview, row)
		}
		missing := false
		if models.IsMissing(row.CustomerID) {
			a.MissingByColumn[indexColumn]++
			missing = true
		}
		for _, col := range models.RequiredColumns {
			if models.IsMissing(row.Fields[col]) {
				a.MissingByColumn[col]++
				missing = true
			}
		}
		if missing {
			a.RowsWithMissing++
		}
	}
	return a
}
