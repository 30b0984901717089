// Package reader loads the raw transaction file.
package reader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "rfm-score/pkg/errors"
	"rfm-score/pkg/models"
)

// ReadFile opens path and reads it with Read.
func ReadFile(path, indexColumn string) ([]models.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewInputError("path="+path, err)
	}
	defer f.Close()
	return Read(f, indexColumn)
}

// Read parses a comma-separated file with a header line. Only the index
// column and models.RequiredColumns are kept; short lines yield missing values.
func Read(r io.Reader, indexColumn string) ([]models.RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewInputError("empty file", nil)
		}
		return nil, apperrors.NewInputError("header", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[strings.TrimSpace(name)] = i
	}
	for _, col := range append([]string{indexColumn}, models.RequiredColumns...) {
		if _, ok := pos[col]; !ok {
			return nil, apperrors.NewInputError("missing required column "+col, nil)
		}
	}

	cell := func(rec []string, col string) string {
		if i := pos[col]; i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var rows []models.RawRow
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, apperrors.NewInputError(fmt.Sprintf("line %d", line), err)
		}
		fields := make(map[string]string, len(models.RequiredColumns))
		for _, col := range models.RequiredColumns {
			fields[col] = cell(rec, col)
		}
		rows = append(rows, models.RawRow{Line: line, CustomerID: cell(rec, indexColumn), Fields: fields})
	}
	return rows, nil
}
