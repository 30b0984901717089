package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	apperrors "rfm-score/pkg/errors"
	"rfm-score/pkg/models"
)

// ScoreColumns are the output columns after the index column.
var ScoreColumns = []string{"r_score", "f_score", "m_score", "rfm_wscore"}

// FileDestination writes the score table as CSV, one row per customer,
// headed by IndexColumn and ScoreColumns. The file is replaced atomically.
type FileDestination struct {
	Path        string
	IndexColumn string
}

func (f *FileDestination) Name() string { return "file" }

func (f *FileDestination) Export(_ context.Context, scores []models.CustomerScore) (models.ExportResult, error) {
	res := models.ExportResult{Destination: f.Name(), Rows: len(scores)}
	if err := f.write(scores); err != nil {
		res.Failed = len(scores)
		return res, apperrors.NewExportError(f.Name(), err)
	}
	res.Written = len(scores)
	return res, nil
}

func (f *FileDestination) write(scores []models.CustomerScore) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeCSV(tmp, f.IndexColumn, scores); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

func writeCSV(out io.Writer, indexColumn string, scores []models.CustomerScore) error {
	w := csv.NewWriter(out)
	if err := w.Write(append([]string{indexColumn}, ScoreColumns...)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, s := range scores {
		err := w.Write([]string{
			s.CustomerID,
			strconv.Itoa(s.RScore),
			strconv.Itoa(s.FScore),
			strconv.Itoa(s.MScore),
			strconv.FormatFloat(s.WeightedScore, 'f', 1, 64),
		})
		if err != nil {
			return fmt.Errorf("failed to write CSV row %s: %w", s.CustomerID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}
