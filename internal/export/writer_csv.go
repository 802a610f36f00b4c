package export

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"CANSpectra/internal/config"
	"CANSpectra/internal/factory"
	"CANSpectra/internal/model"
	"CANSpectra/internal/report"
)

func init() {
	factory.RegisterWriter("csv", func(def *config.WriterDef) (model.Writer, error) {
		if def.CSV.Path == "" {
			return nil, fmt.Errorf("csv writer requires a path")
		}
		return NewCSVWriter(def.CSV.Path), nil
	})
}

// CSVWriter writes the attack summary table, one row per report.
// It implements the model.Writer interface.
type CSVWriter struct {
	path string
}

// NewCSVWriter creates a new summary table writer.
func NewCSVWriter(path string) model.Writer {
	return &CSVWriter{path: path}
}

// Write renders the summary rows of a report batch to the configured CSV file.
// It expects the payload to be of type []report.Report.
func (w *CSVWriter) Write(payload interface{}, timestamp string) error {
	reports, ok := payload.([]report.Report)
	if !ok {
		return fmt.Errorf("invalid payload type for CSVWriter: expected []report.Report, got %T", payload)
	}

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create summary directory: %w", err)
		}
	}

	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create summary file '%s': %w", w.path, err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	header := []string{"identifier", "attack_type", "baseline_offset", "attacked_offset", "identification_error", "cusum_deviation", "flagged_samples", "run_timestamp"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write summary header: %w", err)
	}

	for _, rep := range reports {
		row := rep.Summary()
		record := []string{
			row.Identifier,
			row.Attack,
			strconv.FormatFloat(row.BaselineOffset, 'f', 4, 64),
			strconv.FormatFloat(row.AttackedOffset, 'f', 4, 64),
			strconv.FormatFloat(row.IdentError, 'f', 4, 64),
			strconv.FormatFloat(row.CusumDeviation, 'f', 4, 64),
			strconv.Itoa(row.FlaggedCount),
			timestamp,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush summary file: %w", err)
	}

	log.Printf("Wrote %d summary rows to %s", len(reports), w.path)
	return nil
}
