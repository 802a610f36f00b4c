package export

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"CANSpectra/internal/config"
	"CANSpectra/internal/factory"
	"CANSpectra/internal/model"
	"CANSpectra/internal/report"
)

func init() {
	factory.RegisterWriter("gob", func(def *config.WriterDef) (model.Writer, error) {
		if def.Gob.RootPath == "" {
			return nil, fmt.Errorf("gob writer requires a root path")
		}
		return NewGobWriter(def.Gob.RootPath), nil
	})
}

// RunSnapshot is the gob-encoded record written per report.
type RunSnapshot struct {
	Summary report.SummaryRow
	Curves  report.Curves
}

// SummaryData holds the metadata for a run snapshot, internal to the writer.
type SummaryData struct {
	Runs         int    `json:"runs"`
	FlaggedTotal int    `json:"flagged_total"`
	Timestamp    string `json:"timestamp"`
}

// GobWriter persists raw comparison curves to disk in gob format, one
// timestamped directory per run. It implements the model.Writer interface.
type GobWriter struct {
	rootPath string
}

// NewGobWriter creates a new writer for run snapshot data.
func NewGobWriter(rootPath string) model.Writer {
	return &GobWriter{rootPath: rootPath}
}

// Write serializes every report of the run into <root>/<timestamp>/, one
// .dat file per identifier and attack, plus a summary.json.
// It expects the payload to be of type []report.Report.
func (w *GobWriter) Write(payload interface{}, timestamp string) error {
	reports, ok := payload.([]report.Report)
	if !ok {
		return fmt.Errorf("invalid payload type for GobWriter: expected []report.Report, got %T", payload)
	}
	if len(reports) == 0 {
		return nil
	}

	runDir := filepath.Join(w.rootPath, timestamp)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	flaggedTotal := 0
	for _, rep := range reports {
		flaggedTotal += len(rep.Curves.Detection.Flagged)

		fileName := fmt.Sprintf("%s_%s.dat", rep.Identifier, rep.Attack)
		filePath := filepath.Join(runDir, fileName)

		file, err := os.Create(filePath)
		if err != nil {
			return fmt.Errorf("failed to create snapshot file '%s': %w", filePath, err)
		}

		encoder := gob.NewEncoder(file)
		err = encoder.Encode(RunSnapshot{Summary: rep.Summary(), Curves: rep.Curves})
		file.Close()
		if err != nil {
			return fmt.Errorf("failed to encode snapshot to gob for file '%s': %w", filePath, err)
		}
	}

	summary := SummaryData{
		Runs:         len(reports),
		FlaggedTotal: flaggedTotal,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
	summaryFilePath := filepath.Join(runDir, "summary.json")
	summaryFile, err := os.Create(summaryFilePath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}

	return nil
}
