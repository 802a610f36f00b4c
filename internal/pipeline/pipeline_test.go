package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"CANSpectra/internal/attack"
	"CANSpectra/internal/config"

	_ "CANSpectra/internal/export" // register report writers
)

func writeTestLog(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "baseline.log")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test log: %v", err)
	}
	defer f.Close()

	// Two identifiers at a steady 10ms cadence.
	for i := 0; i < 50; i++ {
		ts := 100.0 + float64(i)*0.01
		fmt.Fprintf(f, "(%.6f) can0 0A0#01%02X\n", ts, i)
		fmt.Fprintf(f, "(%.6f) can0 0B0#FFEE\n", ts+0.005)
	}
	return path
}

func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	return &config.Config{
		Analysis: config.AnalysisConfig{
			BaselinePath: writeTestLog(t, dir),
			NumWorkers:   2,
		},
		Attacks: config.AttacksConfig{
			Fabrication: config.FabricationConfig{Rate: 0.005, Count: 20, Payload: "DEADBEEF"},
			Suspension:  config.SuspensionConfig{StartOffset: 0.1, Duration: 0.1},
			Masquerade:  config.MasqueradeConfig{Rate: 0.005, Count: 20, SourceID: "0B0"},
		},
		Writers: []config.WriterDef{
			{
				Type:    "csv",
				Enabled: true,
				CSV:     config.CSVWriterConfig{Path: filepath.Join(dir, "summary.csv")},
			},
		},
	}
}

func TestRunnerEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	runner, err := NewRunner(cfg, nil)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	reports, err := runner.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Two identifiers, three synthesized attacks each.
	if len(reports) != 6 {
		t.Fatalf("expected 6 reports, got %d", len(reports))
	}
	for i := 1; i < len(reports); i++ {
		a, b := reports[i-1], reports[i]
		if a.Identifier > b.Identifier || (a.Identifier == b.Identifier && a.Attack > b.Attack) {
			t.Fatal("expected reports sorted by identifier then attack")
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "summary.csv")); err != nil {
		t.Errorf("expected summary file: %v", err)
	}
}

func TestRunnerIdentifierFilter(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Analysis.Identifiers = []string{"0A0", "0B0"}

	runner, err := NewRunner(cfg, nil)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	reports, err := runner.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The masquerade source is listed, so its payload can be resolved.
	for _, rep := range reports {
		if rep.Attack == attack.LabelMasquerade && rep.Identifier == "0A0" {
			injected := rep.Attacked.Frames[rep.Attacked.Len()-1].Payload
			if string(injected) != "\xff\xee" {
				t.Errorf("expected masquerade payload mimicking 0B0, got %X", injected)
			}
		}
	}
}

func TestRunnerLowercaseMasqueradeSource(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Attacks.Masquerade.SourceID = "0b0"

	runner, err := NewRunner(cfg, nil)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	reports, err := runner.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	found := false
	for _, rep := range reports {
		if rep.Attack == attack.LabelMasquerade && rep.Identifier == "0A0" {
			found = true
			injected := rep.Attacked.Frames[rep.Attacked.Len()-1].Payload
			if string(injected) != "\xff\xee" {
				t.Errorf("expected payload mimicking 0B0 despite lowercase source_id, got %X", injected)
			}
		}
	}
	if !found {
		t.Fatal("expected a masquerade report for 0A0")
	}
}

func TestRunnerRecordedAttackLog(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Analysis.Identifiers = []string{"0A0"}

	attackPath := filepath.Join(dir, "attack.log")
	f, err := os.Create(attackPath)
	if err != nil {
		t.Fatalf("failed to create attack log: %v", err)
	}
	for i := 0; i < 80; i++ {
		fmt.Fprintf(f, "(%.6f) can0 0A0#02\n", 100.0+float64(i)*0.005)
	}
	f.Close()
	cfg.Analysis.AttackPath = attackPath

	runner, err := NewRunner(cfg, nil)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	reports, err := runner.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// recorded + three synthesized
	if len(reports) != 4 {
		t.Fatalf("expected 4 reports, got %d", len(reports))
	}
	found := false
	for _, rep := range reports {
		if rep.Attack == LabelRecorded {
			found = true
		}
	}
	if !found {
		t.Error("expected a recorded-log report")
	}
}

func TestNewRunnerRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg := testConfig(t, dir)
	cfg.Attacks.Fabrication.Rate = 0
	if _, err := NewRunner(cfg, nil); err == nil {
		t.Error("expected an error for a zero fabrication rate")
	}

	cfg = testConfig(t, dir)
	cfg.Attacks.Fabrication.Payload = "xx"
	if _, err := NewRunner(cfg, nil); err == nil {
		t.Error("expected an error for a non-hex payload")
	}
}

func TestRunnerCaptureMode(t *testing.T) {
	dir := t.TempDir()
	captureDir := filepath.Join(dir, "captures")
	if err := os.MkdirAll(captureDir, 0755); err != nil {
		t.Fatalf("failed to create capture dir: %v", err)
	}

	f, err := os.Create(filepath.Join(captureDir, "cap.csv"))
	if err != nil {
		t.Fatalf("failed to create capture file: %v", err)
	}
	fmt.Fprintln(f, "Time,Channel A,Channel B")
	for i := 0; i < 100; i++ {
		fmt.Fprintf(f, "%.4f,%.4f,%.4f\n", float64(i)*0.001, 2.5+float64(i%3)*0.001, 2.49)
	}
	f.Close()

	cfg := testConfig(t, dir)
	cfg.Capture = config.CaptureConfig{Dir: captureDir, Rate: 0.001, Count: 10}

	runner, err := NewRunner(cfg, nil)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	reports, err := runner.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Two channels, three attacks each.
	if len(reports) != 6 {
		t.Fatalf("expected 6 capture reports, got %d", len(reports))
	}
	ids := map[string]bool{}
	for _, rep := range reports {
		ids[rep.Identifier] = true
	}
	if !ids["channel_a"] || !ids["channel_b"] {
		t.Errorf("expected reports for both channels, got %v", ids)
	}
}
