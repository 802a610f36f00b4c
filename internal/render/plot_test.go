package render

import (
	"os"
	"path/filepath"
	"testing"

	"CANSpectra/internal/attack"
	"CANSpectra/internal/config"
	"CANSpectra/internal/model"
	"CANSpectra/internal/report"
	"CANSpectra/internal/series"
)

func testReport(t *testing.T) report.Report {
	t.Helper()
	frames := make([]model.Frame, 20)
	for i := range frames {
		frames[i] = model.Frame{Timestamp: 100.0 + float64(i)*0.01, ID: "0A0"}
	}
	baseline := series.Build("0A0", frames)
	attacked, err := attack.Fabrication{Rate: 0.005, Count: 10}.Apply(baseline)
	if err != nil {
		t.Fatalf("fabrication failed: %v", err)
	}
	rep, err := report.Build(baseline, attacked, attack.LabelFabrication, report.Options{Threshold: 0.01})
	if err != nil {
		t.Fatalf("report build failed: %v", err)
	}
	return rep
}

func TestRenderAll(t *testing.T) {
	dir := t.TempDir()
	r := New(config.RenderConfig{OutDir: dir, Width: 4, Height: 3})

	if err := r.RenderAll([]report.Report{testReport(t)}); err != nil {
		t.Fatalf("RenderAll failed: %v", err)
	}

	for _, kind := range []string{"oacc", "identification_error", "cusum", "pmf"} {
		path := filepath.Join(dir, kind+"_0A0_fabrication.png")
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("expected plot %s: %v", path, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("plot %s is empty", path)
		}
	}
}
