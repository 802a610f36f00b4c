package render

import (
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"CANSpectra/internal/config"
	"CANSpectra/internal/report"
)

var (
	colorBaseline = color.RGBA{B: 200, A: 255}
	colorAttack   = color.RGBA{R: 220, A: 255}
	colorError    = color.RGBA{R: 230, G: 140, A: 255}
	colorCusum    = color.RGBA{R: 120, B: 160, A: 255}
	colorFlagged  = color.RGBA{R: 150, B: 150, A: 255}
)

// Renderer writes the diagnostic plots of a run as PNG files keyed by
// identifier and attack label.
type Renderer struct {
	outDir string
	width  vg.Length
	height vg.Length
}

// New creates a renderer from config, defaulting to 8x6 inch plots.
func New(cfg config.RenderConfig) *Renderer {
	width, height := cfg.Width, cfg.Height
	if width <= 0 {
		width = 8
	}
	if height <= 0 {
		height = 6
	}
	return &Renderer{
		outDir: cfg.OutDir,
		width:  vg.Length(width) * vg.Inch,
		height: vg.Length(height) * vg.Inch,
	}
}

// RenderAll writes the plot set for every report. Rendering failures for one
// report are logged and do not stop the remaining reports.
func (r *Renderer) RenderAll(reports []report.Report) error {
	if err := os.MkdirAll(r.outDir, 0755); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}

	for _, rep := range reports {
		if err := r.Render(rep); err != nil {
			log.Printf("Error rendering plots for %s/%s: %v", rep.Identifier, rep.Attack, err)
		}
	}
	return nil
}

// Render writes the four plots of one report: accumulated clock offset,
// identification error, CUSUM with control limits, and the interval PMF.
func (r *Renderer) Render(rep report.Report) error {
	if err := r.renderOffsets(rep); err != nil {
		return err
	}
	if err := r.renderIdentError(rep); err != nil {
		return err
	}
	if err := r.renderCusum(rep); err != nil {
		return err
	}
	return r.renderPMF(rep)
}

func (r *Renderer) renderOffsets(rep report.Report) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Accumulated Clock Offset - %s - ID %s", rep.Attack, rep.Identifier)
	p.X.Label.Text = "Time [s]"
	p.Y.Label.Text = "Oacc"

	baseline, err := plotter.NewLine(xyPairs(rep.Baseline.Times(), rep.Baseline.Offsets))
	if err != nil {
		return err
	}
	baseline.Color = colorBaseline
	baseline.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	attacked, err := plotter.NewLine(xyPairs(rep.Curves.Times, rep.Curves.Offsets))
	if err != nil {
		return err
	}
	attacked.Color = colorAttack

	p.Add(baseline, attacked)
	p.Legend.Add("baseline", baseline)
	p.Legend.Add(rep.Attack, attacked)

	return p.Save(r.width, r.height, r.path("oacc", rep))
}

func (r *Renderer) renderIdentError(rep report.Report) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Identification Error - %s - ID %s", rep.Attack, rep.Identifier)
	p.X.Label.Text = "Time [s]"
	p.Y.Label.Text = "Error"

	line, err := plotter.NewLine(xyPairs(rep.Curves.Times, rep.Curves.IdentError))
	if err != nil {
		return err
	}
	line.Color = colorError

	p.Add(line)
	p.Legend.Add("identification error", line)

	return p.Save(r.width, r.height, r.path("identification_error", rep))
}

func (r *Renderer) renderCusum(rep report.Report) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("CUSUM Control Limit - %s - ID %s", rep.Attack, rep.Identifier)
	p.X.Label.Text = "Time [s]"
	p.Y.Label.Text = "CUSUM"

	statistic, err := plotter.NewLine(xyPairs(rep.Curves.Times, rep.Curves.Detection.Statistic))
	if err != nil {
		return err
	}
	statistic.Color = colorCusum
	p.Add(statistic)
	p.Legend.Add("cusum", statistic)

	// Control limit lines at +threshold and -threshold across the time axis.
	if n := len(rep.Curves.Times); n > 0 && rep.Curves.Detection.Threshold > 0 {
		first, last := rep.Curves.Times[0], rep.Curves.Times[n-1]
		for _, limit := range []float64{rep.Curves.Detection.Threshold, -rep.Curves.Detection.Threshold} {
			limitLine, err := plotter.NewLine(plotter.XYs{{X: first, Y: limit}, {X: last, Y: limit}})
			if err != nil {
				return err
			}
			limitLine.Color = colorFlagged
			limitLine.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
			p.Add(limitLine)
		}
	}

	if len(rep.Curves.Detection.Flagged) > 0 {
		pts := make(plotter.XYs, 0, len(rep.Curves.Detection.Flagged))
		for _, idx := range rep.Curves.Detection.Flagged {
			pts = append(pts, plotter.XY{X: rep.Curves.Times[idx], Y: rep.Curves.Detection.Statistic[idx]})
		}
		flagged, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		flagged.GlyphStyle.Color = colorFlagged
		p.Add(flagged)
		p.Legend.Add("flagged", flagged)
	}

	return p.Save(r.width, r.height, r.path("cusum", rep))
}

func (r *Renderer) renderPMF(rep report.Report) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Probability Mass Function - %s - ID %s", rep.Attack, rep.Identifier)
	p.X.Label.Text = "Message Interval [s]"
	p.Y.Label.Text = "Probability"

	pts := make(plotter.XYs, len(rep.IntervalPMF))
	for i, ip := range rep.IntervalPMF {
		pts[i] = plotter.XY{X: ip.Interval, Y: ip.Probability}
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Color = colorCusum

	p.Add(scatter)

	return p.Save(r.width, r.height, r.path("pmf", rep))
}

func (r *Renderer) path(kind string, rep report.Report) string {
	return filepath.Join(r.outDir, fmt.Sprintf("%s_%s_%s.png", kind, rep.Identifier, rep.Attack))
}

func xyPairs(xs, ys []float64) plotter.XYs {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	pts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	return pts
}
