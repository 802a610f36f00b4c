package pipeline

import (
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"CANSpectra/internal/alerter"
	"CANSpectra/internal/attack"
	"CANSpectra/internal/config"
	"CANSpectra/internal/detect"
	"CANSpectra/internal/factory"
	"CANSpectra/internal/model"
	"CANSpectra/internal/parse"
	"CANSpectra/internal/render"
	"CANSpectra/internal/report"
	"CANSpectra/internal/series"
	"CANSpectra/pkg/canpcap"
)

const defaultNumWorkers = 4

// LabelRecorded keys reports built from a recorded attack log rather than a
// synthesized one.
const LabelRecorded = "recorded"

// voltageInjectionOffset shifts injected capture samples above the legitimate
// channel mean, modeling a transmitter with a distinct voltage fingerprint.
const voltageInjectionOffset = 0.05

// Runner wires parsing, attack synthesis, detection and reporting into one
// offline analysis run.
type Runner struct {
	cfg      *config.Config
	writers  []model.Writer
	renderer *render.Renderer
	alerter  *alerter.Alerter

	fabrication attack.Fabrication
	suspension  attack.Suspension
	masquerade  attack.Masquerade
}

// NewRunner builds a runner from config, validating attack parameters and
// instantiating every enabled writer before any data is read.
func NewRunner(cfg *config.Config, notifier model.Notifier) (*Runner, error) {
	r := &Runner{cfg: cfg}

	fabPayload, err := hex.DecodeString(cfg.Attacks.Fabrication.Payload)
	if err != nil {
		return nil, fmt.Errorf("invalid fabrication payload: %w", err)
	}
	masqPayload, err := hex.DecodeString(cfg.Attacks.Masquerade.Payload)
	if err != nil {
		return nil, fmt.Errorf("invalid masquerade payload: %w", err)
	}

	r.fabrication = attack.Fabrication{
		Rate:    cfg.Attacks.Fabrication.Rate,
		Count:   cfg.Attacks.Fabrication.Count,
		Payload: fabPayload,
	}
	r.suspension = attack.Suspension{
		Start:    cfg.Attacks.Suspension.StartOffset,
		Duration: cfg.Attacks.Suspension.Duration,
	}
	r.masquerade = attack.Masquerade{
		Rate:    cfg.Attacks.Masquerade.Rate,
		Count:   cfg.Attacks.Masquerade.Count,
		Payload: masqPayload,
	}
	for _, spec := range []attack.Spec{r.fabrication, r.suspension, r.masquerade} {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
	}

	if r.writers, err = factory.CreateWriters(cfg); err != nil {
		return nil, err
	}
	if cfg.Render.Enabled {
		r.renderer = render.New(cfg.Render)
	}
	if cfg.Alerter.Enabled && notifier != nil {
		r.alerter = alerter.New(cfg.Alerter.Rules, notifier)
	}
	return r, nil
}

// Run executes the analysis and hands the reports to every configured sink.
func (r *Runner) Run() ([]report.Report, error) {
	reports, err := r.analyze()
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		log.Printf("WARN: no reports produced, nothing to export")
		return nil, nil
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	for _, w := range r.writers {
		if err := w.Write(reports, timestamp); err != nil {
			log.Printf("ERROR: writer failed: %v", err)
		}
	}
	if r.renderer != nil {
		if err := r.renderer.RenderAll(reports); err != nil {
			log.Printf("ERROR: rendering failed: %v", err)
		}
	}
	if r.alerter != nil {
		r.alerter.Evaluate(reports)
	}
	return reports, nil
}

func (r *Runner) analyze() ([]report.Report, error) {
	if r.cfg.Capture.Dir != "" {
		return r.analyzeCapture()
	}
	return r.analyzeLog()
}

// analyzeLog runs the frame-timing analysis over a candump log or a SocketCAN
// pcap capture, fanning identifiers out over a worker pool.
func (r *Runner) analyzeLog() ([]report.Report, error) {
	grouped, err := r.loadBaseline()
	if err != nil {
		return nil, err
	}

	var recorded map[string][]model.Frame
	if r.cfg.Analysis.AttackPath != "" {
		if recorded, err = parse.ReadLog(r.cfg.Analysis.AttackPath, r.cfg.Analysis.Identifiers); err != nil {
			return nil, fmt.Errorf("failed to read attack log: %w", err)
		}
	}

	masquerade := r.masquerade
	if p := r.resolveMasqueradePayload(grouped); p != nil {
		masquerade.Payload = p
	}

	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	numWorkers := r.cfg.Analysis.NumWorkers
	if numWorkers <= 0 {
		numWorkers = defaultNumWorkers
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		reports []report.Report
	)
	jobs := make(chan string, len(ids))

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				out := r.analyzeIdentifier(id, grouped[id], recorded[id], masquerade)
				mu.Lock()
				reports = append(reports, out...)
				mu.Unlock()
			}
		}()
	}
	for _, id := range ids {
		jobs <- id
	}
	close(jobs)
	wg.Wait()

	sort.Slice(reports, func(i, j int) bool {
		if reports[i].Identifier != reports[j].Identifier {
			return reports[i].Identifier < reports[j].Identifier
		}
		return reports[i].Attack < reports[j].Attack
	})
	return reports, nil
}

func (r *Runner) loadBaseline() (map[string][]model.Frame, error) {
	if r.cfg.Analysis.PcapPath != "" {
		frames, err := canpcap.ReadFile(r.cfg.Analysis.PcapPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read pcap baseline: %w", err)
		}
		return groupFrames(frames, r.cfg.Analysis.Identifiers), nil
	}
	grouped, err := parse.ReadLog(r.cfg.Analysis.BaselinePath, r.cfg.Analysis.Identifiers)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline log: %w", err)
	}
	return grouped, nil
}

func groupFrames(frames []model.Frame, identifiers []string) map[string][]model.Frame {
	wanted := make(map[string]bool, len(identifiers))
	for _, id := range identifiers {
		wanted[strings.ToUpper(id)] = true
	}
	out := make(map[string][]model.Frame)
	for _, f := range frames {
		if len(wanted) > 0 && !wanted[f.ID] {
			continue
		}
		out[f.ID] = append(out[f.ID], f)
	}
	return out
}

// analyzeIdentifier builds the report set for one identifier: the recorded
// attack log when present, plus the three synthesized attacks. A failing
// attack skips that report and continues with the rest.
func (r *Runner) analyzeIdentifier(id string, baseFrames, recordedFrames []model.Frame, masquerade attack.Masquerade) []report.Report {
	result := r.loadSeries(id, baseFrames)
	if !result.Ok() {
		log.Printf("WARN: skipping identifier %s: %s", id, result.Reason)
		return nil
	}
	baseline := result.Series

	opts := report.Options{
		Reference: detect.Reference(r.cfg.Analysis.Reference),
		Threshold: r.cfg.Analysis.Threshold,
	}

	var reports []report.Report
	if len(recordedFrames) > 0 {
		attacked := series.Build(id, recordedFrames)
		if rep, err := report.Build(baseline, attacked, LabelRecorded, opts); err != nil {
			log.Printf("ERROR: recorded-log report for %s: %v", id, err)
		} else {
			reports = append(reports, rep)
		}
	}

	for _, spec := range []attack.Spec{r.fabrication, r.suspensionFor(baseline), masquerade} {
		attacked, err := spec.Apply(baseline)
		if err != nil {
			log.Printf("ERROR: %s attack for %s: %v", spec.Label(), id, err)
			continue
		}
		rep, err := report.Build(baseline, attacked, spec.Label(), opts)
		if err != nil {
			log.Printf("ERROR: %s report for %s: %v", spec.Label(), id, err)
			continue
		}
		reports = append(reports, rep)
	}
	return reports
}

func (r *Runner) loadSeries(id string, frames []model.Frame) series.LoadResult {
	if len(frames) == 0 {
		return series.Skipped("no frames in baseline log")
	}
	return series.Loaded(series.Build(id, frames))
}

// resolveMasqueradePayload resolves the spoofed payload: an explicit hex
// payload wins, otherwise the first legitimate frame of the configured source
// identifier is mimicked.
func (r *Runner) resolveMasqueradePayload(grouped map[string][]model.Frame) []byte {
	if len(r.masquerade.Payload) > 0 {
		return nil
	}
	sourceID := r.cfg.Attacks.Masquerade.SourceID
	if sourceID == "" {
		return nil
	}
	// Parsed frame identifiers are uppercased, so the lookup must be too.
	if frames := grouped[strings.ToUpper(sourceID)]; len(frames) > 0 {
		return frames[0].Payload
	}
	log.Printf("WARN: no frames for masquerade source %s, payload stays empty", sourceID)
	return nil
}

// analyzeCapture runs the voltage-fingerprint analysis over an oscilloscope
// capture directory. Each channel becomes one series; injected samples carry
// a voltage offset above the channel mean.
func (r *Runner) analyzeCapture() ([]report.Report, error) {
	samples, err := parse.ReadCaptureDir(r.cfg.Capture.Dir, r.cfg.Capture.MaxFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture directory: %w", err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("capture directory %s holds no samples", r.cfg.Capture.Dir)
	}

	stats := series.CaptureStats(samples)
	offset := r.cfg.Capture.VoltageOffset
	if offset == 0 {
		offset = voltageInjectionOffset
	}

	opts := report.Options{
		Reference: detect.Reference(r.cfg.Analysis.Reference),
		Threshold: r.cfg.Analysis.Threshold,
	}

	channels := []struct {
		ch        series.Channel
		mean      float64
		spoofMean float64
	}{
		{series.ChannelA, stats.MeanA, stats.MeanB},
		{series.ChannelB, stats.MeanB, stats.MeanA},
	}

	var reports []report.Report
	for _, c := range channels {
		baseline := series.FromCapture(samples, c.ch)
		if baseline.Empty() {
			continue
		}

		specs := []attack.Spec{
			attack.Fabrication{
				Rate:    r.cfg.Capture.Rate,
				Count:   r.cfg.Capture.Count,
				Payload: series.VoltagePayload(c.mean + offset),
			},
			r.suspensionFor(baseline),
			attack.Masquerade{
				Rate:    r.cfg.Capture.Rate,
				Count:   r.cfg.Capture.Count,
				Payload: series.VoltagePayload(c.spoofMean),
			},
		}
		for _, spec := range specs {
			attacked, err := spec.Apply(baseline)
			if err != nil {
				log.Printf("ERROR: %s attack for %s: %v", spec.Label(), c.ch, err)
				continue
			}
			rep, err := report.Build(baseline, attacked, spec.Label(), opts)
			if err != nil {
				log.Printf("ERROR: %s report for %s: %v", spec.Label(), c.ch, err)
				continue
			}
			reports = append(reports, rep)
		}
	}
	return reports, nil
}

func (r *Runner) suspensionFor(baseline series.Series) attack.Suspension {
	s := r.suspension
	s.Start += baseline.Frames[0].Timestamp
	return s
}
