package report

import (
	"fmt"
	"math"
	"sort"

	"CANSpectra/internal/detect"
	"CANSpectra/internal/series"
)

// Options selects the detection policy for a comparison.
type Options struct {
	// Reference anchors the identification error; defaults to ReferenceFirst.
	Reference detect.Reference
	// Threshold for the CUSUM detector. A non-positive value derives the
	// control limit as 3*stddev of the baseline offsets.
	Threshold float64
}

// Curves carries the three derived quantities for one attacked series,
// aligned on the attacked series' time axis.
type Curves struct {
	Times      []float64
	Offsets    []float64
	IdentError []float64
	Detection  detect.Result
	// UCL is the baseline's upper control limit, mean + 3*stddev.
	UCL float64
}

// IntervalProb is one bucket of the message-interval probability mass function.
type IntervalProb struct {
	Interval    float64
	Probability float64
}

// Report compares a baseline series against one attacked series. It exposes
// the curves for presentation and does not render anything itself.
type Report struct {
	Identifier  string
	Attack      string
	Baseline    series.Series
	Attacked    series.Series
	Curves      Curves
	IntervalPMF []IntervalProb
}

// Build computes the comparison curves for an attacked series against its
// baseline. Both series must be non-empty; callers skip empty identifiers
// before reaching the reporter.
func Build(baseline, attacked series.Series, label string, opts Options) (Report, error) {
	if baseline.Empty() {
		return Report{}, fmt.Errorf("empty baseline series for identifier '%s'", baseline.ID)
	}
	if attacked.Empty() {
		return Report{}, fmt.Errorf("empty attacked series for identifier '%s'", attacked.ID)
	}

	ref := opts.Reference
	if ref == "" {
		ref = detect.ReferenceFirst
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = detect.Sigma3(baseline.Offsets)
	}

	identErr := detect.IdentificationError(attacked.Offsets, baseline.Offsets, ref)

	return Report{
		Identifier: baseline.ID,
		Attack:     label,
		Baseline:   baseline,
		Attacked:   attacked,
		Curves: Curves{
			Times:      attacked.Times(),
			Offsets:    append([]float64(nil), attacked.Offsets...),
			IdentError: identErr,
			Detection:  detect.CUSUM(identErr, threshold),
			UCL:        detect.UpperControlLimit(baseline.Offsets),
		},
		IntervalPMF: PMF(attacked.Deltas),
	}, nil
}

// PMF buckets inter-arrival deltas at microsecond resolution and returns the
// probability mass of each observed interval, ascending by interval.
func PMF(deltas []float64) []IntervalProb {
	if len(deltas) == 0 {
		return nil
	}

	counts := make(map[float64]int)
	for _, d := range deltas {
		counts[math.Round(d*1e6)/1e6]++
	}

	out := make([]IntervalProb, 0, len(counts))
	total := float64(len(deltas))
	for interval, n := range counts {
		out = append(out, IntervalProb{Interval: interval, Probability: float64(n) / total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Interval < out[j].Interval })
	return out
}

// SummaryRow is one line of the attack summary table.
type SummaryRow struct {
	Identifier     string
	Attack         string
	BaselineOffset float64
	AttackedOffset float64
	IdentError     float64
	CusumDeviation float64
	FlaggedCount   int
}

// Summary condenses the report into the comparison metrics of the summary
// table: final offsets, their difference and the final CUSUM deviation.
func (r Report) Summary() SummaryRow {
	row := SummaryRow{
		Identifier:     r.Identifier,
		Attack:         r.Attack,
		BaselineOffset: r.Baseline.LastOffset(),
		AttackedOffset: r.Attacked.LastOffset(),
		FlaggedCount:   len(r.Curves.Detection.Flagged),
	}
	row.IdentError = row.AttackedOffset - row.BaselineOffset
	if n := len(r.Curves.Detection.Statistic); n > 0 {
		row.CusumDeviation = r.Curves.Detection.Statistic[n-1]
	}
	return row
}

// PeakStatistic returns the largest |CUSUM| value of the report.
func (r Report) PeakStatistic() float64 {
	peak := 0.0
	for _, v := range r.Curves.Detection.Statistic {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}
