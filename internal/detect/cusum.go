package detect

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Result holds the change-point statistic for one signal. Statistic has the
// same length as the input; Flagged lists the indices whose |statistic|
// exceeded Threshold, in ascending order.
type Result struct {
	Statistic []float64
	Flagged   []int
	Threshold float64
}

// CUSUM computes the zero-mean cumulative sum of the signal and flags every
// index where its magnitude exceeds the threshold. This is a mean-centered
// CUSUM without separate drift accumulators or reset-after-alarm, sized for
// post-hoc demonstration rather than online deployment. Deterministic, O(n).
//
// Signals of length 0 or 1 short-circuit to a degenerate all-zero result: the
// mean carries no information there and no detection is possible.
func CUSUM(signal []float64, threshold float64) Result {
	res := Result{
		Statistic: make([]float64, len(signal)),
		Threshold: threshold,
	}
	if len(signal) < 2 {
		return res
	}

	mean := stat.Mean(signal, nil)
	sum := 0.0
	for i, v := range signal {
		sum += v - mean
		res.Statistic[i] = sum
		if math.Abs(sum) > threshold {
			res.Flagged = append(res.Flagged, i)
		}
	}
	return res
}

// Sigma3 derives the control-limit threshold from a reference window:
// 3 times the window's sample standard deviation.
func Sigma3(window []float64) float64 {
	if len(window) < 2 {
		return 0
	}
	return 3 * stat.StdDev(window, nil)
}

// UpperControlLimit returns mean + 3*stddev of the reference signal, the
// classic UCL line drawn against the accumulated offset.
func UpperControlLimit(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	if len(signal) < 2 {
		return signal[0]
	}
	mean, std := stat.MeanStdDev(signal, nil)
	return mean + 3*std
}

// Reference selects which baseline quantity anchors the identification error.
// The two analysis variants in use disagree on this, so both are selectable.
type Reference string

const (
	// ReferenceFirst subtracts the baseline's first accumulated offset.
	ReferenceFirst Reference = "first"
	// ReferenceMean subtracts the baseline's mean accumulated offset.
	ReferenceMean Reference = "mean"
)

// IdentificationError subtracts the baseline reference offset from every
// attacked offset. Empty inputs yield nil: no detection is possible.
func IdentificationError(attacked, baseline []float64, ref Reference) []float64 {
	if len(attacked) == 0 || len(baseline) == 0 {
		return nil
	}

	r := baseline[0]
	if ref == ReferenceMean {
		r = stat.Mean(baseline, nil)
	}

	out := make([]float64, len(attacked))
	for i, v := range attacked {
		out[i] = v - r
	}
	return out
}
