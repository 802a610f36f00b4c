package series

import (
	"strconv"

	"gonum.org/v1/gonum/stat"

	"CANSpectra/internal/model"
)

// Series is an ordered sequence of frames sharing one identifier, augmented
// per element with the inter-arrival delta and the accumulated clock offset
// (running sum of deltas). Offsets are monotonically non-decreasing and all
// three slices always have equal length.
type Series struct {
	ID      string
	Frames  []model.Frame
	Deltas  []float64
	Offsets []float64
}

// Build derives a Series from frames already ordered by arrival.
func Build(id string, frames []model.Frame) Series {
	s := Series{
		ID:      id,
		Frames:  append([]model.Frame(nil), frames...),
		Deltas:  make([]float64, len(frames)),
		Offsets: make([]float64, len(frames)),
	}

	offset := 0.0
	for i := range s.Frames {
		if i > 0 {
			s.Deltas[i] = s.Frames[i].Timestamp - s.Frames[i-1].Timestamp
		}
		offset += s.Deltas[i]
		s.Offsets[i] = offset
	}
	return s
}

// Len returns the number of frames in the series.
func (s Series) Len() int {
	return len(s.Frames)
}

// Empty reports whether the series holds no frames. Callers treat an empty
// series as "no data for identifier" and skip downstream analysis.
func (s Series) Empty() bool {
	return len(s.Frames) == 0
}

// LastTimestamp returns the timestamp of the final frame, or 0 when empty.
func (s Series) LastTimestamp() float64 {
	if s.Empty() {
		return 0
	}
	return s.Frames[len(s.Frames)-1].Timestamp
}

// LastOffset returns the final accumulated clock offset, or 0 when empty.
func (s Series) LastOffset() float64 {
	if s.Empty() {
		return 0
	}
	return s.Offsets[len(s.Offsets)-1]
}

// Times returns the frame timestamps as a plain slice.
func (s Series) Times() []float64 {
	out := make([]float64, len(s.Frames))
	for i, f := range s.Frames {
		out[i] = f.Timestamp
	}
	return out
}

// Clone returns a deep copy. Attack synthesizers extend the copy so the
// baseline stays available for comparison.
func (s Series) Clone() Series {
	return Series{
		ID:      s.ID,
		Frames:  append([]model.Frame(nil), s.Frames...),
		Deltas:  append([]float64(nil), s.Deltas...),
		Offsets: append([]float64(nil), s.Offsets...),
	}
}

// LoadResult distinguishes a loaded series from a skipped identifier without
// forcing callers to inspect log output.
type LoadResult struct {
	Series Series
	Reason string
}

// Loaded wraps a successfully built series.
func Loaded(s Series) LoadResult {
	return LoadResult{Series: s}
}

// Skipped records why no analysis will run for an identifier.
func Skipped(reason string) LoadResult {
	return LoadResult{Reason: reason}
}

// Ok reports whether the series was loaded.
func (r LoadResult) Ok() bool {
	return r.Reason == ""
}

// Channel selects one oscilloscope channel of a voltage capture.
type Channel int

const (
	ChannelA Channel = iota
	ChannelB
)

func (c Channel) String() string {
	if c == ChannelB {
		return "channel_b"
	}
	return "channel_a"
}

// FromCapture builds a Series from the sorted time column of a voltage
// capture. Payloads carry the formatted channel voltage so the attack
// synthesizers can treat voltage data like any other frame payload.
func FromCapture(samples []model.VoltageSample, ch Channel) Series {
	frames := make([]model.Frame, len(samples))
	for i, smp := range samples {
		v := smp.ChannelA
		if ch == ChannelB {
			v = smp.ChannelB
		}
		frames[i] = model.Frame{
			Timestamp: smp.Time,
			ID:        ch.String(),
			Payload:   VoltagePayload(v),
		}
	}
	return Build(ch.String(), frames)
}

// VoltagePayload encodes a voltage level as a frame payload.
func VoltagePayload(v float64) []byte {
	return []byte(strconv.FormatFloat(v, 'f', 4, 64))
}

// ChannelStats holds the reference "legitimate" voltage levels of a capture.
type ChannelStats struct {
	MeanA float64
	StdA  float64
	MeanB float64
	StdB  float64
}

// CaptureStats computes per-channel mean and sample standard deviation.
func CaptureStats(samples []model.VoltageSample) ChannelStats {
	if len(samples) == 0 {
		return ChannelStats{}
	}
	a := make([]float64, len(samples))
	b := make([]float64, len(samples))
	for i, smp := range samples {
		a[i] = smp.ChannelA
		b[i] = smp.ChannelB
	}

	var stats ChannelStats
	stats.MeanA, stats.StdA = stat.MeanStdDev(a, nil)
	stats.MeanB, stats.StdB = stat.MeanStdDev(b, nil)
	if len(samples) < 2 {
		stats.StdA, stats.StdB = 0, 0
	}
	return stats
}
