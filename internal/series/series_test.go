package series

import (
	"math"
	"testing"

	"CANSpectra/internal/model"
)

func frames(timestamps ...float64) []model.Frame {
	out := make([]model.Frame, len(timestamps))
	for i, ts := range timestamps {
		out[i] = model.Frame{Timestamp: ts, ID: "0A0"}
	}
	return out
}

func TestBuild(t *testing.T) {
	s := Build("0A0", frames(100.0, 100.1, 100.3, 100.6))

	if s.Len() != 4 {
		t.Fatalf("expected 4 frames, got %d", s.Len())
	}
	if s.Deltas[0] != 0 {
		t.Errorf("expected first delta 0, got %f", s.Deltas[0])
	}
	wantDeltas := []float64{0, 0.1, 0.2, 0.3}
	wantOffsets := []float64{0, 0.1, 0.3, 0.6}
	for i := range wantDeltas {
		if math.Abs(s.Deltas[i]-wantDeltas[i]) > 1e-9 {
			t.Errorf("delta[%d]: expected %f, got %f", i, wantDeltas[i], s.Deltas[i])
		}
		if math.Abs(s.Offsets[i]-wantOffsets[i]) > 1e-9 {
			t.Errorf("offset[%d]: expected %f, got %f", i, wantOffsets[i], s.Offsets[i])
		}
	}

	// Offsets are non-decreasing for ordered input.
	for i := 1; i < s.Len(); i++ {
		if s.Offsets[i] < s.Offsets[i-1] {
			t.Errorf("offsets decreased at %d: %f < %f", i, s.Offsets[i], s.Offsets[i-1])
		}
	}
}

func TestBuildEmptyAndSingle(t *testing.T) {
	empty := Build("0A0", nil)
	if !empty.Empty() || empty.LastOffset() != 0 || empty.LastTimestamp() != 0 {
		t.Errorf("unexpected empty series state: %+v", empty)
	}

	single := Build("0A0", frames(42.0))
	if single.Empty() || single.Deltas[0] != 0 || single.Offsets[0] != 0 {
		t.Errorf("unexpected single-frame series state: %+v", single)
	}
	if single.LastTimestamp() != 42.0 {
		t.Errorf("expected last timestamp 42.0, got %f", single.LastTimestamp())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := Build("0A0", frames(1.0, 2.0))
	c := s.Clone()
	c.Offsets[1] = 999
	c.Frames[0].Timestamp = 999

	if s.Offsets[1] == 999 || s.Frames[0].Timestamp == 999 {
		t.Error("mutating the clone changed the original")
	}
}

func TestLoadResult(t *testing.T) {
	if !Loaded(Build("0A0", frames(1.0))).Ok() {
		t.Error("expected loaded result to be ok")
	}
	r := Skipped("no frames in baseline log")
	if r.Ok() || r.Reason == "" {
		t.Error("expected skipped result to carry a reason")
	}
}

func TestFromCapture(t *testing.T) {
	samples := []model.VoltageSample{
		{Time: 0.001, ChannelA: 2.50, ChannelB: 2.49},
		{Time: 0.002, ChannelA: 2.51, ChannelB: 2.48},
	}

	a := FromCapture(samples, ChannelA)
	if a.ID != "channel_a" || a.Len() != 2 {
		t.Fatalf("unexpected channel A series: %+v", a)
	}
	if string(a.Frames[0].Payload) != "2.5000" {
		t.Errorf("expected payload 2.5000, got %s", a.Frames[0].Payload)
	}

	b := FromCapture(samples, ChannelB)
	if string(b.Frames[1].Payload) != "2.4800" {
		t.Errorf("expected payload 2.4800, got %s", b.Frames[1].Payload)
	}
}

func TestCaptureStats(t *testing.T) {
	samples := []model.VoltageSample{
		{ChannelA: 2.0, ChannelB: 4.0},
		{ChannelA: 4.0, ChannelB: 6.0},
	}
	stats := CaptureStats(samples)
	if stats.MeanA != 3.0 || stats.MeanB != 5.0 {
		t.Errorf("unexpected means: %+v", stats)
	}
	if stats.StdA == 0 {
		t.Error("expected non-zero stddev for two distinct samples")
	}

	one := CaptureStats(samples[:1])
	if one.StdA != 0 || one.StdB != 0 {
		t.Errorf("expected zero stddev for a single sample, got %+v", one)
	}
	if zero := CaptureStats(nil); zero != (ChannelStats{}) {
		t.Errorf("expected zero stats for no samples, got %+v", zero)
	}
}
