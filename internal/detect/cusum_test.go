package detect

import (
	"math"
	"testing"
)

func TestCUSUMConstantSignal(t *testing.T) {
	res := CUSUM([]float64{5, 5, 5, 5}, 1.0)
	for i, v := range res.Statistic {
		if v != 0 {
			t.Errorf("expected zero statistic at %d, got %f", i, v)
		}
	}
	if len(res.Flagged) != 0 {
		t.Errorf("expected no flags for a constant signal, got %v", res.Flagged)
	}
}

func TestCUSUMDegenerate(t *testing.T) {
	empty := CUSUM(nil, 1.0)
	if len(empty.Statistic) != 0 || len(empty.Flagged) != 0 {
		t.Errorf("unexpected result for empty signal: %+v", empty)
	}

	single := CUSUM([]float64{100}, 0.001)
	if len(single.Statistic) != 1 || single.Statistic[0] != 0 || len(single.Flagged) != 0 {
		t.Errorf("unexpected result for single-sample signal: %+v", single)
	}
}

func TestCUSUMStepSignal(t *testing.T) {
	signal := []float64{0, 0, 0, 0, 0, 10, 10, 10, 10, 10}
	res := CUSUM(signal, 3.0)

	// mean is 5; the centered cumulative sum walks down to -25, then back
	// up to 0 at the final index.
	want := []float64{-5, -10, -15, -20, -25, -20, -15, -10, -5, 0}
	for i, w := range want {
		if math.Abs(res.Statistic[i]-w) > 1e-9 {
			t.Errorf("statistic[%d]: expected %f, got %f", i, w, res.Statistic[i])
		}
	}

	// Every index but the last exceeds |3|; the step itself at index 5
	// must be among the flags.
	if len(res.Flagged) != 9 {
		t.Fatalf("expected 9 flagged indices, got %d: %v", len(res.Flagged), res.Flagged)
	}
	flagged := make(map[int]bool, len(res.Flagged))
	for _, idx := range res.Flagged {
		flagged[idx] = true
	}
	if !flagged[5] {
		t.Error("expected the change point at index 5 to be flagged")
	}
	if flagged[9] {
		t.Error("index 9 sums back to zero and must not be flagged")
	}
}

func TestCUSUMFlagsAscending(t *testing.T) {
	res := CUSUM([]float64{0, 100, 0, 100, 0, 100}, 10)
	for i := 1; i < len(res.Flagged); i++ {
		if res.Flagged[i] <= res.Flagged[i-1] {
			t.Fatalf("flags not ascending: %v", res.Flagged)
		}
	}
}

func TestSigma3(t *testing.T) {
	if got := Sigma3(nil); got != 0 {
		t.Errorf("expected 0 for empty window, got %f", got)
	}
	if got := Sigma3([]float64{7}); got != 0 {
		t.Errorf("expected 0 for single-sample window, got %f", got)
	}

	// stddev of {2, 4} is sqrt(2)
	want := 3 * math.Sqrt2
	if got := Sigma3([]float64{2, 4}); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %f, got %f", want, got)
	}
}

func TestUpperControlLimit(t *testing.T) {
	if got := UpperControlLimit(nil); got != 0 {
		t.Errorf("expected 0 for empty signal, got %f", got)
	}
	if got := UpperControlLimit([]float64{4.2}); got != 4.2 {
		t.Errorf("expected the single sample itself, got %f", got)
	}

	want := 3.0 + 3*math.Sqrt2
	if got := UpperControlLimit([]float64{2, 4}); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %f, got %f", want, got)
	}
}

func TestIdentificationError(t *testing.T) {
	baseline := []float64{1, 2, 3}
	attacked := []float64{5, 6, 7, 8}

	first := IdentificationError(attacked, baseline, ReferenceFirst)
	if len(first) != len(attacked) {
		t.Fatalf("expected length %d, got %d", len(attacked), len(first))
	}
	if first[0] != 4 || first[3] != 7 {
		t.Errorf("unexpected first-referenced error: %v", first)
	}

	mean := IdentificationError(attacked, baseline, ReferenceMean)
	if mean[0] != 3 || mean[3] != 6 {
		t.Errorf("unexpected mean-referenced error: %v", mean)
	}

	if IdentificationError(nil, baseline, ReferenceFirst) != nil {
		t.Error("expected nil for empty attacked offsets")
	}
	if IdentificationError(attacked, nil, ReferenceFirst) != nil {
		t.Error("expected nil for empty baseline offsets")
	}
}
