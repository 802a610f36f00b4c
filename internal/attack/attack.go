package attack

import (
	"errors"
	"fmt"

	"CANSpectra/internal/model"
	"CANSpectra/internal/series"
)

// ErrInvalidParameters is returned when an attack spec carries a non-positive
// rate, count or duration. Specs are validated at construction time rather
// than silently producing degenerate output.
var ErrInvalidParameters = errors.New("invalid attack parameters")

// Attack labels, used to key reports, plots and alert rules.
const (
	LabelFabrication = "fabrication"
	LabelSuspension  = "suspension"
	LabelMasquerade  = "masquerade"
)

// Spec is a pure description of one adversarial condition. Applying it to a
// base series yields a new series; the base is never mutated.
type Spec interface {
	Label() string
	Validate() error
	Apply(base series.Series) (series.Series, error)
}

// Fabrication appends Count synthetic frames after the last real timestamp,
// spaced by Rate seconds and carrying a fixed payload.
type Fabrication struct {
	Rate    float64
	Count   int
	Payload []byte
}

func (a Fabrication) Label() string { return LabelFabrication }

func (a Fabrication) Validate() error {
	if a.Rate <= 0 {
		return fmt.Errorf("%w: fabrication rate must be positive, got %v", ErrInvalidParameters, a.Rate)
	}
	if a.Count <= 0 {
		return fmt.Errorf("%w: fabrication count must be positive, got %d", ErrInvalidParameters, a.Count)
	}
	return nil
}

func (a Fabrication) Apply(base series.Series) (series.Series, error) {
	if err := a.Validate(); err != nil {
		return series.Series{}, err
	}
	if base.Empty() {
		return series.Series{}, fmt.Errorf("fabrication requires a non-empty base series")
	}
	return appendSynthetic(base, a.Rate, a.Count, a.Payload), nil
}

// Suspension removes every frame whose timestamp falls within
// [Start, Start+Duration), simulating bus silence. The spliced series is
// rebuilt, so the first post-gap delta is large and positive, reflecting the
// missed interval.
type Suspension struct {
	Start    float64
	Duration float64
}

func (a Suspension) Label() string { return LabelSuspension }

func (a Suspension) Validate() error {
	if a.Duration <= 0 {
		return fmt.Errorf("%w: suspension duration must be positive, got %v", ErrInvalidParameters, a.Duration)
	}
	return nil
}

func (a Suspension) Apply(base series.Series) (series.Series, error) {
	if err := a.Validate(); err != nil {
		return series.Series{}, err
	}

	end := a.Start + a.Duration
	kept := make([]model.Frame, 0, base.Len())
	for _, f := range base.Frames {
		if f.Timestamp >= a.Start && f.Timestamp < end {
			continue
		}
		kept = append(kept, f)
	}
	return series.Build(base.ID, kept), nil
}

// Masquerade is structurally a fabrication whose injected payload mimics a
// different legitimate identifier's values, modeling identity spoofing rather
// than arbitrary fake data.
type Masquerade struct {
	Rate    float64
	Count   int
	Payload []byte
}

func (a Masquerade) Label() string { return LabelMasquerade }

func (a Masquerade) Validate() error {
	if a.Rate <= 0 {
		return fmt.Errorf("%w: masquerade rate must be positive, got %v", ErrInvalidParameters, a.Rate)
	}
	if a.Count <= 0 {
		return fmt.Errorf("%w: masquerade count must be positive, got %d", ErrInvalidParameters, a.Count)
	}
	return nil
}

func (a Masquerade) Apply(base series.Series) (series.Series, error) {
	if err := a.Validate(); err != nil {
		return series.Series{}, err
	}
	if base.Empty() {
		return series.Series{}, fmt.Errorf("masquerade requires a non-empty base series")
	}
	return appendSynthetic(base, a.Rate, a.Count, a.Payload), nil
}

// appendSynthetic extends a copy of the base series with count frames spaced
// by rate. The accumulated offset continues arithmetically from the base
// series' final offset: it models a clock that keeps advancing by a constant
// fabricated interval and is deliberately not recomputed from scratch.
func appendSynthetic(base series.Series, rate float64, count int, payload []byte) series.Series {
	out := base.Clone()
	lastTime := base.LastTimestamp()
	lastOffset := base.LastOffset()

	for i := 1; i <= count; i++ {
		out.Frames = append(out.Frames, model.Frame{
			Timestamp: lastTime + rate*float64(i),
			ID:        base.ID,
			Payload:   append([]byte(nil), payload...),
		})
		out.Deltas = append(out.Deltas, rate)
		out.Offsets = append(out.Offsets, lastOffset+rate*float64(i))
	}
	return out
}
