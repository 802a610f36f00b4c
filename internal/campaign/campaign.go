package campaign

import (
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"time"

	"CANSpectra/internal/config"
	"CANSpectra/internal/model"
)

// Stage is one step of the staged attack campaign. The campaign advances
// through a fixed sequence with configured durations instead of relying on
// timing-dependent scripting.
type Stage int

const (
	StageIdle Stage = iota
	StageLogging
	StageFabrication
	StageFabricationSuspension
	StageMasquerade
	StageStopped
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageLogging:
		return "logging"
	case StageFabrication:
		return "fabrication"
	case StageFabricationSuspension:
		return "fabrication+suspension"
	case StageMasquerade:
		return "fabrication+suspension+masquerade"
	case StageStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Sequence is the fixed order the campaign advances through between Idle and
// Stopped.
func Sequence() []Stage {
	return []Stage{StageLogging, StageFabrication, StageFabricationSuspension, StageMasquerade}
}

// behavior describes what traffic a stage produces. Attack effects are
// cumulative: suspension keeps the fabricator running while the legitimate
// source goes silent, and masquerade adds the spoofing injector on top.
type behavior struct {
	legit      bool
	fabricate  bool
	masquerade bool
}

func behaviorOf(s Stage) behavior {
	switch s {
	case StageLogging:
		return behavior{legit: true}
	case StageFabrication:
		return behavior{legit: true, fabricate: true}
	case StageFabricationSuspension:
		return behavior{fabricate: true}
	case StageMasquerade:
		return behavior{fabricate: true, masquerade: true}
	default:
		return behavior{}
	}
}

// Publisher is the outbound side of the simulated bus.
type Publisher interface {
	Publish(frame model.Frame) error
}

// Config carries the parsed campaign parameters.
type Config struct {
	Identifier        string
	Payload           []byte
	Interval          time.Duration // pace of legitimate frames
	FabricationRate   time.Duration // pace of fabricated frames
	MasqueradeID      string
	MasqueradePayload []byte

	Durations map[Stage]time.Duration
}

// ParseConfig converts the YAML campaign section into a validated Config.
func ParseConfig(cfg config.CampaignConfig) (Config, error) {
	out := Config{Identifier: cfg.Identifier, MasqueradeID: cfg.MasqueradeID}
	if out.Identifier == "" {
		return Config{}, fmt.Errorf("campaign identifier is required")
	}
	if out.MasqueradeID == "" {
		out.MasqueradeID = out.Identifier
	}

	var err error
	if out.Payload, err = hex.DecodeString(cfg.Payload); err != nil {
		return Config{}, fmt.Errorf("invalid campaign payload: %w", err)
	}
	if out.MasqueradePayload, err = hex.DecodeString(cfg.MasqueradePayload); err != nil {
		return Config{}, fmt.Errorf("invalid masquerade payload: %w", err)
	}

	if out.Interval, err = parsePositiveDuration("interval", cfg.Interval); err != nil {
		return Config{}, err
	}
	if out.FabricationRate, err = parsePositiveDuration("fabrication_rate", cfg.FabricationRate); err != nil {
		return Config{}, err
	}

	out.Durations = make(map[Stage]time.Duration, 4)
	stageDurations := []struct {
		stage Stage
		name  string
		value string
	}{
		{StageLogging, "logging_duration", cfg.LoggingDuration},
		{StageFabrication, "fabrication_duration", cfg.FabricationDuration},
		{StageFabricationSuspension, "suspension_duration", cfg.SuspensionDuration},
		{StageMasquerade, "masquerade_duration", cfg.MasqueradeDuration},
	}
	for _, sd := range stageDurations {
		d, err := parsePositiveDuration(sd.name, sd.value)
		if err != nil {
			return Config{}, err
		}
		out.Durations[sd.stage] = d
	}

	return out, nil
}

func parsePositiveDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %s", name, d)
	}
	return d, nil
}

// Runner drives the staged campaign against the simulated bus.
type Runner struct {
	cfg Config
	pub Publisher

	mu    sync.Mutex
	stage Stage

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewRunner creates a campaign runner for a validated config.
func NewRunner(cfg Config, pub Publisher) *Runner {
	return &Runner{cfg: cfg, pub: pub, stage: StageIdle, stopChan: make(chan struct{})}
}

// Stage returns the stage the campaign is currently in.
func (r *Runner) Stage() Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stage
}

func (r *Runner) setStage(s Stage) {
	r.mu.Lock()
	r.stage = s
	r.mu.Unlock()
	log.Printf("Campaign stage: %s", s)
}

// Run advances through the campaign sequence, publishing traffic per stage,
// and returns when the final stage completes or Stop is called.
func (r *Runner) Run() error {
	for _, stage := range Sequence() {
		r.setStage(stage)
		if !r.runStage(stage, r.cfg.Durations[stage]) {
			break
		}
	}
	r.setStage(StageStopped)
	return nil
}

// Stop interrupts the campaign. Safe to call more than once.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
}

// runStage publishes the stage's traffic mix until its duration elapses.
// The return value reports whether the campaign should continue.
func (r *Runner) runStage(stage Stage, duration time.Duration) bool {
	b := behaviorOf(stage)

	var legitC, fabC, masqC <-chan time.Time
	if b.legit {
		t := time.NewTicker(r.cfg.Interval)
		defer t.Stop()
		legitC = t.C
	}
	if b.fabricate {
		t := time.NewTicker(r.cfg.FabricationRate)
		defer t.Stop()
		fabC = t.C
	}
	if b.masquerade {
		t := time.NewTicker(r.cfg.Interval)
		defer t.Stop()
		masqC = t.C
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return true
		case <-r.stopChan:
			return false
		case <-legitC:
			r.publish(r.cfg.Identifier, r.cfg.Payload)
		case <-fabC:
			r.publish(r.cfg.Identifier, r.cfg.Payload)
		case <-masqC:
			r.publish(r.cfg.MasqueradeID, r.cfg.MasqueradePayload)
		}
	}
}

func (r *Runner) publish(id string, payload []byte) {
	frame := model.Frame{
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		ID:        id,
		Payload:   payload,
	}
	if err := r.pub.Publish(frame); err != nil {
		log.Printf("Failed to publish frame: %v", err)
	}
}
