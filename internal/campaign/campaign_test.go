package campaign

import (
	"sync"
	"testing"
	"time"

	"CANSpectra/internal/config"
	"CANSpectra/internal/model"
)

type fakePublisher struct {
	mu     sync.Mutex
	frames []model.Frame
}

func (p *fakePublisher) Publish(frame model.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, frame)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

func validConfig() config.CampaignConfig {
	return config.CampaignConfig{
		Identifier:          "0A0",
		Payload:             "01020304",
		Interval:            "10ms",
		FabricationRate:     "5ms",
		MasqueradeID:        "0B0",
		MasqueradePayload:   "CAFEBABE",
		LoggingDuration:     "30s",
		FabricationDuration: "30s",
		SuspensionDuration:  "30s",
		MasqueradeDuration:  "30s",
	}
}

func TestSequence(t *testing.T) {
	want := []Stage{StageLogging, StageFabrication, StageFabricationSuspension, StageMasquerade}
	got := Sequence()
	if len(got) != len(want) {
		t.Fatalf("expected %d stages, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stage[%d]: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestBehaviorOf(t *testing.T) {
	cases := []struct {
		stage Stage
		want  behavior
	}{
		{StageLogging, behavior{legit: true}},
		{StageFabrication, behavior{legit: true, fabricate: true}},
		{StageFabricationSuspension, behavior{fabricate: true}},
		{StageMasquerade, behavior{fabricate: true, masquerade: true}},
		{StageIdle, behavior{}},
		{StageStopped, behavior{}},
	}
	for _, c := range cases {
		if got := behaviorOf(c.stage); got != c.want {
			t.Errorf("%s: expected %+v, got %+v", c.stage, c.want, got)
		}
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(validConfig())
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if cfg.Interval != 10*time.Millisecond || cfg.FabricationRate != 5*time.Millisecond {
		t.Errorf("unexpected rates: %+v", cfg)
	}
	if len(cfg.Payload) != 4 || len(cfg.MasqueradePayload) != 4 {
		t.Errorf("unexpected payloads: %+v", cfg)
	}
	if cfg.Durations[StageLogging] != 30*time.Second {
		t.Errorf("unexpected logging duration: %s", cfg.Durations[StageLogging])
	}
}

func TestParseConfigDefaultsMasqueradeID(t *testing.T) {
	raw := validConfig()
	raw.MasqueradeID = ""
	cfg, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if cfg.MasqueradeID != "0A0" {
		t.Errorf("expected masquerade id to default to the identifier, got %s", cfg.MasqueradeID)
	}
}

func TestParseConfigRejectsBadInput(t *testing.T) {
	bad := []func(*config.CampaignConfig){
		func(c *config.CampaignConfig) { c.Identifier = "" },
		func(c *config.CampaignConfig) { c.Payload = "not-hex" },
		func(c *config.CampaignConfig) { c.Interval = "fast" },
		func(c *config.CampaignConfig) { c.Interval = "-10ms" },
		func(c *config.CampaignConfig) { c.FabricationRate = "0s" },
		func(c *config.CampaignConfig) { c.LoggingDuration = "" },
		func(c *config.CampaignConfig) { c.MasqueradeDuration = "-1s" },
	}
	for i, mutate := range bad {
		raw := validConfig()
		mutate(&raw)
		if _, err := ParseConfig(raw); err == nil {
			t.Errorf("case %d: expected an error", i)
		}
	}
}

func TestRunnerAdvancesToStopped(t *testing.T) {
	raw := validConfig()
	raw.Interval = "2ms"
	raw.FabricationRate = "1ms"
	raw.LoggingDuration = "20ms"
	raw.FabricationDuration = "20ms"
	raw.SuspensionDuration = "20ms"
	raw.MasqueradeDuration = "20ms"

	cfg, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	pub := &fakePublisher{}
	runner := NewRunner(cfg, pub)
	if runner.Stage() != StageIdle {
		t.Fatalf("expected runner to start idle, got %s", runner.Stage())
	}

	if err := runner.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if runner.Stage() != StageStopped {
		t.Errorf("expected StageStopped after Run, got %s", runner.Stage())
	}
	if pub.count() == 0 {
		t.Error("expected frames to have been published")
	}

	// Masquerade frames carry the spoofed identifier.
	spoofed := false
	pub.mu.Lock()
	for _, f := range pub.frames {
		if f.ID == "0B0" {
			spoofed = true
			break
		}
	}
	pub.mu.Unlock()
	if !spoofed {
		t.Error("expected at least one masquerade frame")
	}
}

func TestRunnerStop(t *testing.T) {
	cfg, err := ParseConfig(validConfig())
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	runner := NewRunner(cfg, &fakePublisher{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		runner.Run()
	}()

	time.Sleep(20 * time.Millisecond)
	runner.Stop()
	runner.Stop() // second call must not panic

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop in time")
	}
	if runner.Stage() != StageStopped {
		t.Errorf("expected StageStopped after Stop, got %s", runner.Stage())
	}
}
