package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AnalysisConfig describes one offline analysis run: which log(s) to read,
// which identifiers to analyze and how the detector is parameterized.
type AnalysisConfig struct {
	BaselinePath string   `yaml:"baseline_path"`
	AttackPath   string   `yaml:"attack_path"`
	PcapPath     string   `yaml:"pcap_path"`
	Identifiers  []string `yaml:"identifiers"`
	Reference    string   `yaml:"reference"` // "first" or "mean"
	Threshold    float64  `yaml:"threshold"` // <= 0 derives 3*stddev of the baseline offsets
	NumWorkers   int      `yaml:"num_workers"`
}

// FabricationConfig parameterizes the fabrication attack synthesizer.
type FabricationConfig struct {
	Rate    float64 `yaml:"rate"` // seconds between fabricated frames
	Count   int     `yaml:"count"`
	Payload string  `yaml:"payload"` // hex payload carried by fabricated frames
}

// SuspensionConfig parameterizes the suspension attack synthesizer. The start
// offset is measured from the first baseline frame.
type SuspensionConfig struct {
	StartOffset float64 `yaml:"start_offset"`
	Duration    float64 `yaml:"duration"`
}

// MasqueradeConfig parameterizes the masquerade attack synthesizer. The spoofed
// payload mimics SourceID's legitimate values; an explicit payload overrides it.
type MasqueradeConfig struct {
	Rate     float64 `yaml:"rate"`
	Count    int     `yaml:"count"`
	SourceID string  `yaml:"source_id"`
	Payload  string  `yaml:"payload"`
}

// AttacksConfig groups the three synthesized attack parameter sets.
type AttacksConfig struct {
	Fabrication FabricationConfig `yaml:"fabrication"`
	Suspension  SuspensionConfig  `yaml:"suspension"`
	Masquerade  MasqueradeConfig  `yaml:"masquerade"`
}

// CaptureConfig describes the oscilloscope voltage capture analysis.
type CaptureConfig struct {
	Dir           string  `yaml:"dir"`
	MaxFiles      int     `yaml:"max_files"`
	Rate          float64 `yaml:"rate"`  // spacing of injected samples on the capture time axis
	Count         int     `yaml:"count"` // number of injected samples
	VoltageOffset float64 `yaml:"voltage_offset"`
}

// CSVWriterConfig holds the configuration for the summary table writer.
type CSVWriterConfig struct {
	Path string `yaml:"path"`
}

// GobWriterConfig holds the configuration for the gob snapshot writer.
type GobWriterConfig struct {
	RootPath string `yaml:"root_path"`
}

// ClickHouseConfig holds the connection settings for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WriterDef defines a single report writer in the config file.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	CSV        CSVWriterConfig  `yaml:"csv"`
	Gob        GobWriterConfig  `yaml:"gob"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// RenderConfig controls PNG plot rendering.
type RenderConfig struct {
	Enabled bool    `yaml:"enabled"`
	OutDir  string  `yaml:"out_dir"`
	Width   float64 `yaml:"width"`  // inches
	Height  float64 `yaml:"height"` // inches
}

// AlerterRule triggers when a report for Identifier (and, if set, Attack)
// carries more flagged samples than MaxFlagged.
type AlerterRule struct {
	Identifier string `yaml:"identifier"`
	Attack     string `yaml:"attack"`
	MaxFlagged int    `yaml:"max_flagged"`
}

// AlerterConfig holds the configuration for post-run alerting.
type AlerterConfig struct {
	Enabled bool          `yaml:"enabled"`
	Rules   []AlerterRule `yaml:"rules"`
}

// SMTPConfig holds the settings for the email notifier.
type SMTPConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// ProbeConfig holds the NATS settings shared by the probe and the campaign.
type ProbeConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
	Bus     string `yaml:"bus"`
}

// CampaignConfig drives the staged live attack campaign. Durations are Go
// duration strings ("30s", "2m").
type CampaignConfig struct {
	Identifier          string `yaml:"identifier"`
	Payload             string `yaml:"payload"`
	Interval            string `yaml:"interval"`
	FabricationRate     string `yaml:"fabrication_rate"`
	MasqueradeID        string `yaml:"masquerade_id"`
	MasqueradePayload   string `yaml:"masquerade_payload"`
	LoggingDuration     string `yaml:"logging_duration"`
	FabricationDuration string `yaml:"fabrication_duration"`
	SuspensionDuration  string `yaml:"suspension_duration"`
	MasqueradeDuration  string `yaml:"masquerade_duration"`
}

// APIConfig holds the settings for the HTTP query API.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Attacks  AttacksConfig  `yaml:"attacks"`
	Capture  CaptureConfig  `yaml:"capture"`
	Writers  []WriterDef    `yaml:"writers"`
	Render   RenderConfig   `yaml:"render"`
	Alerter  AlerterConfig  `yaml:"alerter"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Probe    ProbeConfig    `yaml:"probe"`
	Campaign CampaignConfig `yaml:"campaign"`
	API      APIConfig      `yaml:"api"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	return &cfg, nil
}
