package config

import (
	"fmt"
	"time"
)

// Settings represents an ikernel.yaml file.
// All values are optional and act as defaults for ikernel run flags.
// CLI flags always override settings values.
type Settings struct {
	Engine  EngineConfig  `yaml:"engine"`
	Auth    AuthConfig    `yaml:"auth"`
	Log     LogConfig     `yaml:"log"`
	History HistoryConfig `yaml:"history"`
	Adapter AdapterConfig `yaml:"adapter"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// EngineConfig selects the evaluation engine.
type EngineConfig struct {
	// Kind is yaegi (built-in Go interpreter) or process (external toolchain).
	Kind    string   `yaml:"kind"`
	Path    string   `yaml:"path"`
	Args    []string `yaml:"args,omitempty"`
	Dialect string   `yaml:"dialect"`
	Timeout Duration `yaml:"timeout,omitempty"`
	// CacheSize bounds the compile-check cache; zero disables it and
	// nil leaves the flag default.
	CacheSize *int `yaml:"cache_size,omitempty"`
}

// AuthConfig holds the signature policy.
type AuthConfig struct {
	// Policy is reject (drop unsigned or mis-signed messages) or warn.
	Policy string `yaml:"policy"`
}

// LogConfig holds logging defaults.
type LogConfig struct {
	Level string `yaml:"level"`
}

// HistoryConfig holds execution history storage defaults.
type HistoryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds notification adapter defaults.
type AdapterConfig struct {
	Type     string            `yaml:"type"`
	URL      string            `yaml:"url"`
	Channel  string            `yaml:"channel,omitempty"`
	PerEvent bool              `yaml:"per_event,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Timeout  Duration          `yaml:"timeout,omitempty"`
	Retries  *int              `yaml:"retries,omitempty"`
}

// MetricsConfig holds the Prometheus listener address.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
