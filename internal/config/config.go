package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// ToolsConfig holds the paths of the external profiling toolchain.
type ToolsConfig struct {
	Profdata string `mapstructure:"llvm_profdata"`
	Cov      string `mapstructure:"llvm_cov"`
}

// ProjectConfig describes one project whose coverage is aggregated.
// Each project owns its own snapshot file; snapshots are never shared
// between projects.
type ProjectConfig struct {
	Name      string   `mapstructure:"name"`
	Root      string   `mapstructure:"root"`       // coverage outside this root is discarded
	Snapshot  string   `mapstructure:"snapshot"`   // persisted aggregate store path
	Targets   []string `mapstructure:"targets"`    // instrumented test binaries
	BinaryDir string   `mapstructure:"binary_dir"` // discover targets here when Targets is empty
	ReportDir string   `mapstructure:"report_dir"` // optional markdown summary output
}

// Config is the top-level covmerge configuration.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	// Mode selects how hit counts accumulate: "bool" or "count".
	Mode string `mapstructure:"mode"`

	// Markers are the literal substrings that open a test section in a
	// source file. Lines at or after the first marker are excluded from
	// metrics. Different source dialects use different markers, so this
	// is configuration, never hard-coded.
	Markers []string `mapstructure:"markers"`

	// Workers bounds how many project passes run in parallel.
	Workers int `mapstructure:"workers"`

	// Timeout is the per-execution timeout in seconds for running a
	// test binary under the profiler.
	Timeout int `mapstructure:"timeout"`

	Tools    ToolsConfig     `mapstructure:"tools"`
	Projects []ProjectConfig `mapstructure:"projects"`
}

// DefaultMarkers are the test-section markers for Rust sources, where
// generated test modules are appended after the production code.
var DefaultMarkers = []string{"#[cfg(test)]", "mod tests"}

// Load reads a configuration file from the "configs" directory into a struct.
// The configName parameter should be the base name of the file without the
// extension (e.g., "covmerge"). The result parameter should be a pointer to a
// struct that the configuration will be unmarshaled into.
func Load(configName string, result interface{}) error {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	v.AddConfigPath("../configs")    // go test inside a package
	v.AddConfigPath("../../configs") // deeper packages

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := v.Unmarshal(result); err != nil {
		return fmt.Errorf("failed to unmarshal config data: %w", err)
	}

	return nil
}

// LoadConfig loads the main covmerge configuration and applies defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := Load("covmerge", &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills in unset fields with sane defaults.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Mode == "" {
		c.Mode = "bool"
	}
	if len(c.Markers) == 0 {
		c.Markers = append([]string(nil), DefaultMarkers...)
	}
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if c.Timeout <= 0 {
		c.Timeout = 120
	}
	if c.Tools.Profdata == "" {
		c.Tools.Profdata = "llvm-profdata"
	}
	if c.Tools.Cov == "" {
		c.Tools.Cov = "llvm-cov"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Mode != "bool" && c.Mode != "count" {
		return fmt.Errorf("invalid mode %q: must be \"bool\" or \"count\"", c.Mode)
	}
	for i, p := range c.Projects {
		if p.Root == "" {
			return fmt.Errorf("project %d (%s): root is required", i, p.Name)
		}
		if p.Snapshot == "" {
			return fmt.Errorf("project %d (%s): snapshot path is required", i, p.Name)
		}
	}
	return nil
}
