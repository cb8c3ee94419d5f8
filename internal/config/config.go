package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/livetex/internal/logging"
)

// Config is the complete livetex configuration.
type Config struct {
	Editor   EditorConfig   `toml:"editor" yaml:"editor"`
	Compile  CompileConfig  `toml:"compile" yaml:"compile"`
	Lint     LintConfig     `toml:"lint" yaml:"lint"`
	Artifact ArtifactConfig `toml:"artifact" yaml:"artifact"`
	Server   ServerConfig   `toml:"server" yaml:"server"`
	Log      LogConfig      `toml:"log" yaml:"log"`
}

// EditorConfig controls how edits are coalesced.
type EditorConfig struct {
	// QuietPeriod is how long the document must stay unchanged before it
	// is submitted.
	QuietPeriod Duration `toml:"quiet_period" yaml:"quiet_period"`
}

// CompileConfig describes the remote compile service.
type CompileConfig struct {
	URL     string   `toml:"url" yaml:"url"`
	Engine  string   `toml:"engine" yaml:"engine"`
	Timeout Duration `toml:"timeout" yaml:"timeout"`
}

// LintConfig describes the remote lint service.
type LintConfig struct {
	Enabled bool     `toml:"enabled" yaml:"enabled"`
	URL     string   `toml:"url" yaml:"url"`
	Timeout Duration `toml:"timeout" yaml:"timeout"`
}

// ArtifactConfig controls where compiled artifacts are kept.
type ArtifactConfig struct {
	// SpillDir holds artifacts on disk. Empty keeps them in memory.
	SpillDir string `toml:"spill_dir" yaml:"spill_dir"`
}

// ServerConfig controls the preview server.
type ServerConfig struct {
	Addr           string   `toml:"addr" yaml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins" yaml:"allowed_origins"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Editor: EditorConfig{
			QuietPeriod: Duration{900 * time.Millisecond},
		},
		Compile: CompileConfig{
			URL:     "http://localhost:8000/compile",
			Engine:  "pdflatex",
			Timeout: Duration{30 * time.Second},
		},
		Lint: LintConfig{
			Enabled: true,
			URL:     "http://localhost:8000/lint",
			Timeout: Duration{10 * time.Second},
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:7878",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Editor.QuietPeriod.Duration <= 0 {
		return &ValidationError{Path: "editor.quiet_period", Message: "must be positive"}
	}
	if err := validateURL("compile.url", c.Compile.URL); err != nil {
		return err
	}
	if strings.TrimSpace(c.Compile.Engine) == "" {
		return &ValidationError{Path: "compile.engine", Message: "must not be empty"}
	}
	if c.Compile.Timeout.Duration < 0 {
		return &ValidationError{Path: "compile.timeout", Message: "must not be negative"}
	}
	if c.Lint.Enabled {
		if err := validateURL("lint.url", c.Lint.URL); err != nil {
			return err
		}
	}
	if c.Lint.Timeout.Duration < 0 {
		return &ValidationError{Path: "lint.timeout", Message: "must not be negative"}
	}
	if !logging.ValidLevel(c.Log.Level) {
		return &ValidationError{Path: "log.level", Message: fmt.Sprintf("unknown level %q", c.Log.Level)}
	}
	return nil
}

func validateURL(path, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{Path: path, Message: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Path: path, Message: "scheme must be http or https"}
	}
	if u.Host == "" {
		return &ValidationError{Path: path, Message: "missing host"}
	}
	return nil
}

// Duration is a time.Duration that decodes from Go duration strings in
// both TOML and YAML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	return d.UnmarshalText([]byte(value.Value))
}
