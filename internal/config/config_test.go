package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Editor.QuietPeriod.Duration != 900*time.Millisecond {
		t.Errorf("QuietPeriod = %v, want 900ms", cfg.Editor.QuietPeriod)
	}
	if !cfg.Lint.Enabled {
		t.Error("lint should be enabled by default")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.toml"), noEnv)
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if cfg.Compile.URL != Default().Compile.URL {
		t.Errorf("Compile.URL = %q, want default", cfg.Compile.URL)
	}
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "livetex.toml", `
[editor]
quiet_period = "250ms"

[compile]
url = "http://compiler:9000/compile"
engine = "xelatex"
timeout = "5s"

[lint]
enabled = false

[artifact]
spill_dir = "/var/tmp/livetex"

[server]
addr = ":8080"
allowed_origins = ["http://localhost:3000"]
`)

	cfg, err := LoadWithEnv(path, noEnv)
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}

	if cfg.Editor.QuietPeriod.Duration != 250*time.Millisecond {
		t.Errorf("QuietPeriod = %v", cfg.Editor.QuietPeriod)
	}
	if cfg.Compile.URL != "http://compiler:9000/compile" || cfg.Compile.Engine != "xelatex" {
		t.Errorf("Compile = %+v", cfg.Compile)
	}
	if cfg.Compile.Timeout.Duration != 5*time.Second {
		t.Errorf("Compile.Timeout = %v", cfg.Compile.Timeout)
	}
	if cfg.Lint.Enabled {
		t.Error("lint should be disabled")
	}
	if cfg.Lint.URL != Default().Lint.URL {
		t.Errorf("unset lint.url should keep default, got %q", cfg.Lint.URL)
	}
	if cfg.Artifact.SpillDir != "/var/tmp/livetex" {
		t.Errorf("SpillDir = %q", cfg.Artifact.SpillDir)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "livetex.yaml", `
editor:
  quiet_period: 1.5s
lint:
  url: https://lint.example.com/lint
  timeout: 2s
log:
  level: debug
`)

	cfg, err := LoadWithEnv(path, noEnv)
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if cfg.Editor.QuietPeriod.Duration != 1500*time.Millisecond {
		t.Errorf("QuietPeriod = %v", cfg.Editor.QuietPeriod)
	}
	if cfg.Lint.URL != "https://lint.example.com/lint" {
		t.Errorf("Lint.URL = %q", cfg.Lint.URL)
	}
	if cfg.Lint.Timeout.Duration != 2*time.Second {
		t.Errorf("Lint.Timeout = %v", cfg.Lint.Timeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoad_ParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		target  error
	}{
		{"bad toml", "bad.toml", "[editor\nquiet_period =", nil},
		{"bad duration", "dur.toml", "[editor]\nquiet_period = \"soon\"\n", nil},
		{"unknown extension", "conf.ini", "x=1", ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			_, err := LoadWithEnv(path, noEnv)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *ParseError", err)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("err = %v, want errors.Is %v", err, tt.target)
			}
		})
	}
}

func TestApplyEnv_Overrides(t *testing.T) {
	cfg, err := LoadWithEnv("", envMap(map[string]string{
		"LIVETEX_QUIET_PERIOD":    "100ms",
		"LIVETEX_COMPILE_URL":     "http://127.0.0.1:1/compile",
		"LIVETEX_LINT_ENABLED":    "off",
		"LIVETEX_SPILL_DIR":       "/tmp/x",
		"LIVETEX_ALLOWED_ORIGINS": "http://a, http://b ,",
		"LIVETEX_LOG_LEVEL":       "warn",
	}))
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}

	if cfg.Editor.QuietPeriod.Duration != 100*time.Millisecond {
		t.Errorf("QuietPeriod = %v", cfg.Editor.QuietPeriod)
	}
	if cfg.Compile.URL != "http://127.0.0.1:1/compile" {
		t.Errorf("Compile.URL = %q", cfg.Compile.URL)
	}
	if cfg.Lint.Enabled {
		t.Error("lint should be disabled by env")
	}
	if cfg.Artifact.SpillDir != "/tmp/x" {
		t.Errorf("SpillDir = %q", cfg.Artifact.SpillDir)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestApplyEnv_BadValue(t *testing.T) {
	_, err := LoadWithEnv("", envMap(map[string]string{"LIVETEX_COMPILE_TIMEOUT": "forever"}))
	var ee *EnvError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *EnvError", err)
	}
	if ee.Var != "LIVETEX_COMPILE_TIMEOUT" {
		t.Errorf("Var = %q", ee.Var)
	}
}

func TestEnvVars(t *testing.T) {
	vars := EnvVars()
	if vars["LIVETEX_COMPILE_URL"] != "compile.url" {
		t.Errorf("LIVETEX_COMPILE_URL maps to %q", vars["LIVETEX_COMPILE_URL"])
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"zero quiet period", func(c *Config) { c.Editor.QuietPeriod.Duration = 0 }, "editor.quiet_period"},
		{"bad compile scheme", func(c *Config) { c.Compile.URL = "ftp://x/compile" }, "compile.url"},
		{"missing host", func(c *Config) { c.Compile.URL = "http:///compile" }, "compile.url"},
		{"empty engine", func(c *Config) { c.Compile.Engine = " " }, "compile.engine"},
		{"bad lint url", func(c *Config) { c.Lint.URL = "lint" }, "lint.url"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrValidationFailed) {
				t.Fatalf("err = %v, want ErrValidationFailed", err)
			}
			var ve *ValidationError
			if errors.As(err, &ve) && ve.Path != tt.path {
				t.Errorf("Path = %q, want %q", ve.Path, tt.path)
			}
		})
	}

	cfg := Default()
	cfg.Lint.Enabled = false
	cfg.Lint.URL = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled lint should skip url validation: %v", err)
	}
}
