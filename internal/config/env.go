package config

import (
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is the prefix of every environment variable livetex reads.
const EnvPrefix = "LIVETEX_"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type envSetting struct {
	path  string
	apply func(cfg *Config, value string) error
}

// envMapping returns the environment variable to setting mappings.
func envMapping() map[string]envSetting {
	return map[string]envSetting{
		"LIVETEX_QUIET_PERIOD": {"editor.quiet_period", func(c *Config, v string) error {
			return setDuration(&c.Editor.QuietPeriod, v)
		}},
		"LIVETEX_COMPILE_URL": {"compile.url", func(c *Config, v string) error {
			c.Compile.URL = v
			return nil
		}},
		"LIVETEX_COMPILE_ENGINE": {"compile.engine", func(c *Config, v string) error {
			c.Compile.Engine = v
			return nil
		}},
		"LIVETEX_COMPILE_TIMEOUT": {"compile.timeout", func(c *Config, v string) error {
			return setDuration(&c.Compile.Timeout, v)
		}},
		"LIVETEX_LINT_ENABLED": {"lint.enabled", func(c *Config, v string) error {
			b, err := parseBool(v)
			if err != nil {
				return err
			}
			c.Lint.Enabled = b
			return nil
		}},
		"LIVETEX_LINT_URL": {"lint.url", func(c *Config, v string) error {
			c.Lint.URL = v
			return nil
		}},
		"LIVETEX_LINT_TIMEOUT": {"lint.timeout", func(c *Config, v string) error {
			return setDuration(&c.Lint.Timeout, v)
		}},
		"LIVETEX_SPILL_DIR": {"artifact.spill_dir", func(c *Config, v string) error {
			c.Artifact.SpillDir = v
			return nil
		}},
		"LIVETEX_SERVER_ADDR": {"server.addr", func(c *Config, v string) error {
			c.Server.Addr = v
			return nil
		}},
		"LIVETEX_ALLOWED_ORIGINS": {"server.allowed_origins", func(c *Config, v string) error {
			c.Server.AllowedOrigins = splitList(v)
			return nil
		}},
		"LIVETEX_LOG_LEVEL": {"log.level", func(c *Config, v string) error {
			c.Log.Level = v
			return nil
		}},
	}
}

// EnvVars returns the recognized environment variables and the setting
// path each one overrides.
func EnvVars() map[string]string {
	out := make(map[string]string)
	for name, s := range envMapping() {
		out[name] = s.path
	}
	return out
}

// ApplyEnv overrides cfg with any recognized LIVETEX_* variables.
// Empty values are treated as set.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if lookup == nil {
		return nil
	}
	for name, s := range envMapping() {
		val, ok := lookup(name)
		if !ok {
			continue
		}
		if err := s.apply(cfg, val); err != nil {
			return &EnvError{Var: name, Err: err}
		}
	}
	return nil
}

func setDuration(d *Duration, v string) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
