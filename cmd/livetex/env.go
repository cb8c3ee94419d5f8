package main

import (
	"fmt"
	"io"

	"github.com/dshills/livetex/internal/artifact"
	"github.com/dshills/livetex/internal/compile"
	"github.com/dshills/livetex/internal/config"
	"github.com/dshills/livetex/internal/lint"
	"github.com/dshills/livetex/internal/logging"
	"github.com/dshills/livetex/internal/remote"
)

// environment carries global flags and output streams to commands.
type environment struct {
	configPath string
	logLevel   string
	stdout     io.Writer
	stderr     io.Writer
}

// load reads the configuration and builds the logger. The --log-level
// flag takes precedence over the configured level.
func (e *environment) load() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if e.logLevel != "" {
		if !logging.ValidLevel(e.logLevel) {
			return nil, nil, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", e.logLevel)
		}
		level = e.logLevel
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(level)
	logCfg.Output = e.stderr
	return cfg, logging.New(logCfg), nil
}

func newCompiler(cfg *config.Config) compile.Compiler {
	client := remote.NewClient("compile", cfg.Compile.URL,
		remote.WithTimeout(cfg.Compile.Timeout.Duration),
	)
	return compile.NewHTTPCompiler(client, cfg.Compile.Engine)
}

func newLinter(cfg *config.Config) *lint.HTTPLinter {
	client := remote.NewClient("lint", cfg.Lint.URL,
		remote.WithTimeout(cfg.Lint.Timeout.Duration),
	)
	return lint.NewHTTPLinter(client)
}

func newStore(cfg *config.Config) (artifact.Store, error) {
	if cfg.Artifact.SpillDir == "" {
		return artifact.NewMemoryStore(), nil
	}
	return artifact.NewDiskStore(cfg.Artifact.SpillDir)
}
