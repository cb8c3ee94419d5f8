// Package main is the entry point for livetex, a live LaTeX preview tool.
package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// CLI defines the command-line interface.
type CLI struct {
	Config   string `name:"config" short:"c" help:"Path to configuration file (.toml, .yaml)" type:"path"`
	LogLevel string `name:"log-level" help:"Log level (debug, info, warn, error)"`

	Watch   WatchCmd   `cmd:"" help:"Watch a document and serve a live preview"`
	Compile CompileCmd `cmd:"" help:"Compile a document once"`
	Lint    LintCmd    `cmd:"" help:"Lint a document once"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("livetex"),
		kong.Description("Live LaTeX preview: recompiles and lints a document as it changes."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	err := ctx.Run(cli.environment(os.Stdout, os.Stderr))
	ctx.FatalIfErrorf(err)
}

func (c *CLI) environment(stdout, stderr io.Writer) *environment {
	return &environment{
		configPath: c.Config,
		logLevel:   c.LogLevel,
		stdout:     stdout,
		stderr:     stderr,
	}
}
