package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dshills/livetex/internal/artifact"
	"github.com/dshills/livetex/internal/compile"
	"github.com/dshills/livetex/internal/lint"
	"github.com/dshills/livetex/internal/preview"
	"github.com/dshills/livetex/internal/report"
	"github.com/dshills/livetex/internal/server"
	"github.com/dshills/livetex/internal/source"
)

// errLintErrors is returned by the lint command when the document has
// error-severity diagnostics.
var errLintErrors = errors.New("document has lint errors")

// WatchCmd watches a file and serves a live preview.
type WatchCmd struct {
	File     string `arg:"" help:"Document to watch" type:"existingfile"`
	Addr     string `help:"Preview server address (overrides server.addr)"`
	NoServer bool   `name:"no-server" help:"Only report to the terminal; do not start the preview server"`
}

// Run executes the watch command.
func (cmd *WatchCmd) Run(env *environment) error {
	cfg, logger, err := env.load()
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := server.NewHub(logger)
	go hub.Run()
	defer hub.Close()

	printer := report.NewPrinter(env.stdout, report.WithFileName(filepath.Base(cmd.File)))

	var linter lint.Linter
	if cfg.Lint.Enabled {
		linter = newLinter(cfg)
	}
	orch := preview.New(newCompiler(cfg), linter,
		preview.WithQuietPeriod(cfg.Editor.QuietPeriod.Duration),
		preview.WithStore(store),
		preview.WithNotifier(preview.MultiNotifier(hub, printer)),
		preview.WithLogger(logger),
	)
	defer func() {
		if err := orch.Close(); err != nil {
			logger.Error("close: %v", err)
		}
	}()

	unsubArtifacts := orch.Artifacts().Subscribe(printer.Artifact)
	defer unsubArtifacts()
	unsubDiagnostics := orch.Diagnostics().Subscribe(printer.Diagnostics)
	defer unsubDiagnostics()

	srv := server.New(orch, hub,
		server.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		server.WithLogger(logger),
	)
	defer srv.Close()

	src, err := source.NewFileSource(cmd.File, orch, source.WithLogger(logger))
	if err != nil {
		return err
	}
	defer src.Close()
	if err := src.Start(); err != nil {
		return err
	}
	logger.Info("watching %s", src.Path())

	if cmd.NoServer {
		<-ctx.Done()
		return nil
	}

	addr := cfg.Server.Addr
	if cmd.Addr != "" {
		addr = cmd.Addr
	}
	return srv.ListenAndServe(ctx, addr)
}

// CompileCmd compiles a document once and writes the result.
type CompileCmd struct {
	File   string `arg:"" help:"Document to compile" type:"existingfile"`
	Output string `short:"o" help:"Output path (default: input with .pdf extension)" type:"path"`
}

// Run executes the compile command.
func (cmd *CompileCmd) Run(env *environment) error {
	cfg, logger, err := env.load()
	if err != nil {
		return err
	}
	content, err := readDocument(cmd.File)
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	mgr := artifact.NewManager(artifact.WithLogger(logger))
	defer mgr.Close()

	p := compile.NewPipeline(newCompiler(cfg), mgr,
		compile.WithStore(store),
		compile.WithLogger(logger),
	)
	out := p.Submit(context.Background(), content)
	if out.Err != nil {
		report.NewPrinter(env.stderr).Notify(preview.Notification{
			Kind:    preview.CompileFailed,
			Seq:     out.Seq,
			Message: preview.CompileFailedMessage,
			Err:     out.Err,
		})
		return out.Err
	}

	dest := cmd.Output
	if dest == "" {
		dest = strings.TrimSuffix(cmd.File, filepath.Ext(cmd.File)) + ".pdf"
	}
	if err := writeArtifact(out.Handle, dest); err != nil {
		return err
	}
	fmt.Fprintf(env.stdout, "wrote %s\n", dest)
	return nil
}

// LintCmd lints a document once and prints its diagnostics.
type LintCmd struct {
	File string `arg:"" help:"Document to lint" type:"existingfile"`
}

// Run executes the lint command.
func (cmd *LintCmd) Run(env *environment) error {
	cfg, logger, err := env.load()
	if err != nil {
		return err
	}
	content, err := readDocument(cmd.File)
	if err != nil {
		return err
	}

	p := lint.NewPipeline(newLinter(cfg), lint.NewStore(), lint.WithLogger(logger))
	out := p.Submit(context.Background(), content)
	if out.Err != nil {
		return out.Err
	}

	report.NewPrinter(env.stdout, report.WithFileName(filepath.Base(cmd.File))).Diagnostics(out.Set)
	if out.Set.ErrorCount > 0 {
		return errLintErrors
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

// Run executes the version command.
func (cmd *VersionCmd) Run(env *environment) error {
	fmt.Fprintf(env.stdout, "livetex %s\n", version)
	fmt.Fprintf(env.stdout, "Commit: %s\n", commit)
	fmt.Fprintf(env.stdout, "Built: %s\n", date)
	return nil
}

func readDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%s: %w", path, preview.ErrEmptyInput)
	}
	return content, nil
}

func writeArtifact(h *artifact.Handle, dest string) error {
	rc, err := h.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
