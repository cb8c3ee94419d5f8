// Package report prints diagnostics, artifact changes, and failure
// notifications to a terminal.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/dshills/livetex/internal/artifact"
	"github.com/dshills/livetex/internal/lint"
	"github.com/dshills/livetex/internal/preview"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	posStyle     = lipgloss.NewStyle().Bold(true)
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
)

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Printer writes human-readable reports. It is safe for concurrent use.
type Printer struct {
	mu    sync.Mutex
	out   io.Writer
	color bool
	name  string
}

// Option configures a Printer.
type Option func(*Printer)

// WithColor forces styled output on or off.
func WithColor(on bool) Option {
	return func(p *Printer) {
		p.color = on
	}
}

// WithFileName prefixes diagnostic positions with name.
func WithFileName(name string) Option {
	return func(p *Printer) {
		p.name = name
	}
}

// NewPrinter creates a printer for out. Styling is enabled when out is a
// terminal unless overridden with WithColor.
func NewPrinter(out io.Writer, opts ...Option) *Printer {
	p := &Printer{
		out:   out,
		color: IsTerminal(out),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *Printer) severity(sev lint.Severity) string {
	switch sev {
	case lint.SeverityError:
		return p.style(errorStyle, sev.String())
	case lint.SeverityWarning:
		return p.style(warningStyle, sev.String())
	default:
		return p.style(infoStyle, sev.String())
	}
}

// Diagnostics prints every diagnostic in set followed by a summary line.
func (p *Printer) Diagnostics(set *lint.Set) {
	var b strings.Builder
	if set != nil {
		for _, d := range set.Diagnostics {
			pos := fmt.Sprintf("%d:%d", d.Line, d.Column)
			if p.name != "" {
				pos = p.name + ":" + pos
			}
			fmt.Fprintf(&b, "%s: %s: %s", p.style(posStyle, pos), p.severity(d.Severity), d.Message)
			if d.Code != "" {
				fmt.Fprintf(&b, " %s", p.style(detailStyle, "["+d.Code+"]"))
			}
			b.WriteByte('\n')
		}
	}
	b.WriteString(p.summary(set))
	b.WriteByte('\n')
	p.write(b.String())
}

func (p *Printer) summary(set *lint.Set) string {
	if set.Len() == 0 {
		return p.style(okStyle, "no diagnostics")
	}
	parts := []string{
		plural(set.ErrorCount, "error"),
		plural(set.WarningCount, "warning"),
	}
	if set.InfoCount > 0 {
		parts = append(parts, plural(set.InfoCount, "message"))
	}
	text := strings.Join(parts, ", ")
	if set.ErrorCount > 0 {
		return p.style(errorStyle, text)
	}
	return p.style(warningStyle, text)
}

// Summary returns the one-line summary for set without styling.
func Summary(set *lint.Set) string {
	return (&Printer{}).summary(set)
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// Artifact prints a line for a newly published artifact. A nil handle
// means the artifact was cleared.
func (p *Printer) Artifact(h *artifact.Handle) {
	if h == nil {
		p.write(p.style(detailStyle, "preview cleared") + "\n")
		return
	}
	p.write(fmt.Sprintf("%s #%d %s %s\n",
		p.style(okStyle, "compiled"),
		h.Seq,
		formatSize(h.Size()),
		p.style(detailStyle, h.Digest.Short()),
	))
}

// Notify implements preview.Notifier.
func (p *Printer) Notify(n preview.Notification) {
	line := p.style(errorStyle, n.Message)
	if n.Kind == preview.LintFailed {
		line = p.style(warningStyle, n.Message)
	}
	if n.Err != nil {
		line += "\n  " + p.style(detailStyle, n.Err.Error())
	}
	p.write(line + "\n")
}

func (p *Printer) write(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.out, s)
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
