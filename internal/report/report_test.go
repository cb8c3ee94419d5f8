package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/dshills/livetex/internal/artifact"
	"github.com/dshills/livetex/internal/lint"
	"github.com/dshills/livetex/internal/preview"
)

func TestPrinter_Diagnostics(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, WithFileName("main.tex"))

	p.Diagnostics(lint.NewSet(1, []lint.Diagnostic{
		{Line: 7, Column: 3, Message: "Undefined control sequence", Severity: lint.SeverityError},
		{Line: 2, Column: 10, Message: "Delete this space", Severity: lint.SeverityWarning, Code: "24"},
	}, 0))

	want := "main.tex:2:10: warning: Delete this space [24]\n" +
		"main.tex:7:3: error: Undefined control sequence\n" +
		"1 error, 1 warning\n"
	if buf.String() != want {
		t.Errorf("output =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestPrinter_NoDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).Diagnostics(nil)
	if buf.String() != "no diagnostics\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name     string
		items    []lint.Diagnostic
		expected string
	}{
		{"empty", nil, "no diagnostics"},
		{"warnings", []lint.Diagnostic{{Severity: lint.SeverityWarning}, {Severity: lint.SeverityWarning}}, "0 errors, 2 warnings"},
		{"with info", []lint.Diagnostic{{Severity: lint.SeverityInfo}}, "0 errors, 0 warnings, 1 message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summary(lint.NewSet(1, tt.items, 0)); got != tt.expected {
				t.Errorf("Summary = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPrinter_Notify(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.Notify(preview.Notification{
		Kind:    preview.CompileFailed,
		Message: preview.CompileFailedMessage,
		Err:     errors.New("compile returned 400 Bad Request"),
	})

	want := preview.CompileFailedMessage + "\n  compile returned 400 Bad Request\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestPrinter_Artifact(t *testing.T) {
	h, err := artifact.New(artifact.NewMemoryStore(), 3, "doc", bytes.Repeat([]byte("x"), 2048))
	if err != nil {
		t.Fatalf("artifact.New: %v", err)
	}
	defer h.Release()

	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.Artifact(h)
	p.Artifact(nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if want := "compiled #3 2.0 KiB " + h.Digest.Short(); lines[0] != want {
		t.Errorf("line = %q, want %q", lines[0], want)
	}
	if lines[1] != "preview cleared" {
		t.Errorf("line = %q", lines[1])
	}
}

func TestPrinter_ColorWrapsText(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, WithColor(true))
	p.Diagnostics(lint.NewSet(1, []lint.Diagnostic{{Line: 1, Column: 1, Message: "m", Severity: lint.SeverityError}}, 0))
	if !strings.Contains(buf.String(), "m\n") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is not a terminal")
	}
}
