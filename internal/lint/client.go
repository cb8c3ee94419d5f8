package lint

import (
	"context"

	"github.com/dshills/livetex/internal/remote"
)

// Linter produces diagnostics for document content.
type Linter interface {
	Lint(ctx context.Context, content string) ([]Diagnostic, error)
}

// LinterFunc adapts a function to Linter.
type LinterFunc func(ctx context.Context, content string) ([]Diagnostic, error)

// Lint implements Linter.
func (f LinterFunc) Lint(ctx context.Context, content string) ([]Diagnostic, error) {
	return f(ctx, content)
}

type request struct {
	Code string `json:"code"`
}

// warning is one entry of the lint service response.
type warning struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type response struct {
	Warnings []warning `json:"warnings"`
}

// HTTPLinter calls a remote lint service.
type HTTPLinter struct {
	client *remote.Client
}

// NewHTTPLinter creates a linter that posts to client's endpoint.
func NewHTTPLinter(client *remote.Client) *HTTPLinter {
	return &HTTPLinter{client: client}
}

// Lint implements Linter.
func (l *HTTPLinter) Lint(ctx context.Context, content string) ([]Diagnostic, error) {
	var resp response
	if err := l.client.PostJSONDecode(ctx, request{Code: content}, &resp); err != nil {
		return nil, err
	}

	out := make([]Diagnostic, 0, len(resp.Warnings))
	for _, w := range resp.Warnings {
		out = append(out, Diagnostic{
			Line:     w.Line,
			Column:   w.Col,
			Message:  w.Message,
			Severity: ParseSeverity(w.Kind),
			Code:     w.Code,
		})
	}
	return out, nil
}
