package compile

import (
	"context"

	"github.com/dshills/livetex/internal/remote"
)

// Compiler turns document content into a binary artifact.
type Compiler interface {
	Compile(ctx context.Context, content string) ([]byte, error)
}

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(ctx context.Context, content string) ([]byte, error)

// Compile implements Compiler.
func (f CompilerFunc) Compile(ctx context.Context, content string) ([]byte, error) {
	return f(ctx, content)
}

// request is the compile service request body.
type request struct {
	Code   string `json:"code"`
	Engine string `json:"engine,omitempty"`
}

// HTTPCompiler calls a remote compile service.
type HTTPCompiler struct {
	client *remote.Client
	engine string
}

// NewHTTPCompiler creates a compiler that posts to client's endpoint using
// the named TeX engine. An empty engine lets the service choose.
func NewHTTPCompiler(client *remote.Client, engine string) *HTTPCompiler {
	return &HTTPCompiler{client: client, engine: engine}
}

// Compile implements Compiler.
func (c *HTTPCompiler) Compile(ctx context.Context, content string) ([]byte, error) {
	resp, err := c.client.PostJSON(ctx, request{Code: content, Engine: c.engine})
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return nil, ErrEmptyArtifact
	}
	return resp.Body, nil
}
