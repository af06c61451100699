// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Tool is a local command-line converter such as pandoc or soffice. Every
// invocation runs under a hard timeout.
type Tool struct {
	bin     string
	path    string
	timeout time.Duration
	exec    executor
}

// LookupTool returns the first of candidates found on PATH.
func LookupTool(timeout time.Duration, candidates ...string) (*Tool, error) {
	return lookupTool(defaultExec, timeout, candidates...)
}

func lookupTool(exec executor, timeout time.Duration, candidates ...string) (*Tool, error) {
	for _, bin := range candidates {
		if p, err := exec.LookPath(bin); err == nil {
			return &Tool{bin: bin, path: p, timeout: timeout, exec: exec}, nil
		}
	}
	return nil, fmt.Errorf("none of %v found on PATH", candidates)
}

// Name returns the binary name the tool was found under.
func (t *Tool) Name() string { return t.bin }

// Run executes the tool with args, writing its standard output to stdout.
func (t *Tool) Run(ctx context.Context, stdout io.Writer, args ...string) error {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	if err := t.exec.Exec(ctx, invocation{bin: t.path, args: args, stdout: stdout}); err != nil {
		return fmt.Errorf("running %s: %w", t.bin, err)
	}
	return nil
}
