// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container runs external conversion programs: containerized
// converters through docker or podman, and local tools such as pandoc and
// LibreOffice.
package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// ErrNoRuntime is returned by DetectRuntime when no container runtime works.
var ErrNoRuntime = errors.New("no container runtime available")

// Runtime runs converter images.
type Runtime interface {
	// Name returns the runtime binary name ("docker" or "podman").
	Name() string

	// Available reports whether the binary is on PATH and its daemon
	// answers an info command.
	Available(ctx context.Context) bool

	// ImageExists returns nil when image is present locally.
	ImageExists(ctx context.Context, image string) error

	// Run starts a throwaway container for spec and waits for it to exit.
	Run(ctx context.Context, spec RunSpec) error
}

// RunSpec describes one container invocation. The document is streamed
// on Stdin and the converted text read from Stdout; containers get no
// network.
type RunSpec struct {
	Image  string
	Stdin  io.Reader
	Stdout io.Writer

	// Args follow the image name and go to the entrypoint.
	Args []string
}

// invocation is one external command.
type invocation struct {
	bin    string
	args   []string
	stdin  io.Reader
	stdout io.Writer
}

func (inv invocation) String() string {
	return strings.TrimSpace(inv.bin + " " + strings.Join(inv.args, " "))
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Exec(ctx context.Context, inv invocation) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) Exec(ctx context.Context, inv invocation) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, inv.bin, inv.args...)
	cmd.Stdin = inv.stdin
	cmd.Stdout = inv.stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		if msg := stderrTail(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// stderrTail returns the last non-blank line of s, which is where
// converters put the actual failure.
func stderrTail(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

// flavor captures how one runtime binary differs from the others.
type flavor struct {
	bin        string
	imageCheck []string
}

// flavors lists the supported runtimes in detection order.
var flavors = []flavor{
	{bin: "docker", imageCheck: []string{"image", "inspect"}},
	{bin: "podman", imageCheck: []string{"image", "exists"}},
}

// runtime implements Runtime for one flavor.
type runtime struct {
	flavor
	exec executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available(ctx context.Context) bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.Exec(ctx, invocation{bin: r.bin, args: []string{"info"}}) == nil
}

func (r *runtime) ImageExists(ctx context.Context, image string) error {
	args := append(append([]string{}, r.imageCheck...), image)
	if err := r.exec.Exec(ctx, invocation{bin: r.bin, args: args}); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *runtime) Run(ctx context.Context, spec RunSpec) error {
	args := []string{"run", "--rm", "-i", "--network=none", spec.Image}
	args = append(args, spec.Args...)
	inv := invocation{bin: r.bin, args: args, stdin: spec.Stdin, stdout: spec.Stdout}
	if err := r.exec.Exec(ctx, inv); err != nil {
		return fmt.Errorf("running %s container %s: %w", r.bin, spec.Image, err)
	}
	return nil
}

var defaultExec executor = osExecutor{}

// DetectRuntime returns the first working runtime, docker before podman.
func DetectRuntime(ctx context.Context) (Runtime, error) {
	return detectRuntime(ctx, defaultExec)
}

func detectRuntime(ctx context.Context, exec executor) (Runtime, error) {
	tried := make([]string, 0, len(flavors))
	for _, f := range flavors {
		rt := &runtime{flavor: f, exec: exec}
		if rt.Available(ctx) {
			return rt, nil
		}
		tried = append(tried, f.bin)
	}
	return nil, fmt.Errorf("%w: tried %s", ErrNoRuntime, strings.Join(tried, ", "))
}
