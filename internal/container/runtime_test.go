// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExec answers LookPath from bins and Exec from ok, recording every
// invocation. When onExec is set it handles Exec instead.
type fakeExec struct {
	bins   map[string]bool
	ok     map[string]bool
	onExec func(inv invocation) error
	calls  []string
}

func (f *fakeExec) LookPath(file string) (string, error) {
	if f.bins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (f *fakeExec) Exec(_ context.Context, inv invocation) error {
	f.calls = append(f.calls, inv.String())
	if f.onExec != nil {
		return f.onExec(inv)
	}
	if f.ok[inv.String()] {
		return nil
	}
	return errors.New("exit status 1")
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name string
		bins map[string]bool
		ok   map[string]bool
		want string
	}{
		{"docker", map[string]bool{"docker": true}, map[string]bool{"docker info": true}, "docker"},
		{"podman when docker missing", map[string]bool{"podman": true}, map[string]bool{"podman info": true}, "podman"},
		{"podman when docker daemon down", map[string]bool{"docker": true, "podman": true}, map[string]bool{"podman info": true}, "podman"},
		{"docker preferred", map[string]bool{"docker": true, "podman": true}, map[string]bool{"docker info": true, "podman info": true}, "docker"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(context.Background(), &fakeExec{bins: tt.bins, ok: tt.ok})
			require.NoError(t, err)
			assert.Equal(t, tt.want, rt.Name())
		})
	}
}

func TestDetectRuntimeNone(t *testing.T) {
	fe := &fakeExec{}
	_, err := detectRuntime(context.Background(), fe)
	require.ErrorIs(t, err, ErrNoRuntime)
	assert.Contains(t, err.Error(), "docker, podman")
	assert.Empty(t, fe.calls, "info must not run for binaries missing from PATH")
}

func TestImageExists(t *testing.T) {
	const image = "markitdown:latest"
	tests := []struct {
		flavor  flavor
		command string
	}{
		{flavors[0], "docker image inspect markitdown:latest"},
		{flavors[1], "podman image exists markitdown:latest"},
	}
	for _, tt := range tests {
		t.Run(tt.flavor.bin, func(t *testing.T) {
			present := &runtime{flavor: tt.flavor, exec: &fakeExec{ok: map[string]bool{tt.command: true}}}
			assert.NoError(t, present.ImageExists(context.Background(), image))

			missing := &runtime{flavor: tt.flavor, exec: &fakeExec{}}
			err := missing.ImageExists(context.Background(), image)
			require.Error(t, err)
			assert.Contains(t, err.Error(), image)
			assert.Contains(t, err.Error(), tt.flavor.bin)
		})
	}
}

func TestRunStreamsDocument(t *testing.T) {
	fe := &fakeExec{onExec: func(inv invocation) error {
		data, err := io.ReadAll(inv.stdin)
		if err != nil {
			return err
		}
		_, err = io.WriteString(inv.stdout, "# "+string(data))
		return err
	}}
	rt := &runtime{flavor: flavors[0], exec: fe}

	var out bytes.Buffer
	err := rt.Run(context.Background(), RunSpec{
		Image:  "markitdown:latest",
		Stdin:  strings.NewReader("slides"),
		Stdout: &out,
		Args:   []string{"-x", ".pptx"},
	})
	require.NoError(t, err)
	assert.Equal(t, "# slides", out.String())
	require.Len(t, fe.calls, 1)
	assert.Equal(t, "docker run --rm -i --network=none markitdown:latest -x .pptx", fe.calls[0])
}

func TestRunError(t *testing.T) {
	fe := &fakeExec{onExec: func(invocation) error { return errors.New("exit status 2") }}
	rt := &runtime{flavor: flavors[1], exec: fe}

	err := rt.Run(context.Background(), RunSpec{Image: "markitdown:latest", Stdout: io.Discard})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "podman container markitdown:latest")
	assert.Contains(t, err.Error(), "exit status 2")
}

func TestStderrTail(t *testing.T) {
	assert.Equal(t, "ValueError: unsupported", stderrTail("Traceback:\n  File x\nValueError: unsupported\n\n"))
	assert.Equal(t, "", stderrTail("  \n"))
	assert.Equal(t, "single", stderrTail("single"))
}

func TestLookupTool(t *testing.T) {
	tests := []struct {
		name       string
		bins       map[string]bool
		candidates []string
		want       string
	}{
		{"first candidate", map[string]bool{"soffice": true, "libreoffice": true}, []string{"soffice", "libreoffice"}, "soffice"},
		{"second candidate", map[string]bool{"libreoffice": true}, []string{"soffice", "libreoffice"}, "libreoffice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool, err := lookupTool(&fakeExec{bins: tt.bins}, time.Second, tt.candidates...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tool.Name())
		})
	}

	_, err := lookupTool(&fakeExec{}, time.Second, "pandoc")
	assert.ErrorContains(t, err, "pandoc")
}

func TestToolRun(t *testing.T) {
	fe := &fakeExec{
		bins: map[string]bool{"pandoc": true},
		onExec: func(inv invocation) error {
			_, err := io.WriteString(inv.stdout, "# Title")
			return err
		},
	}
	tool, err := lookupTool(fe, time.Minute, "pandoc")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, tool.Run(context.Background(), &out, "-t", "gfm", "in.docx"))
	assert.Equal(t, "# Title", out.String())
	assert.Equal(t, []string{"/usr/bin/pandoc -t gfm in.docx"}, fe.calls)
}

func TestToolRunTimeout(t *testing.T) {
	fe := &fakeExec{
		bins: map[string]bool{"soffice": true},
		onExec: func(invocation) error {
			return context.DeadlineExceeded
		},
	}
	tool, err := lookupTool(fe, time.Millisecond, "soffice")
	require.NoError(t, err)

	err = tool.Run(context.Background(), io.Discard, "--headless")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "soffice")
}
