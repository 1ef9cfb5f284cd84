package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/arterialgo/internal/cli"
	"github.com/vk/arterialgo/internal/testutil"
)

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	// A settings file with a syntax error makes app.NewApp panic while loading.
	dir := testutil.WriteFiles(t, map[string]string{
		"settings.hcl": "input_signal {\n  frequency = 1\n",
		"segments.hcl": testutil.SegmentsHCL,
	})
	out := &bytes.Buffer{}

	runErr := run(out, []string{"--log-level", "error", dir})

	require.Error(t, runErr, "run() should have returned an error after recovering from a panic")
	assert.Contains(t, runErr.Error(), "application startup panicked")
	assert.Contains(t, runErr.Error(), "failed to parse")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	assert.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, []string{"--this-is-not-a-valid-flag"})

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, err.Error(), "unknown flag: --this-is-not-a-valid-flag")
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	dir := testutil.DataDir(t)
	db := filepath.Join(t.TempDir(), "results.db")
	settings := filepath.Join(dir, "settings.hcl")
	content, err := os.ReadFile(settings)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(settings,
		bytes.Replace(content, []byte("save_results = false"), []byte("save_results = true"), 1), 0o644))

	out := &bytes.Buffer{}
	require.NoError(t, run(out, []string{"--log-level", "error", "--database", db, dir}))
	assert.Contains(t, out.String(), "SEGMENT")

	out.Reset()
	require.NoError(t, run(out, []string{"runs", "--log-level", "error", "--database", db}))
	assert.Contains(t, out.String(), "simulation_output_001")

	out.Reset()
	require.NoError(t, run(out, []string{"debugdb", "--log-level", "error", "--database", db, "--format", "yaml"}))
	assert.Contains(t, out.String(), "run: simulation_output_001")

	out.Reset()
	require.NoError(t, run(out, []string{"report", "--log-level", "error", dir}))
	assert.Contains(t, out.String(), "diagram arterial_network")
}
