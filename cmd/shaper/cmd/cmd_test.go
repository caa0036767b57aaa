package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/shaper/pkg/shaper/inference"
)

type harness struct {
	t       *testing.T
	dir     string
	db      string
	samples string
	stderr  string // of the last run
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	samples := filepath.Join(dir, "samples.jsonl")
	require.NoError(t, os.WriteFile(samples, []byte(`{"text":"poopa","label":"poop"}
{"text":"loopa","label":"loop"}
{"text":"loopa doopa","label":"loop"}
`), 0o644))
	return &harness{t: t, dir: dir, db: filepath.Join(dir, "model.db"), samples: samples}
}

// run executes the CLI against the harness store.
func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--db", h.db, "--log-level", "warn"}, args...))
	err := root.ExecuteContext(context.Background())
	h.stderr = errOut.String()
	return out.String(), err
}

func TestLearnThenClassify(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("", "learn", "--input", h.samples)
	require.NoError(t, err)
	assert.Contains(t, out, "learned 3 samples into 3 levels (converged)")
	assert.Contains(t, out, "level 0: 0 chars, 3 patterns, 6 elements, 7 pairs")
	assert.Contains(t, out, "level 1: 1 chars, 2 patterns")

	out, err = h.run("", "classify", "poopa", "poopa loopa", "loopa moopa")
	require.NoError(t, err)
	assert.Equal(t, "poop\nloop\nunknown\n", out)
}

func TestLearnLogsSkippedSamples(t *testing.T) {
	h := newHarness(t)
	input := filepath.Join(h.dir, "partial.jsonl")
	require.NoError(t, os.WriteFile(input, []byte(`{"text":"poopa","label":"poop"}
{"text":"unlabelled"}
`), 0o644))

	_, err := h.run("", "learn", "--input", input)
	require.NoError(t, err)
	assert.Contains(t, h.stderr, "skipping sample without label")

	_, err = h.run("", "--log-level", "error", "learn", "--input", input)
	require.NoError(t, err)
	assert.NotContains(t, h.stderr, "skipping")
}

func TestClassifyFromStdinAndFile(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "learn", "--input", h.samples)
	require.NoError(t, err)

	out, err := h.run("loopa\nzzz\n", "classify", "--workers", "2")
	require.NoError(t, err)
	assert.Equal(t, "loopa\tloop\nzzz\tunknown\n", out)

	cells := filepath.Join(h.dir, "cells.csv")
	require.NoError(t, os.WriteFile(cells, []byte("poopa,loopa doopa\n"), 0o644))
	out, err = h.run("", "classify", "--input", cells)
	require.NoError(t, err)
	assert.Equal(t, "poopa\tpoop\nloopa doopa\tloop\n", out)
}

func TestExplainPrintsTrace(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "learn", "--input", h.samples)
	require.NoError(t, err)

	out, err := h.run("", "explain", "poopa loopa")
	require.NoError(t, err)
	var tr inference.Trace
	require.NoError(t, json.Unmarshal([]byte(out), &tr))
	assert.Equal(t, "loop", tr.Label)
	assert.Equal(t, inference.ReasonMatch, tr.Reason)
	assert.Len(t, tr.Steps, 2)
}

func TestStats(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("", "stats")
	require.NoError(t, err)
	assert.Equal(t, "no model\n", out)

	_, err = h.run("", "learn", "--input", h.samples)
	require.NoError(t, err)
	out, err = h.run("", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "samples: 3, labels: 2")
	assert.Contains(t, out, "top labels: loop (2), poop (1)")
	assert.Contains(t, out, "LEVEL")

	out, err = h.run("", "stats", "--top", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "top labels: loop (2)\n")

	out, err = h.run("", "stats", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"levels"`)
}

func TestResetAsksFirst(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "learn", "--input", h.samples)
	require.NoError(t, err)

	out, err := h.run("n\n", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "cancelled")

	out, err = h.run("", "classify", "poopa")
	require.NoError(t, err)
	assert.Equal(t, "poop\n", out)

	out, err = h.run("", "reset", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "model deleted")

	out, err = h.run("", "classify", "poopa")
	require.NoError(t, err)
	assert.Equal(t, "unknown\n", out)
}

func TestConfigFileAndErrors(t *testing.T) {
	h := newHarness(t)

	cfg := filepath.Join(h.dir, "shaper.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("store: {driver: bolt, path: "+filepath.Join(h.dir, "m.bolt")+"}\n"), 0o644))
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--config", cfg, "learn", "--input", h.samples})
	require.NoError(t, root.ExecuteContext(context.Background()))
	_, err := os.Stat(filepath.Join(h.dir, "m.bolt"))
	assert.NoError(t, err)

	_, err = h.run("", "learn")
	assert.Error(t, err, "--input is required")

	_, err = h.run("", "--store", "mongo", "stats")
	assert.Error(t, err)

	empty := filepath.Join(h.dir, "empty.jsonl")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o644))
	_, err = h.run("", "learn", "--input", empty)
	assert.Error(t, err)
}
