package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/cargo-intake/internal/config"
	"github.com/danielpatrickdp/cargo-intake/internal/kv"
	"github.com/danielpatrickdp/cargo-intake/internal/logging"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Logging = logging.Config{Level: "error", Format: "json", OutputPath: "stderr"}
	cfg.KV = kv.Config{Backend: kv.BackendMemory}
	return cfg
}

func runScript(t *testing.T, cfg config.Config, script string) string {
	t.Helper()
	s, err := openSession(context.Background(), cfg, prometheus.NewRegistry())
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	var out bytes.Buffer
	require.NoError(t, s.repl(context.Background(), strings.NewReader(script), &out))
	return out.String()
}

func TestReplIdentityEditFillsAndSuggests(t *testing.T) {
	out := runScript(t, testConfig(t), "set 1 name Crate\nshow\nstats\nquit\n")

	assert.Contains(t, out, "row 1 name = Crate")
	assert.Contains(t, out, "ai filled fragility = MEDIUM")
	assert.Contains(t, out, "suggestion loadBear = 800 (medium, 0.78)")
	assert.Contains(t, out, "MEDIUM*")
	assert.Contains(t, out, "unique items: 1 | total items: 0")
}

func TestReplInvalidEditAndUndo(t *testing.T) {
	out := runScript(t, testConfig(t), "set 1 weight -5\nstatus\nundo\nundo\n")

	assert.Contains(t, out, "(invalid:")
	assert.Contains(t, out, "1 issue(s) across 1 item(s)")
	assert.Contains(t, out, "Item #1: weight")
	assert.Contains(t, out, "undone")
	assert.Contains(t, out, "error: nothing to undo")
}

func TestReplAcceptSuggestion(t *testing.T) {
	out := runScript(t, testConfig(t), "set 1 name Crate\naccept 1 loadBear\naccept 1 loadBear\n")

	assert.Contains(t, out, "row 1 loadBear = 800")
	assert.Contains(t, out, "error: no suggestion")
}

func TestReplErrors(t *testing.T) {
	out := runScript(t, testConfig(t), "frobnicate\nset 0 name x\nset 9 name x\nrm\nset 1 colour red\n")

	assert.Contains(t, out, `unknown command "frobnicate"`)
	assert.Contains(t, out, `bad row "0"`)
	assert.Contains(t, out, "out of range")
	assert.Contains(t, out, "usage: rm")
	assert.Contains(t, out, "unknown field")
}

func TestReplImportExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"name": "Box", "weight": 2, "quantity": 3},
		{"name": "", "weight": 9},
		{"name": "Heavy press", "fragility": "LOW"}
	]`), 0o644))

	out := runScript(t, testConfig(t), "import "+path+"\nexport\nfill\n")

	assert.Contains(t, out, "imported 2 row(s)")
	assert.Contains(t, out, `"name": "Heavy press"`)
	assert.Contains(t, out, `"fragility": "LOW"`, "filled cells are never overwritten")
	assert.Contains(t, out, "row 1 loadBear: 800 (medium)")
	assert.Contains(t, out, "row 2 loadBear: 2000 (medium)")
}

func TestSessionPersistsAcrossRestarts(t *testing.T) {
	cfg := testConfig(t)
	cfg.KV = kv.Config{Backend: kv.BackendSQLite, Path: filepath.Join(t.TempDir(), "cargo.db")}
	cfg.ProvenancePath = filepath.Join(t.TempDir(), "provenance.db")

	runScript(t, cfg, "set 1 name Pallet\nset 1 weight 12\n")
	out := runScript(t, cfg, "show\n")
	assert.Contains(t, out, "Pallet")

	sink, err := logging.OpenSQLiteSink(cfg.ProvenancePath)
	require.NoError(t, err)
	defer sink.Close()
	entries, err := sink.List(context.Background(), 50)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestOpenSessionRejectsUnknownAIMode(t *testing.T) {
	cfg := testConfig(t)
	cfg.AI.Mode = "smoke-signals"
	_, err := openSession(context.Background(), cfg, prometheus.NewRegistry())
	assert.Error(t, err)
}
