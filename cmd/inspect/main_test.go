package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danielpatrickdp/cargo-intake/internal/config"
	"github.com/danielpatrickdp/cargo-intake/internal/kv"
	"github.com/danielpatrickdp/cargo-intake/internal/logging"
	"github.com/danielpatrickdp/cargo-intake/internal/persist"
	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/schema"
)

func seed(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.KV = kv.Config{Backend: kv.BackendSQLite, Path: filepath.Join(dir, "cargo.db")}
	cfg.ProvenancePath = filepath.Join(dir, "provenance.db")
	ctx := context.Background()

	backend, err := kv.Open(cfg.KV)
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	err = persist.New(backend, schema.Cargo()).Save(ctx, record.List{
		{schema.KeyName: record.Text("Crate"), schema.KeyWeight: record.Number(4), schema.KeyQuantity: record.Number(2)},
		{schema.KeyName: record.Text("Drum"), schema.KeyWeight: record.Number(-1), schema.KeyQuantity: record.Number(1)},
	})
	backend.Close()
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	sink, err := logging.OpenSQLiteSink(cfg.ProvenancePath)
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}
	defer sink.Close()
	for i, row := range []int{0, 1, 0} {
		err := sink.Record(ctx, logging.ProvenanceEntry{
			SessionID: "s", RequestID: "r", RowIndex: row, Field: schema.KeyFragility,
			Decision: logging.DecisionAutofill, Confidence: 0.9, Value: "LOW",
			CreatedAt: time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	return cfg
}

func TestInspect_JSON(t *testing.T) {
	cfg := seed(t)
	var buf bytes.Buffer
	if err := run(context.Background(), cfg, options{last: 20, row: 1, jsonOut: true}, &buf); err != nil {
		t.Fatalf("run: %v", err)
	}

	var out struct {
		Records []map[string]any `json:"records"`
		Status  struct {
			TotalIssues int `json:"total_issues"`
		} `json:"status"`
		Stats struct {
			TotalWeight float64 `json:"total_weight"`
		} `json:"stats"`
		Provenance []logging.ProvenanceEntry `json:"provenance"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if len(out.Records) != 2 {
		t.Errorf("expected 2 records, got %d", len(out.Records))
	}
	if out.Stats.TotalWeight != 7 {
		t.Errorf("expected total weight 7, got %v", out.Stats.TotalWeight)
	}
	if out.Status.TotalIssues == 0 {
		t.Error("expected validation issues for the loaded rows")
	}
	if len(out.Provenance) != 2 {
		t.Errorf("expected 2 decisions for row 1, got %d", len(out.Provenance))
	}
}

func TestInspect_Table(t *testing.T) {
	cfg := seed(t)
	var buf bytes.Buffer
	if err := run(context.Background(), cfg, options{last: 1}, &buf); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := buf.String()
	for _, want := range []string{"Crate", "Drum", "Items: 2 unique, 3 total", "Issues (", "autofill"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output:\n%s", want, text)
		}
	}
}

func TestInspect_Empty(t *testing.T) {
	cfg := config.Default()
	cfg.KV = kv.Config{Backend: kv.BackendMemory}
	var buf bytes.Buffer
	if err := run(context.Background(), cfg, options{last: 5}, &buf); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(buf.String(), "no saved records") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}
