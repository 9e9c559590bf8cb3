package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/cargo-intake/internal/schema"
)

func TestRunFixture_Pass(t *testing.T) {
	var out bytes.Buffer
	path := filepath.Join("..", "..", "internal", "replay", "testdata", "cargo_session.json")
	if err := runFixture(context.Background(), path, schema.Cargo(), false, &out); err != nil {
		t.Fatalf("runFixture: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "PASS") {
		t.Errorf("expected PASS, got:\n%s", out.String())
	}
}

func TestRunFixture_MismatchJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	body := `{
		"description": "wrong on purpose",
		"config": {"collaborator": "heuristic"},
		"steps": [{"id": "a", "op": "add"}],
		"expected_results": [{"id": "a", "len": 5}]
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := runFixture(context.Background(), path, schema.Cargo(), true, &out)
	var mm errMismatch
	if !errors.As(err, &mm) || int(mm) != 1 {
		t.Fatalf("expected 1 mismatch, got %v", err)
	}

	var rep report
	if err := json.Unmarshal(out.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(rep.Steps) != 1 || rep.Steps[0].Len != 2 {
		t.Errorf("unexpected steps: %+v", rep.Steps)
	}
}
