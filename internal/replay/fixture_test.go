package replay

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/cargo-intake/internal/schema"
)

// #region fixture-tests

// TestFixture_CargoSession replays the recorded session and compares every
// step with its expectation. Any change to validation, history or the AI
// apply path that alters observable behaviour shows up here.
func TestFixture_CargoSession(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "cargo_session.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	results, summary := Replay(context.Background(), schema.Cargo(), f.Start, f.Steps, &f.Script, f.Config.ToConfig())

	for _, d := range Check(results, f.Expected) {
		t.Error(d)
	}
	if summary.TotalSteps != len(f.Steps) {
		t.Errorf("expected %d steps, got %d", len(f.Steps), summary.TotalSteps)
	}
	if summary.Errors != 1 {
		t.Errorf("expected 1 failed step, got %d", summary.Errors)
	}
	if len(summary.Final) != 0 {
		t.Errorf("expected empty list after clear, got %d rows", len(summary.Final))
	}
}

func TestLoadFixture_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFixture(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFixture(bad); err == nil {
		t.Error("expected error for malformed JSON")
	}

	sev := filepath.Join(dir, "severity.json")
	body := `{"script":{"issues":{"Box":[{"field":"weight","severity":"fatal","message":"x"}]}}}`
	if err := os.WriteFile(sev, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFixture(sev)
	if err == nil || !strings.Contains(err.Error(), "fatal") {
		t.Errorf("expected unknown severity error, got %v", err)
	}
}

func TestFixtureConfig_ToConfig(t *testing.T) {
	var fc FixtureConfig
	cfg := fc.ToConfig()
	if cfg.HistoryLimit != 50 {
		t.Errorf("expected default history limit 50, got %d", cfg.HistoryLimit)
	}
	if cfg.Thresholds.High != 0.85 {
		t.Errorf("expected default high threshold, got %v", cfg.Thresholds.High)
	}

	fc.HistoryLimit = 3
	cfg = fc.ToConfig()
	if cfg.HistoryLimit != 3 {
		t.Errorf("expected history limit 3, got %d", cfg.HistoryLimit)
	}
}

// #endregion fixture-tests
