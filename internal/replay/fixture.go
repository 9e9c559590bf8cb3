package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/suggest"
	"github.com/danielpatrickdp/cargo-intake/internal/validation"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string           `json:"description"`
	Start       []record.Record  `json:"start"`
	Config      FixtureConfig    `json:"config"`
	Script      Script           `json:"script"`
	Steps       []Step           `json:"steps"`
	Expected    []ExpectedResult `json:"expected_results"`
}

// FixtureConfig tunes the session a fixture runs in.
type FixtureConfig struct {
	HistoryLimit int                 `json:"history_limit"`
	Thresholds   *suggest.Thresholds `json:"thresholds"`
	// Collaborator is "heuristic" or "script". Empty means script.
	Collaborator string `json:"collaborator"`
}

// Step is one scripted operation: edit, add, remove, clear, undo, redo,
// accept or suggest_all.
type Step struct {
	ID      string       `json:"id"`
	Op      string       `json:"op"`
	Index   int          `json:"index"`
	Indices []int        `json:"indices"`
	Field   string       `json:"field"`
	Value   record.Value `json:"value"`
}

// ExpectedResult describes the session after one step. Zero-valued counts
// are checked too; cells are checked only when listed.
type ExpectedResult struct {
	ID         string         `json:"id"`
	Error      bool           `json:"error"`
	Len        int            `json:"len"`
	Identified int            `json:"identified"`
	Issues     int            `json:"issues"`
	Cells      []ExpectedCell `json:"cells"`
}

// ExpectedCell pins one cell's value and, optionally, its AI-filled mark.
type ExpectedCell struct {
	Row      int          `json:"row"`
	Field    string       `json:"field"`
	Value    record.Value `json:"value"`
	AIFilled *bool        `json:"ai_filled"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	for name, issues := range f.Script.Issues {
		for _, is := range issues {
			if _, err := validation.ParseSeverity(string(is.Severity)); err != nil {
				return nil, fmt.Errorf("fixture %s: issue for %q: %w", path, name, err)
			}
		}
	}
	return &f, nil
}

// ToConfig converts a FixtureConfig to a run configuration.
func (fc *FixtureConfig) ToConfig() Config {
	cfg := DefaultConfig()
	if fc.HistoryLimit > 0 {
		cfg.HistoryLimit = fc.HistoryLimit
	}
	if fc.Thresholds != nil {
		cfg.Thresholds = *fc.Thresholds
	}
	return cfg
}

// #endregion fixture-loader
