package suggest

import (
	"context"

	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/store"
	"github.com/danielpatrickdp/cargo-intake/internal/validation"
)

// Suggestion is a value proposed for one cell.
type Suggestion = store.Suggestion

// #region client
// Client is the AI collaborator. Both calls may block on the network and may
// be invoked concurrently.
type Client interface {
	// Suggest proposes values for the AI-assisted fields of rec. others holds
	// other fully populated rows, in list order.
	Suggest(ctx context.Context, rec record.Record, others []record.Record) (map[string]Suggestion, error)
	// Validate returns advisory findings about rec.
	Validate(ctx context.Context, rec record.Record) ([]validation.Issue, error)
}

// #endregion client

// #region confidence
// Level buckets a confidence score for display.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// Thresholds are the confidence cut-offs. High is also the auto-fill gate.
type Thresholds struct {
	High   float64 `yaml:"high" validate:"gte=0,lte=1,gtefield=Medium"`
	Medium float64 `yaml:"medium" validate:"gte=0,lte=1"`
}

// DefaultThresholds returns high 0.85, medium 0.5.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.85, Medium: 0.5}
}

// Level classifies conf.
func (t Thresholds) Level(conf float64) Level {
	switch {
	case conf >= t.High:
		return LevelHigh
	case conf >= t.Medium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// AutoFill reports whether a suggestion is confident enough to be written
// into an empty cell without review.
func (t Thresholds) AutoFill(s Suggestion) bool {
	return s.Confidence >= t.High
}

// LevelOf classifies conf with the default thresholds.
func LevelOf(conf float64) Level {
	return DefaultThresholds().Level(conf)
}

// #endregion confidence
