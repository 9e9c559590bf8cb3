package assist

import (
	"context"
	"strings"

	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/schema"
	"github.com/danielpatrickdp/cargo-intake/internal/suggest"
	"github.com/danielpatrickdp/cargo-intake/internal/validation"
)

// heavyWeight is the weight (kg) from which an item is treated as heavy.
const heavyWeight = 100

// #region heuristic
// Heuristic is the offline collaborator. It answers instantly from fixed
// rules and is the fallback once a remote service rate-limits the session.
type Heuristic struct {
	Plausibility validation.PlausibilityConfig
}

// NewHeuristic returns a heuristic collaborator with the default cargo
// plausibility thresholds.
func NewHeuristic() *Heuristic {
	return &Heuristic{Plausibility: validation.DefaultPlausibility()}
}

// Suggest proposes fragility, load bearing and temperature range. Heavy items
// get HIGH fragility and a higher load rating.
func (h *Heuristic) Suggest(ctx context.Context, rec record.Record, _ []record.Record) (map[string]suggest.Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := map[string]suggest.Suggestion{
		schema.KeyFragility: {
			Value: record.Text("MEDIUM"), Confidence: 0.85,
			Reasoning: "typical for general cargo",
		},
		schema.KeyLoadBear: {
			Value: record.Number(800), Confidence: 0.78,
			Reasoning: "standard rating for similar items",
		},
		schema.KeyTempSensitivity: {
			Value: record.Text("5°C to 35°C"), Confidence: 0.82,
			Reasoning: "common range for general cargo",
		},
	}
	if isHeavy(rec) {
		out[schema.KeyFragility] = suggest.Suggestion{
			Value: record.Text("HIGH"), Confidence: 0.85,
			Reasoning: "heavy items are handled as high fragility",
		}
		out[schema.KeyLoadBear] = suggest.Suggestion{
			Value: record.Number(2000), Confidence: 0.78,
			Reasoning: "heavy items usually carry more load",
		}
	}
	return out, nil
}

// Validate runs the plausibility checks and flags heavy items marked LOW
// fragility.
func (h *Heuristic) Validate(ctx context.Context, rec record.Record) ([]validation.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	issues := validation.Plausibility(rec, h.Plausibility)
	if w, ok := rec.Get(schema.KeyWeight).Float(); ok && w >= heavyWeight &&
		strings.EqualFold(strings.TrimSpace(rec.Get(schema.KeyFragility).String()), "LOW") {
		issues = append(issues, validation.Issue{
			Field:      schema.KeyFragility,
			Severity:   validation.SeverityWarning,
			Message:    "Heavy items typically have higher fragility",
			Confidence: 0.82,
		})
	}
	return issues, nil
}

func isHeavy(rec record.Record) bool {
	if strings.Contains(rec.Get(schema.KeyName).String(), "Heavy") {
		return true
	}
	w, ok := rec.Get(schema.KeyWeight).Float()
	return ok && w >= heavyWeight
}

// #endregion heuristic
