package validation

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/cargo-intake/internal/record"
)

// #region plausibility
// Plausibility runs the advisory cross-field checks on a record. Each check
// only runs when the sibling fields it reads are populated; none of them is a
// hard rule, so every issue is a warning.
func Plausibility(r record.Record, cfg PlausibilityConfig) []Issue {
	var issues []Issue

	l, lok := positive(r, cfg.LengthKey)
	w, wok := positive(r, cfg.WidthKey)
	h, hok := positive(r, cfg.HeightKey)
	dims := lok && wok && hok

	// 1. Dimension ratios
	if dims && cfg.MaxDimensionRatio > 0 {
		pairs := []struct {
			a, b   float64
			field  string
			naming string
		}{
			{l, w, cfg.WidthKey, "Length to width"},
			{l, h, cfg.HeightKey, "Length to height"},
			{w, h, cfg.HeightKey, "Width to height"},
		}
		for _, p := range pairs {
			if ratio(p.a, p.b) > cfg.MaxDimensionRatio {
				issues = append(issues, Issue{
					Field:      p.field,
					Severity:   SeverityWarning,
					Message:    fmt.Sprintf("%s ratio seems unusual, please verify dimensions", p.naming),
					Confidence: 0.8,
				})
			}
		}
	}

	// 2. Density band
	if weight, ok := positive(r, cfg.WeightKey); ok && dims {
		density := weight / (l * w * h)
		switch {
		case cfg.MaxDensity > 0 && density > cfg.MaxDensity:
			issues = append(issues, Issue{
				Field:      cfg.WeightKey,
				Severity:   SeverityWarning,
				Message:    fmt.Sprintf("weight seems very high for this volume (%.0f kg/m³)", density),
				Confidence: 0.9,
			})
		case density < cfg.MinDensity && weight > cfg.MinDensityWeight:
			issues = append(issues, Issue{
				Field:      cfg.WeightKey,
				Severity:   SeverityWarning,
				Message:    fmt.Sprintf("weight seems very low for this volume (%.0f kg/m³)", density),
				Confidence: 0.8,
			})
		}
	}

	// 3. Fragile items advertising load capacity
	frag := strings.TrimSpace(r.Get(cfg.FragilityKey).String())
	if cfg.HighFragility != "" && frag == cfg.HighFragility {
		if lb, ok := positive(r, cfg.LoadBearKey); ok && lb > 0 {
			issues = append(issues, Issue{
				Field:      cfg.LoadBearKey,
				Severity:   SeverityWarning,
				Message:    "high fragility items typically should not bear significant loads",
				Confidence: 0.85,
			})
		}
	}

	return issues
}

// #endregion plausibility

// #region helpers
func positive(r record.Record, key string) (float64, bool) {
	if key == "" {
		return 0, false
	}
	f, ok := r.Get(key).Float()
	if !ok || f <= 0 {
		return 0, false
	}
	return f, true
}

// ratio returns the larger of a/b and b/a.
func ratio(a, b float64) float64 {
	if a > b {
		return a / b
	}
	return b / a
}

// #endregion helpers
