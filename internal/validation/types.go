package validation

import "fmt"

// #region code
// Code names the rule that produced a Result.
type Code string

const (
	CodeNone     Code = ""
	CodeRequired Code = "required"
	CodeType     Code = "type"
	CodeRange    Code = "range"
	CodeEnum     Code = "enum"
	CodePattern  Code = "pattern"
	CodeAdvisory Code = "advisory"
)

// #endregion code

// #region result
// Result is the validation state of one cell.
type Result struct {
	Valid      bool     `json:"valid"`
	Warning    bool     `json:"warning,omitempty"`
	Message    string   `json:"message,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Code       Code     `json:"code,omitempty"`
}

// OK is the result of a value that passed every rule.
func OK() Result { return Result{Valid: true} }

func invalid(code Code, msg string) Result {
	return Result{Valid: false, Message: msg, Code: code}
}

// Terminal reports whether the result is a required-field violation, which
// advisory issues may not override.
func (r Result) Terminal() bool {
	return !r.Valid && r.Code == CodeRequired
}

// #endregion result

// #region severity
// Severity grades an advisory issue.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ParseSeverity maps collaborator strings onto a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityWarning, SeverityError:
		return Severity(s), nil
	default:
		return "", fmt.Errorf("unknown severity %q", s)
	}
}

// #endregion severity

// #region issue
// Issue is an advisory finding about one field of a record, from the AI
// collaborator or the local plausibility checks.
type Issue struct {
	Field      string   `json:"field"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Confidence float64  `json:"confidence"`
}

// #endregion issue

// #region plausibility-config
// PlausibilityConfig names the fields and thresholds of the cross-field
// checks.
type PlausibilityConfig struct {
	LengthKey    string
	WidthKey     string
	HeightKey    string
	WeightKey    string
	FragilityKey string
	LoadBearKey  string

	MaxDimensionRatio float64 // flag any dimension pair above this ratio
	MinDensity        float64 // kg/m³, only when weight exceeds MinDensityWeight
	MinDensityWeight  float64
	MaxDensity        float64 // kg/m³
	HighFragility     string  // fragility value that must not bear load
}

// DefaultPlausibility returns the cargo thresholds.
func DefaultPlausibility() PlausibilityConfig {
	return PlausibilityConfig{
		LengthKey:         "length",
		WidthKey:          "width",
		HeightKey:         "height",
		WeightKey:         "weight",
		FragilityKey:      "fragility",
		LoadBearKey:       "loadBear",
		MaxDimensionRatio: 10,
		MinDensity:        50,
		MinDensityWeight:  10,
		MaxDensity:        5000,
		HighFragility:     "HIGH",
	}
}

// #endregion plausibility-config
