package assist

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"

	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/suggest"
	"github.com/danielpatrickdp/cargo-intake/internal/validation"
)

// #region wire-types
// wireSuggestion is the per-field object every remote collaborator returns:
// {"value": ..., "confidence": 0.8, "reasoning": "..."}.
type wireSuggestion struct {
	Value      record.Value `json:"value"`
	Confidence float64      `json:"confidence"`
	Reasoning  string       `json:"reasoning"`
}

type wireIssues struct {
	Issues []wireIssue `json:"issues"`
}

type wireIssue struct {
	Field      string  `json:"field"`
	Severity   string  `json:"severity"`
	Message    string  `json:"message"`
	Confidence float64 `json:"confidence"`
}

// #endregion wire-types

// #region decode
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// extractJSON returns the outermost {...} span of text, which is how model
// replies wrapped in prose or code fences are read.
func extractJSON(text string) ([]byte, error) {
	m := jsonObject.FindString(text)
	if m == "" {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrMalformed)
	}
	return []byte(m), nil
}

// decodeSuggestions reads a {"field": {...}} object. Entries for fields not in
// keys, entries that do not parse, and entries with an empty value are
// dropped. Confidence is clamped to [0, 1].
func decodeSuggestions(data []byte, keys []string) (map[string]suggest.Suggestion, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make(map[string]suggest.Suggestion)
	for _, key := range keys {
		msg, ok := raw[key]
		if !ok {
			continue
		}
		var ws wireSuggestion
		if err := json.Unmarshal(msg, &ws); err != nil || ws.Value.IsEmpty() {
			continue
		}
		out[key] = suggest.Suggestion{
			Value:      ws.Value,
			Confidence: clamp01(ws.Confidence),
			Reasoning:  ws.Reasoning,
		}
	}
	return out, nil
}

// decodeIssues reads a {"issues": [...]} object. Unknown severities are read
// as warnings.
func decodeIssues(data []byte) ([]validation.Issue, error) {
	var wi wireIssues
	if err := json.Unmarshal(data, &wi); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make([]validation.Issue, 0, len(wi.Issues))
	for _, is := range wi.Issues {
		if is.Field == "" {
			continue
		}
		sev, err := validation.ParseSeverity(is.Severity)
		if err != nil {
			sev = validation.SeverityWarning
		}
		out = append(out, validation.Issue{
			Field:      is.Field,
			Severity:   sev,
			Message:    is.Message,
			Confidence: clamp01(is.Confidence),
		})
	}
	return out, nil
}

func clamp01(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return math.Max(0, math.Min(1, f))
}

// #endregion decode

// #region encode
// recordMap converts a record to plain JSON-compatible values.
func recordMap(r record.Record) map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		switch {
		case v.IsNull():
			out[k] = nil
		case v.IsNumber():
			f, _ := v.Float()
			out[k] = f
		default:
			out[k] = v.String()
		}
	}
	return out
}

// #endregion encode
