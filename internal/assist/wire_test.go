package assist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/validation"
)

func TestExtractJSONFromProse(t *testing.T) {
	data, err := extractJSON("Sure!\n```json\n{\"a\": {\"b\": 1}}\n```\nThanks")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": {"b": 1}}`, string(data))

	_, err = extractJSON("no json here")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeSuggestionsFiltersAndClamps(t *testing.T) {
	got, err := decodeSuggestions([]byte(`{
		"fragility": {"value": "LOW", "confidence": 1.7, "reasoning": "solid"},
		"loadBear": {"value": 1500, "confidence": 0.7},
		"tempSensitivity": {"value": true, "confidence": 0.9},
		"weight": {"value": 10, "confidence": 0.9},
		"extra": "ignored"
	}`), []string{"fragility", "loadBear", "tempSensitivity"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1.0, got["fragility"].Confidence)
	assert.Equal(t, "solid", got["fragility"].Reasoning)
	assert.Equal(t, record.Number(1500), got["loadBear"].Value)
}

func TestDecodeSuggestionsDropsEmptyValues(t *testing.T) {
	got, err := decodeSuggestions([]byte(`{"fragility": {"value": "", "confidence": 0.9}}`), []string{"fragility"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := decodeSuggestions([]byte(`{"fragility": `), []string{"fragility"})
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = decodeIssues([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeIssues(t *testing.T) {
	got, err := decodeIssues([]byte(`{"issues": [
		{"field": "weight", "severity": "error", "message": "too heavy", "confidence": 0.8},
		{"field": "height", "severity": "meh", "message": "odd"},
		{"severity": "error", "message": "no field"}
	]}`))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, validation.SeverityError, got[0].Severity)
	assert.Equal(t, validation.SeverityWarning, got[1].Severity)
}
