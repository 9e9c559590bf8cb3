package assist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/schema"
)

func TestHeuristicSuggestDefaults(t *testing.T) {
	h := NewHeuristic()
	got, err := h.Suggest(context.Background(), record.Record{schema.KeyName: record.Text("Lamp")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "MEDIUM", got[schema.KeyFragility].Value.String())
	assert.Equal(t, 0.85, got[schema.KeyFragility].Confidence)
	assert.Equal(t, record.Number(800), got[schema.KeyLoadBear].Value)
	assert.Equal(t, "5°C to 35°C", got[schema.KeyTempSensitivity].Value.String())
	assert.True(t, schema.TempSensitivityPattern.MatchString(got[schema.KeyTempSensitivity].Value.String()))
}

func TestHeuristicSuggestHeavy(t *testing.T) {
	h := NewHeuristic()
	for _, rec := range []record.Record{
		{schema.KeyName: record.Text("Heavy press")},
		{schema.KeyName: record.Text("Press"), schema.KeyWeight: record.Number(250)},
	} {
		got, err := h.Suggest(context.Background(), rec, nil)
		require.NoError(t, err)
		assert.Equal(t, "HIGH", got[schema.KeyFragility].Value.String())
		assert.Equal(t, record.Number(2000), got[schema.KeyLoadBear].Value)
	}
}

func TestHeuristicValidate(t *testing.T) {
	h := NewHeuristic()
	issues, err := h.Validate(context.Background(), record.Record{
		schema.KeyWeight:    record.Number(300),
		schema.KeyFragility: record.Text("LOW"),
	})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, schema.KeyFragility, issues[0].Field)

	issues, _ = h.Validate(context.Background(), record.Record{
		schema.KeyFragility: record.Text("HIGH"),
		schema.KeyLoadBear:  record.Number(10),
	})
	require.Len(t, issues, 1)
	assert.Equal(t, schema.KeyLoadBear, issues[0].Field)
}

func TestHeuristicHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHeuristic().Suggest(ctx, record.Record{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
