package suggest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/cargo-intake/internal/logging"
	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/schema"
	"github.com/danielpatrickdp/cargo-intake/internal/store"
	"github.com/danielpatrickdp/cargo-intake/internal/validation"
)

// #region fake-client

type fakeClient struct {
	suggest  func(ctx context.Context, rec record.Record, others []record.Record) (map[string]Suggestion, error)
	validate func(ctx context.Context, rec record.Record) ([]validation.Issue, error)

	suggestCalls  atomic.Int32
	validateCalls atomic.Int32
}

func (f *fakeClient) Suggest(ctx context.Context, rec record.Record, others []record.Record) (map[string]Suggestion, error) {
	f.suggestCalls.Add(1)
	if f.suggest == nil {
		return nil, nil
	}
	return f.suggest(ctx, rec, others)
}

func (f *fakeClient) Validate(ctx context.Context, rec record.Record) ([]validation.Issue, error) {
	f.validateCalls.Add(1)
	if f.validate == nil {
		return nil, nil
	}
	return f.validate(ctx, rec)
}

func fixed(m map[string]Suggestion) func(context.Context, record.Record, []record.Record) (map[string]Suggestion, error) {
	return func(context.Context, record.Record, []record.Record) (map[string]Suggestion, error) { return m, nil }
}

func hasDecision(sink *logging.MemorySink, d logging.Decision, reason string) bool {
	for _, e := range sink.Entries() {
		if e.Decision == d && (reason == "" || e.Reason == reason) {
			return true
		}
	}
	return false
}

// #endregion fake-client

func TestConfidenceGatesAutoFill(t *testing.T) {
	st := store.New(schema.Cargo())
	fc := &fakeClient{suggest: fixed(map[string]Suggestion{
		schema.KeyFragility: {Value: record.Text("LOW"), Confidence: 0.9},
		schema.KeyLoadBear:  {Value: record.Number(800), Confidence: 0.6},
	})}
	sink := &logging.MemorySink{}
	c := New(st, fc, WithSink(sink))
	defer c.Close()

	_, err := st.ApplyEdit(0, schema.KeyName, record.Text("Crate"))
	require.NoError(t, err)
	c.Wait()

	r, _ := st.Record(0)
	assert.Equal(t, "LOW", r.Get(schema.KeyFragility).String())
	assert.True(t, st.AIFilled(0, schema.KeyFragility))

	assert.True(t, r.Get(schema.KeyLoadBear).IsNull())
	assert.False(t, st.AIFilled(0, schema.KeyLoadBear))
	sg, ok := st.Suggestion(0, schema.KeyLoadBear)
	require.True(t, ok)
	assert.Equal(t, LevelMedium, c.Thresholds().Level(sg.Confidence))

	assert.EqualValues(t, 1, fc.suggestCalls.Load(), "AI writes must not retrigger suggestions")
	assert.True(t, hasDecision(sink, logging.DecisionAutofill, ""))
	assert.True(t, hasDecision(sink, logging.DecisionSuggest, ""))
}

func TestManualEditClearsAIFilled(t *testing.T) {
	st := store.New(schema.Cargo())
	fc := &fakeClient{suggest: fixed(map[string]Suggestion{
		schema.KeyFragility: {Value: record.Text("LOW"), Confidence: 0.95},
	})}
	c := New(st, fc)
	defer c.Close()

	st.ApplyEdit(0, schema.KeyName, record.Text("Crate"))
	c.Wait()
	require.True(t, st.AIFilled(0, schema.KeyFragility))

	st.ApplyEdit(0, schema.KeyFragility, record.Text("HIGH"))
	c.Wait()
	assert.False(t, st.AIFilled(0, schema.KeyFragility))
	r, _ := st.Record(0)
	assert.Equal(t, "HIGH", r.Get(schema.KeyFragility).String())
}

func TestStaleSuggestionIsDiscarded(t *testing.T) {
	st := store.New(schema.Cargo())
	releaseOld := make(chan struct{})
	releaseNew := make(chan struct{})
	started := make(chan string, 2)

	fc := &fakeClient{suggest: func(ctx context.Context, rec record.Record, _ []record.Record) (map[string]Suggestion, error) {
		name := rec.Get(schema.KeyName).String()
		started <- name
		value := "LOW"
		if name == "Old" {
			<-releaseOld
		} else {
			<-releaseNew
			value = "HIGH"
		}
		return map[string]Suggestion{schema.KeyFragility: {Value: record.Text(value), Confidence: 0.9}}, nil
	}}
	sink := &logging.MemorySink{}
	c := New(st, fc, WithSink(sink))
	defer c.Close()

	st.ApplyEdit(0, schema.KeyName, record.Text("Old"))
	require.Equal(t, "Old", <-started)
	st.ApplyEdit(0, schema.KeyName, record.Text("New"))
	require.Equal(t, "New", <-started)

	close(releaseOld)
	require.Eventually(t, func() bool {
		return hasDecision(sink, logging.DecisionDiscardStale, "suggest")
	}, time.Second, 5*time.Millisecond)
	r, _ := st.Record(0)
	assert.True(t, r.Get(schema.KeyFragility).IsNull(), "stale result must not be written")
	_, ok := st.Suggestion(0, schema.KeyFragility)
	assert.False(t, ok)

	close(releaseNew)
	c.Wait()
	r, _ = st.Record(0)
	assert.Equal(t, "HIGH", r.Get(schema.KeyFragility).String())
}

func TestStaleAfterRowRemoval(t *testing.T) {
	st := store.New(schema.Cargo())
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	fc := &fakeClient{suggest: func(context.Context, record.Record, []record.Record) (map[string]Suggestion, error) {
		started <- struct{}{}
		<-release
		return map[string]Suggestion{schema.KeyFragility: {Value: record.Text("LOW"), Confidence: 0.99}}, nil
	}}
	c := New(st, fc)
	defer c.Close()

	st.ApplyEdit(0, schema.KeyName, record.Text("A"))
	<-started
	st.ApplyEdit(1, schema.KeyWeight, record.Number(5))
	require.NoError(t, st.RemoveAt(0))
	close(release)
	c.Wait()

	r, _ := st.Record(0)
	assert.True(t, r.Get(schema.KeyFragility).IsNull(), "row shifted into index 0 must not receive A's result")
}

func TestRevalidatesAfterAutoFill(t *testing.T) {
	st := store.New(schema.Cargo())
	fc := &fakeClient{
		suggest: fixed(map[string]Suggestion{
			schema.KeyFragility: {Value: record.Text("LOW"), Confidence: 0.9},
		}),
		validate: func(_ context.Context, rec record.Record) ([]validation.Issue, error) {
			if rec.Get(schema.KeyFragility).String() == "LOW" {
				return []validation.Issue{{
					Field: schema.KeyFragility, Severity: validation.SeverityWarning,
					Message: "check fragility", Confidence: 0.7,
				}}, nil
			}
			return nil, nil
		},
	}
	c := New(st, fc)
	defer c.Close()

	st.ApplyEdit(0, schema.KeyName, record.Text("Glass"))
	c.Wait()

	assert.EqualValues(t, 2, fc.validateCalls.Load())
	res, ok := st.Validation(0, schema.KeyFragility)
	require.True(t, ok)
	assert.True(t, res.Warning)
	assert.Equal(t, "check fragility", res.Message)
}

func TestOtherFieldEditTriggersValidationOnly(t *testing.T) {
	st := store.New(schema.Cargo())
	fc := &fakeClient{}
	c := New(st, fc)
	defer c.Close()

	st.ApplyEdit(0, schema.KeyWeight, record.Number(3))
	c.Wait()
	assert.EqualValues(t, 0, fc.validateCalls.Load(), "row without identity")

	st.ApplyEdit(0, schema.KeyName, record.Text("Box"))
	c.Wait()
	st.ApplyEdit(0, schema.KeyWeight, record.Number(4))
	c.Wait()
	assert.EqualValues(t, 1, fc.suggestCalls.Load())
	assert.EqualValues(t, 2, fc.validateCalls.Load())
}

func TestEmptyIdentitySkipped(t *testing.T) {
	st := store.New(schema.Cargo())
	fc := &fakeClient{}
	c := New(st, fc)
	defer c.Close()

	st.ApplyEdit(0, schema.KeyName, record.Text("  "))
	require.NoError(t, c.OnIdentityFieldSet(context.Background(), 0))
	c.Wait()
	assert.EqualValues(t, 0, fc.suggestCalls.Load())

	err := c.OnIdentityFieldSet(context.Background(), 42)
	assert.True(t, errors.Is(err, store.ErrOutOfRange))
}

func TestClientErrorLeavesCellsUnsuggested(t *testing.T) {
	st := store.New(schema.Cargo())
	fc := &fakeClient{suggest: func(context.Context, record.Record, []record.Record) (map[string]Suggestion, error) {
		return nil, errors.New("boom")
	}}
	sink := &logging.MemorySink{}
	c := New(st, fc, WithSink(sink))
	defer c.Close()

	st.ApplyEdit(0, schema.KeyName, record.Text("Box"))
	c.Wait()
	_, ok := st.Suggestion(0, schema.KeyFragility)
	assert.False(t, ok)
	assert.EqualValues(t, 1, fc.suggestCalls.Load(), "no retries")
	assert.True(t, hasDecision(sink, logging.DecisionError, "suggest: boom"))
}

func TestValidateErrorStillMergesPartialIssues(t *testing.T) {
	st := store.New(schema.Cargo())
	fc := &fakeClient{validate: func(context.Context, record.Record) ([]validation.Issue, error) {
		return []validation.Issue{{
			Field: schema.KeyWeight, Severity: validation.SeverityWarning,
			Message: "unusually heavy", Confidence: 0.6,
		}}, errors.New("remote down")
	}}
	sink := &logging.MemorySink{}
	c := New(st, fc, WithSink(sink))
	defer c.Close()

	st.ApplyEdit(0, schema.KeyName, record.Text("Box"))
	c.Wait()
	res, ok := st.Validation(0, schema.KeyWeight)
	require.True(t, ok)
	assert.True(t, res.Warning)
	assert.Equal(t, "unusually heavy", res.Message)
	assert.True(t, hasDecision(sink, logging.DecisionError, "validate: remote down"))
}

func TestContextRowsArePopulatedAndBounded(t *testing.T) {
	st := store.New(schema.Cargo())
	full := func(name string) record.Record {
		return record.Record{
			schema.KeyName:            record.Text(name),
			schema.KeyFragility:       record.Text("LOW"),
			schema.KeyLoadBear:        record.Number(10),
			schema.KeyTempSensitivity: record.Text("0°C to 20°C"),
		}
	}
	st.Replace(record.List{
		full("a"),
		{schema.KeyName: record.Text("partial"), schema.KeyFragility: record.Text("LOW")},
		full("b"),
		full("c"),
	})

	var mu sync.Mutex
	var seen []string
	fc := &fakeClient{suggest: func(_ context.Context, _ record.Record, others []record.Record) (map[string]Suggestion, error) {
		mu.Lock()
		defer mu.Unlock()
		for _, o := range others {
			seen = append(seen, o.Get(schema.KeyName).String())
		}
		return nil, nil
	}}
	c := New(st, fc, WithMaxContext(2))
	defer c.Close()

	st.ApplyEdit(4, schema.KeyName, record.Text("new"))
	c.Wait()
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestCloseCancelsInFlight(t *testing.T) {
	st := store.New(schema.Cargo())
	fc := &fakeClient{suggest: func(ctx context.Context, _ record.Record, _ []record.Record) (map[string]Suggestion, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	c := New(st, fc)
	st.ApplyEdit(0, schema.KeyName, record.Text("Box"))

	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}

	st.ApplyEdit(0, schema.KeyName, record.Text("Again"))
	assert.EqualValues(t, 1, fc.suggestCalls.Load(), "closed coordinator ignores edits")
}

func TestThresholdLevels(t *testing.T) {
	assert.Equal(t, LevelHigh, LevelOf(0.85))
	assert.Equal(t, LevelMedium, LevelOf(0.84))
	assert.Equal(t, LevelMedium, LevelOf(0.5))
	assert.Equal(t, LevelLow, LevelOf(0.49))

	th := Thresholds{High: 0.95, Medium: 0.2}
	assert.False(t, th.AutoFill(Suggestion{Confidence: 0.9}))
	assert.Equal(t, LevelMedium, th.Level(0.3))
}
