// Package replay runs scripted editing sessions against a store and its AI
// coordinator and compares the outcome with recorded expectations.
package replay

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/danielpatrickdp/cargo-intake/internal/history"
	"github.com/danielpatrickdp/cargo-intake/internal/logging"
	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/schema"
	"github.com/danielpatrickdp/cargo-intake/internal/store"
	"github.com/danielpatrickdp/cargo-intake/internal/suggest"
	"github.com/danielpatrickdp/cargo-intake/internal/validation"
)

// Step operations.
const (
	OpEdit       = "edit"
	OpAdd        = "add"
	OpRemove     = "remove"
	OpClear      = "clear"
	OpUndo       = "undo"
	OpRedo       = "redo"
	OpAccept     = "accept"
	OpSuggestAll = "suggest_all"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrUnknownOp     = errors.New("unknown op")
)

// #region script
// Script is a collaborator with canned answers keyed by the row's trimmed
// identity value. Unknown identities get no suggestions and no issues.
type Script struct {
	Suggestions map[string]map[string]suggest.Suggestion `json:"suggestions"`
	Issues      map[string][]validation.Issue            `json:"issues"`
	// IdentityKey is the field answers are keyed by. Empty means the cargo name.
	IdentityKey string `json:"-"`
}

func (s *Script) key(rec record.Record) string {
	k := s.IdentityKey
	if k == "" {
		k = schema.KeyName
	}
	return strings.TrimSpace(rec.Get(k).String())
}

func (s *Script) Suggest(ctx context.Context, rec record.Record, _ []record.Record) (map[string]suggest.Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Suggestions[s.key(rec)], nil
}

func (s *Script) Validate(ctx context.Context, rec record.Record) ([]validation.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Issues[s.key(rec)], nil
}

// #endregion script

// #region types
// Config bundles the session settings for a replay run.
type Config struct {
	HistoryLimit int
	Thresholds   suggest.Thresholds
	// Sink receives provenance for AI decisions. Nil discards them.
	Sink logging.Sink
}

// DefaultConfig returns the interactive defaults.
func DefaultConfig() Config {
	return Config{
		HistoryLimit: history.DefaultLimit,
		Thresholds:   suggest.DefaultThresholds(),
	}
}

// Result captures the session after one step. AI work started by the step
// has finished by the time it is taken.
type Result struct {
	ID         string
	Op         string
	Err        error
	Len        int
	Identified int
	Issues     int
	Records    record.List
	AIFilled   map[int][]string
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalSteps int
	Errors     int
	Final      record.List
	Stats      store.Stats
}

// #endregion types

// #region replay
// Replay loads start into a fresh store, attaches a coordinator driven by
// client and applies steps in order, waiting for AI work after each one.
func Replay(ctx context.Context, sc *schema.Schema, start record.List, steps []Step, client suggest.Client, cfg Config) ([]Result, Summary) {
	st := store.New(sc, store.WithHistoryLimit(cfg.HistoryLimit))
	if len(start) > 0 {
		st.Replace(start)
	}
	opts := []suggest.Option{suggest.WithThresholds(cfg.Thresholds)}
	if cfg.Sink != nil {
		opts = append(opts, suggest.WithSink(cfg.Sink))
	}
	co := suggest.New(st, client, opts...)
	defer co.Close()

	results := make([]Result, 0, len(steps))
	for _, step := range steps {
		err := apply(ctx, st, co, step)
		co.Wait()
		results = append(results, observe(st, step, err))
	}

	return results, Summarize(results, st)
}

func apply(ctx context.Context, st *store.Store, co *suggest.Coordinator, step Step) error {
	switch step.Op {
	case OpEdit:
		_, err := st.ApplyEdit(step.Index, step.Field, step.Value)
		return err
	case OpAdd:
		st.AddRecord()
		return nil
	case OpRemove:
		indices := step.Indices
		if len(indices) == 0 {
			indices = []int{step.Index}
		}
		return st.RemoveAt(indices...)
	case OpClear:
		st.Clear()
		return nil
	case OpUndo:
		if !st.Undo() {
			return ErrNothingToUndo
		}
		return nil
	case OpRedo:
		if !st.Redo() {
			return ErrNothingToRedo
		}
		return nil
	case OpAccept:
		_, err := st.Accept(step.Index, step.Field)
		return err
	case OpSuggestAll:
		_, err := co.SuggestAll(ctx)
		return err
	default:
		return fmt.Errorf("%w %q", ErrUnknownOp, step.Op)
	}
}

func observe(st *store.Store, step Step, err error) Result {
	r := Result{
		ID:         step.ID,
		Op:         step.Op,
		Err:        err,
		Len:        st.Len(),
		Identified: len(st.GetAll()),
		Issues:     st.Status().TotalIssues,
		Records:    st.Records(),
		AIFilled:   make(map[int][]string),
	}
	for i := range r.Records {
		for _, key := range st.Schema().AIAssisted() {
			if st.AIFilled(i, key) {
				r.AIFilled[i] = append(r.AIFilled[i], key)
			}
		}
	}
	return r
}

// Summarize computes aggregate stats from replay results and the final store.
func Summarize(results []Result, st *store.Store) Summary {
	s := Summary{
		TotalSteps: len(results),
		Final:      st.GetAll(),
		Stats:      st.Stats(schema.KeyQuantity, schema.KeyWeight),
	}
	for _, r := range results {
		if r.Err != nil {
			s.Errors++
		}
	}
	return s
}

// #endregion replay

// #region check
// Check compares results with expectations step by step and describes every
// difference. An empty slice means the run matched.
func Check(results []Result, expected []ExpectedResult) []string {
	var diffs []string
	if len(results) != len(expected) {
		diffs = append(diffs, fmt.Sprintf("expected %d results, got %d", len(expected), len(results)))
	}
	for i := 0; i < len(results) && i < len(expected); i++ {
		got, want := results[i], expected[i]
		at := fmt.Sprintf("step %d (%s)", i, want.ID)
		if got.ID != want.ID {
			diffs = append(diffs, fmt.Sprintf("%s: id %q", at, got.ID))
		}
		if (got.Err != nil) != want.Error {
			diffs = append(diffs, fmt.Sprintf("%s: error=%v, want error=%v", at, got.Err, want.Error))
		}
		if got.Len != want.Len {
			diffs = append(diffs, fmt.Sprintf("%s: len=%d, want %d", at, got.Len, want.Len))
		}
		if got.Identified != want.Identified {
			diffs = append(diffs, fmt.Sprintf("%s: identified=%d, want %d", at, got.Identified, want.Identified))
		}
		if got.Issues != want.Issues {
			diffs = append(diffs, fmt.Sprintf("%s: issues=%d, want %d", at, got.Issues, want.Issues))
		}
		for _, c := range want.Cells {
			if c.Row < 0 || c.Row >= len(got.Records) {
				diffs = append(diffs, fmt.Sprintf("%s: row %d missing", at, c.Row))
				continue
			}
			if v := got.Records[c.Row].Get(c.Field); v != c.Value {
				diffs = append(diffs, fmt.Sprintf("%s: row %d %s=%q, want %q", at, c.Row, c.Field, v, c.Value))
			}
			if c.AIFilled != nil && slices.Contains(got.AIFilled[c.Row], c.Field) != *c.AIFilled {
				diffs = append(diffs, fmt.Sprintf("%s: row %d %s ai_filled=%v", at, c.Row, c.Field, !*c.AIFilled))
			}
		}
	}
	return diffs
}

// #endregion check
