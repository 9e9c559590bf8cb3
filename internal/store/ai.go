package store

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/cargo-intake/internal/validation"
)

// #region apply-suggestions
// ApplySuggestions stores AI suggestions for the row at index and fills the
// empty cells whose suggestion passes autoFill. gen must be the generation
// captured when the request was issued; if the row has moved on since, nothing
// is written and ErrStale is returned. Only AI-assisted fields are considered,
// in schema order. Fills go through the same path as user edits and are
// recorded as one history step.
//
// It returns the keys that were filled and the row's generation afterwards.
func (s *Store) ApplySuggestions(index int, gen uint64, suggestions map[string]Suggestion, autoFill func(Suggestion) bool) ([]string, uint64, error) {
	s.mu.Lock()
	if err := s.checkStaleLocked(index, gen); err != nil {
		s.mu.Unlock()
		return nil, 0, err
	}

	var (
		filled []string
		events []Event
		stored bool
	)
	for _, key := range s.schema.AIAssisted() {
		sg, ok := suggestions[key]
		if !ok {
			continue
		}
		r := s.rows[index]
		c := r.cell(key)
		cp := sg
		c.suggestion = &cp
		stored = true

		if !r.rec.Get(key).IsEmpty() || autoFill == nil || !autoFill(sg) {
			continue
		}
		_, evs, err := s.editLocked(index, key, sg.Value, SourceAI)
		if err != nil {
			// index and key were checked above
			s.mu.Unlock()
			return nil, 0, fmt.Errorf("auto-fill %s: %w", key, err)
		}
		events = append(events, evs...)
		filled = append(filled, key)
	}
	if len(filled) > 0 {
		s.pushLocked()
	} else if stored {
		events = append(events, Event{Kind: EventAdvisory, Index: index, Source: SourceAI})
	}
	newGen := s.rows[index].gen
	s.mu.Unlock()

	for _, key := range filled {
		s.metrics.RecordAutoFill(key)
	}
	s.logger.Debug("suggestions applied",
		zap.Int("row", index), zap.Strings("filled", filled), zap.Int("offered", len(suggestions)))
	s.emit(events)
	return filled, newGen, nil
}

// #endregion apply-suggestions

// #region merge-advisory
// MergeAdvisory replaces the row's advisory findings with issues. Earlier
// advisory results on the row revert to their rule results first, so a
// finding that is no longer reported disappears. Required-field violations
// are never overridden. Values, generation and history are untouched.
func (s *Store) MergeAdvisory(index int, gen uint64, issues []validation.Issue) error {
	s.mu.Lock()
	if err := s.checkStaleLocked(index, gen); err != nil {
		s.mu.Unlock()
		return err
	}
	r := s.rows[index]
	for key, c := range r.cells {
		if c.validated && c.result.Code == validation.CodeAdvisory {
			f, _ := s.schema.Field(key)
			c.result = validation.ValidateField(f, r.rec.Get(key))
		}
	}
	merged := 0
	for _, is := range issues {
		f, ok := s.schema.Field(is.Field)
		if !ok {
			s.logger.Debug("advisory for unknown field dropped", zap.String("field", is.Field))
			continue
		}
		c := r.cell(is.Field)
		base := c.result
		if !c.validated {
			base = validation.ValidateField(f, r.rec.Get(is.Field))
		}
		c.result = validation.MergeAdvisory(base, is)
		c.validated = true
		merged++
		s.metrics.RecordAdvisory(string(is.Severity))
	}
	s.mu.Unlock()

	s.emit([]Event{{Kind: EventAdvisory, Index: index, Source: SourceAI}})
	s.logger.Debug("advisory merged", zap.Int("row", index), zap.Int("issues", merged))
	return nil
}

// #endregion merge-advisory

// #region accept
// Accept writes the stored suggestion for a cell as an AI-sourced edit,
// whatever its confidence, and drops the suggestion.
func (s *Store) Accept(index int, key string) (validation.Result, error) {
	s.mu.Lock()
	if err := s.checkIndexLocked(index); err != nil {
		s.mu.Unlock()
		return validation.Result{}, err
	}
	c, ok := s.rows[index].cells[key]
	if !ok || c.suggestion == nil {
		s.mu.Unlock()
		return validation.Result{}, fmt.Errorf("%w: row %d field %q", ErrNoSuggestion, index, key)
	}
	v := c.suggestion.Value
	res, events, err := s.editLocked(index, key, v, SourceAI)
	if err != nil {
		s.mu.Unlock()
		return validation.Result{}, err
	}
	c.suggestion = nil
	s.pushLocked()
	s.mu.Unlock()

	s.emit(events)
	return res, nil
}

// #endregion accept

func (s *Store) checkStaleLocked(index int, gen uint64) error {
	if err := s.checkIndexLocked(index); err != nil {
		return fmt.Errorf("%w: %w", ErrStale, err)
	}
	if cur := s.rows[index].gen; cur != gen {
		return fmt.Errorf("%w: row %d at generation %d, result for %d", ErrStale, index, cur, gen)
	}
	return nil
}
