package store

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/schema"
	"github.com/danielpatrickdp/cargo-intake/internal/validation"
)

// #region readers
// Schema returns the store's schema.
func (s *Store) Schema() *schema.Schema { return s.schema }

// Len returns the raw number of rows, trailing blank included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Records returns a copy of every row, trailing blank included.
func (s *Store) Records() record.List {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked().Clone()
}

// GetAll returns copies of the rows with a non-empty identity value. This is
// the set that is persisted and exported.
func (s *Store) GetAll() record.List {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := record.List{}
	for _, r := range s.rows {
		if s.schema.HasIdentity(r.rec) {
			out = append(out, r.rec.Clone())
		}
	}
	return out
}

// Record returns a copy of the row at index.
func (s *Store) Record(index int) (record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndexLocked(index); err != nil {
		return nil, err
	}
	return s.rows[index].rec.Clone(), nil
}

// Generation returns the row's current generation stamp.
func (s *Store) Generation(index int) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndexLocked(index); err != nil {
		return 0, err
	}
	return s.rows[index].gen, nil
}

// Capture returns a copy of the row together with the generation it was read
// at. AI requests carry the generation so their results can be checked on the
// way back.
func (s *Store) Capture(index int) (record.Record, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndexLocked(index); err != nil {
		return nil, 0, err
	}
	r := s.rows[index]
	return r.rec.Clone(), r.gen, nil
}

// Validation returns the cell's last result. ok is false when the cell has
// never been validated.
func (s *Store) Validation(index int, key string) (res validation.Result, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.rows) {
		return validation.Result{}, false
	}
	c, found := s.rows[index].cells[key]
	if !found || !c.validated {
		return validation.Result{}, false
	}
	return c.result, true
}

// Suggestion returns the stored AI suggestion for a cell.
func (s *Store) Suggestion(index int, key string) (Suggestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.rows) {
		return Suggestion{}, false
	}
	c, found := s.rows[index].cells[key]
	if !found || c.suggestion == nil {
		return Suggestion{}, false
	}
	return *c.suggestion, true
}

// AIFilled reports whether the cell's current value was written by the AI
// collaborator.
func (s *Store) AIFilled(index int, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.rows) {
		return false
	}
	c, found := s.rows[index].cells[key]
	return found && c.aiFilled
}

// #endregion readers

// #region status
// Status collects every invalid or warning cell. Issues are ordered by row,
// then by schema field order.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Issues: []Issue{}}
	for i, r := range s.rows {
		affected := false
		for _, key := range s.schema.Keys() {
			c, ok := r.cells[key]
			if !ok || !c.validated || (c.result.Valid && !c.result.Warning) {
				continue
			}
			sev := validation.SeverityError
			msg := c.result.Message
			if c.result.Valid {
				sev = validation.SeverityWarning
				if msg == "" {
					msg = "Warning"
				}
			} else if msg == "" {
				msg = "Error"
			}
			st.Issues = append(st.Issues, Issue{
				Row:      i,
				Label:    s.labelLocked(i),
				Field:    key,
				Message:  msg,
				Severity: sev,
			})
			affected = true
		}
		if affected {
			st.ItemsAffected++
		}
	}
	st.TotalIssues = len(st.Issues)
	st.HasIssues = st.TotalIssues > 0
	return st
}

func (s *Store) labelLocked(i int) string {
	if name := s.rows[i].rec.Get(s.schema.Identity()); !name.IsEmpty() {
		return name.String()
	}
	return fmt.Sprintf("Item #%d", i+1)
}

// #endregion status

// #region stats
// Stats totals the rows with an identity value. Quantities are truncated to
// whole units and unparseable numbers count as zero.
func (s *Store) Stats(quantityKey, weightKey string) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Stats
	for _, r := range s.rows {
		if !s.schema.HasIdentity(r.rec) {
			continue
		}
		st.UniqueItems++
		qty := 0
		if q, ok := r.rec.Get(quantityKey).Float(); ok && !math.IsNaN(q) && !math.IsInf(q, 0) {
			qty = int(q)
		}
		st.TotalItems += qty
		if w, ok := r.rec.Get(weightKey).Float(); ok && !math.IsNaN(w) && !math.IsInf(w, 0) {
			st.TotalWeight += w * float64(qty)
		}
	}
	return st
}

// #endregion stats
