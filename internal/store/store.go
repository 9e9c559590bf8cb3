package store

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/cargo-intake/internal/history"
	"github.com/danielpatrickdp/cargo-intake/internal/metrics"
	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/schema"
	"github.com/danielpatrickdp/cargo-intake/internal/validation"
)

// #region store-struct
// Store owns the ordered record list. Every write, user or AI, goes through
// the same validate, mutate, snapshot path under one lock, so a call either
// completes entirely or leaves nothing behind.
//
// Records are addressed by index. An index is only meaningful until the next
// mutation that adds or removes rows.
type Store struct {
	mu      sync.Mutex
	schema  *schema.Schema
	rows    []*row
	nextGen uint64
	history *history.Manager
	// marks[i] is the AI provenance for history entry i
	marks []marks

	lmu       sync.Mutex
	listeners map[int]func(Event)
	nextSub   int

	logger  *zap.Logger
	metrics *metrics.Metrics

	initial record.List
}

// Option configures a Store.
type Option func(*Store)

// WithHistoryLimit bounds the undo stack.
func WithHistoryLimit(n int) Option {
	return func(s *Store) { s.history = history.New(n) }
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithRecords starts the store with list instead of a single blank record,
// typically a list read back from persistence. Non-blank rows are validated
// and a trailing blank is added if missing. The loaded state is the oldest
// undo entry.
func WithRecords(list record.List) Option {
	return func(s *Store) { s.initial = list }
}

// #endregion store-struct

// #region constructor
// New creates a store holding one blank record, or the WithRecords list, and
// records it as the first history snapshot.
func New(sc *schema.Schema, opts ...Option) *Store {
	s := &Store{
		schema:    sc,
		history:   history.New(history.DefaultLimit),
		listeners: make(map[int]func(Event)),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "store"))
	for _, rec := range s.initial {
		r := s.newRow(sc.Normalize(rec))
		if !r.rec.IsBlank() {
			s.validateRowLocked(r)
		}
		s.rows = append(s.rows, r)
	}
	s.initial = nil
	s.ensureSpareLocked()
	s.pushLocked()
	return s
}

// #endregion constructor

// #region subscribe
// Subscribe registers fn for change events and returns a function that
// removes it. Events are delivered after the store lock is released, on the
// goroutine that made the change; fn must be safe for concurrent use.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.lmu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.lmu.Unlock()
	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *Store) emit(events []Event) {
	if len(events) == 0 {
		return
	}
	s.lmu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Event), len(ids))
	for i, id := range ids {
		fns[i] = s.listeners[id]
	}
	s.lmu.Unlock()

	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}

// #endregion subscribe

// #region apply-edit
// ApplyEdit validates and stores value in the cell, clears the cell's AI mark
// and suggestion (manual edits win), bumps the record's generation, and pushes
// a history snapshot. Invalid values are stored; the returned result says why
// they are invalid. An out-of-range index or unknown key fails with no side
// effects.
func (s *Store) ApplyEdit(index int, key string, value record.Value) (validation.Result, error) {
	s.mu.Lock()
	res, events, err := s.editLocked(index, key, value, SourceUser)
	if err == nil {
		s.pushLocked()
	}
	s.mu.Unlock()
	if err != nil {
		return validation.Result{}, err
	}
	s.emit(events)
	return res, nil
}

// editLocked performs one cell write without snapshotting. Caller holds mu.
func (s *Store) editLocked(index int, key string, value record.Value, src Source) (validation.Result, []Event, error) {
	if err := s.checkIndexLocked(index); err != nil {
		return validation.Result{}, nil, err
	}
	f, ok := s.schema.Field(key)
	if !ok {
		return validation.Result{}, nil, fmt.Errorf("%w: %q", ErrUnknownField, key)
	}

	res := validation.ValidateField(f, value)
	r := s.rows[index]
	old := r.rec.Get(key)
	r.rec[key] = value

	c := r.cell(key)
	c.result = res
	c.validated = true
	c.aiFilled = src == SourceAI
	if src == SourceUser {
		c.suggestion = nil
	}
	r.gen = s.bumpLocked()

	events := []Event{{Kind: EventEdit, Index: index, Key: key, Old: old, New: value, Source: src}}
	if idx, added := s.ensureSpareLocked(); added {
		events = append(events, Event{Kind: EventAdd, Index: idx, Source: SourceSystem})
	}

	s.metrics.RecordEdit(string(src))
	s.logger.Debug("cell edited",
		zap.Int("row", index), zap.String("field", key),
		zap.String("source", string(src)), zap.Bool("valid", res.Valid))
	return res, events, nil
}

// #endregion apply-edit

// #region rows
// AddRecord appends a blank record.
func (s *Store) AddRecord() int {
	s.mu.Lock()
	s.rows = append(s.rows, s.newRow(s.schema.BlankRecord()))
	idx := len(s.rows) - 1
	s.pushLocked()
	s.mu.Unlock()

	s.emit([]Event{{Kind: EventAdd, Index: idx, Source: SourceUser}})
	return idx
}

// RemoveAt removes the given rows. Duplicates are ignored and rows are removed
// from the highest index down. If the list ends up empty a blank record is
// inserted. Any out-of-range index fails the whole call.
func (s *Store) RemoveAt(indices ...int) error {
	if len(indices) == 0 {
		return nil
	}
	s.mu.Lock()
	for _, i := range indices {
		if err := s.checkIndexLocked(i); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	order := slices.Clone(indices)
	slices.Sort(order)
	order = slices.Compact(order)
	slices.Reverse(order)

	for _, i := range order {
		s.rows = slices.Delete(s.rows, i, i+1)
	}
	if len(s.rows) == 0 {
		s.rows = append(s.rows, s.newRow(s.schema.BlankRecord()))
	}
	s.ensureSpareLocked()
	s.pushLocked()
	s.mu.Unlock()

	s.emit([]Event{{Kind: EventRemove, Index: -1, Indices: order, Source: SourceUser}})
	return nil
}

// Clear resets the list to a single blank record.
func (s *Store) Clear() {
	s.mu.Lock()
	s.rows = []*row{s.newRow(s.schema.BlankRecord())}
	s.pushLocked()
	s.mu.Unlock()

	s.emit([]Event{{Kind: EventClear, Index: -1, Source: SourceUser}})
}

// Replace swaps the whole list for the rows of list that have an identity
// value, re-adds the trailing blank record, and validates every cell of the
// kept rows. Used for bulk import.
func (s *Store) Replace(list record.List) int {
	s.mu.Lock()
	rows := make([]*row, 0, len(list)+1)
	for _, rec := range list {
		if !s.schema.HasIdentity(rec) {
			continue
		}
		r := s.newRow(s.schema.Normalize(rec))
		s.validateRowLocked(r)
		rows = append(rows, r)
	}
	kept := len(rows)
	s.rows = append(rows, s.newRow(s.schema.BlankRecord()))
	s.pushLocked()
	s.mu.Unlock()

	s.emit([]Event{{Kind: EventReplace, Index: -1, Source: SourceUser}})
	return kept
}

// #endregion rows

// #region undo-redo
// Undo restores the previous snapshot. It returns false at the oldest entry.
func (s *Store) Undo() bool {
	return s.restore(s.history.Undo)
}

// Redo restores the next snapshot. It returns false at the newest entry.
func (s *Store) Redo() bool {
	return s.restore(s.history.Redo)
}

// CanUndo reports whether Undo would change anything.
func (s *Store) CanUndo() bool { return s.history.CanUndo() }

// CanRedo reports whether Redo would change anything.
func (s *Store) CanRedo() bool { return s.history.CanRedo() }

func (s *Store) restore(step func() (record.List, bool)) bool {
	s.mu.Lock()
	from := s.history.Position()
	snap, ok := step()
	if !ok {
		s.mu.Unlock()
		return false
	}
	if from >= 0 && from < len(s.marks) {
		s.marks[from] = s.marksLocked()
	}
	var m marks
	if to := s.history.Position(); to >= 0 && to < len(s.marks) {
		m = s.marks[to]
	}
	s.restoreLocked(snap, m)
	s.mu.Unlock()

	s.emit([]Event{{Kind: EventRestore, Index: -1, Source: SourceUser}})
	return true
}

// restoreLocked replaces the rows with snap. Metadata survives for cells
// whose value is unchanged at the same index. Changed cells are re-validated
// and get back the AI mark and suggestion they had in that entry, if any.
// Rows with any changed cell get a fresh generation so in-flight AI results
// for them are discarded.
func (s *Store) restoreLocked(snap record.List, m marks) {
	rows := make([]*row, len(snap))
	for i, rec := range snap {
		rec = s.schema.Normalize(rec)
		var prev *row
		if i < len(s.rows) {
			prev = s.rows[i]
		}
		nr := &row{rec: rec, cells: make(map[string]*cell)}
		changed := prev == nil
		for _, key := range s.schema.Keys() {
			if prev != nil && prev.rec.Get(key) == rec.Get(key) {
				if c, ok := prev.cells[key]; ok {
					nr.cells[key] = c
				}
				continue
			}
			changed = true
			if rec.IsBlank() {
				continue
			}
			f, _ := s.schema.Field(key)
			c := &cell{result: validation.ValidateField(f, rec.Get(key)), validated: true}
			if i < len(m) {
				if mk, ok := m[i][key]; ok && mk.value == rec.Get(key) {
					c.aiFilled = mk.aiFilled
					c.suggestion = mk.suggestion
				}
			}
			nr.cells[key] = c
		}
		if changed {
			nr.gen = s.bumpLocked()
		} else {
			nr.gen = prev.gen
		}
		rows[i] = nr
	}
	s.rows = rows
}

// #endregion undo-redo

// #region helpers
func (s *Store) newRow(rec record.Record) *row {
	return &row{rec: rec, gen: s.bumpLocked(), cells: make(map[string]*cell)}
}

// bumpLocked draws the next generation stamp. Stamps come from one counter for
// the whole store, so a row shifted into another row's index never inherits a
// stamp an in-flight request could match.
func (s *Store) bumpLocked() uint64 {
	s.nextGen++
	return s.nextGen
}

func (s *Store) checkIndexLocked(index int) error {
	if index < 0 || index >= len(s.rows) {
		return fmt.Errorf("%w: %d (have %d)", ErrOutOfRange, index, len(s.rows))
	}
	return nil
}

// ensureSpareLocked keeps one blank record at the end of the list.
func (s *Store) ensureSpareLocked() (int, bool) {
	if n := len(s.rows); n > 0 && s.rows[n-1].rec.IsBlank() {
		return 0, false
	}
	s.rows = append(s.rows, s.newRow(s.schema.BlankRecord()))
	return len(s.rows) - 1, true
}

func (s *Store) validateRowLocked(r *row) {
	for _, f := range s.schema.Fields() {
		c := r.cell(f.Key)
		c.result = validation.ValidateField(f, r.rec.Get(f.Key))
		c.validated = true
	}
}

// pushLocked snapshots the rows into history and keeps marks in step with
// the history entries. A deduplicated push refreshes the current entry's marks.
func (s *Store) pushLocked() {
	pos := s.history.Position()
	m := s.marksLocked()
	if !s.history.Push(s.snapshotLocked()) {
		if pos >= 0 && pos < len(s.marks) {
			s.marks[pos] = m
		}
		return
	}
	s.marks = append(s.marks[:pos+1], m)
	if extra := len(s.marks) - s.history.Len(); extra > 0 {
		s.marks = slices.Delete(s.marks, 0, extra)
	}
}

func (s *Store) marksLocked() marks {
	out := make(marks, len(s.rows))
	for i, r := range s.rows {
		for key, c := range r.cells {
			if !c.aiFilled && c.suggestion == nil {
				continue
			}
			if out[i] == nil {
				out[i] = make(map[string]mark)
			}
			mk := mark{value: r.rec.Get(key), aiFilled: c.aiFilled}
			if c.suggestion != nil {
				sg := *c.suggestion
				mk.suggestion = &sg
			}
			out[i][key] = mk
		}
	}
	return out
}

func (s *Store) snapshotLocked() record.List {
	l := make(record.List, len(s.rows))
	for i, r := range s.rows {
		l[i] = r.rec
	}
	return l
}

// #endregion helpers
