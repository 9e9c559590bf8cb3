package store

import (
	"errors"

	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/validation"
)

// #region errors
var (
	// ErrOutOfRange is returned for an index outside the record list.
	ErrOutOfRange = errors.New("record index out of range")
	// ErrUnknownField is returned for a key the schema does not define.
	ErrUnknownField = errors.New("unknown field")
	// ErrStale is returned by the AI write path when the record changed
	// after the request was issued. The result was discarded.
	ErrStale = errors.New("stale result discarded")
	// ErrNoSuggestion is returned by Accept for a cell without a suggestion.
	ErrNoSuggestion = errors.New("no suggestion for cell")
)

// #endregion errors

// #region source
// Source says who caused a change.
type Source string

const (
	SourceUser   Source = "user"
	SourceAI     Source = "ai"
	SourceSystem Source = "system"
)

// #endregion source

// #region event
// EventKind classifies a change notification.
type EventKind string

const (
	EventEdit     EventKind = "edit"
	EventAdd      EventKind = "add"
	EventRemove   EventKind = "remove"
	EventClear    EventKind = "clear"
	EventReplace  EventKind = "replace"
	EventRestore  EventKind = "restore"  // undo or redo
	EventAdvisory EventKind = "advisory" // validation results changed, values did not
)

// Event is delivered to subscribers after every mutation. Index is -1 for
// whole-list changes; Indices lists removed rows for EventRemove.
type Event struct {
	Kind    EventKind
	Index   int
	Key     string
	Old     record.Value
	New     record.Value
	Indices []int
	Source  Source
}

// #endregion event

// #region suggestion
// Suggestion is a value proposed by the AI collaborator for one cell.
type Suggestion struct {
	Value      record.Value `json:"value"`
	Confidence float64      `json:"confidence"`
	Reasoning  string       `json:"reasoning,omitempty"`
}

// #endregion suggestion

// #region status
// Issue is one invalid or warning cell in a Status report.
type Issue struct {
	Row      int                 `json:"row"`
	Label    string              `json:"label"`
	Field    string              `json:"field"`
	Message  string              `json:"message"`
	Severity validation.Severity `json:"severity"`
}

// Status summarises the validation state of the whole list.
type Status struct {
	HasIssues     bool    `json:"has_issues"`
	TotalIssues   int     `json:"total_issues"`
	ItemsAffected int     `json:"items_affected"`
	Issues        []Issue `json:"issues"`
}

// Stats are the manifest totals over rows with an identity value.
type Stats struct {
	UniqueItems int     `json:"unique_items"`
	TotalItems  int     `json:"total_items"`
	TotalWeight float64 `json:"total_weight"`
}

// #endregion status

// #region cell-state
// cell holds the per-cell metadata the render surface reads.
type cell struct {
	result     validation.Result
	validated  bool
	suggestion *Suggestion
	aiFilled   bool
}

// mark is the AI provenance of one cell as it stood in a history entry.
type mark struct {
	value      record.Value
	aiFilled   bool
	suggestion *Suggestion
}

// marks holds, per row of a history entry, the cells carrying AI provenance.
type marks []map[string]mark

// row pairs a record with its generation stamp and cell metadata.
type row struct {
	rec   record.Record
	gen   uint64
	cells map[string]*cell
}

func (r *row) cell(key string) *cell {
	c, ok := r.cells[key]
	if !ok {
		c = &cell{}
		r.cells[key] = c
	}
	return c
}

// #endregion cell-state
