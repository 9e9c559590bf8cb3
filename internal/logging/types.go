package logging

import "time"

// #region decision
// Decision classifies what happened to one collaborator result.
type Decision string

const (
	DecisionAutofill     Decision = "autofill"      // written into an empty cell
	DecisionSuggest      Decision = "suggest"       // stored for review, not applied
	DecisionDiscardStale Decision = "discard_stale" // record changed while in flight
	DecisionAdvisory     Decision = "advisory"      // merged as a validation finding
	DecisionError        Decision = "error"         // collaborator call failed
)

// #endregion decision

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table.
type ProvenanceEntry struct {
	ID         int64     `json:"id,omitempty"`
	SessionID  string    `json:"session_id"`
	RequestID  string    `json:"request_id"`
	RowIndex   int       `json:"row"`
	Generation uint64    `json:"generation"`
	Field      string    `json:"field,omitempty"`
	Decision   Decision  `json:"decision"`
	Confidence float64   `json:"confidence,omitempty"`
	Value      string    `json:"value,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// #endregion provenance-entry
