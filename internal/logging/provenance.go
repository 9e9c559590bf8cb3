package logging

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// #region sink
// Sink receives provenance entries. Implementations must be safe for
// concurrent use.
type Sink interface {
	Record(ctx context.Context, entry ProvenanceEntry) error
}

// NopSink drops every entry.
type NopSink struct{}

func (NopSink) Record(context.Context, ProvenanceEntry) error { return nil }

// MemorySink keeps entries in memory, in arrival order.
type MemorySink struct {
	mu      sync.Mutex
	entries []ProvenanceEntry
}

func (m *MemorySink) Record(_ context.Context, entry ProvenanceEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (m *MemorySink) Entries() []ProvenanceEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ProvenanceEntry(nil), m.entries...)
}

// #endregion sink

// #region schema
const provenanceSchema = `
CREATE TABLE IF NOT EXISTS provenance_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	request_id  TEXT,
	row_index   INTEGER NOT NULL,
	generation  INTEGER NOT NULL,
	field       TEXT,
	decision    TEXT NOT NULL,
	confidence  REAL,
	value       TEXT,
	reason      TEXT,
	created_at  TEXT NOT NULL
);
`

// #endregion schema

// #region sqlite-sink
// SQLiteSink writes provenance entries to the provenance_log table.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLiteSink opens (or creates) the database at path and migrates it.
func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	sink, err := NewSQLiteSink(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return sink, nil
}

// NewSQLiteSink migrates db and returns a sink over it. The caller keeps
// ownership of db.
func NewSQLiteSink(db *sql.DB) (*SQLiteSink, error) {
	if _, err := db.Exec(provenanceSchema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// #endregion sqlite-sink

// #region log-decision
// Record writes a provenance entry. A zero CreatedAt is stamped with the
// current time.
func (s *SQLiteSink) Record(ctx context.Context, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO provenance_log (session_id, request_id, row_index, generation, field, decision, confidence, value, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		nullIfEmpty(entry.RequestID),
		entry.RowIndex,
		int64(entry.Generation),
		nullIfEmpty(entry.Field),
		string(entry.Decision),
		entry.Confidence,
		nullIfEmpty(entry.Value),
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region list
// List returns the newest entries first, at most limit of them (all when
// limit <= 0).
func (s *SQLiteSink) List(ctx context.Context, limit int) ([]ProvenanceEntry, error) {
	q := `SELECT id, session_id, request_id, row_index, generation, field, decision, confidence, value, reason, created_at
		FROM provenance_log ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list provenance: %w", err)
	}
	defer rows.Close()

	var out []ProvenanceEntry
	for rows.Next() {
		var (
			e                               ProvenanceEntry
			gen                             int64
			decision, created               string
			requestID, field, value, reason sql.NullString
			confidence                      sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &requestID, &e.RowIndex, &gen, &field,
			&decision, &confidence, &value, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		e.RequestID = requestID.String
		e.Generation = uint64(gen)
		e.Field = field.String
		e.Decision = Decision(decision)
		e.Confidence = confidence.Float64
		e.Value = value.String
		e.Reason = reason.String
		e.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion list

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
