package logging

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupSink(t *testing.T) *SQLiteSink {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	sink, err := NewSQLiteSink(db)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return sink
}

// #endregion helpers

// #region record-tests
func TestRecord_Success(t *testing.T) {
	sink := setupSink(t)
	ctx := context.Background()

	entry := ProvenanceEntry{
		SessionID:  "s1",
		RequestID:  "r1",
		RowIndex:   2,
		Generation: 7,
		Field:      "fragility",
		Decision:   DecisionAutofill,
		Confidence: 0.9,
		Value:      "LOW",
		CreatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := sink.Record(ctx, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := sink.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	e := got[0]
	if e.Decision != DecisionAutofill || e.Field != "fragility" || e.Value != "LOW" {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.Generation != 7 || e.RowIndex != 2 {
		t.Errorf("expected row 2 gen 7, got row %d gen %d", e.RowIndex, e.Generation)
	}
	if !e.CreatedAt.Equal(entry.CreatedAt) {
		t.Errorf("created_at round trip: %v", e.CreatedAt)
	}
}

func TestRecord_ZeroCreatedAt(t *testing.T) {
	sink := setupSink(t)
	before := time.Now().UTC().Add(-time.Second)

	if err := sink.Record(context.Background(), ProvenanceEntry{SessionID: "s", Decision: DecisionDiscardStale}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := sink.List(context.Background(), 1)
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0].CreatedAt.Before(before) {
		t.Errorf("expected created_at to be stamped, got %v", got[0].CreatedAt)
	}
	if got[0].Field != "" || got[0].RequestID != "" {
		t.Errorf("empty strings should round-trip as NULL -> empty, got %+v", got[0])
	}
}

func TestList_NewestFirstWithLimit(t *testing.T) {
	sink := setupSink(t)
	ctx := context.Background()
	for i, d := range []Decision{DecisionSuggest, DecisionAdvisory, DecisionError} {
		if err := sink.Record(ctx, ProvenanceEntry{SessionID: "s", RowIndex: i, Decision: d}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	got, err := sink.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].Decision != DecisionError || got[1].Decision != DecisionAdvisory {
		t.Errorf("expected newest first, got %s, %s", got[0].Decision, got[1].Decision)
	}
}

func TestRecord_ClosedDB(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sink, err := NewSQLiteSink(db)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db.Close()

	if err := sink.Record(context.Background(), ProvenanceEntry{SessionID: "s", Decision: DecisionError}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion record-tests

// #region memory-sink-tests
func TestMemorySink(t *testing.T) {
	var m MemorySink
	m.Record(context.Background(), ProvenanceEntry{Decision: DecisionSuggest})
	m.Record(context.Background(), ProvenanceEntry{Decision: DecisionAutofill})
	got := m.Entries()
	if len(got) != 2 || got[1].Decision != DecisionAutofill {
		t.Fatalf("unexpected entries %+v", got)
	}
	got[0].Decision = DecisionError
	if m.Entries()[0].Decision != DecisionSuggest {
		t.Error("Entries must return a copy")
	}
}

// #endregion memory-sink-tests
