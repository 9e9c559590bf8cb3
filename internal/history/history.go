package history

import (
	"sync"

	"github.com/danielpatrickdp/cargo-intake/internal/record"
)

// DefaultLimit is the number of snapshots kept when no limit is given.
const DefaultLimit = 50

// #region manager
// Manager is a bounded stack of full record-list snapshots with a cursor.
// Entries after the cursor are redo-able. Snapshots are deep-copied on the
// way in and on the way out, so callers never share memory with the stack.
type Manager struct {
	mu       sync.Mutex
	entries  []record.List
	position int // index of the current snapshot, -1 when empty
	limit    int
}

// New creates a manager keeping at most limit snapshots (DefaultLimit when
// limit <= 0).
func New(limit int) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{position: -1, limit: limit}
}

// #endregion manager

// #region push
// Push records snap as the new current state. It is a no-op, returning false,
// when snap deep-equals the current snapshot. Otherwise the redo tail is
// dropped, snap is appended, and the oldest entry is evicted once the limit
// is exceeded; the cursor stays on the new snapshot.
func (m *Manager) Push(snap record.List) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.position >= 0 && m.entries[m.position].Equal(snap) {
		return false
	}

	// Truncate redo-able entries
	m.entries = m.entries[:m.position+1]
	m.entries = append(m.entries, snap.Clone())
	m.position++

	if len(m.entries) > m.limit {
		m.entries[0] = nil
		m.entries = m.entries[1:]
		m.position--
	}
	return true
}

// #endregion push

// #region undo-redo
// Undo moves the cursor back one entry and returns that snapshot. At the
// oldest entry it returns false and leaves the cursor alone.
func (m *Manager) Undo() (record.List, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.position <= 0 {
		return nil, false
	}
	m.position--
	return m.entries[m.position].Clone(), true
}

// Redo moves the cursor forward one entry and returns that snapshot. At the
// newest entry it returns false and leaves the cursor alone.
func (m *Manager) Redo() (record.List, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.position >= len(m.entries)-1 {
		return nil, false
	}
	m.position++
	return m.entries[m.position].Clone(), true
}

// CanUndo reports whether Undo would move the cursor.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position > 0
}

// CanRedo reports whether Redo would move the cursor.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position < len(m.entries)-1
}

// #endregion undo-redo

// #region accessors
// Len returns the number of stored snapshots.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Position returns the cursor, -1 when the stack is empty.
func (m *Manager) Position() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// Current returns a copy of the snapshot under the cursor.
func (m *Manager) Current() (record.List, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.position < 0 {
		return nil, false
	}
	return m.entries[m.position].Clone(), true
}

// #endregion accessors
