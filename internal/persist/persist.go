// Package persist saves the identified rows of a store to a key-value backend
// and reads them back.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/cargo-intake/internal/kv"
	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/schema"
	"github.com/danielpatrickdp/cargo-intake/internal/store"
)

// DefaultKey is the key the record list is stored under.
const DefaultKey = "gravitycargo-data"

// #region adapter
// Adapter serialises record lists to a kv.Store as a JSON array of objects.
type Adapter struct {
	kv     kv.Store
	schema *schema.Schema
	key    string
	logger *zap.Logger

	saveMu sync.Mutex
}

// Option configures an Adapter.
type Option func(*Adapter)

func WithKey(key string) Option { return func(a *Adapter) { a.key = key } }

func WithLogger(l *zap.Logger) Option { return func(a *Adapter) { a.logger = l } }

// New returns an adapter for records of sc.
func New(store kv.Store, sc *schema.Schema, opts ...Option) *Adapter {
	a := &Adapter{kv: store, schema: sc, key: DefaultKey, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(zap.String("component", "persist"), zap.String("key", a.key))
	return a
}

// #endregion adapter

// #region save
// Save writes the rows of list that have an identity value, with exactly the
// schema's keys.
func (a *Adapter) Save(ctx context.Context, list record.List) error {
	out := make([]record.Record, 0, len(list))
	for _, r := range list {
		if a.schema.HasIdentity(r) {
			out = append(out, a.schema.Normalize(r))
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := a.kv.Set(ctx, a.key, string(data)); err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	return nil
}

// #endregion save

// #region load
// Load reads the saved list. A missing key, an unreadable payload or a
// backend failure all mean "no saved data" and return false; the cause is
// logged, never returned. Unknown keys are dropped, missing keys read as
// null, cells that do not decode read as null, and one blank row is appended
// unless a row with an empty identity is already present.
func (a *Adapter) Load(ctx context.Context) (record.List, bool) {
	raw, ok, err := a.kv.Get(ctx, a.key)
	if err != nil {
		a.logger.Warn("load failed, starting empty", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var rows []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		a.logger.Warn("saved data is corrupt, starting empty", zap.Error(err))
		return nil, false
	}

	list := make(record.List, 0, len(rows)+1)
	hasBlank := false
	for i, row := range rows {
		rec := a.schema.BlankRecord()
		for _, key := range a.schema.Keys() {
			msg, ok := row[key]
			if !ok {
				continue
			}
			var v record.Value
			if err := json.Unmarshal(msg, &v); err != nil {
				a.logger.Debug("dropping undecodable cell", zap.Int("row", i), zap.String("field", key), zap.Error(err))
				continue
			}
			rec[key] = v
		}
		if !a.schema.HasIdentity(rec) {
			hasBlank = true
		}
		list = append(list, rec)
	}
	if !hasBlank {
		list = append(list, a.schema.BlankRecord())
	}
	return list, true
}

// #endregion load

// #region autosave
// Autosave saves st's identified rows after every change that touches values.
// Saves are serialised and each one reads the store's current state, so the
// last save always reflects the latest data. Failures are logged. Call the
// returned function to stop.
func (a *Adapter) Autosave(ctx context.Context, st *store.Store) (stop func()) {
	return st.Subscribe(func(ev store.Event) {
		if ev.Kind == store.EventAdvisory {
			return
		}
		a.saveMu.Lock()
		defer a.saveMu.Unlock()
		if err := a.Save(ctx, st.GetAll()); err != nil {
			a.logger.Warn("autosave failed", zap.String("event", string(ev.Kind)), zap.Error(err))
		}
	})
}

// #endregion autosave
