// Package suggest drives the AI collaborator: it reacts to identity edits,
// asks for suggestions and advisory validation, and writes results back
// through the store's generation-checked path.
package suggest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/cargo-intake/internal/logging"
	"github.com/danielpatrickdp/cargo-intake/internal/metrics"
	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/store"
)

// DefaultMaxContext is how many populated rows accompany a suggest request.
const DefaultMaxContext = 10

// #region coordinator-struct

// Coordinator owns the in-flight AI requests of one store. Requests run on
// their own goroutines and never hold the store lock; results are applied only
// if the row's generation still matches the one captured at request time.
type Coordinator struct {
	store      *store.Store
	client     Client
	thresholds Thresholds
	maxContext int
	batchLimit int
	sessionID  string

	logger  *zap.Logger
	metrics *metrics.Metrics
	sink    logging.Sink

	ctx    context.Context
	cancel context.CancelFunc
	unsub  func()
	wg     sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithThresholds(t Thresholds) Option { return func(c *Coordinator) { c.thresholds = t } }

func WithMaxContext(n int) Option { return func(c *Coordinator) { c.maxContext = n } }

// WithBatchLimit bounds concurrent requests in SuggestAll and FillMissing.
// Values below 1 are treated as 1.
func WithBatchLimit(n int) Option {
	return func(c *Coordinator) { c.batchLimit = max(n, 1) }
}

func WithLogger(l *zap.Logger) Option { return func(c *Coordinator) { c.logger = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(c *Coordinator) { c.metrics = m } }

// WithSink records the provenance of every result.
func WithSink(s logging.Sink) Option { return func(c *Coordinator) { c.sink = s } }

// WithSessionID tags provenance entries. A random ID is used otherwise.
func WithSessionID(id string) Option { return func(c *Coordinator) { c.sessionID = id } }

// #endregion coordinator-struct

// #region constructor

// New creates a coordinator and subscribes it to st. User edits of the
// identity field trigger suggestions; user edits of other fields on a row
// with an identity trigger advisory validation.
func New(st *store.Store, client Client, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:      st,
		client:     client,
		thresholds: DefaultThresholds(),
		maxContext: DefaultMaxContext,
		batchLimit: 4,
		logger:     zap.NewNop(),
		sink:       logging.NopSink{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sessionID == "" {
		c.sessionID = uuid.NewString()
	}
	c.logger = c.logger.With(zap.String("component", "suggest"), zap.String("session", c.sessionID))
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.unsub = st.Subscribe(c.onEvent)
	return c
}

// #endregion constructor

// #region lifecycle

// Wait blocks until every in-flight request has finished.
func (c *Coordinator) Wait() { c.wg.Wait() }

// Close stops reacting to store events, cancels in-flight requests and waits
// for them to return.
func (c *Coordinator) Close() {
	c.unsub()
	c.cancel()
	c.wg.Wait()
}

// Thresholds returns the confidence cut-offs in use.
func (c *Coordinator) Thresholds() Thresholds { return c.thresholds }

// #endregion lifecycle

// #region events

func (c *Coordinator) onEvent(ev store.Event) {
	if ev.Kind != store.EventEdit || ev.Source != store.SourceUser {
		return
	}
	if c.ctx.Err() != nil {
		return
	}
	if ev.Key == c.store.Schema().Identity() {
		if err := c.OnIdentityFieldSet(c.ctx, ev.Index); err != nil {
			c.logger.Debug("identity trigger skipped", zap.Int("row", ev.Index), zap.Error(err))
		}
		return
	}
	rec, gen, err := c.store.Capture(ev.Index)
	if err != nil || !c.store.Schema().HasIdentity(rec) {
		return
	}
	c.launch(func() { c.validate(c.ctx, uuid.NewString(), ev.Index, gen, rec) })
}

// #endregion events

// #region identity-trigger

// OnIdentityFieldSet captures the row and its generation and starts the
// suggest and validate requests for it. It returns at once; results arrive
// asynchronously. Rows with an empty identity are skipped.
func (c *Coordinator) OnIdentityFieldSet(ctx context.Context, index int) error {
	rec, gen, err := c.store.Capture(index)
	if err != nil {
		return err
	}
	if !c.store.Schema().HasIdentity(rec) {
		return nil
	}
	others := c.contextRows(index)
	reqID := uuid.NewString()

	c.logger.Debug("requesting suggestions",
		zap.String("request", reqID), zap.Int("row", index),
		zap.Uint64("generation", gen), zap.Int("context", len(others)))

	c.launch(func() { c.suggest(ctx, reqID, index, gen, rec, others) })
	c.launch(func() { c.validate(ctx, reqID, index, gen, rec) })
	return nil
}

// contextRows picks up to maxContext other rows whose AI-assisted fields are
// all filled, in list order.
func (c *Coordinator) contextRows(index int) []record.Record {
	return c.populated(c.store.Records(), index)
}

func (c *Coordinator) launch(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

// #endregion identity-trigger

// #region suggest

// suggest runs one suggest request and applies its result. It reports whether
// anything was auto-filled.
func (c *Coordinator) suggest(ctx context.Context, reqID string, index int, gen uint64, rec record.Record, others []record.Record) bool {
	start := time.Now()
	c.metrics.RecordRequest("suggest")
	suggestions, err := c.client.Suggest(ctx, rec, others)
	c.metrics.ObserveLatency("suggest", time.Since(start))
	if err != nil {
		c.fail(ctx, "suggest", reqID, index, gen, err)
		return false
	}
	if len(suggestions) == 0 {
		c.metrics.RecordResult("suggest", "empty")
		return false
	}

	filled, newGen, err := c.store.ApplySuggestions(index, gen, suggestions, c.thresholds.AutoFill)
	if errors.Is(err, store.ErrStale) {
		c.discard(ctx, "suggest", reqID, index, gen)
		return false
	}
	if err != nil {
		c.fail(ctx, "suggest", reqID, index, gen, err)
		return false
	}
	c.metrics.RecordResult("suggest", "applied")

	auto := make(map[string]bool, len(filled))
	for _, key := range filled {
		auto[key] = true
	}
	for _, key := range c.store.Schema().AIAssisted() {
		sg, ok := suggestions[key]
		if !ok {
			continue
		}
		decision := logging.DecisionSuggest
		if auto[key] {
			decision = logging.DecisionAutofill
		}
		c.record(ctx, logging.ProvenanceEntry{
			RequestID:  reqID,
			RowIndex:   index,
			Generation: gen,
			Field:      key,
			Decision:   decision,
			Confidence: sg.Confidence,
			Value:      sg.Value.String(),
			Reason:     sg.Reasoning,
		})
	}
	c.logger.Debug("suggestions applied",
		zap.String("request", reqID), zap.Int("row", index), zap.Strings("filled", filled))

	if len(filled) == 0 {
		return false
	}
	// Values changed, so the advisory pass that ran against the old generation
	// will be discarded. Validate the row as it is now.
	fresh, freshGen, err := c.store.Capture(index)
	if err == nil && freshGen == newGen {
		c.launch(func() { c.validate(ctx, reqID, index, freshGen, fresh) })
	}
	return true
}

// #endregion suggest

// #region validate

func (c *Coordinator) validate(ctx context.Context, reqID string, index int, gen uint64, rec record.Record) {
	start := time.Now()
	c.metrics.RecordRequest("validate")
	issues, err := c.client.Validate(ctx, rec)
	c.metrics.ObserveLatency("validate", time.Since(start))
	if err != nil {
		c.fail(ctx, "validate", reqID, index, gen, err)
		// partial results still carry the local checks
		if len(issues) == 0 || ctx.Err() != nil {
			return
		}
	}

	err = c.store.MergeAdvisory(index, gen, issues)
	if errors.Is(err, store.ErrStale) {
		c.discard(ctx, "validate", reqID, index, gen)
		return
	}
	if err != nil {
		c.fail(ctx, "validate", reqID, index, gen, err)
		return
	}
	c.metrics.RecordResult("validate", "applied")
	for _, is := range issues {
		c.record(ctx, logging.ProvenanceEntry{
			RequestID:  reqID,
			RowIndex:   index,
			Generation: gen,
			Field:      is.Field,
			Decision:   logging.DecisionAdvisory,
			Confidence: is.Confidence,
			Reason:     string(is.Severity) + ": " + is.Message,
		})
	}
}

// #endregion validate

// #region outcomes

// discard drops a result whose row changed while the request was in flight.
// This is an expected outcome, not an error.
func (c *Coordinator) discard(ctx context.Context, kind, reqID string, index int, gen uint64) {
	c.metrics.RecordResult(kind, "stale")
	c.logger.Debug("stale result discarded",
		zap.String("kind", kind), zap.String("request", reqID),
		zap.Int("row", index), zap.Uint64("generation", gen))
	c.record(ctx, logging.ProvenanceEntry{
		RequestID:  reqID,
		RowIndex:   index,
		Generation: gen,
		Decision:   logging.DecisionDiscardStale,
		Reason:     kind,
	})
}

// fail logs a collaborator or store error. There are no retries; the cells
// simply stay unsuggested.
func (c *Coordinator) fail(ctx context.Context, kind, reqID string, index int, gen uint64, err error) {
	c.metrics.RecordResult(kind, "error")
	if ctx.Err() != nil {
		c.logger.Debug("request cancelled", zap.String("kind", kind), zap.Int("row", index))
		return
	}
	c.logger.Warn("collaborator request failed",
		zap.String("kind", kind), zap.String("request", reqID),
		zap.Int("row", index), zap.Error(err))
	c.record(ctx, logging.ProvenanceEntry{
		RequestID:  reqID,
		RowIndex:   index,
		Generation: gen,
		Decision:   logging.DecisionError,
		Reason:     kind + ": " + err.Error(),
	})
}

func (c *Coordinator) record(ctx context.Context, e logging.ProvenanceEntry) {
	e.SessionID = c.sessionID
	if err := c.sink.Record(context.WithoutCancel(ctx), e); err != nil {
		c.logger.Warn("provenance write failed", zap.Error(err))
	}
}

// #endregion outcomes
