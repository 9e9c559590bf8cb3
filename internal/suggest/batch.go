package suggest

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/cargo-intake/internal/record"
)

// #region suggest-all

// SuggestAll requests suggestions for every row with an identity, at most
// batchLimit at a time, and blocks until they are applied. It is used after a
// bulk import. Each row's result goes through the same generation check as an
// interactive request. It returns the number of rows requested.
func (c *Coordinator) SuggestAll(ctx context.Context) (int, error) {
	sc := c.store.Schema()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.batchLimit)

	n := 0
	for i, r := range c.store.Records() {
		if !sc.HasIdentity(r) {
			continue
		}
		rec, gen, err := c.store.Capture(i)
		if err != nil {
			// rows were removed since Records
			break
		}
		if !sc.HasIdentity(rec) {
			continue
		}
		index := i
		others := c.contextRows(index)
		n++
		c.wg.Add(1)
		g.Go(func() error {
			defer c.wg.Done()
			if gctx.Err() != nil {
				return gctx.Err()
			}
			c.suggest(gctx, uuid.NewString(), index, gen, rec, others)
			return nil
		})
	}
	err := g.Wait()
	c.logger.Info("bulk suggestions finished", zap.Int("rows", n), zap.Error(err))
	return n, err
}

// #endregion suggest-all

// #region fill-missing

// FillMissing asks for values for the empty AI-assisted cells of every row
// with an identity and returns them by row index without applying anything.
// Rows with nothing missing or nothing suggested are left out. Collaborator
// errors for a row are logged and skip that row.
func (c *Coordinator) FillMissing(ctx context.Context) (map[int]map[string]Suggestion, error) {
	sc := c.store.Schema()
	ai := sc.AIAssisted()
	rows := c.store.Records()

	var mu sync.Mutex
	out := make(map[int]map[string]Suggestion)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.batchLimit)
	for i, r := range rows {
		if !sc.HasIdentity(r) {
			continue
		}
		var missing []string
		for _, key := range ai {
			if r.Get(key).IsEmpty() {
				missing = append(missing, key)
			}
		}
		if len(missing) == 0 {
			continue
		}
		index, rec := i, r
		g.Go(func() error {
			c.metrics.RecordRequest("suggest")
			got, err := c.client.Suggest(gctx, rec, c.populated(rows, index))
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.metrics.RecordResult("suggest", "error")
				c.logger.Warn("fill missing failed", zap.Int("row", index), zap.Error(err))
				return nil
			}
			picked := make(map[string]Suggestion)
			for _, key := range missing {
				if sg, ok := got[key]; ok && !sg.Value.IsEmpty() {
					picked[key] = sg
				}
			}
			if len(picked) == 0 {
				return nil
			}
			mu.Lock()
			out[index] = picked
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// populated picks the context rows for index from a fixed snapshot.
func (c *Coordinator) populated(rows record.List, index int) []record.Record {
	sc := c.store.Schema()
	var out []record.Record
	for i, r := range rows {
		if len(out) >= c.maxContext {
			break
		}
		if i == index || !sc.HasIdentity(r) {
			continue
		}
		ok := true
		for _, key := range sc.AIAssisted() {
			if r.Get(key).IsEmpty() {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, r)
		}
	}
	return out
}

// #endregion fill-missing
