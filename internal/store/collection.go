// Package store is the application-state layer: one synchronizer per
// backend collection, a session store, a local expense ledger and the
// container wiring them together.
package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"boltvisa/internal/cache"
	apperrors "boltvisa/internal/common/errors"
	"boltvisa/internal/common/logger"
	"boltvisa/internal/common/metrics"
	"boltvisa/internal/models"
	"boltvisa/internal/normalize"
)

// OpKind identifies an operation family. Each kind tracks its in-flight
// count independently, so a pending delete never masks a settled fetch.
type OpKind string

const (
	OpFetch  OpKind = "fetch"
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Record is anything a collection can hold.
type Record interface {
	Key() string
}

// call issues one backend request and returns its raw payload.
type call func(ctx context.Context) ([]byte, error)

// Collection owns one collection's records, pagination and operation
// lifecycle. All merges run under the mutex; completions apply in
// resolution order, so the last settled operation wins.
type Collection[T Record] struct {
	mu         sync.Mutex
	name       string
	items      []T
	pagination models.Pagination
	inflight   map[OpKind]int
	lastError  string

	cache    *cache.Cache
	cacheKey string
	log      logger.Logger
}

func newCollection[T Record](name, cacheKey string, c *cache.Cache, log logger.Logger) *Collection[T] {
	return &Collection[T]{
		name:       name,
		pagination: models.Pagination{Page: 1, Limit: 10},
		inflight:   make(map[OpKind]int),
		cache:      c,
		cacheKey:   cacheKey,
		log:        log.WithFields(map[string]interface{}{"collection": name}),
	}
}

// Items returns a copy of the current records.
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Find returns a copy of the record with the given id.
func (c *Collection[T]) Find(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if it.Key() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Pagination returns the current paging state.
func (c *Collection[T]) Pagination() models.Pagination {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pagination
}

// SetPage records the page the next fetch should request.
func (c *Collection[T]) SetPage(page int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if page > 0 {
		c.pagination.Page = page
	}
}

// SetLimit records the page size the next fetch should request.
func (c *Collection[T]) SetLimit(limit int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if limit > 0 {
		c.pagination.Limit = limit
		c.pagination.Recompute()
	}
}

// Loading reports whether any operation is in flight.
func (c *Collection[T]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.inflight {
		if n > 0 {
			return true
		}
	}
	return false
}

// LoadingOp reports whether an operation of the given kind is in flight.
func (c *Collection[T]) LoadingOp(kind OpKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[kind] > 0
}

// Error returns the last operation failure message, empty after any
// success.
func (c *Collection[T]) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// ClearError resets the failure message without touching records.
func (c *Collection[T]) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = ""
}

func (c *Collection[T]) begin(kind OpKind) time.Time {
	c.mu.Lock()
	c.inflight[kind]++
	c.mu.Unlock()
	metrics.SyncOperationsInFlight.WithLabelValues(c.name).Inc()
	return time.Now()
}

func (c *Collection[T]) endLocked(kind OpKind) {
	if c.inflight[kind] > 0 {
		c.inflight[kind]--
	}
	metrics.SyncOperationsInFlight.WithLabelValues(c.name).Dec()
}

func (c *Collection[T]) settleSuccess(kind OpKind, started time.Time) {
	metrics.SyncOperationsCompleted.WithLabelValues(c.name, string(kind)).Inc()
	metrics.SyncOperationDuration.WithLabelValues(c.name, string(kind)).Observe(time.Since(started).Seconds())
}

// settleFailure records the failure message and leaves the records
// untouched: stale data beats no data.
func (c *Collection[T]) settleFailure(kind OpKind, started time.Time, err error, fallback string) {
	c.mu.Lock()
	c.lastError = apperrors.Message(err, fallback)
	c.endLocked(kind)
	c.mu.Unlock()

	metrics.SyncOperationsFailed.WithLabelValues(c.name, string(kind), string(apperrors.CodeOf(err))).Inc()
	metrics.SyncOperationDuration.WithLabelValues(c.name, string(kind)).Observe(time.Since(started).Seconds())
	c.log.WithError(err).Warn("operation failed", map[string]interface{}{"operation": string(kind)})
}

// fetch runs a listing call and replaces the records with the
// normalized result. On failure the current records are retained and,
// when none exist, the persisted copies are restored.
func (c *Collection[T]) fetch(ctx context.Context, do call, fallback string) error {
	c.mu.Lock()
	page, limit := c.pagination.Page, c.pagination.Limit
	c.mu.Unlock()

	started := c.begin(OpFetch)
	payload, err := do(ctx)
	if err != nil {
		c.settleFailure(OpFetch, started, err, fallback)
		c.restoreFromCache(ctx)
		return err
	}

	res := normalize.List(payload, c.name, page, limit)
	if !res.Matched {
		c.log.Warn("unrecognized listing payload", map[string]interface{}{"bytes": len(payload)})
	}
	items := decodeItems[T](res.Items)

	c.mu.Lock()
	c.items = items
	c.pagination = res.Pagination
	c.lastError = ""
	c.endLocked(OpFetch)
	c.mu.Unlock()

	c.settleSuccess(OpFetch, started)
	c.mirror(ctx)
	return nil
}

// create runs a creation call and, on success, prepends the created
// record and bumps the total. A success without a decodable record
// still counts toward the total; the next fetch reconciles.
func (c *Collection[T]) create(ctx context.Context, do call, fallback string) (T, error) {
	var created T

	started := c.begin(OpCreate)
	payload, err := do(ctx)
	if err != nil {
		c.settleFailure(OpCreate, started, err, fallback)
		return created, err
	}

	decoded := false
	if raw, ok := normalize.Item(payload); ok {
		if json.Unmarshal(raw, &created) == nil && created.Key() != "" {
			decoded = true
		}
	}

	c.mu.Lock()
	if decoded {
		c.items = append([]T{created}, c.items...)
	}
	c.pagination.Total++
	c.pagination.Recompute()
	c.lastError = ""
	c.endLocked(OpCreate)
	c.mu.Unlock()

	c.settleSuccess(OpCreate, started)
	if decoded {
		if cerr := c.cache.PutRecord(ctx, c.cacheKey, created.Key(), created); cerr != nil {
			c.log.WithError(cerr).Warn("cache write failed", nil)
		}
	}
	return created, nil
}

// update runs an update call and merges the returned record over the
// local copy, field by field. Fields absent from the response keep
// their local values.
func (c *Collection[T]) update(ctx context.Context, id string, do call, fallback string) error {
	started := c.begin(OpUpdate)
	payload, err := do(ctx)
	if err != nil {
		c.settleFailure(OpUpdate, started, err, fallback)
		return err
	}

	var merged T
	var found bool
	raw, hasRecord := normalize.Item(payload)

	c.mu.Lock()
	for i := range c.items {
		if c.items[i].Key() != id {
			continue
		}
		if hasRecord {
			m := c.items[i]
			if json.Unmarshal(raw, &m) == nil {
				c.items[i] = m
			}
		}
		merged, found = c.items[i], true
		break
	}
	c.lastError = ""
	c.endLocked(OpUpdate)
	c.mu.Unlock()

	c.settleSuccess(OpUpdate, started)
	if found {
		if cerr := c.cache.PutRecord(ctx, c.cacheKey, merged.Key(), merged); cerr != nil {
			c.log.WithError(cerr).Warn("cache write failed", nil)
		}
	}
	return nil
}

// remove runs a delete call and, on success, drops the record locally
// and from the persisted copy. The total shrinks with it.
func (c *Collection[T]) remove(ctx context.Context, id string, do call, fallback string) error {
	started := c.begin(OpDelete)
	if _, err := do(ctx); err != nil {
		c.settleFailure(OpDelete, started, err, fallback)
		return err
	}

	c.mu.Lock()
	kept := c.items[:0:0]
	removed := false
	for _, it := range c.items {
		if it.Key() == id {
			removed = true
			continue
		}
		kept = append(kept, it)
	}
	c.items = kept
	if removed && c.pagination.Total > 0 {
		c.pagination.Total--
		c.pagination.Recompute()
	}
	c.lastError = ""
	c.endLocked(OpDelete)
	c.mu.Unlock()

	c.settleSuccess(OpDelete, started)
	if cerr := c.cache.DeleteRecord(ctx, c.cacheKey, id); cerr != nil {
		c.log.WithError(cerr).Warn("cache delete failed", nil)
	}
	return nil
}

// execute runs a call under the given operation kind without merging
// its payload. Used for status transitions whose local effect is
// applied separately via mutate.
func (c *Collection[T]) execute(ctx context.Context, kind OpKind, do call, fallback string) error {
	started := c.begin(kind)
	if _, err := do(ctx); err != nil {
		c.settleFailure(kind, started, err, fallback)
		return err
	}

	c.mu.Lock()
	c.lastError = ""
	c.endLocked(kind)
	c.mu.Unlock()

	c.settleSuccess(kind, started)
	return nil
}

// mutate applies f to the record with the given id under the lock and
// persists the result when f reports a change. The lock makes
// check-and-transition sequences atomic.
func (c *Collection[T]) mutate(ctx context.Context, id string, f func(*T) bool) (T, bool) {
	var out T
	changed := false

	c.mu.Lock()
	for i := range c.items {
		if c.items[i].Key() != id {
			continue
		}
		changed = f(&c.items[i])
		out = c.items[i]
		break
	}
	c.mu.Unlock()

	if changed {
		if cerr := c.cache.PutRecord(ctx, c.cacheKey, out.Key(), out); cerr != nil {
			c.log.WithError(cerr).Warn("cache write failed", nil)
		}
	}
	return out, changed
}

// mirror replaces the persisted copy with the current records.
func (c *Collection[T]) mirror(ctx context.Context) {
	c.mu.Lock()
	recs := make(map[string]interface{}, len(c.items))
	for _, it := range c.items {
		if it.Key() != "" {
			recs[it.Key()] = it
		}
	}
	c.mu.Unlock()

	if err := c.cache.ReplaceAll(ctx, c.cacheKey, recs); err != nil {
		c.log.WithError(err).Warn("cache mirror failed", nil)
	}
}

// restoreFromCache loads the persisted copies if the collection is
// empty, so a cold start with an unreachable backend still has data.
func (c *Collection[T]) restoreFromCache(ctx context.Context) {
	c.mu.Lock()
	empty := len(c.items) == 0
	c.mu.Unlock()
	if !empty {
		return
	}

	raws, err := c.cache.Records(ctx, c.cacheKey)
	if err != nil {
		c.log.WithError(err).Warn("cache restore failed", nil)
		return
	}
	if len(raws) == 0 {
		return
	}

	items := make([]T, 0, len(raws))
	for _, r := range raws {
		var v T
		if json.Unmarshal(r, &v) == nil && v.Key() != "" {
			items = append(items, v)
		}
	}

	c.mu.Lock()
	if len(c.items) == 0 {
		c.items = items
		c.pagination.Total = len(items)
		c.pagination.Recompute()
	}
	c.mu.Unlock()
	c.log.Info("restored records from cache", map[string]interface{}{"count": len(items)})
}

func decodeItems[T Record](raws []json.RawMessage) []T {
	out := make([]T, 0, len(raws))
	for _, r := range raws {
		var v T
		if err := json.Unmarshal(r, &v); err == nil {
			out = append(out, v)
		}
	}
	return out
}
