// Package cachectl implements the cache addon: on the request hook it answers
// GET flows from the store, on the response hook it persists fresh 200
// responses once per key. Store failures never reach the engine; they turn
// into pass-through behavior plus an Observer event.
package cachectl

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/flowcache/flowcache/internal/cache"
	"github.com/flowcache/flowcache/internal/cachekey"
	"github.com/flowcache/flowcache/internal/flow"
)

const (
	// MarkerHeader is added to every response this addon served or stored.
	MarkerHeader = "X-Cache"
	MarkerHit    = "HIT"
	MarkerMiss   = "MISS"

	// DefaultStoreTimeout bounds a single store call made from a hook.
	DefaultStoreTimeout = 5 * time.Second
)

// Options configures a Controller.
type Options struct {
	// Store may be nil, in which case the controller runs pass-through only.
	Store        cache.Store
	Observer     Observer
	StoreTimeout time.Duration
}

// Controller is safe for concurrent use by many flows.
type Controller struct {
	store    cache.Store
	observer Observer
	timeout  time.Duration
	guard    *cache.KeyedMutex
	stats    counters
}

// New builds a Controller from opts.
func New(opts Options) *Controller {
	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	timeout := opts.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &Controller{
		store:    opts.Store,
		observer: observer,
		timeout:  timeout,
		guard:    cache.NewKeyedMutex(),
	}
}

// Enabled reports whether a store is attached.
func (c *Controller) Enabled() bool {
	return c.store != nil
}

// Request implements hooks.Addon.
func (c *Controller) Request(ctx context.Context, f *flow.Flow) {
	c.OnRequest(ctx, f)
}

// Response implements hooks.Addon.
func (c *Controller) Response(ctx context.Context, f *flow.Flow) {
	c.OnResponse(ctx, f)
}

// OnRequest fills f.Response from the store when a complete entry exists for
// the flow's GET request. Any read failure leaves the slot untouched.
func (c *Controller) OnRequest(ctx context.Context, f *flow.Flow) {
	if !c.Enabled() || f.Request.Method != "GET" || f.Responded() {
		return
	}
	url := f.Request.URL
	key := cachekey.Derive(f.Request.Method, url)

	storeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ok, err := c.store.Exists(storeCtx, key)
	if err != nil {
		c.stats.readErrors.Add(1)
		c.observer.CacheError(OpRead, url, err)
		return
	}
	if !ok {
		return
	}

	entry, err := c.store.Read(storeCtx, key)
	if err != nil {
		c.stats.readErrors.Add(1)
		c.observer.CacheError(OpRead, url, err)
		return
	}

	f.Response = responseFromEntry(entry)
	f.Response.Header.Set(MarkerHeader, MarkerHit)
	c.stats.hits.Add(1)
	c.observer.CacheHit(url)
}

// OnResponse stores f.Response when it is a fresh 200 answer to a GET request.
// Entries are written at most once per key; a writer that finds the entry
// already present skips the write.
func (c *Controller) OnResponse(ctx context.Context, f *flow.Flow) {
	if !c.Enabled() || f.Request.Method != "GET" {
		return
	}
	resp := f.Response
	if resp == nil || resp.StatusCode != 200 {
		return
	}
	if resp.Header.Has(MarkerHeader) {
		return
	}

	url := f.Request.URL
	key := cachekey.Derive(f.Request.Method, url)
	entry := entryFromResponse(resp)

	var skipped bool
	err := c.guard.WithLock(key.String(), func() error {
		storeCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		exists, err := c.store.Exists(storeCtx, key)
		if err != nil {
			return err
		}
		if exists {
			skipped = true
			return nil
		}
		return c.store.Write(storeCtx, key, entry)
	})
	if err != nil {
		c.stats.writeErrors.Add(1)
		c.observer.CacheError(OpWrite, url, err)
		return
	}

	resp.Header.Set(MarkerHeader, MarkerMiss)
	if skipped {
		c.stats.skipped.Add(1)
		return
	}
	c.stats.stored.Add(1)
	c.observer.CacheStored(url)
}

// Stats returns a snapshot of the controller counters.
func (c *Controller) Stats() Stats {
	return Stats{
		Enabled:     c.Enabled(),
		Hits:        c.stats.hits.Load(),
		Stored:      c.stats.stored.Load(),
		Skipped:     c.stats.skipped.Load(),
		ReadErrors:  c.stats.readErrors.Load(),
		WriteErrors: c.stats.writeErrors.Load(),
	}
}

// Stats counts hook outcomes since the controller was created.
type Stats struct {
	Enabled     bool  `json:"enabled"`
	Hits        int64 `json:"hits"`
	Stored      int64 `json:"stored"`
	Skipped     int64 `json:"skipped"`
	ReadErrors  int64 `json:"read_errors"`
	WriteErrors int64 `json:"write_errors"`
}

type counters struct {
	hits        atomic.Int64
	stored      atomic.Int64
	skipped     atomic.Int64
	readErrors  atomic.Int64
	writeErrors atomic.Int64
}

// ErrorKind classifies a hook error for logs and metrics.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, cache.ErrCorruptEntry):
		return "corrupt_entry"
	case errors.Is(err, cache.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, cache.ErrWriteFailed):
		return "write_failed"
	default:
		return "io"
	}
}

func responseFromEntry(entry *cache.Entry) *flow.Response {
	var header flow.Header
	for _, field := range entry.Header {
		header.Add(field.Name, field.Value)
	}
	return &flow.Response{
		StatusCode: entry.Status,
		Header:     header,
		Body:       entry.Body,
	}
}

func entryFromResponse(resp *flow.Response) *cache.Entry {
	fields := resp.Header.Fields()
	entry := &cache.Entry{
		Status: resp.StatusCode,
		Body:   append([]byte(nil), resp.Body...),
		Header: make([]cache.HeaderField, 0, len(fields)),
	}
	for _, field := range fields {
		entry.Header = append(entry.Header, cache.HeaderField{Name: field.Name, Value: field.Value})
	}
	return entry
}
