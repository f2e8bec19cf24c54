// Package detail caches person detail records fetched from a provider.
package detail

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"treepilot/family"
	"treepilot/metrics"
)

// Provider fetches the extended record for one person.
type Provider interface {
	PersonDetail(ctx context.Context, id string) (*family.Detail, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, id string) (*family.Detail, error)

// PersonDetail implements Provider.
func (f ProviderFunc) PersonDetail(ctx context.Context, id string) (*family.Detail, error) {
	return f(ctx, id)
}

// Status is the lifecycle of one cache entry as seen by a popover.
type Status int

const (
	Absent Status = iota
	Loading
	Ready
	Failed
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "absent"
	}
}

// MarshalText renders the status name in JSON payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Entry is the non-blocking view of one id.
type Entry struct {
	ID     string         `json:"id"`
	Status Status         `json:"status"`
	Record *family.Detail `json:"record,omitempty"`
	Err    error          `json:"-"`
}

// Message returns the inline error text for a failed entry.
func (e Entry) Message() string {
	if e.Err == nil {
		return ""
	}
	if errors.Is(e.Err, family.ErrPersonNotFound) {
		return "No details available for this person"
	}
	return "Could not load details: " + e.Err.Error()
}

// Listener is called when a requested entry settles.
type Listener func(Entry)

// Options configures the cache.
type Options struct {
	// FetchTimeout bounds one shared provider call. Zero means no timeout.
	FetchTimeout time.Duration `json:"fetchTimeout" yaml:"fetch_timeout" toml:"fetch_timeout" validate:"gte=0"`
	// MaxEntries bounds the cache with LRU eviction. Zero keeps every record for the session.
	MaxEntries int `json:"maxEntries" yaml:"max_entries" toml:"max_entries" validate:"gte=0"`
	// PrefetchConcurrency limits parallel fetches in Prefetch.
	PrefetchConcurrency int `json:"prefetchConcurrency" yaml:"prefetch_concurrency" toml:"prefetch_concurrency" validate:"gte=0"`
}

// DefaultOptions returns an unbounded cache with a 10s fetch timeout.
func DefaultOptions() Options {
	return Options{FetchTimeout: 10 * time.Second, PrefetchConcurrency: 4}
}

type item struct {
	id     string
	record *family.Detail
	elem   *list.Element
}

// Cache stores successful lookups by id. Failures are never stored, so the next
// request for the same id retries. Concurrent lookups of one id share a single
// provider call, which runs detached from any one caller's context.
type Cache struct {
	provider Provider
	opts     Options
	logger   *zap.Logger
	metrics  *metrics.Collector
	group    singleflight.Group

	mu sync.Mutex
	// gen is bumped by Invalidate; fetches started in an older generation are not stored.
	gen       uint64
	items     map[string]*item
	lru       *list.List
	inflight  map[string]bool
	failures  map[string]error
	listeners map[int]Listener
	nextID    int
}

// New creates an empty cache over provider.
func New(provider Provider, opts Options, logger *zap.Logger, m *metrics.Collector) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		provider:  provider,
		opts:      opts,
		logger:    logger,
		metrics:   m,
		items:     make(map[string]*item),
		lru:       list.New(),
		inflight:  make(map[string]bool),
		failures:  make(map[string]error),
		listeners: make(map[int]Listener),
	}
}

// Get returns the record for id, fetching it once if it is not cached.
func (c *Cache) Get(ctx context.Context, id string) (*family.Detail, error) {
	if rec, ok := c.lookup(id); ok {
		c.metrics.CacheHit()
		return rec, nil
	}
	c.metrics.CacheMiss()

	ch, _ := c.shared(ctx, id)
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*family.Detail), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Request returns the current entry for id without blocking. When the record
// is neither cached nor in flight a background fetch starts and the entry is
// Loading; listeners hear about the settled entry.
func (c *Cache) Request(id string) Entry {
	c.mu.Lock()
	if it, ok := c.items[id]; ok {
		c.lru.MoveToFront(it.elem)
		c.mu.Unlock()
		c.metrics.CacheHit()
		return Entry{ID: id, Status: Ready, Record: it.record}
	}
	if c.inflight[id] {
		c.mu.Unlock()
		return Entry{ID: id, Status: Loading}
	}
	c.inflight[id] = true
	delete(c.failures, id)
	c.mu.Unlock()
	c.metrics.CacheMiss()

	go func() {
		ch, gen := c.shared(context.Background(), id)
		res := <-ch

		e := Entry{ID: id, Status: Ready}
		c.mu.Lock()
		current := gen == c.gen
		if current {
			delete(c.inflight, id)
		}
		if res.Err != nil {
			if current {
				c.failures[id] = res.Err
			}
			e.Status, e.Err = Failed, res.Err
		} else {
			e.Record = res.Val.(*family.Detail)
		}
		c.mu.Unlock()
		c.notify(e)
	}()
	return Entry{ID: id, Status: Loading}
}

// Peek returns the entry for id without starting a fetch.
func (c *Cache) Peek(id string) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, ok := c.items[id]; ok {
		return Entry{ID: id, Status: Ready, Record: it.record}
	}
	if c.inflight[id] {
		return Entry{ID: id, Status: Loading}
	}
	if err, ok := c.failures[id]; ok {
		return Entry{ID: id, Status: Failed, Err: err}
	}
	return Entry{ID: id, Status: Absent}
}

// Prefetch warms the cache for ids. Individual failures are logged, not returned.
func (c *Cache) Prefetch(ctx context.Context, ids []string) error {
	g, ctx := errgroup.WithContext(ctx)
	if n := c.opts.PrefetchConcurrency; n > 0 {
		g.SetLimit(n)
	}
	for _, id := range ids {
		g.Go(func() error {
			if _, err := c.Get(ctx, id); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.Debug("prefetch failed", zap.String("person_id", id), zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Invalidate drops every cached record, for example after the data file changed.
// Fetches still in flight settle for their callers but are not stored.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.items = make(map[string]*item)
	c.lru.Init()
	c.inflight = make(map[string]bool)
	c.failures = make(map[string]error)
}

// Subscribe registers fn for settled Request entries and returns a function that removes it.
func (c *Cache) Subscribe(fn Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Cache) lookup(id string) (*family.Detail, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[id]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(it.elem)
	return it.record, true
}

// shared joins or starts the provider call for id in the current generation.
// The call keeps ctx's values but not its cancellation, so one caller giving up
// does not fail the others.
func (c *Cache) shared(ctx context.Context, id string) (<-chan singleflight.Result, uint64) {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	key := fmt.Sprintf("%d/%s", gen, id)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		fctx := context.WithoutCancel(ctx)
		if c.opts.FetchTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, c.opts.FetchTimeout)
			defer cancel()
		}
		return c.fetch(fctx, id, gen)
	})
	return ch, gen
}

func (c *Cache) fetch(ctx context.Context, id string, gen uint64) (*family.Detail, error) {
	if c.provider == nil {
		return nil, fmt.Errorf("fetch detail %s: no provider", id)
	}
	rec, err := c.provider.PersonDetail(ctx, id)
	if err == nil && rec == nil {
		err = fmt.Errorf("%w: %s", family.ErrPersonNotFound, id)
	}
	if err != nil {
		c.metrics.CacheFailure()
		c.logger.Warn("detail fetch failed", zap.String("person_id", id), zap.Error(err))
		return nil, fmt.Errorf("fetch detail %s: %w", id, err)
	}
	c.store(id, rec, gen)
	return rec, nil
}

func (c *Cache) store(id string, rec *family.Detail, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	if it, ok := c.items[id]; ok {
		it.record = rec
		c.lru.MoveToFront(it.elem)
		return
	}
	it := &item{id: id, record: rec}
	it.elem = c.lru.PushFront(it)
	c.items[id] = it
	delete(c.failures, id)

	if max := c.opts.MaxEntries; max > 0 {
		for c.lru.Len() > max {
			oldest := c.lru.Back()
			evicted := oldest.Value.(*item)
			c.lru.Remove(oldest)
			delete(c.items, evicted.id)
		}
	}
}

func (c *Cache) notify(e Entry) {
	c.mu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(e)
	}
}
