// Package query is the client's cache of server state.
//
// Entries are keyed by path (see Key) and hold the last value confirmed by the
// server. A read of a missing, stale or failed entry starts a fetch through
// the configured Fetcher; concurrent readers of the same key share that one
// fetch. Invalidate marks entries stale by key prefix without refetching;
// the next read does that.
//
// # Superseded fetches
//
// A fetch that is in flight when its key is invalidated still stores its
// result, but the entry stays stale, so the next Read or Fetch goes back to the
// server. Fetch itself retries once in that case so a caller that reads after
// a successful mutation sees post-mutation data.
//
// # Change notification
//
// Every status change is published on the event bus as a query event carrying
// the concrete key. Views register interest in a prefix with Subscribe and
// must Close the subscription when they go away.
package query

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"flashcards/internal/client/events"
)

var (
	// ErrDisabled is returned by Fetch for keys with an empty segment.
	ErrDisabled = errors.New("query disabled: missing identifier")

	// ErrClosed is returned by Fetch after Close.
	ErrClosed = errors.New("query cache closed")
)

// Status is the fetch state of an entry.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Fetcher loads the server value for a key.
type Fetcher interface {
	Fetch(ctx context.Context, key Key) (any, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, key Key) (any, error)

func (f FetcherFunc) Fetch(ctx context.Context, key Key) (any, error) { return f(ctx, key) }

// Entry is a point-in-time copy of a cache entry.
// Value is shared with other readers and must not be modified.
type Entry struct {
	Key       Key
	Value     any
	HasValue  bool
	Status    Status
	Err       error
	Stale     bool
	FetchedAt time.Time
	Disabled  bool
}

// Fresh reports whether the entry holds a value that needs no refetch.
func (e Entry) Fresh() bool {
	return e.HasValue && !e.Stale && e.Status != StatusError
}

type flight struct {
	done  chan struct{}
	gen   uint64
	value any
	err   error
}

type entry struct {
	key       Key
	value     any
	hasValue  bool
	status    Status
	err       error
	stale     bool
	fetchedAt time.Time

	// gen is bumped by every invalidation; a flight remembers the gen it
	// started at so a superseded result can be told apart.
	gen    uint64
	flight *flight
}

func (e *entry) fresh() bool {
	return e.hasValue && !e.stale && e.status != StatusError
}

func (e *entry) snapshot() Entry {
	return Entry{
		Key:       e.key.clone(),
		Value:     e.value,
		HasValue:  e.hasValue,
		Status:    e.status,
		Err:       e.err,
		Stale:     e.stale,
		FetchedAt: e.fetchedAt,
	}
}

// Cache owns all query entries.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	closed  bool

	fetcher Fetcher
	bus     *events.Bus
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Cache.
type Option func(*Cache)

// WithEventBus publishes query events on bus instead of a private bus.
func WithEventBus(bus *events.Bus) Option {
	return func(c *Cache) { c.bus = bus }
}

// WithClock overrides time.Now for FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache that loads values through fetcher.
func New(fetcher Fetcher, opts ...Option) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		entries: make(map[string]*entry),
		fetcher: fetcher,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.bus == nil {
		c.bus = events.NewBus()
	}
	return c
}

// Bus returns the bus query events are published on.
func (c *Cache) Bus() *events.Bus {
	return c.bus
}

// Read returns the current state of key. If the entry is missing, stale or
// failed and no fetch is running, a background fetch is started and the
// returned entry reports StatusLoading. Read never blocks on the network.
func (c *Cache) Read(key Key) Entry {
	if !key.Enabled() {
		return Entry{Key: key.clone(), Disabled: true}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(key)
	if !c.closed && !e.fresh() {
		c.startLocked(e)
	}
	return e.snapshot()
}

// Peek returns the current state of key without starting a fetch.
func (c *Cache) Peek(key Key) Entry {
	if !key.Enabled() {
		return Entry{Key: key.clone(), Disabled: true}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key.id()]; ok {
		return e.snapshot()
	}
	return Entry{Key: key.clone()}
}

// Fetch returns a fresh value for key, joining a running fetch or starting
// one as needed. ctx bounds only the wait: the fetch itself keeps running and
// updates the cache if the caller gives up.
func (c *Cache) Fetch(ctx context.Context, key Key) (any, error) {
	if !key.Enabled() {
		return nil, ErrDisabled
	}

	for attempt := 0; ; attempt++ {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}
		e := c.entryLocked(key)
		if e.fresh() {
			v := e.value
			c.mu.Unlock()
			return v, nil
		}
		f := c.startLocked(e)
		c.mu.Unlock()

		select {
		case <-f.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if f.err != nil {
			return nil, f.err
		}

		c.mu.Lock()
		superseded := e.gen != f.gen
		c.mu.Unlock()
		if !superseded || attempt > 0 {
			return f.value, nil
		}
	}
}

// Invalidate marks every entry whose key starts with prefix as stale and
// returns how many entries were marked. Nothing is refetched here.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		e.stale = true
		e.gen++
		n++
		c.bus.PublishQuery(events.EventQueryInvalidated, e.key.clone(), nil)
	}
	return n
}

// Clear drops every entry. Fetches still in flight complete for their waiters
// but their results are not stored.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.bus.PublishQuery(events.EventQueryCleared, nil, nil)
}

// Keys returns the keys of all entries, sorted.
func (c *Cache) Keys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]Key, 0, len(c.entries))
	for _, e := range c.entries {
		keys = append(keys, e.key.clone())
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].id() < keys[j].id() })
	return keys
}

// Close cancels in-flight fetches and waits for them to finish.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Cache) entryLocked(key Key) *entry {
	id := key.id()
	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: key.clone()}
		c.entries[id] = e
	}
	return e
}

// startLocked returns the running flight for e, starting one if there is none.
func (c *Cache) startLocked(e *entry) *flight {
	if e.flight != nil {
		return e.flight
	}

	f := &flight{done: make(chan struct{}), gen: e.gen}
	e.flight = f
	e.status = StatusLoading
	c.bus.PublishQuery(events.EventQueryLoading, e.key.clone(), nil)

	c.wg.Add(1)
	go c.run(e, f)
	return f
}

func (c *Cache) run(e *entry, f *flight) {
	defer c.wg.Done()

	value, err := c.fetcher.Fetch(c.ctx, e.key.clone())

	c.mu.Lock()
	f.value, f.err = value, err
	e.flight = nil

	// Entry dropped by Clear while we were fetching.
	if c.entries[e.key.id()] == e {
		if err != nil {
			e.status = StatusError
			e.err = err
			c.bus.PublishQuery(events.EventQueryError, e.key.clone(), err)
		} else {
			e.value = value
			e.hasValue = true
			e.status = StatusIdle
			e.err = nil
			e.fetchedAt = c.now()
			e.stale = e.gen != f.gen
			c.bus.PublishQuery(events.EventQuerySuccess, e.key.clone(), nil)
		}
	}
	c.mu.Unlock()

	close(f.done)
}
