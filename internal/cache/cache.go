package cache

import (
	"container/list"
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/samber/mo"
	"go.uber.org/zap"
)

// Cache is a concurrency-safe in-memory key–value cache with TTL and FIFO eviction.
//
// A map gives O(1) key lookup, and a doubly-linked list records insertion
// order. Re-setting a key counts as a fresh insertion. Reads never reorder
// the list, so live hits only need the read lock.
//
// Ownership model:
// Cache owns its cleanup goroutine (if any). Call Close to stop it.
type Cache[K comparable, V any] struct {
	mu sync.RWMutex

	ttl        time.Duration
	maxEntries int
	items      map[K]*list.Element
	order      *list.List // Front = oldest insertion/refresh, Back = newest

	clock   clock.Clock
	logger  *zap.Logger
	metrics Metrics
	onEvict func(K, V, EvictReason)
	loads   flights[K]

	// Goroutine ownership.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cleanupEvery time.Duration
	closed       bool
}

// entry is the value stored in the order list elements.
// We keep the key here because eviction starts from list nodes.
//
// hasExpiry=false means "never expires".
type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
	hasExpiry bool
}

func (e *entry[K, V]) expired(now time.Time) bool {
	return e.hasExpiry && !e.expiresAt.After(now)
}

// Item is a copy of one stored entry. ExpiresAt is the zero time for
// entries that never expire.
type Item[K comparable, V any] struct {
	Key       K
	Value     V
	ExpiresAt time.Time
}

type eviction[K comparable, V any] struct {
	key    K
	value  V
	reason EvictReason
}

// New validates cfg, constructs a cache and starts background maintenance (if enabled).
func New[K comparable, V any](cfg Config[K, V], opts ...Option) (*Cache[K, V], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Cache[K, V]{
		ttl:          cfg.TTL,
		maxEntries:   cfg.MaxEntries,
		items:        make(map[K]*list.Element),
		order:        list.New(),
		clock:        o.clock,
		logger:       o.logger,
		metrics:      o.metrics,
		onEvict:      cfg.OnEvict,
		ctx:          ctx,
		cancel:       cancel,
		cleanupEvery: cfg.CleanupInterval,
	}

	if c.cleanupEvery > 0 {
		// The ticker is created here, not in the goroutine, so the first
		// deadline is anchored to construction time.
		ticker := c.clock.Ticker(c.cleanupEvery)
		c.wg.Add(1)
		go c.expiryLoop(ticker)
	}

	return c, nil
}

// Close stops background goroutines. The cache itself stays usable;
// expired entries are then only removed lazily or by DeleteExpired.
//
// Close is safe to call multiple times.
func (c *Cache[K, V]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel := c.cancel
	c.mu.Unlock()

	// Cancel outside the lock so shutdown doesn't block readers/writers.
	cancel()
	c.wg.Wait()
	c.logger.Debug("cache closed")
	return nil
}

// Set writes/overwrites a key using the cache's default TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL writes/overwrites a key with a TTL for this entry only.
//
// ttl semantics:
//   - ttl == 0 means "no expiration"
//   - ttl < 0 stores an entry that is already expired: lookups miss and it
//     is removed on first access or sweep, but it occupies a slot until then
//
// Overwriting an existing key replaces its value and deadline and moves it
// to the newest position in eviction order. Adding a new key to a full
// cache evicts exactly one entry: the oldest insertion/refresh.
func (c *Cache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	now := c.clock.Now()

	// Compute expiry once. Using hasExpiry avoids comparing against the zero time.
	var expiresAt time.Time
	hasExpiry := ttl != 0
	if hasExpiry {
		expiresAt = now.Add(ttl)
	}

	c.mu.Lock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value = value
		e.hasExpiry = hasExpiry
		e.expiresAt = expiresAt

		c.order.MoveToBack(el)
		c.mu.Unlock()
		return
	}

	var evicted []eviction[K, V]
	if c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		if ev, ok := c.evictOldestLocked(); ok {
			evicted = append(evicted, ev)
		}
	}

	c.items[key] = c.order.PushBack(&entry[K, V]{
		key:       key,
		value:     value,
		hasExpiry: hasExpiry,
		expiresAt: expiresAt,
	})
	c.metrics.Size(len(c.items))
	c.mu.Unlock()

	c.notify(evicted)
}

// Get reads a key. A missing or expired key yields a *NotFoundError
// carrying the key; errors.Is(err, ErrNotFound) reports true for it.
func (c *Cache[K, V]) Get(key K) (V, error) {
	return c.GetWithDefault(key, mo.None[V]())
}

// GetWithDefault reads a key, returning the default (and no error) on a
// miss when one is present.
func (c *Cache[K, V]) GetWithDefault(key K, def mo.Option[V]) (V, error) {
	v, ok := c.lookup(key)
	c.recordLookup(ok)
	if ok {
		return v, nil
	}
	if d, present := def.Get(); present {
		return d, nil
	}
	var zero V
	return zero, &NotFoundError[K]{Key: key}
}

// GetOr reads a key, returning def on a miss.
func (c *Cache[K, V]) GetOr(key K, def V) V {
	v, _ := c.GetWithDefault(key, mo.Some(def))
	return v
}

// Lookup reads a key and reports absence as mo.None.
func (c *Cache[K, V]) Lookup(key K) mo.Option[V] {
	v, ok := c.lookup(key)
	c.recordLookup(ok)
	if !ok {
		return mo.None[V]()
	}
	return mo.Some(v)
}

// Contains reports whether key is stored and not expired.
//
// Side effect: like Get, it removes an expired entry it finds.
func (c *Cache[K, V]) Contains(key K) bool {
	_, ok := c.lookup(key)
	return ok
}

// Delete removes a key if present.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElementLocked(el)
		c.metrics.Size(len(c.items))
	}
}

// Clear removes every entry without invoking OnEvict.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.items)
	c.order.Init()
	c.metrics.Size(0)
}

// Len returns the number of currently stored entries.
//
// Note: Len includes entries that have expired but haven't been removed yet.
// Lazy expiration removes them when accessed; the cleanup loop removes them over time.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Keys returns stored keys oldest -> newest.
func (c *Cache[K, V]) Keys() []K {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]K, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry[K, V]).key)
	}
	return out
}

// Items returns a snapshot of stored entries oldest -> newest, including
// expired entries that have not been removed yet.
func (c *Cache[K, V]) Items() []Item[K, V] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Item[K, V], 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry[K, V])
		out = append(out, Item[K, V]{Key: e.key, Value: e.value, ExpiresAt: e.expiresAt})
	}
	return out
}

// All iterates over a snapshot taken when iteration starts, in the same
// order and with the same contents as Items.
func (c *Cache[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, it := range c.Items() {
			if !yield(it.Key, it.Value) {
				return
			}
		}
	}
}

// String renders up to three entries, oldest first, e.g. "{a:1, b:2, c:3, ...}".
func (c *Cache[K, V]) String() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	const shown = 3

	var b strings.Builder
	b.WriteByte('{')
	i := 0
	for el := c.order.Front(); el != nil; el = el.Next() {
		if i == shown {
			b.WriteString(", ...")
			break
		}
		if i > 0 {
			b.WriteString(", ")
		}
		e := el.Value.(*entry[K, V])
		fmt.Fprintf(&b, "%v:%v", e.key, e.value)
		i++
	}
	b.WriteByte('}')
	return b.String()
}

// lookup returns a live value. An expired entry is removed on the way out.
func (c *Cache[K, V]) lookup(key K) (V, bool) {
	var zero V
	now := c.clock.Now()

	c.mu.RLock()
	el, ok := c.items[key]
	if !ok {
		c.mu.RUnlock()
		return zero, false
	}

	e := el.Value.(*entry[K, V])
	if !e.expired(now) {
		v := e.value
		c.mu.RUnlock()
		return v, true
	}
	c.mu.RUnlock()

	// Expired: must upgrade to write lock to delete.
	// Re-check happens inside deleteIfExpiredLocked because the key could
	// have been refreshed between locks.
	c.mu.Lock()
	ev, removed := c.deleteIfExpiredLocked(key, now)
	c.mu.Unlock()

	if removed {
		c.notify([]eviction[K, V]{ev})
	}
	return zero, false
}

func (c *Cache[K, V]) recordLookup(hit bool) {
	if hit {
		c.metrics.Hit()
		return
	}
	c.metrics.Miss()
}

func (c *Cache[K, V]) evictOldestLocked() (eviction[K, V], bool) {
	el := c.order.Front()
	if el == nil {
		return eviction[K, V]{}, false
	}
	e := c.removeElementLocked(el)
	c.metrics.Evict(EvictCapacity)
	c.logger.Debug("evicted oldest entry",
		zap.Any("key", e.key),
		zap.Int("max_entries", c.maxEntries))
	return eviction[K, V]{key: e.key, value: e.value, reason: EvictCapacity}, true
}

func (c *Cache[K, V]) removeElementLocked(el *list.Element) *entry[K, V] {
	e := c.order.Remove(el).(*entry[K, V])
	delete(c.items, e.key)
	return e
}

func (c *Cache[K, V]) deleteIfExpiredLocked(key K, now time.Time) (eviction[K, V], bool) {
	el, ok := c.items[key]
	if !ok {
		return eviction[K, V]{}, false
	}
	e := el.Value.(*entry[K, V])
	if !e.expired(now) {
		return eviction[K, V]{}, false
	}
	c.removeElementLocked(el)
	c.metrics.Evict(EvictExpired)
	c.metrics.Size(len(c.items))
	return eviction[K, V]{key: e.key, value: e.value, reason: EvictExpired}, true
}

// notify runs the eviction callback. Callers must not hold c.mu.
func (c *Cache[K, V]) notify(evicted []eviction[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, ev := range evicted {
		c.onEvict(ev.key, ev.value, ev.reason)
	}
}
