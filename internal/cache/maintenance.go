package cache

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// DeleteExpired removes every expired entry now and returns how many were removed.
func (c *Cache[K, V]) DeleteExpired() int {
	c.mu.Lock()
	evicted := c.deleteExpiredLocked(c.clock.Now())
	c.mu.Unlock()

	c.notify(evicted)
	return len(evicted)
}

// expiryLoop periodically scans and removes expired entries.
//
// A ticker-based full scan avoids per-entry goroutines/timers. Deadlines are
// per entry, so the insertion order says nothing about which entries expire
// first and the scan has to visit every node.
func (c *Cache[K, V]) expiryLoop(ticker *clock.Ticker) {
	defer c.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			// Read the cache clock rather than the tick value so mocked time stays consistent.
			if n := c.DeleteExpired(); n > 0 {
				c.logger.Debug("swept expired entries", zap.Int("removed", n))
			}
		}
	}
}

// deleteExpiredLocked removes all expired keys.
//
// This is O(n) and intentionally simple. A min-heap on deadlines would make
// sweeps cheaper at the cost of O(log n) sets.
func (c *Cache[K, V]) deleteExpiredLocked(now time.Time) []eviction[K, V] {
	var evicted []eviction[K, V]
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry[K, V])
		if e.expired(now) {
			c.removeElementLocked(el)
			c.metrics.Evict(EvictExpired)
			evicted = append(evicted, eviction[K, V]{key: e.key, value: e.value, reason: EvictExpired})
		}
		el = next
	}
	if len(evicted) > 0 {
		c.metrics.Size(len(c.items))
	}
	return evicted
}
