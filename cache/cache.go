package cache

import (
	"sync"

	"github.com/IvanBrykalov/refcache/internal/util"
)

// cache is a fixed-capacity refcounted LRU store. One mutex guards the
// recency order and both tables. Destructors never run while the lock is
// held: bookkeeping completes first, then the destructor is invoked, so
// slow or re-entrant collaborator cleanup cannot stall or deadlock the
// cache.
type cache[K comparable, V comparable] struct {
	// ---- guarded by mu ----
	mu     sync.Mutex
	ord    *recency[K]
	active map[K]*entry[K, V] // owner -> current generation
	// pending holds superseded generations that still have outstanding
	// checkouts, keyed by payload identity. A record exists here only
	// while its refcount > 0.
	pending map[V]*entry[K, V]
	closed  bool

	opt Options[K, V]

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_      util.CacheLinePad
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
	evicts util.PaddedAtomicUint64
}

// drop is a destructor invocation deferred until the lock is released.
type drop[V comparable] struct {
	dtor    func(V)
	payload V
}

// New constructs a cache with the provided Options.
// Defaults:
//   - Capacity <= 0 => DefaultCapacity
//   - nil Metrics   => NoopMetrics
//   - nil Logger    => NopLogger
func New[K comparable, V comparable](opt Options[K, V]) Cache[K, V] {
	if opt.Capacity <= 0 {
		opt.Capacity = DefaultCapacity
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Logger == nil {
		opt.Logger = NopLogger{}
	}

	// return pointer-to-impl as the interface (avoids unexported-return lint)
	return &cache[K, V]{
		ord:     newRecency[K](opt.Capacity),
		active:  make(map[K]*entry[K, V], opt.Capacity),
		pending: make(map[V]*entry[K, V]),
		opt:     opt,
	}
}

// ---- Cache[K,V] implementation ----

// Put inserts or replaces owner's payload and promotes owner to MRU.
// The previous generation's hold is released before the new payload is
// admitted, so a destructor running in the unlocked window never observes
// a cache that already contains the replacement.
func (c *cache[K, V]) Put(owner K, payload V, size int, destructor func(V)) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		// The cache can no longer track the payload; destroy it now so
		// the collaborator's buffer is not leaked.
		if destructor != nil {
			destructor(payload)
		}
		return
	}

	// Release the cache's hold on the previous generation, then make room.
	// releaseSlot may drop the lock around a destructor, so residency and
	// fullness are re-checked on every pass until the order is settled.
	released := false
	for {
		if c.ord.resident(owner) {
			if !released {
				c.releaseSlot(owner, EvictReplace)
				released = true
				continue
			}
			break
		}
		if !c.ord.full() {
			break
		}
		c.releaseSlot(c.ord.evict(), EvictCapacity)
	}
	c.ord.promote(owner)

	it := c.active[owner]
	if it == nil {
		it = &entry[K, V]{}
		c.active[owner] = it
	}

	// A still-referenced payload moves to the pending table, keyed by the
	// payload itself, so its destructor fires once the last outstanding
	// checkout closes.
	if it.live && it.refs > 0 && it.dtor != nil {
		orphan := *it
		c.pending[it.payload] = &orphan
		c.opt.Logger.Debug("orphaned superseded payload", Fields{
			"owner": it.owner, "refs": it.refs,
		})
	}

	it.owner = owner
	it.payload = payload
	it.size = size
	it.dtor = destructor
	it.refs = 1 // the cache's own implicit hold
	it.live = true

	c.opt.Logger.Debug("put", Fields{
		"owner": owner, "size": size, "entries": c.ord.len(),
	})
	c.opt.Metrics.Size(c.ord.len(), len(c.pending))
	c.mu.Unlock()
}

// Get returns a checkout handle for owner's payload, promoting owner to
// MRU and taking a reference. A miss returns nil.
func (c *cache[K, V]) Get(owner K) *Item[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.ord.resident(owner) {
		c.misses.Add(1)
		c.opt.Metrics.Miss()
		return nil
	}
	c.ord.promote(owner)

	// The slot can be resident with its payload already destroyed while a
	// replacement's destructor runs outside the lock; that is a miss.
	it := c.active[owner]
	if it == nil || !it.live {
		c.misses.Add(1)
		c.opt.Metrics.Miss()
		return nil
	}

	it.refs++
	c.hits.Add(1)
	c.opt.Metrics.Hit()
	c.opt.Logger.Debug("get", Fields{"owner": owner, "refs": it.refs})
	return &Item[K, V]{c: c, owner: owner, payload: it.payload, size: it.size}
}

// Purge removes owner from the recency order and force-destroys all of
// owner's payloads regardless of outstanding references. Stronger than
// refcounting: the caller is declaring owner's data invalid now.
func (c *cache[K, V]) Purge(owner K) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	// Release the slot's hold first, as a normal close would.
	if c.ord.remove(owner) {
		c.releaseSlot(owner, EvictPurge)
	}

	// Detach whatever is left, outstanding checkouts included.
	var drops []drop[V]
	if it := c.active[owner]; it != nil {
		if it.live && it.dtor != nil {
			drops = append(drops, drop[V]{it.dtor, it.payload})
			it.dtor = nil
			it.live = false
		}
		delete(c.active, owner)
	}
	for p, o := range c.pending {
		if o.owner != owner {
			continue
		}
		if o.dtor != nil {
			drops = append(drops, drop[V]{o.dtor, o.payload})
		}
		delete(c.pending, p)
	}

	for range drops {
		c.evicts.Add(1)
		c.opt.Metrics.Evict(EvictPurge)
	}
	c.opt.Logger.Debug("purge", Fields{"owner": owner, "destroyed": len(drops)})
	c.opt.Metrics.Size(c.ord.len(), len(c.pending))
	c.mu.Unlock()

	// Forced destruction runs once the bookkeeping is complete and the
	// lock is dropped; a re-entrant destructor sees the owner already gone.
	for _, d := range drops {
		d.dtor(d.payload)
	}
}

// Len returns the number of owners in the recency order.
func (c *cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ord.len()
}

// Stats returns a snapshot of cache counters.
func (c *cache[K, V]) Stats() Stats {
	c.mu.Lock()
	entries, pending := c.ord.len(), len(c.pending)
	c.mu.Unlock()
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evicts.Load(),
		Entries:   entries,
		Pending:   pending,
	}
}

// Close tears the cache down: every payload still tracked by the active or
// pending tables is destroyed exactly once, outstanding checkouts
// included. The cache is marked closed before any destructor runs, so
// re-entrant calls are no-ops. Idempotent.
func (c *cache[K, V]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	var drops []drop[V]
	for _, it := range c.active {
		if it.live && it.dtor != nil {
			drops = append(drops, drop[V]{it.dtor, it.payload})
			it.dtor = nil
			it.live = false
		}
	}
	for _, o := range c.pending {
		if o.dtor != nil {
			drops = append(drops, drop[V]{o.dtor, o.payload})
		}
	}
	clear(c.active)
	clear(c.pending)
	c.ord.reset()

	for range drops {
		c.evicts.Add(1)
		c.opt.Metrics.Evict(EvictClose)
	}
	c.opt.Logger.Debug("close", Fields{"destroyed": len(drops)})
	c.opt.Metrics.Size(0, 0)
	c.mu.Unlock()

	for _, d := range drops {
		d.dtor(d.payload)
	}
	return nil
}

// ---- internals ----

// releaseSlot drops the cache's hold on owner's current payload. If that
// was the last reference, the destructor runs with the lock released so
// collaborator cleanup can take arbitrary time or re-enter the cache
// (e.g. to purge something else). Inline rather than deferred because the
// Put path must finish destroying an evicted payload before the
// replacement is admitted.
// The lock must be held on entry and is held again on return.
func (c *cache[K, V]) releaseSlot(owner K, reason EvictReason) {
	it := c.active[owner]
	if it == nil {
		return
	}
	c.evicts.Add(1)
	c.opt.Metrics.Evict(reason)
	if cb := c.opt.OnEvict; cb != nil {
		cb(owner, reason)
	}
	if it.dtor == nil {
		// Nothing to destroy, but the owner still left the cache.
		return
	}

	it.refs--
	if it.refs > 0 {
		// Outstanding checkouts keep the payload alive; the entry stays in
		// the active table until the holders drain or a new Put orphans it.
		return
	}
	it.refs = 0
	dtor, payload := it.dtor, it.payload
	it.dtor = nil
	it.live = false

	c.opt.Logger.Debug("destroying payload", Fields{"owner": owner})
	c.mu.Unlock()
	dtor(payload)
	c.mu.Lock()
}

// release resolves a checkout against the active table when the handle's
// payload is still owner's current generation, and against the pending
// table otherwise. Both are consulted because a handle only remembers the
// payload it was given, not which generation it belongs to.
func (c *cache[K, V]) release(owner K, payload V) {
	var dtor func(V)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if it := c.active[owner]; it != nil && it.live && it.payload == payload && it.dtor != nil {
		it.refs--
		c.opt.Logger.Debug("close item", Fields{"owner": owner, "refs": it.refs})
		if it.refs <= 0 {
			// Last holder of a payload the cache already let go of
			// (evicted while checked out).
			it.refs = 0
			dtor = it.dtor
			it.dtor = nil
			it.live = false
		}
	} else if o, ok := c.pending[payload]; ok && o.dtor != nil {
		o.refs--
		c.opt.Logger.Debug("close orphan", Fields{"owner": o.owner, "refs": o.refs})
		if o.refs <= 0 {
			dtor = o.dtor
			delete(c.pending, payload)
		}
	}
	c.opt.Metrics.Size(c.ord.len(), len(c.pending))
	c.mu.Unlock()

	if dtor != nil {
		dtor(payload)
	}
}
