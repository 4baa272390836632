// Package cache provides a fixed-capacity, thread-safe LRU cache of
// opaque payloads keyed by owner identity, with reference-counted
// checkout and deferred destruction of payloads that are replaced or
// evicted while still checked out.
//
// It is built for pipelines where a long-lived service object (a decoder,
// a producer, a filter) wants to keep one somewhat-large derived object
// (a decoded picture, a scaling context) alive across uses, but the total
// number of such objects must stay small. The service supplies the
// payload and a destructor; the cache decides when the destructor fires.
//
// # Design
//
//   - Concurrency: one mutex per cache guards the recency order and both
//     entry tables. Operations are short (O(capacity) scans over a small
//     fixed array), so coarse locking is the simplest correct choice.
//     Destructors for payloads released on the Put and Purge paths run
//     with the lock dropped, so arbitrary collaborator cleanup cannot
//     stall the cache and may safely re-enter it.
//
//   - Recency: owners are ordered in a fixed-capacity double-buffered
//     array (LRU at index 0, MRU at the end). A promotion compacts the
//     live keys into the alternate buffer and swaps; no allocation, no
//     pointer surgery.
//
//   - Lifetime: every resident payload carries a reference count. Put
//     holds the first reference on behalf of the cache; each Get takes
//     one more and returns an Item that must be closed. The destructor
//     fires exactly once, when the count reaches zero.
//
//   - Orphans: when a Put supersedes a payload that still has outstanding
//     checkouts, the old generation moves to a pending table keyed by
//     payload identity and survives until its holders drain. Purge
//     force-destroys an owner's generations regardless of references.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals.
//     By default NoopMetrics is used; plug the Prometheus adapter from
//     metrics/prom to export them.
//
//   - Logging: Options.Logger receives debug-level lifecycle events.
//     Adapters for zap, logrus and log/slog live under log/.
//
// # Basic usage
//
//	c := cache.New[*Producer, *Frame](cache.Options[*Producer, *Frame]{
//	    Capacity: 10,
//	})
//	defer c.Close()
//
//	c.Put(prod, frame, frame.Bytes(), releaseFrame)
//
//	if it := c.Get(prod); it != nil {
//	    use(it.Payload(), it.Size())
//	    it.Close()
//	}
//
//	// The producer is being destroyed; nothing of its may survive.
//	c.Purge(prod)
//
// # Ownership
//
// A payload handed to Put belongs to the cache until the cache destroys
// it. Get returns a borrowed view: the payload stays valid until the
// matching Item.Close, even if another goroutine replaces or evicts it in
// between. Callers must not retain the payload after Close without
// calling Get again, and must never free a payload directly.
package cache
