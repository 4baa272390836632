package cache

// Cache is a fixed-capacity LRU cache of opaque payloads keyed by owner
// identity, with reference-counted checkout and deferred destruction.
// All methods are safe for concurrent use by multiple goroutines.
//
// The payload type V must be identity-comparable: the cache tracks
// superseded payloads by the payload value itself, so V should be a
// pointer (or pointer-like) type whose values are unique and stable for
// the payload's lifetime.
type Cache[K comparable, V comparable] interface {
	// Put caches payload for owner, promoting owner to most recently used
	// and evicting the least recently used owner if the cache is full.
	// The destructor is invoked exactly once when the last reference to
	// the payload is released (it may be nil, in which case the cache
	// never destroys the payload). The payload belongs to the cache after
	// Put; callers must not free it except through the cache.
	// size is an informational byte-length hint.
	Put(owner K, payload V, size int, destructor func(V))

	// Get returns a checkout handle for owner's payload, or nil on a miss.
	// A hit promotes owner to most recently used and takes a reference
	// that must be released with Item.Close.
	Get(owner K) *Item[K, V]

	// Purge removes and destroys every payload belonging to owner,
	// superseded generations still checked out included. It does not wait
	// for outstanding references: the destructor may depend on state owned
	// by owner, so the payloads must not outlive this call.
	// A subsequent Get for owner is a miss.
	Purge(owner K)

	// Len returns the number of owners currently in the recency order.
	Len() int

	// Stats returns a point-in-time snapshot of cache counters.
	Stats() Stats

	// Close tears the cache down, destroying every remaining payload
	// exactly once, orphaned generations included. Further operations are
	// no-ops (a Put after Close destroys the incoming payload
	// immediately). Close is idempotent and returns nil.
	Close() error
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      int64  // Get calls that returned a handle
	Misses    int64  // Get calls that returned nil
	Evictions uint64 // payload releases forced by the cache (any reason)
	Entries   int    // owners in the recency order
	Pending   int    // superseded payloads awaiting final release
}
