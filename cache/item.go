package cache

// entry is the cache's record of an owner's payload, with the reference
// count that controls when the destructor fires. The record persists
// (emptied) after its payload is destroyed so the next Put for the same
// owner can reuse it; only Purge and teardown delete it.
type entry[K comparable, V comparable] struct {
	owner   K
	payload V
	size    int
	refs    int
	dtor    func(V)
	live    bool // payload present and not yet destroyed
}

// Item is a checkout handle returned by Get. It pins the payload it was
// given: the destructor does not run until the handle is closed, even if
// a later Put supersedes the payload in the meantime.
//
// A handle is a borrowed, refcounted view — the cache still owns the
// payload. Handles are single-use: Close releases the reference and
// invalidates the handle.
type Item[K comparable, V comparable] struct {
	c       *cache[K, V]
	owner   K
	payload V
	size    int
}

// Payload returns the checked-out payload.
func (it *Item[K, V]) Payload() V { return it.payload }

// Size returns the byte-length hint supplied with the payload at Put time.
func (it *Item[K, V]) Size() int { return it.size }

// Close releases the checkout. When the last reference to the payload is
// gone, its destructor runs exactly once. Closing a nil or already-closed
// handle is a no-op.
func (it *Item[K, V]) Close() {
	if it == nil || it.c == nil {
		return
	}
	c := it.c
	it.c = nil
	c.release(it.owner, it.payload)
}
