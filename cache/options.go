package cache

// DefaultCapacity is the number of owner slots when Options.Capacity is
// not set.
const DefaultCapacity = 10

// EvictReason explains why the cache released its hold on a payload.
type EvictReason int

const (
	// EvictCapacity — least recently used owner released to admit a new one.
	EvictCapacity EvictReason = iota
	// EvictReplace — superseded by a newer Put for the same owner.
	EvictReplace
	// EvictPurge — force-destroyed by Purge.
	EvictPurge
	// EvictClose — destroyed during cache teardown.
	EvictClose
)

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries, pending int)
}

// Options configures the cache behavior. Zero values are safe;
// sane defaults are applied in New():
//   - Capacity <= 0 => DefaultCapacity
//   - nil Metrics   => NoopMetrics
//   - nil Logger    => NopLogger
type Options[K comparable, V comparable] struct {
	// Capacity is the fixed number of owner slots. It cannot be changed
	// after construction.
	Capacity int

	// Observability
	// OnEvict is called under the cache lock whenever the cache releases
	// its hold on an owner's payload; keep callbacks lightweight. The
	// payload's destructor may still be deferred on outstanding checkouts.
	OnEvict func(owner K, reason EvictReason)
	Metrics Metrics
	Logger  Logger
}
