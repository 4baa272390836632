package cache

// recency is a fixed-capacity sequence of owner keys ordered from least
// recently used (index 0) to most recently used (index count-1).
//
// Instead of a linked list it keeps two arrays of the same capacity and
// shuffles the live keys into the alternate array on every reorder: a
// promotion is one compacting copy followed by a buffer swap, never an
// allocation. With the small fixed capacities this cache is built for,
// the O(capacity) copy is cheaper and simpler than pointer surgery.
//
// All methods must be called with the cache lock held.
type recency[K comparable] struct {
	count int
	cur   []K
	spare []K
}

func newRecency[K comparable](capacity int) *recency[K] {
	return &recency[K]{
		cur:   make([]K, capacity),
		spare: make([]K, capacity),
	}
}

func (r *recency[K]) len() int   { return r.count }
func (r *recency[K]) full() bool { return r.count == len(r.cur) }

// resident reports whether k is somewhere in the sequence.
// Scans from the most recent end, where hits are most likely.
func (r *recency[K]) resident(k K) bool {
	for i := r.count - 1; i >= 0; i-- {
		if r.cur[i] == k {
			return true
		}
	}
	return false
}

// promote moves k to the most recent slot, inserting it when absent.
// The caller must ensure a free slot exists for an insertion.
func (r *recency[K]) promote(k K) {
	n := r.count
	if !r.resident(k) {
		n++
	}
	w := n - 2
	skipped := false
	for i := r.count - 1; i >= 0; i-- {
		if !skipped && r.cur[i] == k {
			skipped = true
			continue
		}
		r.spare[w] = r.cur[i]
		w--
	}
	r.spare[n-1] = k
	r.count = n
	r.cur, r.spare = r.spare, r.cur
}

// evict drops and returns the least recently used key.
// The caller must ensure the sequence is not empty.
func (r *recency[K]) evict() K {
	victim := r.cur[0]
	copy(r.spare, r.cur[1:r.count])
	r.count--
	r.cur, r.spare = r.spare, r.cur
	return victim
}

// remove compacts k out of the sequence in one scan and reports whether
// it was resident.
func (r *recency[K]) remove(k K) bool {
	j := 0
	for i := 0; i < r.count; i++ {
		if r.cur[i] == k {
			continue
		}
		r.spare[j] = r.cur[i]
		j++
	}
	removed := j != r.count
	r.count = j
	r.cur, r.spare = r.spare, r.cur
	return removed
}

// reset empties the sequence.
func (r *recency[K]) reset() { r.count = 0 }
