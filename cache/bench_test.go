package cache

import (
	"math/rand"
	"strconv"
	"sync/atomic"
	"testing"
)

// benchmarkCheckout exercises a checkout/replace mix against a warm cache.
// It uses parallel workers (RunParallel spawns GOMAXPROCS goroutines).
// Payloads are strings so the destructor is trivial; the benchmark
// measures the cache hot path, not collaborator cleanup.
func benchmarkCheckout(b *testing.B, readsPct int) {
	c := New[int, string](Options[int, string]{Capacity: 64})
	b.Cleanup(func() { _ = c.Close() })

	noop := func(string) {}
	for i := 0; i < 64; i++ {
		c.Put(i, "v", 1, noop)
	}

	b.ReportAllocs()
	b.ResetTimer()

	var seed int64 = 1
	keyMask := 127 // half the keyspace misses

	b.RunParallel(func(pb *testing.PB) {
		// Independent RNG stream for each worker.
		r := rand.New(rand.NewSource(atomic.AddInt64(&seed, 1)))
		i := 0
		for pb.Next() {
			k := i & keyMask
			if r.Intn(100) < readsPct {
				if it := c.Get(k); it != nil {
					_ = it.Payload()
					it.Close()
				}
			} else {
				c.Put(k, "v"+strconv.Itoa(i), 1, noop)
			}
			i++
		}
	})
}

func BenchmarkCache_90r10w(b *testing.B) { benchmarkCheckout(b, 90) }
func BenchmarkCache_50r50w(b *testing.B) { benchmarkCheckout(b, 50) }

// BenchmarkRecency_Promote isolates the double-buffer shuffle.
func BenchmarkRecency_Promote(b *testing.B) {
	r := newRecency[int](DefaultCapacity)
	for i := 0; i < DefaultCapacity; i++ {
		r.promote(i)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.promote(i % DefaultCapacity)
	}
}
