package cache

import (
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

// ledger tracks every payload handed to the cache and every destructor
// invocation so the exactly-once contract can be checked after teardown.
type ledger struct {
	mu        sync.Mutex
	created   map[string]bool
	destroyed map[string]int
}

func newLedger() *ledger {
	return &ledger{
		created:   make(map[string]bool),
		destroyed: make(map[string]int),
	}
}

func (l *ledger) create(p string) {
	l.mu.Lock()
	l.created[p] = true
	l.mu.Unlock()
}

func (l *ledger) dtor(p string) {
	l.mu.Lock()
	l.destroyed[p]++
	l.mu.Unlock()
}

// verify asserts that every created payload was destroyed exactly once.
func (l *ledger) verify(t *testing.T) {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	for p := range l.created {
		if n := l.destroyed[p]; n != 1 {
			t.Fatalf("payload %s destroyed %d times, want 1", p, n)
		}
	}
	for p, n := range l.destroyed {
		if !l.created[p] {
			t.Fatalf("destroyed unknown payload %s (%d times)", p, n)
		}
	}
}

// A mixed workload of concurrent Put/Get+Close/Purge on a small keyspace.
// Should pass under `-race`, and after teardown every payload's destructor
// must have run exactly once.
func TestRace_CheckoutLifecycle(t *testing.T) {
	t.Parallel()

	l := newLedger()
	c := New[int, string](Options[int, string]{Capacity: 8})

	workers := 4 * runtime.GOMAXPROCS(0)
	keyspace := 32
	deadline := time.Now().Add(2 * time.Second)

	var seq atomic.Int64
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		id := w
		g.Go(func() error {
			r := rand.New(rand.NewSource(int64(id)*9973 + 1))
			for time.Now().Before(deadline) {
				k := r.Intn(keyspace)
				switch r.Intn(100) {
				case 0, 1, 2: // ~3% — Purge
					c.Purge(k)
				case 3, 4, 5, 6, 7, 8, 9, 10, 11, 12: // ~10% — Put
					p := fmt.Sprintf("%d:%d", k, seq.Add(1))
					l.create(p)
					c.Put(k, p, len(p), l.dtor)
				default: // ~87% — Get, touch, Close
					if it := c.Get(k); it != nil {
						_ = it.Payload()
						_ = it.Size()
						it.Close()
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	l.verify(t)
}

// Concurrent Puts for the same owner while readers hold checkouts:
// superseded generations must survive their holders and still be
// destroyed exactly once.
func TestRace_ReplaceUnderCheckout(t *testing.T) {
	t.Parallel()

	l := newLedger()
	c := New[string, string](Options[string, string]{Capacity: 2})

	const owner = "same-owner"
	deadline := time.Now().Add(1 * time.Second)

	var seq atomic.Int64
	var wg sync.WaitGroup

	// One writer replacing the payload as fast as it can.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for time.Now().Before(deadline) {
			p := fmt.Sprintf("gen:%d", seq.Add(1))
			l.create(p)
			c.Put(owner, p, len(p), l.dtor)
		}
	}()

	// Readers checking out and holding briefly.
	readers := 2 * runtime.GOMAXPROCS(0)
	wg.Add(readers)
	for i := 0; i < readers; i++ {
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) {
				if it := c.Get(owner); it != nil {
					_ = it.Payload()
					it.Close()
				}
			}
		}()
	}

	wg.Wait()
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	l.verify(t)
}

// Destructors that re-enter the cache from the Put eviction path must not
// deadlock under concurrency.
func TestRace_ReentrantDestructor(t *testing.T) {
	t.Parallel()

	l := newLedger()
	c := New[int, string](Options[int, string]{Capacity: 4})

	deadline := time.Now().Add(1 * time.Second)
	var seq atomic.Int64

	var g errgroup.Group
	for w := 0; w < 4; w++ {
		id := w
		g.Go(func() error {
			r := rand.New(rand.NewSource(int64(id) + 7))
			for time.Now().Before(deadline) {
				k := r.Intn(8)
				other := r.Intn(8)
				p := fmt.Sprintf("%d:%d", k, seq.Add(1))
				l.create(p)
				c.Put(k, p, len(p), func(p string) {
					c.Purge(other) // exercise re-entrancy
					l.dtor(p)
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	l.verify(t)
}
