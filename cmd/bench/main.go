// Command bench runs a synthetic checkout workload against the cache and
// exposes optional pprof/Prometheus endpoints.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/refcache/cache"
	pmet "github.com/IvanBrykalov/refcache/metrics/prom"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	// ---- Flags ----
	var (
		capacity = flag.Int("cap", 10, "cache capacity (owner slots)")
		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "checkout percentage [0..100]")
		purgePct = flag.Int("purges", 1, "purge percentage [0..100]")
		keys     = flag.Int("keys", 64, "owner keyspace size")
		hold     = flag.Duration("hold", 0, "how long a checkout is held before Close")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "random seed")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	metrics := pmet.New(nil, "refcache", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	c := cache.New[int, *payload](cache.Options[int, *payload]{
		Capacity: *capacity,
		Metrics:  metrics,
	})
	defer func() { _ = c.Close() }()

	var produced, destroyed atomic.Int64
	release := func(*payload) { destroyed.Add(1) }

	// Preload every slot so the first checkouts hit.
	for i := 0; i < *capacity && i < *keys; i++ {
		produced.Add(1)
		c.Put(i, &payload{owner: i}, 64, release)
	}

	log.Printf("bench: cap=%d workers=%d duration=%s reads=%d%% purges=%d%% keys=%d",
		*capacity, *workers, *duration, *readPct, *purgePct, *keys)

	deadline := time.Now().Add(*duration)
	var ops atomic.Int64

	var g errgroup.Group
	for w := 0; w < *workers; w++ {
		id := w
		g.Go(func() error {
			r := rand.New(rand.NewSource(*seed + int64(id)*9973))
			for time.Now().Before(deadline) {
				k := r.Intn(*keys)
				switch n := r.Intn(100); {
				case n < *purgePct:
					c.Purge(k)
				case n < *purgePct+*readPct:
					if it := c.Get(k); it != nil {
						_ = it.Payload()
						if *hold > 0 {
							time.Sleep(*hold)
						}
						it.Close()
					}
				default:
					produced.Add(1)
					c.Put(k, &payload{owner: k}, 64, release)
				}
				ops.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}

	st := c.Stats()
	total := ops.Load()
	fmt.Printf("ops: %d (%.0f ops/sec)\n", total, float64(total)/(*duration).Seconds())
	fmt.Printf("hits: %d  misses: %d  evictions: %d\n", st.Hits, st.Misses, st.Evictions)
	fmt.Printf("entries: %d  pending: %d  produced: %d  destroyed: %d\n",
		st.Entries, st.Pending, produced.Load(), destroyed.Load())
}

// payload stands in for a cached decode/scale object.
type payload struct {
	owner int
	_     [56]byte
}
