// Package blockref maintains the most recently observed block reference so
// every submission can attach a fresh one without performing network I/O on
// the request path.
package blockref

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/statelessnet/faucet/foundation/ledger"
)

// refreshInterval is how often the cache asks the ledger for the latest
// block. The ledger's validity window is far wider than this, so a value up
// to one interval old is always acceptable.
const refreshInterval = 30 * time.Second

// Fetcher queries the ledger for the latest block reference.
type Fetcher interface {
	LatestBlockRef(ctx context.Context) (ledger.BlockRef, error)
}

// EventHandler defines a function that is called when events occur during
// cache refreshes.
type EventHandler func(v string, args ...any)

// Cache holds the last known good block reference and keeps it warm with a
// background refresh goroutine for the lifetime of the process.
type Cache struct {
	fetcher   Fetcher
	interval  time.Duration
	evHandler EventHandler

	mu        sync.RWMutex
	ref       ledger.BlockRef
	refreshed time.Time

	wg   sync.WaitGroup
	shut chan struct{}
}

// Config represents the configuration required to construct a cache.
type Config struct {
	Fetcher   Fetcher
	Interval  time.Duration
	EvHandler EventHandler
}

// New constructs the cache with an initial synchronous fetch and then
// starts the refresh goroutine. If the first fetch fails, construction
// fails: the service must not come up without a usable block reference.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	interval := cfg.Interval
	if interval == 0 {
		interval = refreshInterval
	}

	c := Cache{
		fetcher:   cfg.Fetcher,
		interval:  interval,
		evHandler: ev,
		shut:      make(chan struct{}),
	}

	// The first fetch is synchronous and fatal on error.
	ref, err := cfg.Fetcher.LatestBlockRef(ctx)
	if err != nil {
		return nil, fmt.Errorf("priming block reference cache: %w", err)
	}
	c.store(ref)

	// Don't return until we know the refresh G is up and running.
	hasStarted := make(chan bool)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		hasStarted <- true
		c.refreshOperations()
	}()

	<-hasStarted

	return &c, nil
}

// Shutdown terminates the goroutine performing the refresh work.
func (c *Cache) Shutdown() {
	c.evHandler("blockref: shutdown: started")
	defer c.evHandler("blockref: shutdown: completed")

	close(c.shut)
	c.wg.Wait()
}

// Read returns the last known good block reference. It never blocks on
// network I/O; the value may be up to one refresh interval old.
func (c *Cache) Read() ledger.BlockRef {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.ref
}

// Refreshed returns the time of the last successful fetch.
func (c *Cache) Refreshed() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.refreshed
}

// =============================================================================

// refreshOperations runs for the lifetime of the process, replacing the
// cached value on each tick. A single failed fetch is logged and the
// previous value retained; serving a stale reference beats serving none.
func (c *Cache) refreshOperations() {
	c.evHandler("blockref: refreshOperations: G started")
	defer c.evHandler("blockref: refreshOperations: G completed")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.runRefreshOperation()

		case <-c.shut:
			c.evHandler("blockref: refreshOperations: received shut signal")
			return
		}
	}
}

// runRefreshOperation performs a single fetch and swap.
func (c *Cache) runRefreshOperation() {
	ctx, cancel := context.WithTimeout(context.Background(), c.interval)
	defer cancel()

	ref, err := c.fetcher.LatestBlockRef(ctx)
	if err != nil {
		c.evHandler("blockref: runRefreshOperation: WARNING: %s", err)
		return
	}

	c.store(ref)
	c.evHandler("blockref: runRefreshOperation: updated block ref %s", ref)
}

// store atomically replaces the cached value.
func (c *Cache) store(ref ledger.BlockRef) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ref = ref
	c.refreshed = time.Now().UTC()
}
