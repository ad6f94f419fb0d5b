package memcache

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hanpf2391/Flux/lib/cache"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// defaultJanitorInterval is the time between janitor passes.
const defaultJanitorInterval = time.Second

// --------------------------------------------------------------------------
// Core memcache structure
// --------------------------------------------------------------------------

// entry stores a cached value with its expiry deadline
type entry struct {
	Value    []byte
	Deadline int64 // unix nanoseconds, 0 = never expires
}

// expired reports whether the entry is past its deadline at the given instant
func (e entry) expired(nowNanos int64) bool {
	return e.Deadline != 0 && nowNanos >= e.Deadline
}

// memCacheImpl implements cache.ICache with a concurrent map for the data
// and a deadline-ordered heap driving a janitor goroutine. Reads never
// depend on the janitor: Get checks the deadline itself, the janitor only
// reclaims memory.
type memCacheImpl struct {
	data *xsync.MapOf[string, entry]

	// janitor
	mu               sync.Mutex // guards expiries
	expiries         *expiryHeap
	janitorInterval  time.Duration
	janitorIsRunning atomic.Bool
	stop             chan struct{}
}

// Options configures the memcache behavior during initialization
type Options struct {
	JanitorInterval time.Duration // Time between janitor passes (0 = default: 1 sec)
}

// New creates a new in-memory cache and starts its janitor.
//
// Thread-safety: This function is not thread-safe and should only be called
// once during initialization. All methods of the returned cache are safe for
// concurrent use.
func New(opts *Options) cache.ICache {
	interval := defaultJanitorInterval
	if opts != nil && opts.JanitorInterval > 0 {
		interval = opts.JanitorInterval
	}

	c := &memCacheImpl{
		data:            xsync.NewMapOf[string, entry](),
		expiries:        newExpiryHeap(),
		janitorInterval: interval,
		stop:            make(chan struct{}),
	}
	heap.Init(c.expiries)
	c.startJanitor()
	return c
}

// --------------------------------------------------------------------------
// Interface Methods (docu see cache/interface.go)
// --------------------------------------------------------------------------

func (c *memCacheImpl) Set(key string, value []byte, ttl time.Duration) error {
	// copy the value to prevent the caller mutating cached data
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	var deadline int64
	if ttl > 0 {
		deadline = time.Now().Add(ttl).UnixNano()
	}

	c.data.Store(key, entry{Value: valueCopy, Deadline: deadline})

	c.mu.Lock()
	if deadline != 0 {
		c.expiries.Schedule(key, deadline)
	} else {
		c.expiries.Unschedule(key)
	}
	c.mu.Unlock()

	return nil
}

func (c *memCacheImpl) Get(key string) ([]byte, bool, error) {
	e, ok := c.data.Load(key)
	if !ok || e.expired(time.Now().UnixNano()) {
		return nil, false, nil
	}

	// return a copy so cached data stays immutable
	value := make([]byte, len(e.Value))
	copy(value, e.Value)
	return value, true, nil
}

func (c *memCacheImpl) Delete(key string) error {
	c.data.Delete(key)

	c.mu.Lock()
	c.expiries.Unschedule(key)
	c.mu.Unlock()

	return nil
}

func (c *memCacheImpl) Close() error {
	if c.janitorIsRunning.CompareAndSwap(true, false) {
		close(c.stop)
	}
	return nil
}

// --------------------------------------------------------------------------
// Janitor
// --------------------------------------------------------------------------

// startJanitor starts the janitor goroutine.
// If the janitor is already running, this function does nothing.
func (c *memCacheImpl) startJanitor() {
	if c.janitorIsRunning.CompareAndSwap(false, true) {
		go c.janitor()
	}
}

// janitor reclaims entries past their deadline. The removal re-checks the
// entry's deadline inside a Compute call: an entry overwritten with a fresh
// TTL between the heap pop and the removal is kept and rescheduled on its
// next Set.
func (c *memCacheImpl) janitor() {
	ticker := time.NewTicker(c.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			nowNanos := time.Now().UnixNano()

			c.mu.Lock()
			for {
				next, exists := c.expiries.Peek()
				if !exists || next.Deadline > nowNanos {
					break
				}
				key := next.Key
				c.expiries.Unschedule(key)

				c.data.Compute(key, func(e entry, loaded bool) (entry, bool) {
					return e, loaded && e.expired(nowNanos)
				})
			}
			c.mu.Unlock()
		}
	}
}
