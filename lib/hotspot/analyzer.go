package hotspot

import (
	"sync/atomic"
	"time"

	"github.com/hanpf2391/Flux/api/serializer"
	"github.com/hanpf2391/Flux/lib/cache"
	"github.com/hanpf2391/Flux/lib/grid"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("hotspot")

// --------------------------------------------------------------------------
// Constants and Types
// --------------------------------------------------------------------------

// CacheKey is the single well-known cache key holding the precomputed
// hotspot position.
const CacheKey = "golden_spawn_point"

// Position is the golden spawn point shown to new viewers. It always has a
// value: when no qualifying activity exists the origin default is used.
type Position struct {
	Row       int    `json:"rowIndex"`
	Col       int    `json:"colIndex"`
	IsDefault bool   `json:"isDefault"`
	Label     string `json:"message"`
}

// DefaultPosition returns the origin fallback position.
func DefaultPosition() Position {
	return Position{
		Row:       0,
		Col:       0,
		IsDefault: true,
		Label:     "Default position - no active areas found",
	}
}

// hotspotPosition wraps an aggregated coordinate as a non-default position.
func hotspotPosition(coord grid.Coordinate) Position {
	return Position{
		Row:       coord.Row,
		Col:       coord.Col,
		IsDefault: false,
		Label:     "Hotspot position based on recent activity",
	}
}

// Config holds the aggregation and scheduling parameters of the analyzer.
type Config struct {
	GridSize        int           // side length of the aggregation squares
	WindowDays      int           // recency window for qualifying cells
	RefreshInterval time.Duration // period of the scheduled refresh
	CacheTTL        time.Duration // TTL of the cached position
}

// DefaultConfig returns the default analyzer configuration.
func DefaultConfig() Config {
	return Config{
		GridSize:        200,
		WindowDays:      7,
		RefreshInterval: 5 * time.Minute,
		CacheTTL:        5 * time.Minute,
	}
}

// --------------------------------------------------------------------------
// Analyzer
// --------------------------------------------------------------------------

// Analyzer precomputes the hotspot on a fixed schedule and serves it
// through a cache-aside read path. The scheduled refresh and the read path
// are coupled only through the cache entry: a read-path miss during a
// refresh simply recomputes its own copy.
type Analyzer struct {
	store grid.GridStore
	cache cache.ICache
	ser   serializer.ISerializer
	cfg   Config

	refreshIsRunning atomic.Bool
	stop             chan struct{}
}

// New creates an Analyzer. The scheduled refresh is not started until
// Start is called; Read works either way.
func New(store grid.GridStore, c cache.ICache, ser serializer.ISerializer, cfg Config) *Analyzer {
	if cfg.GridSize <= 0 {
		cfg.GridSize = DefaultConfig().GridSize
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = DefaultConfig().WindowDays
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultConfig().RefreshInterval
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}

	return &Analyzer{
		store: store,
		cache: c,
		ser:   ser,
		cfg:   cfg,
		stop:  make(chan struct{}),
	}
}

// Start launches the scheduled refresh goroutine. A first refresh runs
// immediately so the cache is warm before the first viewer arrives.
// If the scheduler is already running, this function does nothing.
func (a *Analyzer) Start() {
	if a.refreshIsRunning.CompareAndSwap(false, true) {
		go a.scheduler()
	}
}

// Close stops the scheduled refresh. The read path keeps working.
func (a *Analyzer) Close() {
	if a.refreshIsRunning.CompareAndSwap(true, false) {
		close(a.stop)
	}
}

// scheduler runs Refresh on the configured period until Close is called.
func (a *Analyzer) scheduler() {
	a.Refresh()

	ticker := time.NewTicker(a.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			a.Refresh()
		}
	}
}

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

// Refresh recomputes the hotspot and stores it into the cache. Failures are
// logged and swallowed; the next period tries again.
func (a *Analyzer) Refresh() {
	position := a.compute()
	a.prime(position)
	Logger.Infof("refreshed golden spawn point: (%d,%d) default=%t", position.Row, position.Col, position.IsDefault)
}

// Invalidate drops the cached position; the next read recomputes.
func (a *Analyzer) Invalidate() error {
	return a.cache.Delete(CacheKey)
}

// Read returns the hotspot position, cache-aside: a cache hit is returned
// directly, a miss (cold cache, expired TTL, undecodable value) recomputes
// synchronously and primes the cache. This path never fails the caller -
// any error degrades to the origin default.
func (a *Analyzer) Read() Position {
	if data, ok, err := a.cache.Get(CacheKey); err == nil && ok {
		var position Position
		if err := a.ser.Deserialize(data, &position); err == nil {
			return position
		}
		Logger.Warningf("undecodable golden spawn point in cache, recomputing: %v", err)
	} else if err != nil {
		Logger.Warningf("cache read for golden spawn point failed: %v", err)
	}

	position := a.compute()
	a.prime(position)
	return position
}

// compute runs the spatial aggregation over the recency window. Any failure
// or an empty canvas yields the origin default.
func (a *Analyzer) compute() Position {
	since := time.Now().AddDate(0, 0, -a.cfg.WindowDays)

	coord, ok, err := a.store.AggregateHotspot(a.cfg.GridSize, since)
	if err != nil {
		Logger.Errorf("hotspot aggregation failed: %v", err)
		return DefaultPosition()
	}
	if !ok {
		return DefaultPosition()
	}
	return hotspotPosition(coord)
}

// prime writes a position into the cache, best-effort.
func (a *Analyzer) prime(position Position) {
	data, err := a.ser.Serialize(position)
	if err != nil {
		Logger.Warningf("failed to serialize golden spawn point: %v", err)
		return
	}
	if err := a.cache.Set(CacheKey, data, a.cfg.CacheTTL); err != nil {
		Logger.Warningf("failed to cache golden spawn point: %v", err)
	}
}
