package memgrid

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hanpf2391/Flux/lib/grid"
	"github.com/hanpf2391/Flux/lib/grid/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Core memgrid structure
// --------------------------------------------------------------------------

// memGridImpl implements grid.GridStore with sharded in-memory maps.
// Current versions are sharded by coordinate hash; the append-only version
// history lives in a single id-keyed map so detail lookups stay O(1).
type memGridImpl struct {
	numShards int
	seed      uint64
	shards    []*shard
	history   *xsync.MapOf[uint64, grid.Version]
	nextID    atomic.Uint64
	clock     func() time.Time
}

// shard holds one partition of the current-version map. Each shard is an
// independent concurrent map, so writes to different coordinates never
// contend on a shared lock.
type shard struct {
	current *xsync.MapOf[uint64, grid.Version]
}

// Options configures the memGridImpl behavior during initialization
type Options struct {
	NumShards int              // Number of shards (0 = auto)
	Clock     func() time.Time // Timestamp source (nil = time.Now)
}

// DefaultOptions returns the default memgrid options
func DefaultOptions() *Options {
	return &Options{
		NumShards: runtime.NumCPU(),
		Clock:     time.Now,
	}
}

// New creates a new in-memory GridStore with the specified options (optional).
//
// Thread-safety: This function is not thread-safe and should only be called
// once during initialization. All methods of the returned store are safe for
// concurrent use.
func New(opts *Options) grid.GridStore {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.NumShards <= 0 {
		opts.NumShards = runtime.NumCPU()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	shards := make([]*shard, opts.NumShards)
	for i := 0; i < opts.NumShards; i++ {
		shards[i] = &shard{current: xsync.NewMapOf[uint64, grid.Version]()}
	}

	return &memGridImpl{
		numShards: opts.NumShards,
		seed:      util.GenerateSeed(),
		shards:    shards,
		history:   xsync.NewMapOf[uint64, grid.Version](),
		clock:     opts.Clock,
	}
}

// --------------------------------------------------------------------------
// Coordinate Keys
// --------------------------------------------------------------------------

// packCoord packs a coordinate into a single map key. Rows and columns are
// truncated to 32 bits, which bounds the addressable canvas at ±2^31 cells
// per axis.
func packCoord(c grid.Coordinate) uint64 {
	return uint64(uint32(int32(c.Row)))<<32 | uint64(uint32(int32(c.Col)))
}

// getShard selects the shard responsible for a packed coordinate key.
func (m *memGridImpl) getShard(key uint64) *shard {
	return m.shards[util.HashUint64(key, m.seed)%uint64(m.numShards)]
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// CompareAndPut creates a new current version iff the coordinate's current
// id equals baseID. The check and the write happen inside a single Compute
// call on the owning shard, so racing writers to the same coordinate
// serialize there and exactly one of them can win.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memGridImpl) CompareAndPut(coord grid.Coordinate, baseID uint64, draft grid.Draft) (grid.Version, error) {
	key := packCoord(coord)
	s := m.getShard(key)

	var (
		created  grid.Version
		conflict bool
	)

	s.current.Compute(key, func(old grid.Version, loaded bool) (grid.Version, bool) {
		currentID := grid.NoVersion
		if loaded {
			currentID = old.ID
		}
		if currentID != baseID {
			conflict = true
			return old, !loaded // don't create an entry on a failed check
		}

		created = grid.Version{
			ID:         m.nextID.Add(1),
			Coord:      coord,
			Content:    draft.Content,
			BgColor:    draft.BgColor,
			SourceAddr: draft.SourceAddr,
			CreatedAt:  m.clock(),
		}
		m.history.Store(created.ID, created)
		return created, false
	})

	if conflict {
		return grid.Version{}, grid.NewError(grid.KindConflict, "the cell has been updated by another user")
	}
	return created, nil
}

// CompareAndDelete removes the current version iff its id equals baseID.
// The version record itself stays in the history map.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memGridImpl) CompareAndDelete(coord grid.Coordinate, baseID uint64) (bool, error) {
	key := packCoord(coord)
	s := m.getShard(key)

	var (
		existed  bool
		conflict bool
	)

	s.current.Compute(key, func(old grid.Version, loaded bool) (grid.Version, bool) {
		currentID := grid.NoVersion
		if loaded {
			currentID = old.ID
		}
		if currentID != baseID {
			conflict = true
			return old, !loaded
		}

		existed = loaded
		return old, true
	})

	if conflict {
		return false, grid.NewError(grid.KindConflict, "the cell has been updated by another user")
	}
	return existed, nil
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Current returns the current version for a coordinate.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memGridImpl) Current(coord grid.Coordinate) (grid.Version, bool, error) {
	key := packCoord(coord)
	v, ok := m.getShard(key).current.Load(key)
	return v, ok, nil
}

// Lookup returns a version record by id, current or not.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memGridImpl) Lookup(id uint64) (grid.Version, bool, error) {
	v, ok := m.history.Load(id)
	return v, ok, nil
}

// ScanRange returns the current versions inside the closed rectangle.
// The scan iterates a point-in-time view of each shard; versions written
// concurrently with the scan may or may not be included.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memGridImpl) ScanRange(r grid.Rect) ([]grid.Version, error) {
	var result []grid.Version
	for _, s := range m.shards {
		s.current.Range(func(_ uint64, v grid.Version) bool {
			if r.Contains(v.Coord) {
				result = append(result, v)
			}
			return true
		})
	}
	return result, nil
}

// CountRange counts current versions inside the closed rectangle.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memGridImpl) CountRange(r grid.Rect) (int64, error) {
	var count int64
	for _, s := range m.shards {
		s.current.Range(func(_ uint64, v grid.Version) bool {
			if r.Contains(v.Coord) {
				count++
			}
			return true
		})
	}
	return count, nil
}

// CountCurrent counts all occupied cells.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memGridImpl) CountCurrent() (int64, error) {
	var count int64
	for _, s := range m.shards {
		count += int64(s.current.Size())
	}
	return count, nil
}

// CountVersions counts all version records ever created.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memGridImpl) CountVersions() (int64, error) {
	return int64(m.history.Size()), nil
}

// --------------------------------------------------------------------------
// Spatial Aggregations
// --------------------------------------------------------------------------

// AggregateChunks counts current cells per requested chunk. Only requested
// chunks are counted and chunks without any cell are omitted. The iteration
// cost is proportional to the number of occupied cells, which is the
// tradeoff of keeping the current map unindexed by region.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memGridImpl) AggregateChunks(chunkSize int, chunks []grid.ChunkCoord) ([]grid.ChunkCount, error) {
	if chunkSize <= 0 {
		return nil, grid.NewError(grid.KindValidation, "chunk size must be positive")
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	requested := make(map[grid.ChunkCoord]int64, len(chunks))
	for _, c := range chunks {
		requested[c] = 0
	}

	for _, s := range m.shards {
		s.current.Range(func(_ uint64, v grid.Version) bool {
			c := grid.ChunkCoord{
				GridX: grid.ChunkDiv(v.Coord.Col, chunkSize),
				GridY: grid.ChunkDiv(v.Coord.Row, chunkSize),
			}
			if _, ok := requested[c]; ok {
				requested[c]++
			}
			return true
		})
	}

	result := make([]grid.ChunkCount, 0, len(chunks))
	for _, c := range chunks {
		if heat := requested[c]; heat > 0 {
			result = append(result, grid.ChunkCount{GridY: c.GridY, GridX: c.GridX, Heat: heat})
		}
	}
	return result, nil
}

// AggregateHotspot buckets current cells created at or after since into
// squares of side length gridSize and returns the centre of the square with
// the most cells. Ties break towards the smallest (gridY, gridX) pair so the
// result is deterministic.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memGridImpl) AggregateHotspot(gridSize int, since time.Time) (grid.Coordinate, bool, error) {
	if gridSize <= 0 {
		return grid.Coordinate{}, false, grid.NewError(grid.KindValidation, "grid size must be positive")
	}

	counts := make(map[grid.ChunkCoord]int64)
	for _, s := range m.shards {
		s.current.Range(func(_ uint64, v grid.Version) bool {
			if v.CreatedAt.Before(since) {
				return true
			}
			c := grid.ChunkCoord{
				GridX: grid.ChunkDiv(v.Coord.Col, gridSize),
				GridY: grid.ChunkDiv(v.Coord.Row, gridSize),
			}
			counts[c]++
			return true
		})
	}

	var (
		best     grid.ChunkCoord
		bestHeat int64
	)
	for c, heat := range counts {
		if heat > bestHeat || (heat == bestHeat && heat > 0 && lessChunk(c, best)) {
			best = c
			bestHeat = heat
		}
	}

	if bestHeat == 0 {
		return grid.Coordinate{}, false, nil
	}
	return grid.Coordinate{
		Row: best.GridY*gridSize + gridSize/2,
		Col: best.GridX*gridSize + gridSize/2,
	}, true, nil
}

// lessChunk orders chunk coordinates by (GridY, GridX).
func lessChunk(a, b grid.ChunkCoord) bool {
	if a.GridY != b.GridY {
		return a.GridY < b.GridY
	}
	return a.GridX < b.GridX
}

// --------------------------------------------------------------------------
// Diagnostics and Lifecycle
// --------------------------------------------------------------------------

// Info returns statistics about the store, including how evenly the current
// cells distribute over the shards.
func (m *memGridImpl) Info() (grid.StoreInfo, error) {
	var (
		wg         sync.WaitGroup
		shardSizes = make([]float64, len(m.shards))
	)

	wg.Add(len(m.shards))
	for i, s := range m.shards {
		go func(i int, s *shard) {
			defer wg.Done()
			shardSizes[i] = float64(s.current.Size())
		}(i, s)
	}
	wg.Wait()

	current, _ := m.CountCurrent()
	versions, _ := m.CountVersions()

	meta := &struct {
		ShardCount        int                    `json:"shard_count"`
		ShardDistribution util.DistributionStats `json:"shard_distribution"`
	}{
		ShardCount:        len(m.shards),
		ShardDistribution: util.NewDistributionStats(shardSizes),
	}

	return grid.StoreInfo{
		CurrentCells:  current,
		TotalVersions: versions,
		StoreType:     "memgrid",
		Metadata:      meta,
	}, nil
}

// Close is a no-op for the in-memory store.
func (m *memGridImpl) Close() error {
	return nil
}
