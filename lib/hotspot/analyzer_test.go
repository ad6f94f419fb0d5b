package hotspot

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/hanpf2391/Flux/api/serializer"
	"github.com/hanpf2391/Flux/lib/cache/memcache"
	"github.com/hanpf2391/Flux/lib/grid"
)

// countingStore stubs out the aggregation and counts how often it runs. The
// embedded interface is nil, so any other store call panics loudly.
type countingStore struct {
	grid.GridStore
	calls atomic.Int32
	coord grid.Coordinate
	found bool
	err   error
}

func (s *countingStore) AggregateHotspot(gridSize int, since time.Time) (grid.Coordinate, bool, error) {
	s.calls.Add(1)
	return s.coord, s.found, s.err
}

func newTestAnalyzer(t *testing.T, store *countingStore) *Analyzer {
	t.Helper()

	c := memcache.New(nil)
	t.Cleanup(func() { _ = c.Close() })

	return New(store, c, serializer.NewJSONSerializer(), Config{
		GridSize:        200,
		WindowDays:      7,
		RefreshInterval: time.Hour,
		CacheTTL:        time.Hour,
	})
}

func TestColdCacheComputesExactlyOnce(t *testing.T) {
	store := &countingStore{coord: grid.Coordinate{Row: 700, Col: 300}, found: true}
	analyzer := newTestAnalyzer(t, store)

	first := analyzer.Read()
	if first.IsDefault {
		t.Fatal("expected a hotspot position, got the default")
	}
	if first.Row != 700 || first.Col != 300 {
		t.Fatalf("unexpected position (%d,%d)", first.Row, first.Col)
	}
	if got := store.calls.Load(); got != 1 {
		t.Fatalf("cold read should aggregate exactly once, got %d", got)
	}

	// Warm reads must not touch the store.
	for i := 0; i < 10; i++ {
		if got := analyzer.Read(); got != first {
			t.Fatalf("warm read changed the position: %+v", got)
		}
	}
	if got := store.calls.Load(); got != 1 {
		t.Fatalf("warm reads should not aggregate, got %d calls", got)
	}
}

func TestEmptyCanvasYieldsDefault(t *testing.T) {
	store := &countingStore{found: false}
	analyzer := newTestAnalyzer(t, store)

	position := analyzer.Read()
	if !position.IsDefault {
		t.Fatal("expected the default position on an empty canvas")
	}
	if position.Row != 0 || position.Col != 0 {
		t.Fatalf("default position should be the origin, got (%d,%d)", position.Row, position.Col)
	}
}

func TestAggregationFailureDegradesToDefault(t *testing.T) {
	store := &countingStore{err: grid.NewError(grid.KindDependency, "store unavailable")}
	analyzer := newTestAnalyzer(t, store)

	position := analyzer.Read()
	if !position.IsDefault {
		t.Fatal("a failing aggregation must degrade to the default position")
	}
}

func TestUndecodableCacheEntryRecomputes(t *testing.T) {
	store := &countingStore{coord: grid.Coordinate{Row: 100, Col: 100}, found: true}
	c := memcache.New(nil)
	t.Cleanup(func() { _ = c.Close() })

	analyzer := New(store, c, serializer.NewJSONSerializer(), Config{CacheTTL: time.Hour})

	if err := c.Set(CacheKey, []byte("not json"), time.Hour); err != nil {
		t.Fatal(err)
	}

	position := analyzer.Read()
	if position.IsDefault || position.Row != 100 {
		t.Fatalf("expected a recomputed hotspot, got %+v", position)
	}
	if got := store.calls.Load(); got != 1 {
		t.Fatalf("expected exactly one recomputation, got %d", got)
	}

	// The bad entry must have been replaced.
	if got := analyzer.Read(); got != position {
		t.Fatalf("cache was not re-primed, got %+v", got)
	}
	if got := store.calls.Load(); got != 1 {
		t.Fatalf("re-primed cache should serve reads, got %d calls", got)
	}
}

func TestInvalidateForcesRecompute(t *testing.T) {
	store := &countingStore{coord: grid.Coordinate{Row: 10, Col: 20}, found: true}
	analyzer := newTestAnalyzer(t, store)

	analyzer.Read()
	if got := store.calls.Load(); got != 1 {
		t.Fatalf("priming read aggregated %d times", got)
	}

	if err := analyzer.Invalidate(); err != nil {
		t.Fatal(err)
	}

	analyzer.Read()
	if got := store.calls.Load(); got != 2 {
		t.Fatalf("read after invalidation should recompute, got %d calls", got)
	}
}

func TestRefreshPrimesTheCache(t *testing.T) {
	store := &countingStore{coord: grid.Coordinate{Row: 5, Col: 5}, found: true}
	analyzer := newTestAnalyzer(t, store)

	analyzer.Refresh()
	if got := store.calls.Load(); got != 1 {
		t.Fatalf("expected one aggregation from Refresh, got %d", got)
	}

	if got := analyzer.Read(); got.Row != 5 || got.Col != 5 {
		t.Fatalf("read after refresh returned %+v", got)
	}
	if got := store.calls.Load(); got != 1 {
		t.Fatalf("read after refresh should hit the cache, got %d calls", got)
	}
}

func TestScheduledRefresh(t *testing.T) {
	store := &countingStore{coord: grid.Coordinate{Row: 1, Col: 1}, found: true}

	c := memcache.New(nil)
	t.Cleanup(func() { _ = c.Close() })

	analyzer := New(store, c, serializer.NewJSONSerializer(), Config{
		RefreshInterval: 20 * time.Millisecond,
		CacheTTL:        time.Hour,
	})
	analyzer.Start()
	defer analyzer.Close()

	deadline := time.Now().Add(3 * time.Second)
	for store.calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("scheduler ran %d refreshes, expected at least 2", store.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
