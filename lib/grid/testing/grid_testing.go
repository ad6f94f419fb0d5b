package testing

import (
	"sync"
	"testing"
	"time"

	"github.com/hanpf2391/Flux/lib/grid"
)

// StoreFactory is a function that creates a new instance of a GridStore
// implementation under test.
type StoreFactory func() grid.GridStore

// RunGridStoreTests runs a conformance test suite for a GridStore
// implementation.
func RunGridStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("PutAndCurrent", func(t *testing.T) {
			testPutAndCurrent(t, factory())
		})

		t.Run("ConflictOnStaleBase", func(t *testing.T) {
			testConflictOnStaleBase(t, factory())
		})

		t.Run("VersionIDsIncrease", func(t *testing.T) {
			testVersionIDsIncrease(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("HistorySurvivesDelete", func(t *testing.T) {
			testHistorySurvivesDelete(t, factory())
		})

		t.Run("ScanAndCount", func(t *testing.T) {
			testScanAndCount(t, factory())
		})

		t.Run("AggregateChunks", func(t *testing.T) {
			testAggregateChunks(t, factory())
		})

		t.Run("AggregateHotspot", func(t *testing.T) {
			testAggregateHotspot(t, factory())
		})

		t.Run("RacingWriters", func(t *testing.T) {
			testRacingWriters(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// mustPut writes a version and fails the test on any error.
func mustPut(t testing.TB, s grid.GridStore, coord grid.Coordinate, baseID uint64, content string) grid.Version {
	t.Helper()
	v, err := s.CompareAndPut(coord, baseID, grid.Draft{Content: content, SourceAddr: "test"})
	if err != nil {
		t.Fatalf("CompareAndPut(%v, %d) failed: %v", coord, baseID, err)
	}
	return v
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testPutAndCurrent(t *testing.T, s grid.GridStore) {
	defer s.Close()

	coord := grid.Coordinate{Row: 3, Col: -7}

	if _, ok, err := s.Current(coord); err != nil || ok {
		t.Errorf("expected empty coordinate, got ok=%v err=%v", ok, err)
	}

	v := mustPut(t, s, coord, grid.NoVersion, "hello")
	if v.ID == grid.NoVersion {
		t.Errorf("expected a real version id, got the sentinel")
	}

	cur, ok, err := s.Current(coord)
	if err != nil || !ok {
		t.Fatalf("expected current version, got ok=%v err=%v", ok, err)
	}
	if cur.ID != v.ID || cur.Content != "hello" || cur.Coord != coord {
		t.Errorf("current version mismatch: %+v", cur)
	}

	got, ok, err := s.Lookup(v.ID)
	if err != nil || !ok {
		t.Fatalf("Lookup(%d) failed: ok=%v err=%v", v.ID, ok, err)
	}
	if got.Content != "hello" {
		t.Errorf("expected content %q, got %q", "hello", got.Content)
	}
}

func testConflictOnStaleBase(t *testing.T, s grid.GridStore) {
	defer s.Close()

	coord := grid.Coordinate{Row: 0, Col: 0}
	v := mustPut(t, s, coord, grid.NoVersion, "first")

	// stale base: the writer thinks the cell is still empty
	if _, err := s.CompareAndPut(coord, grid.NoVersion, grid.Draft{Content: "second"}); !grid.IsKind(err, grid.KindConflict) {
		t.Errorf("expected conflict for stale base, got %v", err)
	}

	// unknown base id
	if _, err := s.CompareAndPut(coord, v.ID+1000, grid.Draft{Content: "second"}); !grid.IsKind(err, grid.KindConflict) {
		t.Errorf("expected conflict for unknown base, got %v", err)
	}

	// a new coordinate claimed with a non-sentinel base must conflict too
	if _, err := s.CompareAndPut(grid.Coordinate{Row: 9, Col: 9}, 42, grid.Draft{Content: "x"}); !grid.IsKind(err, grid.KindConflict) {
		t.Errorf("expected conflict for base on empty coordinate, got %v", err)
	}

	// no state change on conflict
	cur, ok, _ := s.Current(coord)
	if !ok || cur.ID != v.ID || cur.Content != "first" {
		t.Errorf("conflict changed stored state: %+v", cur)
	}
	if n, _ := s.CountVersions(); n != 1 {
		t.Errorf("conflict created a version record: count=%d", n)
	}
}

func testVersionIDsIncrease(t *testing.T, s grid.GridStore) {
	defer s.Close()

	coord := grid.Coordinate{Row: 1, Col: 1}
	var prev uint64
	for i := 0; i < 5; i++ {
		v := mustPut(t, s, coord, prev, "v")
		if v.ID <= prev {
			t.Fatalf("version ids not strictly increasing: %d after %d", v.ID, prev)
		}
		prev = v.ID
	}

	// ids are unique across coordinates as well
	other := mustPut(t, s, grid.Coordinate{Row: 2, Col: 2}, grid.NoVersion, "w")
	if other.ID <= 0 || other.ID == prev {
		t.Errorf("expected a fresh unique id, got %d", other.ID)
	}
}

func testDelete(t *testing.T, s grid.GridStore) {
	defer s.Close()

	coord := grid.Coordinate{Row: 4, Col: 4}
	v := mustPut(t, s, coord, grid.NoVersion, "doomed")

	// wrong base id
	if _, err := s.CompareAndDelete(coord, v.ID+1); !grid.IsKind(err, grid.KindConflict) {
		t.Errorf("expected conflict deleting with wrong base, got %v", err)
	}

	existed, err := s.CompareAndDelete(coord, v.ID)
	if err != nil || !existed {
		t.Fatalf("CompareAndDelete failed: existed=%v err=%v", existed, err)
	}

	if _, ok, _ := s.Current(coord); ok {
		t.Errorf("coordinate still occupied after delete")
	}

	// deleting an empty coordinate with the sentinel is a no-op
	existed, err = s.CompareAndDelete(coord, grid.NoVersion)
	if err != nil || existed {
		t.Errorf("expected no-op delete on empty coordinate, got existed=%v err=%v", existed, err)
	}
}

func testHistorySurvivesDelete(t *testing.T, s grid.GridStore) {
	defer s.Close()

	coord := grid.Coordinate{Row: 5, Col: 5}
	v1 := mustPut(t, s, coord, grid.NoVersion, "one")
	v2 := mustPut(t, s, coord, v1.ID, "two")
	if _, err := s.CompareAndDelete(coord, v2.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	for _, id := range []uint64{v1.ID, v2.ID} {
		if _, ok, err := s.Lookup(id); err != nil || !ok {
			t.Errorf("history record %d lost: ok=%v err=%v", id, ok, err)
		}
	}
	if n, _ := s.CountVersions(); n != 2 {
		t.Errorf("expected 2 version records, got %d", n)
	}
	if n, _ := s.CountCurrent(); n != 0 {
		t.Errorf("expected 0 current cells, got %d", n)
	}
}

func testScanAndCount(t *testing.T, s grid.GridStore) {
	defer s.Close()

	coords := []grid.Coordinate{
		{Row: 0, Col: 0},
		{Row: 1, Col: 2},
		{Row: -3, Col: -3},
		{Row: 10, Col: 10},
	}
	for _, c := range coords {
		mustPut(t, s, c, grid.NoVersion, "x")
	}

	rect := grid.Rect{RowMin: -3, RowMax: 1, ColMin: -3, ColMax: 2}
	versions, err := s.ScanRange(rect)
	if err != nil {
		t.Fatalf("ScanRange failed: %v", err)
	}
	if len(versions) != 3 {
		t.Errorf("expected 3 versions in rect, got %d", len(versions))
	}
	for _, v := range versions {
		if !rect.Contains(v.Coord) {
			t.Errorf("scan returned out-of-rect coordinate %v", v.Coord)
		}
	}

	if n, _ := s.CountRange(rect); n != 3 {
		t.Errorf("expected CountRange=3, got %d", n)
	}
	if n, _ := s.CountCurrent(); n != 4 {
		t.Errorf("expected CountCurrent=4, got %d", n)
	}
}

func testAggregateChunks(t *testing.T, s grid.GridStore) {
	defer s.Close()

	const chunkSize = 9

	// three cells in chunk (0,0), one in chunk (-1,-1)
	mustPut(t, s, grid.Coordinate{Row: 0, Col: 0}, grid.NoVersion, "a")
	mustPut(t, s, grid.Coordinate{Row: 8, Col: 8}, grid.NoVersion, "b")
	mustPut(t, s, grid.Coordinate{Row: 4, Col: 4}, grid.NoVersion, "c")
	mustPut(t, s, grid.Coordinate{Row: -1, Col: -1}, grid.NoVersion, "d")

	counts, err := s.AggregateChunks(chunkSize, []grid.ChunkCoord{
		{GridX: 0, GridY: 0},
		{GridX: -1, GridY: -1},
		{GridX: 5, GridY: 5}, // empty, must be omitted
	})
	if err != nil {
		t.Fatalf("AggregateChunks failed: %v", err)
	}

	if len(counts) != 2 {
		t.Fatalf("expected 2 non-empty chunks, got %d: %+v", len(counts), counts)
	}
	for _, c := range counts {
		switch (grid.ChunkCoord{GridX: c.GridX, GridY: c.GridY}) {
		case grid.ChunkCoord{GridX: 0, GridY: 0}:
			if c.Heat != 3 {
				t.Errorf("expected heat 3 in chunk (0,0), got %d", c.Heat)
			}
		case grid.ChunkCoord{GridX: -1, GridY: -1}:
			if c.Heat != 1 {
				t.Errorf("expected heat 1 in chunk (-1,-1), got %d", c.Heat)
			}
		default:
			t.Errorf("unexpected chunk in result: %+v", c)
		}
	}

	// empty request issues no aggregation
	if counts, err = s.AggregateChunks(chunkSize, nil); err != nil || len(counts) != 0 {
		t.Errorf("expected empty result for empty request, got %v / %v", counts, err)
	}
}

func testAggregateHotspot(t *testing.T, s grid.GridStore) {
	defer s.Close()

	const gridSize = 10

	// two cells in square (0,0), one cell in square (20..29, 20..29)
	mustPut(t, s, grid.Coordinate{Row: 1, Col: 1}, grid.NoVersion, "a")
	mustPut(t, s, grid.Coordinate{Row: 2, Col: 2}, grid.NoVersion, "b")
	mustPut(t, s, grid.Coordinate{Row: 25, Col: 25}, grid.NoVersion, "c")

	coord, ok, err := s.AggregateHotspot(gridSize, time.Now().Add(-time.Hour))
	if err != nil || !ok {
		t.Fatalf("AggregateHotspot failed: ok=%v err=%v", ok, err)
	}
	// centre of the winning square (rows 0-9, cols 0-9)
	if coord.Row != 5 || coord.Col != 5 {
		t.Errorf("expected hotspot (5,5), got %v", coord)
	}

	// a window in the future disqualifies everything
	if _, ok, err = s.AggregateHotspot(gridSize, time.Now().Add(time.Hour)); err != nil || ok {
		t.Errorf("expected no hotspot for future window, got ok=%v err=%v", ok, err)
	}
}

func testRacingWriters(t *testing.T, s grid.GridStore) {
	defer s.Close()

	coord := grid.Coordinate{Row: 100, Col: 100}
	base := mustPut(t, s, coord, grid.NoVersion, "base")

	const writers = 32

	var (
		wg        sync.WaitGroup
		successes = make(chan grid.Version, writers)
		conflicts = make(chan error, writers)
	)

	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			v, err := s.CompareAndPut(coord, base.ID, grid.Draft{Content: "racer"})
			if err != nil {
				conflicts <- err
				return
			}
			successes <- v
		}()
	}
	wg.Wait()
	close(successes)
	close(conflicts)

	if len(successes) != 1 {
		t.Fatalf("expected exactly 1 winning writer, got %d", len(successes))
	}
	for err := range conflicts {
		if !grid.IsKind(err, grid.KindConflict) {
			t.Errorf("loser got a non-conflict error: %v", err)
		}
	}

	winner := <-successes
	cur, ok, _ := s.Current(coord)
	if !ok || cur.ID != winner.ID {
		t.Errorf("current version is not the winner's: %+v", cur)
	}
}
