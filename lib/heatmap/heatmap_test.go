package heatmap

import (
	"testing"
	"time"

	"github.com/hanpf2391/Flux/lib/grid"
	"github.com/hanpf2391/Flux/lib/grid/memgrid"
)

func seedCell(t *testing.T, store grid.GridStore, row, col int) {
	t.Helper()
	_, err := store.CompareAndPut(grid.Coordinate{Row: row, Col: col}, grid.NoVersion, grid.Draft{Content: "x"})
	if err != nil {
		t.Fatalf("seed cell (%d,%d): %v", row, col, err)
	}
}

func TestParseChunks(t *testing.T) {
	chunks, err := ParseChunks("0,0;1,2;-3,4")
	if err != nil {
		t.Fatal(err)
	}
	want := []grid.ChunkCoord{{GridX: 0, GridY: 0}, {GridX: 1, GridY: 2}, {GridX: -3, GridY: 4}}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Fatalf("chunk %d: got %+v, want %+v", i, chunks[i], want[i])
		}
	}
}

func TestParseChunksEmpty(t *testing.T) {
	for _, raw := range []string{"", "  ", ";", ";;"} {
		chunks, err := ParseChunks(raw)
		if err != nil {
			t.Fatalf("%q: %v", raw, err)
		}
		if len(chunks) != 0 {
			t.Fatalf("%q: expected no chunks, got %v", raw, chunks)
		}
	}
}

func TestParseChunksFailsClosed(t *testing.T) {
	for _, raw := range []string{"0,0;bad", "1", "1,2,3", "a,b", "0,0;1,"} {
		if _, err := ParseChunks(raw); err == nil {
			t.Fatalf("%q: expected an error", raw)
		} else if !grid.IsKind(err, grid.KindValidation) {
			t.Fatalf("%q: expected a validation error, got %v", raw, err)
		}
	}
}

func TestQueryCountsLiveCells(t *testing.T) {
	store := memgrid.New(nil)
	defer store.Close()

	// Three cells in chunk (0,0), one in chunk (1,0), chunk size 9.
	seedCell(t, store, 0, 0)
	seedCell(t, store, 4, 4)
	seedCell(t, store, 8, 8)
	seedCell(t, store, 2, 9)

	aggregator := New(store, 9)
	snapshot := aggregator.Query([]grid.ChunkCoord{{GridX: 0, GridY: 0}, {GridX: 1, GridY: 0}, {GridX: 5, GridY: 5}})

	if snapshot.ChunkSize != 9 {
		t.Fatalf("chunk size = %d, want 9", snapshot.ChunkSize)
	}

	heat := make(map[grid.ChunkCoord]int64, len(snapshot.Data))
	for _, count := range snapshot.Data {
		heat[grid.ChunkCoord{GridX: count.GridX, GridY: count.GridY}] = count.Heat
	}
	if heat[grid.ChunkCoord{GridX: 0, GridY: 0}] != 3 {
		t.Fatalf("chunk (0,0) heat = %d, want 3", heat[grid.ChunkCoord{GridX: 0, GridY: 0}])
	}
	if heat[grid.ChunkCoord{GridX: 1, GridY: 0}] != 1 {
		t.Fatalf("chunk (1,0) heat = %d, want 1", heat[grid.ChunkCoord{GridX: 1, GridY: 0}])
	}
	if _, ok := heat[grid.ChunkCoord{GridX: 5, GridY: 5}]; ok {
		t.Fatal("empty chunk must be omitted from the snapshot")
	}
}

func TestQueryEmptyRequestSkipsStore(t *testing.T) {
	aggregator := New(failingStore{}, 9)

	snapshot := aggregator.Query(nil)
	if len(snapshot.Data) != 0 {
		t.Fatalf("expected an empty snapshot, got %v", snapshot.Data)
	}
}

func TestQueryRawMalformedYieldsEmptySnapshot(t *testing.T) {
	store := memgrid.New(nil)
	defer store.Close()
	seedCell(t, store, 0, 0)

	aggregator := New(store, 9)
	snapshot := aggregator.QueryRaw("0,0;nope")
	if len(snapshot.Data) != 0 {
		t.Fatalf("malformed list must yield an empty snapshot, got %v", snapshot.Data)
	}
}

func TestQueryStoreFailureDegrades(t *testing.T) {
	aggregator := New(failingStore{}, 9)

	snapshot := aggregator.Query([]grid.ChunkCoord{{GridX: 0, GridY: 0}})
	if snapshot.Data == nil || len(snapshot.Data) != 0 {
		t.Fatalf("expected an empty non-nil snapshot, got %v", snapshot.Data)
	}
}

// failingStore fails every aggregation. The embedded interface is nil, so
// any other call panics.
type failingStore struct {
	grid.GridStore
}

func (failingStore) AggregateChunks(chunkSize int, chunks []grid.ChunkCoord) ([]grid.ChunkCount, error) {
	return nil, grid.NewError(grid.KindDependency, "store unavailable")
}

func (failingStore) AggregateHotspot(gridSize int, since time.Time) (grid.Coordinate, bool, error) {
	return grid.Coordinate{}, false, grid.NewError(grid.KindDependency, "store unavailable")
}
