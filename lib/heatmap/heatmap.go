package heatmap

import (
	"strconv"
	"strings"

	"github.com/hanpf2391/Flux/lib/grid"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("heatmap")

// DefaultChunkSize is the side length of one heatmap chunk in cells.
const DefaultChunkSize = 9

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Chunk is a heatmap snapshot for a requested set of chunks. Data only
// carries chunks with at least one live cell; a chunk absent from Data has
// zero heat.
type Chunk struct {
	ChunkSize int               `json:"chunkSize"`
	Data      []grid.ChunkCount `json:"data"`
}

// Aggregator answers heatmap queries against the grid store.
type Aggregator struct {
	store     grid.GridStore
	chunkSize int
}

// New creates an Aggregator with the given chunk size. Non-positive sizes
// fall back to DefaultChunkSize.
func New(store grid.GridStore, chunkSize int) *Aggregator {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Aggregator{store: store, chunkSize: chunkSize}
}

// ChunkSize returns the configured chunk side length.
func (a *Aggregator) ChunkSize() int {
	return a.chunkSize
}

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

// ParseChunks decodes a chunk list of the form "gridX,gridY;gridX,gridY;..."
// into chunk coordinates. Parsing is strict: any malformed entry fails the
// whole list. Empty input yields an empty list.
func ParseChunks(raw string) ([]grid.ChunkCoord, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ";")
	chunks := make([]grid.ChunkCoord, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		fields := strings.Split(part, ",")
		if len(fields) != 2 {
			return nil, grid.NewError(grid.KindValidation, "malformed chunk coordinate: "+part)
		}
		gridX, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, grid.NewError(grid.KindValidation, "malformed chunk coordinate: "+part)
		}
		gridY, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, grid.NewError(grid.KindValidation, "malformed chunk coordinate: "+part)
		}

		chunks = append(chunks, grid.ChunkCoord{GridX: gridX, GridY: gridY})
	}

	return chunks, nil
}

// Query counts live cells for the requested chunks. An empty request skips
// the store entirely; a store failure degrades to an empty snapshot so the
// canvas keeps rendering without heat overlays.
func (a *Aggregator) Query(chunks []grid.ChunkCoord) Chunk {
	result := Chunk{ChunkSize: a.chunkSize, Data: []grid.ChunkCount{}}
	if len(chunks) == 0 {
		return result
	}

	counts, err := a.store.AggregateChunks(a.chunkSize, chunks)
	if err != nil {
		Logger.Errorf("heatmap aggregation failed for %d chunks: %v", len(chunks), err)
		return result
	}

	result.Data = counts
	return result
}

// QueryRaw parses a raw chunk list and answers the query in one step.
// A malformed list yields an empty snapshot.
func (a *Aggregator) QueryRaw(raw string) Chunk {
	chunks, err := ParseChunks(raw)
	if err != nil {
		Logger.Warningf("rejected malformed chunk list: %v", err)
		return Chunk{ChunkSize: a.chunkSize, Data: []grid.ChunkCount{}}
	}
	return a.Query(chunks)
}
