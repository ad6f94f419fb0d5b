package grid

import (
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Coordinates and Rectangles
// --------------------------------------------------------------------------

// Coordinate identifies a single cell location on the infinite canvas.
type Coordinate struct {
	Row int `json:"rowIndex"`
	Col int `json:"colIndex"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Rect is a closed rectangle of coordinates. A coordinate (r, c) lies inside
// the rectangle iff RowMin <= r <= RowMax and ColMin <= c <= ColMax.
type Rect struct {
	RowMin, RowMax int
	ColMin, ColMax int
}

// Contains reports whether the coordinate lies inside the closed rectangle.
func (r Rect) Contains(c Coordinate) bool {
	return c.Row >= r.RowMin && c.Row <= r.RowMax &&
		c.Col >= r.ColMin && c.Col <= r.ColMax
}

// --------------------------------------------------------------------------
// Cell Versions
// --------------------------------------------------------------------------

// NoVersion is the sentinel base version id a writer supplies when it
// observed the coordinate as empty. Version ids assigned by a store start
// at 1, so the sentinel can never collide with a real id.
const NoVersion uint64 = 0

// Version is one immutable version record of a cell. Multiple versions may
// exist per coordinate over time; the current one is the version with the
// greatest id that has not been superseded by a delete.
type Version struct {
	ID         uint64
	Coord      Coordinate
	Content    string
	BgColor    string
	SourceAddr string
	CreatedAt  time.Time
}

// State converts the version to its externally visible cell state.
func (v Version) State() CellState {
	return CellState{
		ID:      v.ID,
		Row:     v.Coord.Row,
		Col:     v.Coord.Col,
		Content: v.Content,
		BgColor: v.BgColor,
	}
}

// CellState is the externally visible shape of a current cell, used both in
// REST responses and in realtime broadcast payloads.
type CellState struct {
	ID      uint64 `json:"id"`
	Row     int    `json:"rowIndex"`
	Col     int    `json:"colIndex"`
	Content string `json:"content"`
	BgColor string `json:"bgColor,omitempty"`
}

// Draft carries the caller-supplied fields of a version about to be created.
// The id and creation timestamp are assigned by the store.
type Draft struct {
	Content    string
	BgColor    string
	SourceAddr string
}

// --------------------------------------------------------------------------
// Aggregation Types
// --------------------------------------------------------------------------

// ChunkCoord addresses one fixed-size square region of the canvas used for
// heat-density bucketing. GridX indexes column bands, GridY row bands: chunk
// (x, y) with side length s covers rows [y*s, (y+1)*s) and columns
// [x*s, (x+1)*s).
type ChunkCoord struct {
	GridX int
	GridY int
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("%d,%d", c.GridX, c.GridY)
}

// ChunkCount is the number of current cells inside one requested chunk.
type ChunkCount struct {
	GridY int   `json:"gridY"`
	GridX int   `json:"gridX"`
	Heat  int64 `json:"heatValue"`
}

// ChunkDiv maps a cell index (row or column) to its chunk band index using
// floor division, so that negative coordinates bucket correctly.
func ChunkDiv(v, size int) int {
	if v >= 0 {
		return v / size
	}
	return -((-v - 1) / size) - 1
}
