package resolver

import (
	"strings"
	"sync"
	"testing"

	"github.com/hanpf2391/Flux/lib/grid"
	"github.com/hanpf2391/Flux/lib/grid/memgrid"
)

// recordingNotifier counts notifications for assertion
type recordingNotifier struct {
	mu       sync.Mutex
	updated  []grid.CellState
	deleted  []grid.Coordinate
	statsRef int
}

func (n *recordingNotifier) CellUpdated(state grid.CellState) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updated = append(n.updated, state)
}

func (n *recordingNotifier) CellDeleted(coord grid.Coordinate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, coord)
}

func (n *recordingNotifier) StatsChanged() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statsRef++
}

func newTestResolver() (*Resolver, *recordingNotifier) {
	n := &recordingNotifier{}
	return New(memgrid.New(nil), n), n
}

// --------------------------------------------------------------------------
// Write Path
// --------------------------------------------------------------------------

func TestCreateAndUpdate(t *testing.T) {
	r, n := newTestResolver()
	coord := grid.Coordinate{Row: 1, Col: 2}

	res, err := r.Write(coord, "hello", "#ff0000", grid.NoVersion, "1.2.3.4")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if res.Outcome != OutcomeUpdated {
		t.Fatalf("expected updated outcome, got %v", res.Outcome)
	}
	if res.State.Content != "hello" || res.State.BgColor != "#ff0000" {
		t.Errorf("unexpected state: %+v", res.State)
	}

	res2, err := r.Write(coord, "hello again", "", res.State.ID, "1.2.3.4")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if res2.State.ID <= res.State.ID {
		t.Errorf("update did not produce a newer version id")
	}

	if len(n.updated) != 2 || n.statsRef != 2 {
		t.Errorf("expected 2 cell events and 2 stats refreshes, got %d/%d", len(n.updated), n.statsRef)
	}
}

func TestConflictLeavesStateUntouched(t *testing.T) {
	r, n := newTestResolver()
	coord := grid.Coordinate{Row: 0, Col: 0}

	res, _ := r.Write(coord, "original", "", grid.NoVersion, "a")

	// a writer that thinks the cell is still empty
	if _, err := r.Write(coord, "usurper", "", grid.NoVersion, "b"); !grid.IsKind(err, grid.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	states, _ := r.GetRange(grid.Rect{RowMax: 0, ColMax: 0})
	if len(states) != 1 || states[0].ID != res.State.ID || states[0].Content != "original" {
		t.Errorf("conflict changed stored state: %+v", states)
	}
	if len(n.updated) != 1 {
		t.Errorf("conflict emitted a notification")
	}
}

func TestDeleteConvention(t *testing.T) {
	r, n := newTestResolver()
	coord := grid.Coordinate{Row: 7, Col: 7}

	res, _ := r.Write(coord, "temp", "", grid.NoVersion, "a")

	del, err := r.Write(coord, "", "", res.State.ID, "a")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if del.Outcome != OutcomeDeleted {
		t.Fatalf("expected deleted outcome, got %v", del.Outcome)
	}

	if states, _ := r.GetRange(grid.Rect{RowMin: 7, RowMax: 7, ColMin: 7, ColMax: 7}); len(states) != 0 {
		t.Errorf("cell still present after delete: %+v", states)
	}
	if len(n.deleted) != 1 || n.deleted[0] != coord {
		t.Errorf("expected one delete notification for %v, got %v", coord, n.deleted)
	}

	// whitespace-only content counts as empty
	res2, _ := r.Write(coord, "x", "", grid.NoVersion, "a")
	if del2, err := r.Write(coord, "   ", "", res2.State.ID, "a"); err != nil || del2.Outcome != OutcomeDeleted {
		t.Errorf("whitespace-only write should delete, got %+v err=%v", del2, err)
	}
}

func TestDeleteOnEmptyCellIsNoOp(t *testing.T) {
	r, n := newTestResolver()
	coord := grid.Coordinate{Row: 9, Col: 9}

	res, err := r.Write(coord, "", "", grid.NoVersion, "a")
	if err != nil {
		t.Fatalf("no-op delete failed: %v", err)
	}
	if res.Outcome != OutcomeDeleted {
		t.Errorf("expected deleted outcome, got %v", res.Outcome)
	}
	if total, _ := r.CountVersionsTotal(); total != 0 {
		t.Errorf("no-op delete created a version record")
	}
	if len(n.deleted) != 0 || n.statsRef != 0 {
		t.Errorf("no-op delete emitted notifications")
	}
}

func TestEmptyContentWithColorIsAWrite(t *testing.T) {
	r, _ := newTestResolver()
	coord := grid.Coordinate{Row: 3, Col: 3}

	// a colored but textless cell is a legitimate state, not a delete
	res, err := r.Write(coord, "", "#00ff00", grid.NoVersion, "a")
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if res.Outcome != OutcomeUpdated || res.State.BgColor != "#00ff00" {
		t.Errorf("expected a colored empty cell, got %+v", res)
	}
}

func TestColorInheritance(t *testing.T) {
	r, _ := newTestResolver()
	coord := grid.Coordinate{Row: 5, Col: 5}

	res, _ := r.Write(coord, "first", "#123456", grid.NoVersion, "a")

	// update without a color inherits
	res2, err := r.Write(coord, "second", "", res.State.ID, "a")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if res2.State.BgColor != "#123456" {
		t.Errorf("expected inherited color #123456, got %q", res2.State.BgColor)
	}

	// update with an explicit color overrides
	res3, _ := r.Write(coord, "third", "#abcdef", res2.State.ID, "a")
	if res3.State.BgColor != "#abcdef" {
		t.Errorf("expected explicit color #abcdef, got %q", res3.State.BgColor)
	}

	// fresh creation never inherits
	other, _ := r.Write(grid.Coordinate{Row: 6, Col: 6}, "fresh", "", grid.NoVersion, "a")
	if other.State.BgColor != "" {
		t.Errorf("fresh creation inherited a color: %q", other.State.BgColor)
	}
}

func TestContentSanitization(t *testing.T) {
	r, _ := newTestResolver()
	coord := grid.Coordinate{Row: 2, Col: 8}

	res, err := r.Write(coord, `<script>alert("xss")</script>`, "", grid.NoVersion, "a")
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if strings.Contains(res.State.Content, "<script>") {
		t.Errorf("markup stored unescaped: %q", res.State.Content)
	}
	if !strings.Contains(res.State.Content, "&lt;script&gt;") {
		t.Errorf("expected escaped markup, got %q", res.State.Content)
	}

	// the stored record is escaped too, not just the response
	detail, err := r.GetDetail(res.State.ID)
	if err != nil {
		t.Fatalf("detail lookup failed: %v", err)
	}
	if strings.Contains(detail.Content, "<script>") {
		t.Errorf("detail view returned raw markup: %q", detail.Content)
	}
}

func TestContentLengthBound(t *testing.T) {
	r, _ := newTestResolver()

	_, err := r.Write(grid.Coordinate{}, strings.Repeat("x", MaxContentRunes+1), "", grid.NoVersion, "a")
	if !grid.IsKind(err, grid.KindValidation) {
		t.Errorf("expected validation failure for oversize content, got %v", err)
	}

	// exactly at the bound is fine
	if _, err := r.Write(grid.Coordinate{}, strings.Repeat("x", MaxContentRunes), "", grid.NoVersion, "a"); err != nil {
		t.Errorf("content at the bound rejected: %v", err)
	}
}

func TestRacingWritersSameBase(t *testing.T) {
	r, _ := newTestResolver()
	coord := grid.Coordinate{Row: 11, Col: 11}

	base, _ := r.Write(coord, "base", "", grid.NoVersion, "a")

	const writers = 16
	var (
		wg        sync.WaitGroup
		successes = make(chan WriteResult, writers)
	)

	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			res, err := r.Write(coord, "racer", "", base.State.ID, "a")
			if err == nil {
				successes <- res
				return
			}
			if !grid.IsKind(err, grid.KindConflict) {
				t.Errorf("loser got a non-conflict error: %v", err)
			}
		}()
	}
	wg.Wait()
	close(successes)

	if len(successes) != 1 {
		t.Errorf("expected exactly one winning writer, got %d", len(successes))
	}
}

// --------------------------------------------------------------------------
// Read Path
// --------------------------------------------------------------------------

func TestGetDetailNotFound(t *testing.T) {
	r, _ := newTestResolver()

	if _, err := r.GetDetail(12345); !grid.IsKind(err, grid.KindNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestGetDetailReturnsHistoricalContent(t *testing.T) {
	r, _ := newTestResolver()
	coord := grid.Coordinate{Row: 0, Col: 1}

	v1, _ := r.Write(coord, "old", "", grid.NoVersion, "a")
	if _, err := r.Write(coord, "new", "", v1.State.ID, "a"); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	detail, err := r.GetDetail(v1.State.ID)
	if err != nil {
		t.Fatalf("historical detail lookup failed: %v", err)
	}
	if detail.Content != "old" {
		t.Errorf("expected historical content %q, got %q", "old", detail.Content)
	}
}

func TestCounts(t *testing.T) {
	r, _ := newTestResolver()

	v, _ := r.Write(grid.Coordinate{Row: 0, Col: 0}, "a", "", grid.NoVersion, "x")
	r.Write(grid.Coordinate{Row: 0, Col: 1}, "b", "", grid.NoVersion, "x")
	r.Write(grid.Coordinate{Row: 50, Col: 50}, "c", "", grid.NoVersion, "x")
	r.Write(grid.Coordinate{Row: 0, Col: 0}, "a2", "", v.State.ID, "x")

	if n, _ := r.CountCurrentTotal(); n != 3 {
		t.Errorf("expected 3 current cells, got %d", n)
	}
	if n, _ := r.CountVersionsTotal(); n != 4 {
		t.Errorf("expected 4 version records, got %d", n)
	}
	if n, _ := r.CountCurrentInRange(grid.Rect{RowMin: 0, RowMax: 0, ColMin: 0, ColMax: 1}); n != 2 {
		t.Errorf("expected 2 cells in range, got %d", n)
	}
}
