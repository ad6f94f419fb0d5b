package resolver

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hanpf2391/Flux/lib/grid"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("resolver")

// --------------------------------------------------------------------------
// Constants and Types
// --------------------------------------------------------------------------

// MaxContentRunes is the upper bound on cell content length, counted in
// runes of the raw (unescaped) input.
const MaxContentRunes = 300

// Notifier receives exactly one cell event and one statistics refresh per
// successful write. The Broadcast Hub implements it; tests use fakes.
type Notifier interface {
	// CellUpdated is invoked after a create or update with the new state.
	CellUpdated(state grid.CellState)
	// CellDeleted is invoked after a delete with the emptied coordinate.
	CellDeleted(coord grid.Coordinate)
	// StatsChanged is invoked after any successful state change.
	StatsChanged()
}

// Outcome distinguishes the two successful write results.
type Outcome int

const (
	OutcomeUpdated Outcome = iota // a new current version was created
	OutcomeDeleted                // the coordinate is (now) empty
)

// WriteResult is the result of a successful write. State is only meaningful
// for OutcomeUpdated.
type WriteResult struct {
	Outcome Outcome
	Coord   grid.Coordinate
	State   grid.CellState
}

// Detail is the historical detail view of a single version record.
type Detail struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// --------------------------------------------------------------------------
// Resolver
// --------------------------------------------------------------------------

// Resolver is the optimistic-concurrency state machine governing cell
// reads, writes and deletes. It owns the write policy (sanitization, the
// delete convention, color inheritance) and delegates the atomic
// check-then-write to the store's compare-and-set primitives.
type Resolver struct {
	store    grid.GridStore
	notifier Notifier
}

// New creates a Resolver on top of the given store. The notifier receives
// one cell event plus one statistics refresh per successful write.
func New(store grid.GridStore, notifier Notifier) *Resolver {
	return &Resolver{
		store:    store,
		notifier: notifier,
	}
}

// --------------------------------------------------------------------------
// Write Path
// --------------------------------------------------------------------------

// Write applies a single optimistic write. baseID is the version id the
// caller observed before editing (grid.NoVersion for an empty cell); a
// mismatch with the actual current id fails with KindConflict and changes
// nothing. Empty content with no background color removes the current
// version; anything else creates a new one.
//
// Thread-safety: This method is thread-safe. Racing writers to the same
// coordinate serialize at the store's compare-and-set, so exactly one wins.
func (r *Resolver) Write(coord grid.Coordinate, content, bgColor string, baseID uint64, sourceAddr string) (WriteResult, error) {
	if utf8.RuneCountInString(content) > MaxContentRunes {
		return WriteResult{}, grid.NewError(grid.KindValidation,
			fmt.Sprintf("content must not exceed %d characters", MaxContentRunes))
	}

	// empty content with no color signals removal
	if strings.TrimSpace(content) == "" && bgColor == "" {
		return r.delete(coord, baseID)
	}

	// On updates only, a missing color inherits the replaced version's
	// color. Reading the current version outside the compare-and-set is
	// safe: if another writer slips in the CAS below fails anyway, and on
	// success the version read here is exactly the one being replaced.
	if bgColor == "" && baseID != grid.NoVersion {
		if prev, ok, err := r.store.Current(coord); err == nil && ok && prev.ID == baseID {
			bgColor = prev.BgColor
		}
	}

	// neutralize markup before the content ever reaches a renderer
	sanitized := html.EscapeString(content)

	version, err := r.store.CompareAndPut(coord, baseID, grid.Draft{
		Content:    sanitized,
		BgColor:    bgColor,
		SourceAddr: sourceAddr,
	})
	if err != nil {
		return WriteResult{}, err
	}

	state := version.State()
	Logger.Infof("cell %s updated to version %d by %s", coord, version.ID, sourceAddr)
	r.notifier.CellUpdated(state)
	r.notifier.StatsChanged()

	return WriteResult{Outcome: OutcomeUpdated, Coord: coord, State: state}, nil
}

// delete removes the current version if the optimistic check passes. When
// the coordinate was already empty this is a no-op: nothing is notified
// because nothing changed.
func (r *Resolver) delete(coord grid.Coordinate, baseID uint64) (WriteResult, error) {
	existed, err := r.store.CompareAndDelete(coord, baseID)
	if err != nil {
		return WriteResult{}, err
	}

	if existed {
		Logger.Infof("cell %s deleted (was version %d)", coord, baseID)
		r.notifier.CellDeleted(coord)
		r.notifier.StatsChanged()
	}

	return WriteResult{Outcome: OutcomeDeleted, Coord: coord}, nil
}

// --------------------------------------------------------------------------
// Read Path
// --------------------------------------------------------------------------

// GetRange returns the current cell states inside the closed rectangle.
func (r *Resolver) GetRange(rect grid.Rect) ([]grid.CellState, error) {
	versions, err := r.store.ScanRange(rect)
	if err != nil {
		return nil, err
	}

	states := make([]grid.CellState, 0, len(versions))
	for _, v := range versions {
		states = append(states, v.State())
	}
	return states, nil
}

// GetDetail returns the content and creation time of a specific version by
// id. Unlike the other reads this may return historical (superseded or
// deleted) content, used for hover/inspect views.
func (r *Resolver) GetDetail(id uint64) (Detail, error) {
	v, ok, err := r.store.Lookup(id)
	if err != nil {
		return Detail{}, err
	}
	if !ok {
		return Detail{}, grid.NewError(grid.KindNotFound,
			fmt.Sprintf("no version record with id %d", id))
	}
	return Detail{Content: v.Content, CreatedAt: v.CreatedAt}, nil
}

// CountCurrentInRange counts occupied cells inside the closed rectangle.
func (r *Resolver) CountCurrentInRange(rect grid.Rect) (int64, error) {
	return r.store.CountRange(rect)
}

// CountCurrentTotal counts all occupied cells.
func (r *Resolver) CountCurrentTotal() (int64, error) {
	return r.store.CountCurrent()
}

// CountVersionsTotal counts all version records ever created.
func (r *Resolver) CountVersionsTotal() (int64, error) {
	return r.store.CountVersions()
}
