package grid

import (
	"errors"
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// StoreFactory is a function type that creates a new GridStore.
// This is used to abstract the creation of the store from its consumers.
type StoreFactory func() GridStore

// GridStore is the narrow interface the canvas core uses to talk to the
// durable version-record store. Implementations must assign strictly
// increasing, globally unique version ids and must make the optimistic
// primitives (CompareAndPut, CompareAndDelete) atomic per coordinate:
// two concurrent writers to the same coordinate can never both observe
// "no conflict". Writes to different coordinates must not contend.
type GridStore interface {
	// Current returns the current version for a coordinate.
	// The boolean return value indicates whether the coordinate is occupied.
	Current(coord Coordinate) (Version, bool, error)
	// Lookup returns a version record by id, including superseded and
	// deleted versions (used for detail/inspect views).
	Lookup(id uint64) (Version, bool, error)
	// CompareAndPut creates a new current version for the coordinate iff the
	// id of the present current version equals baseID (NoVersion when the
	// writer observed the coordinate as empty). On mismatch it returns a
	// *Error with KindConflict and changes nothing.
	CompareAndPut(coord Coordinate, baseID uint64, draft Draft) (Version, error)
	// CompareAndDelete removes the current version for the coordinate iff its
	// id equals baseID. The removed version stays in the history (Lookup keeps
	// working). When baseID is NoVersion and the coordinate is empty this is a
	// no-op and existed is false. On mismatch it returns KindConflict.
	CompareAndDelete(coord Coordinate, baseID uint64) (existed bool, err error)
	// ScanRange returns the current versions whose coordinate lies in the
	// closed rectangle.
	ScanRange(r Rect) ([]Version, error)
	// CountRange counts current versions inside the closed rectangle.
	CountRange(r Rect) (int64, error)
	// CountCurrent counts all current versions (occupied cells).
	CountCurrent() (int64, error)
	// CountVersions counts all version records ever created, including
	// superseded and deleted ones.
	CountVersions() (int64, error)
	// AggregateChunks counts, per requested chunk of side length chunkSize,
	// the current cells inside it. Chunks with no cells are omitted from the
	// result.
	AggregateChunks(chunkSize int, chunks []ChunkCoord) ([]ChunkCount, error)
	// AggregateHotspot partitions the coordinate space into squares of side
	// length gridSize and returns a representative coordinate of the square
	// holding the most current cells created at or after since. The boolean
	// is false when no cell qualifies.
	AggregateHotspot(gridSize int, since time.Time) (Coordinate, bool, error)
	// Info returns diagnostics about the store. It is not guaranteed that all
	// fields are filled in or that the information is up-to-date!
	Info() (StoreInfo, error)
	// Close releases background resources held by the store.
	Close() error
}

// StoreInfo holds diagnostics reported by a GridStore implementation.
type StoreInfo struct {
	CurrentCells  int64       `json:"current_cells"`
	TotalVersions int64       `json:"total_versions"`
	StoreType     string      `json:"store_type"`
	Metadata      interface{} `json:"metadata"`
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Kind classifies a failure of a canvas core operation. Callers branch on
// the kind; the message is only ever shown to humans.
type Kind uint64

const (
	KindConflict   Kind = iota // optimistic check failed, caller must refetch and retry
	KindThrottled              // write rejected by the rate limiter
	KindNotFound               // lookup by id with no matching record
	KindValidation             // malformed or oversize input, rejected before any state change
	KindDependency             // cache or aggregation query failure
)

func (k Kind) String() string {
	switch k {
	case KindConflict:
		return "Conflict"
	case KindThrottled:
		return "Throttled"
	case KindNotFound:
		return "NotFound"
	case KindValidation:
		return "Validation"
	case KindDependency:
		return "Dependency"
	default:
		return "Unknown"
	}
}

// Error is a custom error type that wraps a failure kind and a short,
// caller-safe message. No internal fault detail is carried here.
type Error struct {
	Kind Kind   // The failure classification
	Msg  string // The error message
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("GridError (kind %s): %s", e.Kind, e.Msg)
}

// NewError creates a new Error with the given kind and message.
func NewError(kind Kind, msg string) *Error {
	return &Error{
		Kind: kind,
		Msg:  msg,
	}
}

// KindOf extracts the failure kind from an error. The boolean is false when
// the error is not a grid *Error.
func KindOf(err error) (Kind, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind, true
	}
	return 0, false
}

// IsKind reports whether the error is a grid *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
