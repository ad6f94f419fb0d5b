// Package grid defines the data model of the shared canvas and the narrow
// interface (GridStore) through which the core talks to the durable
// version-record store.
//
// The model is history-preserving: every accepted write creates an immutable
// Version record with a strictly increasing, globally unique id. For any
// coordinate at most one version is current at a time - the one with the
// greatest id that has not been superseded by a delete. A delete is the
// absence of a current version, not a stored row.
//
// Key Components:
//
//   - GridStore Interface: point lookups by coordinate and by id, the
//     optimistic compare-and-set write primitives, rectangle scans/counts and
//     the two spatial aggregations (chunk density, hotspot square). All
//     implementations share this interface, allowing the core to switch
//     storage backends without code changes.
//
//   - Error System: a structured error type carrying a failure Kind
//     (Conflict, Throttled, NotFound, Validation, Dependency) and a short
//     caller-safe message. Callers branch on the kind rather than on error
//     strings.
//
//   - StoreFactory: a function type that abstracts the creation of the
//     underlying GridStore, providing dependency injection for tests and
//     alternative backends.
//
// Implementations:
//
//	The in-memory reference implementation lives in the
//	"github.com/hanpf2391/Flux/lib/grid/memgrid" package. A conformance test
//	suite for any implementation is provided by
//	"github.com/hanpf2391/Flux/lib/grid/testing".
package grid
