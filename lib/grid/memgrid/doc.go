// Package memgrid provides an in-memory reference implementation of the
// grid.GridStore interface.
//
// Current versions are partitioned into shards by a seeded FNV-1a hash of the
// packed coordinate; each shard is an independent concurrent map, so writes
// to different coordinates never contend. The optimistic primitives perform
// their check-then-write inside a single atomic Compute call on the owning
// shard, which is what makes two racing writers to the same coordinate
// impossible to both succeed.
//
// The append-only version history is kept in a separate id-keyed map:
// superseding or deleting a cell never removes its history records, so
// detail lookups by id keep working for superseded versions.
//
// Range scans and the spatial aggregations iterate a point-in-time view of
// the shards without blocking writers. They are O(occupied cells); a
// disk-backed implementation would replace them with indexed queries.
package memgrid
