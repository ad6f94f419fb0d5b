// Package ratelimit implements the per-source admission gate for canvas
// writes: one accepted write per source address per configurable cooldown.
// The address map is a concurrent map with atomic per-address updates, and a
// background sweep prunes addresses that stayed quiet for a full cooldown so
// the map does not grow without bound.
package ratelimit
