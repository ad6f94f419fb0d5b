// Package cache defines the key-value cache collaborator of the canvas core:
// a narrow interface (ICache) with per-entry TTL semantics. The in-memory
// implementation lives in the
// "github.com/hanpf2391/Flux/lib/cache/memcache" package.
package cache
