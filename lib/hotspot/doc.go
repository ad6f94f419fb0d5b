/*
Package hotspot locates the most active area of the canvas and serves it as
the "golden spawn point" for new viewers.

A scheduled refresh recomputes the position on a fixed period and primes a
TTL cache; the read path is cache-aside, so a cold cache (or one with an
undecodable value) recomputes synchronously exactly once, and subsequent
reads within the TTL touch only the cache. The read path never returns an
error: any failure degrades to the origin default position.
*/
package hotspot
