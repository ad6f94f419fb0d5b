// Package memcache implements cache.ICache in process memory. Entries live
// in a concurrent map; a deadline-ordered heap feeds a janitor goroutine
// that reclaims expired entries. Correctness never depends on the janitor -
// Get checks the deadline itself - the janitor only bounds memory.
package memcache
