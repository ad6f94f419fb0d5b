// Package serializer provides value serialization for the API layer. It
// defines a common interface and two implementations used for websocket
// event envelopes and for the hotspot position stored in the cache.
//
// Key Components:
//
//   - ISerializer: Core interface that all serializer implementations must
//     satisfy.
//
//   - jsonSerializerImpl: JSON encoding. The websocket wire format is always
//     JSON because browser clients consume it directly.
//
//   - gobSerializerImpl: Go's gob encoding, selectable for cache values when
//     no non-Go consumer reads the cache.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
package serializer
