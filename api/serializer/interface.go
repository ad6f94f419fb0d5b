package serializer

// ISerializer is the interface for all value serializers used by the API
// layer (websocket envelopes, cached hotspot positions).
type ISerializer interface {
	// Serialize serializes a value into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(v any) ([]byte, error)
	// Deserialize deserializes a byte array into the value pointed to by v
	// It returns an error if any
	Deserialize(b []byte, v any) error
}
