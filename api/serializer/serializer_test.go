package serializer

import (
	"reflect"
	"testing"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() ISerializer{
	"JSON": NewJSONSerializer,
	"GOB":  NewGOBSerializer,
}

// position mirrors the cached hotspot value shape
type position struct {
	Row       int    `json:"rowIndex"`
	Col       int    `json:"colIndex"`
	IsDefault bool   `json:"isDefault"`
	Label     string `json:"message"`
}

// TestSerializerRoundTrip tests that values can be serialized and
// deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	values := []position{
		{},
		{Row: 0, Col: 0, IsDefault: true, Label: "Default position - no active areas found"},
		{Row: -105, Col: 2047, IsDefault: false, Label: "Hotspot position based on recent activity"},
	}

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			s := factory()

			for i, v := range values {
				data, err := s.Serialize(v)
				if err != nil {
					t.Fatalf("value %d: Serialize failed: %v", i, err)
				}

				var got position
				if err := s.Deserialize(data, &got); err != nil {
					t.Fatalf("value %d: Deserialize failed: %v", i, err)
				}

				if !reflect.DeepEqual(v, got) {
					t.Errorf("value %d: round trip mismatch: sent %+v, got %+v", i, v, got)
				}
			}
		})
	}
}

func TestDeserializeGarbage(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			var got position
			if err := factory().Deserialize([]byte("\x00garbage"), &got); err == nil {
				t.Errorf("expected an error deserializing garbage")
			}
		})
	}
}
