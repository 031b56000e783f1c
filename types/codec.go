package types

import "github.com/goccy/go-json"

// EncodeJSON is the default codec backing Packable implementations that
// don't need a bespoke wire format, per spec.md §6 ("each component type
// exposes pack(archive)/unpack(archive)... the core never inspects
// component interiors"). goccy/go-json is a drop-in encoding/json
// replacement, matching the teacher's own choice for fast component
// (de)serialization.
func EncodeJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeJSON is the Unpack-side counterpart of EncodeJSON.
func DecodeJSON(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
