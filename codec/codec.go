// Package codec serializes user messages to, and parses them from, the
// opaque byte strings carried in a packet.CallData payload.
package codec

import (
	"encoding/json"

	"google.golang.org/protobuf/proto"
)

// Codec marshals and unmarshals user messages for the Stream abstraction.
// Implementations must be safe for concurrent use by multiple streams.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON is a human-readable codec, useful for debugging handlers whose
// messages are plain Go structs rather than generated protobuf types.
type JSON struct{}

// Marshal implements Codec.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal implements Codec.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Proto marshals messages that implement proto.Message using
// google.golang.org/protobuf, matching the wire encoding note in spec.md §1
// ("a structured tagged-union representation, e.g. protocol-buffer-style").
// Messages that do not implement proto.Message fall back to JSON so
// handlers built against plain structs in tests still work.
type Proto struct{}

// Marshal implements Codec.
func (Proto) Marshal(v any) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return proto.Marshal(m)
	}
	return json.Marshal(v)
}

// Unmarshal implements Codec.
func (Proto) Unmarshal(data []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, m)
	}
	return json.Unmarshal(data, v)
}

// Default is the codec used by a Stream when none is supplied explicitly.
var Default Codec = Proto{}
