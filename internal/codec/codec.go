// Package codec converts between Go values and the raw bytes kept in a
// storage.Store. A value is stored as its JSON text wrapped in a protobuf
// BytesValue, so anything with a JSON representation round-trips and
// integers keep their exact digits. Decoding into a type that does not
// match the stored shape reports absence, not an error.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ErrUnsupported is returned by Encode for values with no JSON form.
var ErrUnsupported = errors.New("unsupported value")

var jsonNull = []byte("null")

// Encode serializes v.
func Encode(v any) ([]byte, error) {
	text, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrUnsupported, v, err)
	}
	data, err := proto.Marshal(wrapperspb.Bytes(text))
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return data, nil
}

// Decode interprets raw as a T. ok is false when raw is empty, holds a
// null, is not a valid encoding, or does not fit T.
func Decode[T any](raw []byte) (T, bool) {
	var zero T
	if len(raw) == 0 {
		return zero, false
	}
	wrapped := &wrapperspb.BytesValue{}
	if err := proto.Unmarshal(raw, wrapped); err != nil {
		return zero, false
	}
	return FromJSON[T](wrapped.GetValue())
}

// FromJSON interprets JSON text as a T using the same rules as Decode.
func FromJSON[T any](text []byte) (T, bool) {
	var zero T
	text = bytes.TrimSpace(text)
	if len(text) == 0 || bytes.Equal(text, jsonNull) {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(text, &out); err != nil {
		return zero, false
	}
	return out, true
}
