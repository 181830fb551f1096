package form

import (
	"errors"
	"fmt"
)

// ErrUnknownField is returned when an edit names a key the schema lacks.
var ErrUnknownField = errors.New("unknown field")

// RawFormState holds the editor-native value of each field, keyed by field key:
// strings for text, number and line-list inputs, booleans for toggles, and
// declared defaults in their original shape until the user edits them.
type RawFormState map[string]any

// Clone returns a shallow copy.
func (s RawFormState) Clone() RawFormState {
	out := make(RawFormState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Set writes value under key only. Keys outside schema are rejected so the
// state never holds a key without a descriptor.
func (s RawFormState) Set(schema *Schema, key string, value any) error {
	if _, ok := schema.Field(key); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	s[key] = value
	return nil
}
