// Package form turns an actor's JSON input schema into an ordered set of
// field descriptors, renders them as widgets, and coerces the user's raw
// edits into a typed run payload.
package form

import "strings"

// ProxyKey is the field key that is always treated as the Apify proxy toggle,
// whatever type the schema declares for it.
const ProxyKey = "proxy"

// IsProxy reports whether key names the proxy toggle.
func IsProxy(key string) bool {
	return key == ProxyKey
}

// DeclaredType is the JSON Schema type a field declares.
type DeclaredType int

const (
	// TypeOther covers "number", "null", a missing type, and anything
	// unrecognized. FieldDescriptor.RawType keeps the original name.
	TypeOther DeclaredType = iota
	TypeString
	TypeInteger
	TypeBoolean
	TypeArray
	TypeObject
)

var typeNames = map[DeclaredType]string{
	TypeOther:   "other",
	TypeString:  "string",
	TypeInteger: "integer",
	TypeBoolean: "boolean",
	TypeArray:   "array",
	TypeObject:  "object",
}

// String returns the JSON Schema name of the type.
func (t DeclaredType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "other"
}

// MarshalText renders the type by name.
func (t DeclaredType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a type name; unknown names become TypeOther.
func (t *DeclaredType) UnmarshalText(b []byte) error {
	*t = ParseDeclaredType(string(b))
	return nil
}

// ParseDeclaredType maps a JSON Schema type name to a DeclaredType.
func ParseDeclaredType(s string) DeclaredType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string":
		return TypeString
	case "integer":
		return TypeInteger
	case "boolean":
		return TypeBoolean
	case "array":
		return TypeArray
	case "object":
		return TypeObject
	default:
		return TypeOther
	}
}

// FieldDescriptor is the normalized description of one input field.
type FieldDescriptor struct {
	Key         string       `json:"key"`
	Type        DeclaredType `json:"type"`
	RawType     string       `json:"rawType,omitempty"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"` // markup, rendered verbatim
	Default     any          `json:"default,omitempty"`
	HasDefault  bool         `json:"hasDefault"`
	UIHint      string       `json:"uiHint,omitempty"` // the schema's "editor" keyword
	Required    bool         `json:"required,omitempty"`
}

// Label is the title, falling back to the key.
func (f FieldDescriptor) Label() string {
	if strings.TrimSpace(f.Title) != "" {
		return f.Title
	}
	return f.Key
}

// Schema is the ordered field list derived from one actor's input schema.
type Schema struct {
	ActorID string            `json:"actorId"`
	Fields  []FieldDescriptor `json:"fields"`
}

// Field returns the descriptor for key.
func (s *Schema) Field(key string) (FieldDescriptor, bool) {
	if s == nil {
		return FieldDescriptor{}, false
	}
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// Keys returns the field keys in display order.
func (s *Schema) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		keys[i] = f.Key
	}
	return keys
}

// Empty reports whether the schema has no usable fields.
func (s *Schema) Empty() bool {
	return s == nil || len(s.Fields) == 0
}

// Payload is the typed run input produced by Coerce.
type Payload map[string]any
