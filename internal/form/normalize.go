package form

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrNoUsableInput is returned when a schema document has no usable
// "properties" mapping. It is a notice, not a failure: Normalize still
// returns an empty schema and state alongside it.
var ErrNoUsableInput = errors.New("no usable schema properties")

// document is the top level of an input schema. Properties stay raw so
// each can be decoded on its own and one odd property cannot sink the rest.
type document struct {
	Properties *orderedmap.OrderedMap[string, json.RawMessage] `json:"properties"`
	Required   []string                                        `json:"required"`
}

// extras are the keywords jsonschema.Schema does not model.
type extras struct {
	Editor string          `json:"editor"`
	Type   json.RawMessage `json:"type"`
}

// Normalize derives the ordered field descriptors and the initial raw state
// of an actor's input schema. Field order follows the order of the
// "properties" mapping in the document. The initial value of each field is
// its declared default if present and not null, false for booleans, and the
// empty string otherwise.
//
// A missing, empty, or undecodable "properties" mapping yields an empty
// schema, an empty state, and ErrNoUsableInput.
func Normalize(actorID string, raw []byte) (*Schema, RawFormState, error) {
	schema := &Schema{ActorID: actorID, Fields: []FieldDescriptor{}}
	state := RawFormState{}

	if len(strings.TrimSpace(string(raw))) == 0 {
		return schema, state, ErrNoUsableInput
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil || doc.Properties == nil || doc.Properties.Len() == 0 {
		return schema, state, ErrNoUsableInput
	}

	required := make(map[string]bool, len(doc.Required))
	for _, k := range doc.Required {
		required[k] = true
	}

	for p := doc.Properties.Oldest(); p != nil; p = p.Next() {
		fd := describe(p.Key, p.Value)
		fd.Required = required[p.Key]
		schema.Fields = append(schema.Fields, fd)
		state[fd.Key] = initialValue(fd)
	}
	return schema, state, nil
}

func describe(key string, raw json.RawMessage) FieldDescriptor {
	fd := FieldDescriptor{Key: key}

	var ex extras
	_ = json.Unmarshal(raw, &ex)
	fd.UIHint = ex.Editor
	fd.RawType = typeName(ex.Type)
	fd.Type = ParseDeclaredType(fd.RawType)

	var prop jsonschema.Schema
	if err := json.Unmarshal(raw, &prop); err != nil {
		// Union types ("type": ["string","null"]) do not fit
		// jsonschema.Schema; fall back to the plain keywords.
		var loose struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Default     any    `json:"default"`
		}
		_ = json.Unmarshal(raw, &loose)
		fd.Title, fd.Description, fd.Default = loose.Title, loose.Description, loose.Default
	} else {
		fd.Title, fd.Description, fd.Default = prop.Title, prop.Description, prop.Default
	}
	fd.HasDefault = fd.Default != nil
	return fd
}

// typeName reads "type" as a string, or the first non-null member of a
// type list.
func typeName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		for _, t := range list {
			if t != "null" {
				return t
			}
		}
	}
	return ""
}

func initialValue(fd FieldDescriptor) any {
	if IsProxy(fd.Key) {
		return proxyEnabled(fd.Default)
	}
	if fd.HasDefault {
		return fd.Default
	}
	if fd.Type == TypeBoolean {
		return false
	}
	return ""
}

// proxyEnabled reduces a proxy default to the toggle state. Apify proxy
// defaults are objects like {"useApifyProxy": true}.
func proxyEnabled(v any) bool {
	if m, ok := v.(map[string]any); ok {
		if use, ok := m["useApifyProxy"]; ok {
			return truthy(use)
		}
	}
	return truthy(v)
}
