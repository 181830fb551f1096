package form

import (
	"net/url"
	"strings"
)

// ApplyEdits writes the fields of a posted HTML form into state and returns
// the keys it changed, in schema order. A field is written only when its
// submitted text differs from what its widget currently shows, so a
// structured default the user never touched keeps its shape.
//
// Toggles are posted as a hidden "false" followed by the checkbox "true";
// the last value wins. Fields absent from values are left alone.
func ApplyEdits(schema *Schema, state RawFormState, values url.Values) []string {
	return defaultRegistry.ApplyEdits(schema, state, values)
}

// ApplyEdits is ApplyEdits using this registry's widget selection.
func (r *WidgetRegistry) ApplyEdits(schema *Schema, state RawFormState, values url.Values) []string {
	if schema == nil {
		return nil
	}
	var changed []string
	for _, fd := range schema.Fields {
		posted, ok := values[InputName(fd.Key)]
		if !ok || len(posted) == 0 {
			continue
		}
		last := posted[len(posted)-1]

		switch r.Resolve(fd) {
		case WidgetToggle, WidgetProxyToggle:
			on, _ := parseBool(last)
			if cur, isBool := state[fd.Key].(bool); isBool && cur == on {
				continue
			}
			state[fd.Key] = on
		default:
			text := strings.ReplaceAll(last, "\r\n", "\n")
			if text == DisplayText(fd, state[fd.Key]) {
				continue
			}
			state[fd.Key] = text
		}
		changed = append(changed, fd.Key)
	}
	return changed
}
