package form

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DisplayText is the text a non-toggle widget shows for a raw value. Lists
// show one item per line; objects show indented JSON.
func DisplayText(fd FieldDescriptor, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	case []string:
		return strings.Join(x, "\n")
	case []any:
		lines := make([]string, len(x))
		for i, item := range x {
			lines[i] = lineText(item)
		}
		return strings.Join(lines, "\n")
	case map[string]any:
		b, err := json.MarshalIndent(x, "", "  ")
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func lineText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return "null"
	case bool, float64, json.Number:
		return fmt.Sprint(x)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
