package cli

import (
	"fmt"
	"strings"
)

// parseSet turns repeated key=value flags into form values. Repeating a key
// appends a line, which is how list fields take several entries.
func parseSet(pairs []string) (map[string]any, error) {
	values := map[string]any{}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: expected key=value", p)
		}
		if prev, seen := values[key]; seen {
			value = prev.(string) + "\n" + value
		}
		values[key] = value
	}
	return values, nil
}
