package form

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// CoercionError describes one field whose raw value could not be converted.
// The field is left out of the payload (booleans become false); the rest of
// the batch is unaffected.
type CoercionError struct {
	Key     string       `json:"key"`
	Type    DeclaredType `json:"type"`
	Message string       `json:"message"`
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("field %q (%s): %s", e.Key, e.Type, e.Message)
}

// ProxyValue is the payload value of an enabled proxy toggle.
func ProxyValue() map[string]any {
	return map[string]any{"useApifyProxy": true}
}

// Coerce converts raw form state into a typed payload, field by field in
// schema order. Keys of state without a descriptor are ignored. Conversion
// failures never abort the batch; they are logged at warn level and returned
// alongside the payload.
func Coerce(schema *Schema, state RawFormState, logger *slog.Logger) (Payload, []*CoercionError) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	payload := Payload{}
	var issues []*CoercionError
	if schema == nil {
		return payload, nil
	}

	fail := func(fd FieldDescriptor, format string, args ...any) {
		e := &CoercionError{Key: fd.Key, Type: fd.Type, Message: fmt.Sprintf(format, args...)}
		logger.Warn("field coercion failed", "field", fd.Key, "type", fd.Type.String(), "reason", e.Message)
		issues = append(issues, e)
	}

	for _, fd := range schema.Fields {
		raw, present := state[fd.Key]

		if IsProxy(fd.Key) {
			if present && truthy(raw) {
				payload[fd.Key] = ProxyValue()
			}
			continue
		}

		if !present || isEmpty(raw) {
			if fd.Type == TypeBoolean {
				payload[fd.Key] = false
			}
			continue
		}

		switch fd.Type {
		case TypeArray:
			if s, ok := raw.(string); ok {
				payload[fd.Key] = splitLines(s)
			} else {
				payload[fd.Key] = raw
			}

		case TypeInteger:
			n, ok := parseInteger(raw)
			if !ok {
				fail(fd, "%v is not an integer", raw)
				continue
			}
			payload[fd.Key] = n

		case TypeBoolean:
			b, ok := parseBool(raw)
			if !ok {
				fail(fd, "%v is not a boolean", raw)
			}
			payload[fd.Key] = b

		case TypeObject:
			s, ok := raw.(string)
			if !ok {
				payload[fd.Key] = raw
				continue
			}
			v, err := parseJSON(s)
			if err != nil {
				fail(fd, "invalid JSON: %v", err)
				continue
			}
			payload[fd.Key] = v

		default:
			payload[fd.Key] = raw
		}
	}
	return payload, issues
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	}
	return false
}

// splitLines turns one-item-per-line text into a list: lines are trimmed
// and blank lines dropped.
func splitLines(s string) []string {
	out := []string{}
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// parseInteger reads a base-10 integer. Text is read like parseInt: leading
// whitespace and a sign are allowed and digits are consumed up to the first
// non-digit, so "12px" is 12 and "px" fails. Fractional numbers truncate.
func parseInteger(v any) (int64, bool) {
	switch x := v.(type) {
	case string:
		return parseIntPrefix(x)
	case float64:
		return truncate(x)
	case float32:
		return truncate(float64(x))
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, true
		}
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return truncate(f)
	}
	return 0, false
}

func parseIntPrefix(s string) (int64, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	sign := ""
	if s != "" && (s[0] == '+' || s[0] == '-') {
		sign, s = s[:1], s[1:]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(sign+s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func truncate(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func parseBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "on", "1", "yes":
			return true, true
		case "false", "off", "0", "no":
			return false, true
		}
		return false, false
	case float64:
		return x != 0, true
	case int:
		return x != 0, true
	case int64:
		return x != 0, true
	case json.Number:
		f, err := x.Float64()
		return f != 0, err == nil
	}
	return false, false
}

// truthy is the toggle test used for the proxy field. Text reads like a
// checkbox: "false", "off", "0", "no" and "" are off.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "", "false", "off", "0", "no":
			return false
		}
		return true
	case float64:
		return x != 0 && !math.IsNaN(x)
	case int:
		return x != 0
	case int64:
		return x != 0
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0
	}
	return true
}

// parseJSON decodes one complete JSON value, keeping numbers exact.
func parseJSON(s string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}
