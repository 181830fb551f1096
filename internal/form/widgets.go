package form

import (
	"html/template"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// WidgetKind identifies the input control used for a field.
type WidgetKind string

// Built-in widget kinds.
const (
	WidgetProxyToggle WidgetKind = "proxy-toggle"
	WidgetToggle      WidgetKind = "toggle"
	WidgetNumber      WidgetKind = "number"
	WidgetTextArea    WidgetKind = "textarea"
	WidgetText        WidgetKind = "text"
)

// Widget labels and placeholders.
const (
	ProxyToggleLabel    = "Use Apify Proxy"
	ToggleLabel         = "Enable"
	TextAreaPlaceholder = "Enter one value per line..."
)

// Widget is everything a view needs to draw one field.
type Widget struct {
	Key         string        `json:"key"`
	Kind        WidgetKind    `json:"kind"`
	Label       string        `json:"label"`
	ToggleLabel string        `json:"toggleLabel,omitempty"`
	Description template.HTML `json:"description,omitempty"`
	Placeholder string        `json:"placeholder,omitempty"`
	InputName   string        `json:"inputName"`
	InputID     string        `json:"inputId"`
	Checked     bool          `json:"checked,omitempty"`
	Text        string        `json:"text"`
	Required    bool          `json:"required,omitempty"`
}

// IsToggle reports whether the widget is a switch.
func (w Widget) IsToggle() bool {
	return w.Kind == WidgetToggle || w.Kind == WidgetProxyToggle
}

// Matcher decides whether a widget kind handles the supplied field.
type Matcher func(field FieldDescriptor) bool

type rule struct {
	kind     WidgetKind
	priority int
	match    Matcher
	order    int
}

// WidgetRegistry selects a widget kind for a field from priority-ordered
// matchers. Higher priority wins; ties fall back to registration order.
// Fields no matcher accepts get WidgetText.
type WidgetRegistry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewWidgetRegistry returns a registry with the built-in matchers.
func NewWidgetRegistry() *WidgetRegistry {
	reg := &WidgetRegistry{}
	reg.Register(WidgetProxyToggle, 100, func(f FieldDescriptor) bool { return IsProxy(f.Key) })
	reg.Register(WidgetToggle, 90, func(f FieldDescriptor) bool { return f.Type == TypeBoolean })
	reg.Register(WidgetNumber, 80, func(f FieldDescriptor) bool { return f.Type == TypeInteger })
	reg.Register(WidgetTextArea, 70, func(f FieldDescriptor) bool { return f.Type == TypeArray })
	return reg
}

// Register adds a matcher for kind at the given priority.
func (r *WidgetRegistry) Register(kind WidgetKind, priority int, matcher Matcher) {
	if r == nil || matcher == nil || strings.TrimSpace(string(kind)) == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{kind: kind, priority: priority, match: matcher, order: len(r.rules)})
	sort.SliceStable(r.rules, func(i, j int) bool {
		if r.rules[i].priority == r.rules[j].priority {
			return r.rules[i].order < r.rules[j].order
		}
		return r.rules[i].priority > r.rules[j].priority
	})
}

// Resolve returns the widget kind for field.
func (r *WidgetRegistry) Resolve(field FieldDescriptor) WidgetKind {
	if r != nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		for _, entry := range r.rules {
			if entry.match(field) {
				return entry.kind
			}
		}
	}
	return WidgetText
}

var defaultRegistry = NewWidgetRegistry()

// InputName is the HTML form name of a field's control.
func InputName(key string) string {
	return "field." + key
}

// Render maps each descriptor and its current raw value to a widget, in
// schema order. Descriptions pass through untouched as markup.
func Render(schema *Schema, state RawFormState) []Widget {
	return defaultRegistry.Render(schema, state)
}

// Render is Render using this registry.
func (r *WidgetRegistry) Render(schema *Schema, state RawFormState) []Widget {
	if schema == nil {
		return nil
	}
	out := make([]Widget, 0, len(schema.Fields))
	for i, fd := range schema.Fields {
		out = append(out, r.widget(i, fd, state[fd.Key]))
	}
	return out
}

func (r *WidgetRegistry) widget(idx int, fd FieldDescriptor, value any) Widget {
	w := Widget{
		Key:         fd.Key,
		Kind:        r.Resolve(fd),
		Label:       fd.Label(),
		Description: template.HTML(fd.Description),
		InputName:   InputName(fd.Key),
		InputID:     "field-" + strconv.Itoa(idx),
		Required:    fd.Required,
	}
	switch w.Kind {
	case WidgetProxyToggle:
		w.ToggleLabel = ProxyToggleLabel
		w.Checked = truthy(value)
	case WidgetToggle:
		w.ToggleLabel = ToggleLabel
		w.Checked, _ = parseBool(value)
	case WidgetTextArea:
		w.Placeholder = TextAreaPlaceholder
		w.Text = DisplayText(fd, value)
	default:
		w.Text = DisplayText(fd, value)
	}
	return w
}
