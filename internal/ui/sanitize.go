package ui

import (
	"html/template"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/me/actorrun/internal/form"
)

var (
	descriptionPolicyOnce sync.Once
	descriptionPolicy     *bluemonday.Policy
)

// sanitizeDescription strips scripts, event handlers and other unsafe markup
// from a field description while keeping links and basic formatting.
func sanitizeDescription(html template.HTML) template.HTML {
	descriptionPolicyOnce.Do(func() {
		descriptionPolicy = bluemonday.UGCPolicy()
		descriptionPolicy.AddTargetBlankToFullyQualifiedLinks(true)
	})
	return template.HTML(descriptionPolicy.Sanitize(string(html)))
}

// widgets returns ws ready for display. Descriptions are rendered verbatim
// unless the server was configured to sanitize them.
func (ui *UI) widgets(ws []form.Widget) []form.Widget {
	if !ui.sanitize || len(ws) == 0 {
		return ws
	}
	out := make([]form.Widget, len(ws))
	for i, w := range ws {
		w.Description = sanitizeDescription(w.Description)
		out[i] = w
	}
	return out
}
