package ui

import (
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Template functions available in all templates.
var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04:05")
	},
	"formatTimePtr": func(t *time.Time) string {
		if t == nil || t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04:05")
	},
	"elapsed": func(start time.Time, end *time.Time) string {
		if start.IsZero() || end == nil {
			return "-"
		}
		return end.Sub(start).Round(time.Second).String()
	},
	"statusColor": func(status fmt.Stringer) string {
		switch strings.ToUpper(status.String()) {
		case "READY":
			return "yellow"
		case "RUNNING", "TIMING-OUT", "ABORTING":
			return "blue"
		case "SUCCEEDED":
			return "green"
		case "FAILED", "TIMED-OUT":
			return "red"
		default:
			return "gray"
		}
	},
	"noticeClass": func(level string) string {
		switch level {
		case "success":
			return "bg-green-50 text-green-800 border-green-200"
		case "warning":
			return "bg-yellow-50 text-yellow-800 border-yellow-200"
		case "error":
			return "bg-red-50 text-red-800 border-red-200"
		default:
			return "bg-blue-50 text-blue-800 border-blue-200"
		}
	},
	"add": func(a, b int) int {
		return a + b
	},
	"truncate": func(s string, n int) string {
		if len(s) <= n {
			return s
		}
		return s[:n] + "..."
	},
	"urlquery": func(s string) string {
		return template.URLQueryEscaper(s)
	},
}

var (
	parsedMu sync.Mutex
	parsed   = map[string]*template.Template{}
)

// renderTemplate renders a template with the given data.
func renderTemplate(w io.Writer, name string, data map[string]any) error {
	tmpl, err := lookupTemplate(name)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, data)
}

func lookupTemplate(name string) (*template.Template, error) {
	parsedMu.Lock()
	defer parsedMu.Unlock()
	if tmpl, ok := parsed[name]; ok {
		return tmpl, nil
	}

	// Get the template content.
	content, ok := templates[name]
	if !ok {
		return nil, fmt.Errorf("template not found: %s", name)
	}

	// Get the layout template.
	layout, ok := templates["layout"]
	if !ok {
		return nil, fmt.Errorf("layout template not found")
	}

	// Parse templates.
	tmpl, err := template.New("layout").Funcs(templateFuncs).Parse(layout)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	_, err = tmpl.New("content").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}

	// Add shared components.
	for compName, compContent := range templates {
		if strings.HasPrefix(compName, "components/") {
			_, err = tmpl.New(filepath.Base(compName)).Parse(compContent)
			if err != nil {
				return nil, fmt.Errorf("parse component %s: %w", compName, err)
			}
		}
	}

	parsed[name] = tmpl
	return tmpl, nil
}

// templates holds all template content.
var templates = map[string]string{
	"layout": `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-gray-50 min-h-screen">
    {{if .Session}}
    <nav class="bg-white shadow-sm border-b">
        <div class="max-w-7xl mx-auto px-4 sm:px-6 lg:px-8">
            <div class="flex justify-between h-16">
                <div class="flex">
                    <a href="/" class="flex items-center px-2 py-2 text-xl font-bold text-indigo-600">
                        ActorRun
                    </a>
                    <div class="hidden sm:ml-6 sm:flex sm:space-x-8">
                        <a href="/" class="border-transparent text-gray-500 hover:border-gray-300 hover:text-gray-700 inline-flex items-center px-1 pt-1 border-b-2 text-sm font-medium">
                            Run
                        </a>
                        <a href="/history" class="border-transparent text-gray-500 hover:border-gray-300 hover:text-gray-700 inline-flex items-center px-1 pt-1 border-b-2 text-sm font-medium">
                            History
                        </a>
                    </div>
                </div>
                <div class="flex items-center">
                    <span class="text-sm text-gray-500 mr-4">{{.Session.Username}}</span>
                    <a href="/logout" class="text-sm text-gray-500 hover:text-gray-700">Logout</a>
                </div>
            </div>
        </div>
    </nav>
    {{end}}

    <main class="max-w-7xl mx-auto py-6 sm:px-6 lg:px-8">
        {{template "content" .}}
    </main>
</body>
</html>`,

	"login": `{{define "content"}}
<div class="min-h-screen flex items-center justify-center bg-gray-50 py-12 px-4 sm:px-6 lg:px-8">
    <div class="max-w-md w-full space-y-8">
        <div>
            <h2 class="mt-6 text-center text-3xl font-extrabold text-gray-900">
                ActorRun
            </h2>
            <p class="mt-2 text-center text-sm text-gray-600">
                Sign in with your Apify API key
            </p>
        </div>
        {{if .Error}}
        <div class="rounded-md bg-red-50 p-4">
            <div class="text-sm text-red-700">{{.Error}}</div>
        </div>
        {{end}}
        <form class="mt-8 space-y-6" action="/login" method="POST">
            <div class="rounded-md shadow-sm">
                <label for="api_key" class="sr-only">API key</label>
                <input id="api_key" name="api_key" type="password" required autocomplete="off"
                       class="appearance-none relative block w-full px-3 py-2 border border-gray-300 placeholder-gray-500 text-gray-900 rounded-md focus:outline-none focus:ring-indigo-500 focus:border-indigo-500 sm:text-sm"
                       placeholder="apify_api_...">
            </div>
            <div>
                <button type="submit"
                        class="group relative w-full flex justify-center py-2 px-4 border border-transparent text-sm font-medium rounded-md text-white bg-indigo-600 hover:bg-indigo-700 focus:outline-none focus:ring-2 focus:ring-offset-2 focus:ring-indigo-500">
                    Verify and continue
                </button>
            </div>
        </form>
    </div>
</div>
{{end}}`,

	"components/notices": `{{define "notices"}}
{{range .Snap.Notices}}
<div class="mb-4 flex items-start justify-between rounded-md border p-4 {{noticeClass (print .Level)}}" data-notice="{{.ID}}">
    <div class="text-sm">
        {{.Message}}
        {{if .Blocking}}<a href="/logout" class="ml-2 underline font-medium">Log in again</a>{{end}}
    </div>
    <form action="/notices/{{.ID}}/dismiss" method="POST">
        <button type="submit" class="ml-4 text-sm opacity-70 hover:opacity-100" aria-label="Dismiss">&times;</button>
    </form>
</div>
{{end}}
{{end}}`,

	"components/field": `{{define "field"}}
<div class="mb-5">
    <label for="{{.InputID}}" class="block text-sm font-medium text-gray-700">
        {{.Label}}{{if .Required}} <span class="text-red-500">*</span>{{end}}
    </label>
    {{if .Description}}<div class="mt-1 text-xs text-gray-500">{{.Description}}</div>{{end}}
    <div class="mt-2">
    {{if .IsToggle}}
        <input type="hidden" name="{{.InputName}}" value="false">
        <label class="inline-flex items-center">
            <input type="checkbox" id="{{.InputID}}" name="{{.InputName}}" value="true" {{if .Checked}}checked{{end}}
                   class="h-4 w-4 text-indigo-600 border-gray-300 rounded">
            <span class="ml-2 text-sm text-gray-700">{{.ToggleLabel}}</span>
        </label>
    {{else if eq (print .Kind) "number"}}
        <input type="number" id="{{.InputID}}" name="{{.InputName}}" value="{{.Text}}" step="1"
               class="block w-full border border-gray-300 rounded-md px-3 py-2 sm:text-sm">
    {{else if eq (print .Kind) "textarea"}}
        <textarea id="{{.InputID}}" name="{{.InputName}}" rows="4" placeholder="{{.Placeholder}}"
                  class="block w-full border border-gray-300 rounded-md px-3 py-2 font-mono sm:text-sm">{{.Text}}</textarea>
    {{else}}
        <input type="text" id="{{.InputID}}" name="{{.InputName}}" value="{{.Text}}"
               class="block w-full border border-gray-300 rounded-md px-3 py-2 sm:text-sm">
    {{end}}
    </div>
</div>
{{end}}`,

	"runner": `{{define "content"}}
<div class="px-4 py-6 sm:px-0">
    <div class="mb-6">
        <h1 class="text-2xl font-semibold text-gray-900">Run an actor</h1>
        <p class="mt-1 text-sm text-gray-500">Signed in as {{.Session.Username}}</p>
    </div>

    {{template "notices" .}}

    <div class="bg-white shadow rounded-lg p-6 mb-6">
        {{if .ActorsError}}
        <div class="text-sm text-red-700">{{.ActorsError}}</div>
        {{else}}
        <form action="/select" method="POST" class="flex items-end gap-4">
            <div class="flex-1">
                <label for="actor_id" class="block text-sm font-medium text-gray-700">Actor</label>
                <select id="actor_id" name="actor_id" onchange="this.form.submit()"
                        class="mt-1 block w-full border border-gray-300 rounded-md px-3 py-2 sm:text-sm">
                    <option value="">Select an actor...</option>
                    {{range .Actors}}
                    <option value="{{.FullName}}" {{if eq .FullName $.Snap.ActorID}}selected{{end}}>{{.FullName}}{{if .Title}} ({{.Title}}){{end}}</option>
                    {{end}}
                </select>
            </div>
            <noscript><button type="submit" class="px-4 py-2 text-sm rounded-md border">Load</button></noscript>
        </form>
        {{end}}
    </div>

    {{if .Snap.Schema}}
    <div class="bg-white shadow rounded-lg p-6 mb-6">
        <h2 class="text-lg font-medium text-gray-900 mb-4">Input</h2>
        <form action="/run" method="POST" id="run-form">
            {{range .Widgets}}{{template "field" .}}{{end}}
            <button type="submit" id="run-button" {{if .Snap.Running}}disabled{{end}}
                    class="inline-flex items-center px-4 py-2 border border-transparent text-sm font-medium rounded-md text-white bg-indigo-600 hover:bg-indigo-700 disabled:opacity-50">
                {{if .Snap.Running}}Running...{{else}}Run actor{{end}}
            </button>
        </form>
    </div>
    {{end}}

    {{with .Snap.Results}}
    <div class="bg-white shadow rounded-lg p-6">
        <div class="flex items-center justify-between mb-4">
            <h2 class="text-lg font-medium text-gray-900">Results <span class="text-sm text-gray-500">({{.Count}} items)</span></h2>
            <div class="space-x-4 text-sm">
                <a href="/results/{{$.JSONFile}}" class="text-indigo-600 hover:text-indigo-500">Download JSON</a>
                {{if eq (print .Mode) "table"}}<a href="/results/{{$.CSVFile}}" class="text-indigo-600 hover:text-indigo-500">Download CSV</a>{{end}}
            </div>
        </div>
        {{if eq (print .Mode) "table"}}
        <div class="overflow-x-auto">
            <table class="min-w-full divide-y divide-gray-200 text-sm">
                <thead class="bg-gray-50">
                    <tr>{{range .Columns}}<th class="px-3 py-2 text-left font-medium text-gray-500">{{.}}</th>{{end}}</tr>
                </thead>
                <tbody class="divide-y divide-gray-200">
                    {{range .Rows}}
                    <tr>{{range .}}<td class="px-3 py-2 align-top {{if .Missing}}text-gray-400 italic{{else if .Nested}}font-mono text-xs{{end}}">{{truncate .Text 200}}</td>{{end}}</tr>
                    {{end}}
                </tbody>
            </table>
        </div>
        {{else}}
        <pre class="bg-gray-50 rounded p-4 text-xs overflow-x-auto">{{.Raw}}</pre>
        {{end}}
    </div>
    {{end}}
</div>
<script>
document.getElementById('run-form')?.addEventListener('submit', function () {
    const b = document.getElementById('run-button');
    b.disabled = true;
    b.textContent = 'Running...';
});
</script>
{{end}}`,

	"history": `{{define "content"}}
<div class="px-4 py-6 sm:px-0">
    <div class="mb-6 flex items-end justify-between">
        <h1 class="text-2xl font-semibold text-gray-900">Run history</h1>
        <form action="/history" method="GET" class="flex gap-2">
            <input type="text" name="actor" value="{{.Actor}}" placeholder="Filter by actor"
                   class="border border-gray-300 rounded-md px-3 py-1 text-sm">
            <button type="submit" class="px-3 py-1 text-sm rounded-md border">Filter</button>
        </form>
    </div>
    <div class="bg-white shadow overflow-hidden rounded-lg">
        <table class="min-w-full divide-y divide-gray-200 text-sm">
            <thead class="bg-gray-50">
                <tr>
                    <th class="px-4 py-2 text-left font-medium text-gray-500">Actor</th>
                    <th class="px-4 py-2 text-left font-medium text-gray-500">Run</th>
                    <th class="px-4 py-2 text-left font-medium text-gray-500">Status</th>
                    <th class="px-4 py-2 text-left font-medium text-gray-500">Items</th>
                    <th class="px-4 py-2 text-left font-medium text-gray-500">Started</th>
                    <th class="px-4 py-2 text-left font-medium text-gray-500">Duration</th>
                </tr>
            </thead>
            <tbody class="divide-y divide-gray-200">
                {{range .Runs}}
                <tr>
                    <td class="px-4 py-2">{{.ActorID}}</td>
                    <td class="px-4 py-2 font-mono text-xs">{{if .RunID}}{{.RunID}}{{else}}-{{end}}</td>
                    <td class="px-4 py-2">
                        <span class="px-2 inline-flex text-xs font-semibold rounded-full bg-{{statusColor .Status}}-100 text-{{statusColor .Status}}-800">{{.Status}}</span>
                        {{if .Message}}<div class="text-xs text-gray-500">{{truncate .Message 120}}</div>{{end}}
                    </td>
                    <td class="px-4 py-2">{{.ItemCount}}</td>
                    <td class="px-4 py-2">{{formatTime .StartedAt}}</td>
                    <td class="px-4 py-2">{{elapsed .StartedAt .FinishedAt}}</td>
                </tr>
                {{else}}
                <tr><td colspan="6" class="px-4 py-6 text-center text-gray-500">No runs yet.</td></tr>
                {{end}}
            </tbody>
        </table>
    </div>
    {{with .Pagination}}
    <div class="mt-4 flex justify-between text-sm text-gray-600">
        <span>{{.Total}} runs</span>
        <div class="space-x-4">
            {{if .HasPrev}}<a href="/history?offset={{.PrevOffset}}&limit={{.Limit}}&actor={{urlquery $.Actor}}" class="text-indigo-600">Previous</a>{{end}}
            {{if .HasMore}}<a href="/history?offset={{.NextOffset}}&limit={{.Limit}}&actor={{urlquery $.Actor}}" class="text-indigo-600">Next</a>{{end}}
        </div>
    </div>
    {{end}}
</div>
{{end}}`,

	"error": `{{define "content"}}
<div class="min-h-screen flex items-center justify-center">
    <div class="text-center">
        <h1 class="text-4xl font-bold text-gray-900 mb-4">Error</h1>
        <p class="text-gray-600 mb-8">{{.Message}}</p>
        <a href="/" class="text-indigo-600 hover:text-indigo-500">Return to the runner</a>
    </div>
</div>
{{end}}`,
}
