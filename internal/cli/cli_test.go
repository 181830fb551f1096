package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/me/actorrun/internal/apify"
	"github.com/me/actorrun/internal/apify/apifytest"
	"github.com/me/actorrun/internal/config"
	"github.com/me/actorrun/internal/server"
	"github.com/me/actorrun/internal/store"
)

const (
	testToken = "apify_api_good"
	testActor = "jane/web-scraper"
)

const scraperSchema = `{"title":"Scraper","type":"object","properties":{
	"startUrls":{"title":"Start URLs","type":"array"},
	"maxItems":{"title":"Max items","type":"integer","minimum":1,"default":10},
	"debug":{"title":"Debug","type":"boolean"}
},"required":["startUrls"]}`

// startTestServer starts a server with an in-memory SQLite store and a fake
// platform, and returns the URL.
func startTestServer(t *testing.T) (string, *apifytest.Fake) {
	t.Helper()
	srvLogger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := store.NewSQLiteStore(":memory:", srvLogger)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	fake := apifytest.New(testToken)
	fake.Actors = []apify.Actor{
		{ID: "a1", Name: "web-scraper", Username: "jane", Title: "Web Scraper"},
	}
	fake.Schemas["jane~web-scraper"] = scraperSchema
	fake.Results["jane~web-scraper"] = apifytest.Succeeded("run_1",
		`{"title":"Example","url":"https://a.example"}`,
		`{"title":"Other"}`,
	)

	srv := server.New(config.DefaultServerConfig(), st, srvLogger, server.WithPlatformFactory(fake.Factory()))
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts.URL, fake
}

// runCLI executes the root command and returns stdout.
func runCLI(t *testing.T, serverURL, token string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ACTORRUN_TOKEN", "")
	t.Setenv("APIFY_TOKEN", "")

	root := NewRootCmd()
	full := append([]string{"--server", serverURL, "--log-level", "error"}, args...)
	if token != "" {
		full = append(full, "--api-key", token)
	}
	root.SetArgs(full)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// fakePrompter answers prompts from a map keyed by message.
type fakePrompter struct {
	answers map[string]any
	asked   []string
}

func (f *fakePrompter) answer(msg string) (any, bool) {
	f.asked = append(f.asked, msg)
	v, ok := f.answers[msg]
	return v, ok
}

func (f *fakePrompter) Input(_ context.Context, cfg InputConfig) (string, error) {
	if v, ok := f.answer(cfg.Message); ok {
		return v.(string), nil
	}
	return cfg.Default, nil
}

func (f *fakePrompter) Password(_ context.Context, cfg InputConfig) (string, error) {
	v, ok := f.answer(cfg.Message)
	if !ok {
		return "", ErrAborted
	}
	if cfg.Validator != nil {
		if err := cfg.Validator(v.(string)); err != nil {
			return "", err
		}
	}
	return v.(string), nil
}

func (f *fakePrompter) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	if v, ok := f.answer(cfg.Message); ok {
		return v.(bool), nil
	}
	return cfg.Default, nil
}

func (f *fakePrompter) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	if v, ok := f.answer(cfg.Message); ok {
		return v.(string), nil
	}
	return cfg.Default, nil
}

func usePrompter(t *testing.T, p PromptDriver) {
	t.Helper()
	prev := prompter
	prompter = p
	t.Cleanup(func() { prompter = prev })
}

func TestLogin(t *testing.T) {
	url, _ := startTestServer(t)

	out, err := runCLI(t, url, "", "login", "--token", testToken)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Logged in as jane") {
		t.Errorf("output = %q, want greeting", out)
	}

	credPath := filepath.Join(os.Getenv("HOME"), ".actorrun", credentialsFileName)
	info, err := os.Stat(credPath)
	if err != nil {
		t.Fatalf("credentials not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("credentials mode = %v, want 0600", perm)
	}
	if got := LoadToken(); got != testToken {
		t.Errorf("LoadToken() = %q, want %q", got, testToken)
	}
}

func TestLogin_Prompt(t *testing.T) {
	url, _ := startTestServer(t)
	usePrompter(t, &fakePrompter{answers: map[string]any{"Apify API key:": testToken}})

	out, err := runCLI(t, url, "", "login")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Logged in as jane") {
		t.Errorf("output = %q, want greeting", out)
	}
}

func TestLogin_Rejected(t *testing.T) {
	url, _ := startTestServer(t)

	_, err := runCLI(t, url, "", "login", "--token", "apify_api_bad")
	if err == nil {
		t.Fatal("expected error for rejected key")
	}
	if LoadToken() != "" {
		t.Error("rejected key must not be stored")
	}
}

func TestActors(t *testing.T) {
	url, _ := startTestServer(t)

	out, err := runCLI(t, url, testToken, "actors")
	if err != nil {
		t.Fatalf("actors: %v", err)
	}
	if !strings.Contains(out, "ACTOR") || !strings.Contains(out, testActor) {
		t.Errorf("output = %q", out)
	}
}

func TestActors_NoToken(t *testing.T) {
	url, _ := startTestServer(t)

	if _, err := runCLI(t, url, "", "actors"); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestSchema(t *testing.T) {
	url, _ := startTestServer(t)

	out, err := runCLI(t, url, testToken, "schema", testActor)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	for _, want := range []string{"startUrls*", "maxItems", "number", "toggle", "10"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = runCLI(t, url, testToken, "schema", testActor, "-o", "json")
	if err != nil {
		t.Fatalf("schema json: %v", err)
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if data["actorId"] != "jane~web-scraper" {
		t.Errorf("actorId = %v", data["actorId"])
	}
}

func TestSchema_YAML(t *testing.T) {
	url, _ := startTestServer(t)

	out, err := runCLI(t, url, testToken, "schema", testActor, "-o", "yaml")
	if err != nil {
		t.Fatalf("schema yaml: %v", err)
	}
	if !strings.Contains(out, "actorId: jane~web-scraper") {
		t.Errorf("output = %q", out)
	}
}

func TestPreview(t *testing.T) {
	url, fake := startTestServer(t)

	out, err := runCLI(t, url, testToken, "preview", testActor, "--set", "maxItems=3", "--set", "colour=red")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !strings.Contains(out, `"maxItems": 3`) {
		t.Errorf("payload missing maxItems:\n%s", out)
	}
	if !strings.Contains(out, "ignored: colour") {
		t.Errorf("output missing ignored key:\n%s", out)
	}
	if len(fake.Calls()) != 0 {
		t.Error("preview must not run the actor")
	}
}

func TestRun(t *testing.T) {
	url, fake := startTestServer(t)
	csvPath := filepath.Join(t.TempDir(), "out.csv")

	out, err := runCLI(t, url, testToken, "run", testActor,
		"--set", "startUrls=https://a.example",
		"--set", "startUrls=https://b.example",
		"--download", csvPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"Run run_1 SUCCEEDED (2 rows)", "TITLE", "Example", "undefined"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	calls := fake.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	urls, _ := calls[0].Payload["startUrls"].([]string)
	if len(urls) != 2 || urls[1] != "https://b.example" {
		t.Errorf("startUrls = %#v", calls[0].Payload["startUrls"])
	}

	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if want := "title,url\nExample,https://a.example\nOther,undefined\n"; string(data) != want {
		t.Errorf("csv = %q, want %q", data, want)
	}

	out, err = runCLI(t, url, testToken, "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if !strings.Contains(out, "run_1") || !strings.Contains(out, "SUCCEEDED") {
		t.Errorf("runs output = %q", out)
	}
}

func TestRun_Interactive(t *testing.T) {
	url, fake := startTestServer(t)
	p := &fakePrompter{answers: map[string]any{
		"Start URLs (required):": "https://a.example",
		"Debug:":                 true,
	}}
	usePrompter(t, p)

	if _, err := runCLI(t, url, testToken, "run", testActor, "-i", "--set", "maxItems=5"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(p.asked) != 3 {
		t.Errorf("asked %d questions, want 3: %v", len(p.asked), p.asked)
	}

	calls := fake.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	payload := calls[0].Payload
	if payload["maxItems"] != int64(5) {
		t.Errorf("maxItems = %#v, want 5", payload["maxItems"])
	}
	if payload["debug"] != true {
		t.Errorf("debug = %#v, want true", payload["debug"])
	}
}

func TestRun_JSONOutput(t *testing.T) {
	url, _ := startTestServer(t)

	out, err := runCLI(t, url, testToken, "run", testActor, "--set", "startUrls=https://a.example", "-o", "json")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var data struct {
		RunInfo struct {
			ID string `json:"id"`
		} `json:"runInfo"`
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if data.RunInfo.ID != "run_1" || len(data.Results) != 2 {
		t.Errorf("unexpected run output: %+v", data)
	}
}

func TestRun_BadOutput(t *testing.T) {
	url, _ := startTestServer(t)

	if _, err := runCLI(t, url, testToken, "run", testActor, "-o", "xml"); err == nil {
		t.Fatal("expected error for unknown output format")
	}
}

func TestParseSet(t *testing.T) {
	values, err := parseSet([]string{"a=1", "b=x=y", "a=2"})
	if err != nil {
		t.Fatalf("parseSet: %v", err)
	}
	if values["a"] != "1\n2" {
		t.Errorf("a = %q, want joined lines", values["a"])
	}
	if values["b"] != "x=y" {
		t.Errorf("b = %q", values["b"])
	}

	if _, err := parseSet([]string{"novalue"}); err == nil {
		t.Error("expected error for missing '='")
	}
	if _, err := parseSet([]string{"=v"}); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestResolveToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ACTORRUN_TOKEN", "")
	t.Setenv("APIFY_TOKEN", "")

	if got := resolveToken(""); got != "" {
		t.Errorf("resolveToken() = %q, want empty", got)
	}
	if _, err := saveToken("stored"); err != nil {
		t.Fatalf("saveToken: %v", err)
	}
	if got := resolveToken(""); got != "stored" {
		t.Errorf("resolveToken() = %q, want stored", got)
	}
	t.Setenv("APIFY_TOKEN", "apify")
	if got := resolveToken(""); got != "apify" {
		t.Errorf("resolveToken() = %q, want apify", got)
	}
	t.Setenv("ACTORRUN_TOKEN", "actorrun")
	if got := resolveToken(""); got != "actorrun" {
		t.Errorf("resolveToken() = %q, want actorrun", got)
	}
	if got := resolveToken("flag"); got != "flag" {
		t.Errorf("resolveToken() = %q, want flag", got)
	}
}

func TestPreview_CoercionIssue(t *testing.T) {
	url, _ := startTestServer(t)

	out, err := runCLI(t, url, testToken, "preview", testActor, "--set", "maxItems=abc")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if want := `issue: field "maxItems" (integer): abc is not an integer`; !strings.Contains(out, want) {
		t.Errorf("output missing %q:\n%s", want, out)
	}
	if strings.Contains(out, `"maxItems"`+":") {
		t.Errorf("unconvertible maxItems must be left out of the payload:\n%s", out)
	}
}

func TestRun_CoercionIssue(t *testing.T) {
	url, fake := startTestServer(t)

	out, err := runCLI(t, url, testToken, "run", testActor,
		"--set", "startUrls=https://a.example", "--set", "maxItems=abc")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := `issue: field "maxItems" (integer): abc is not an integer`; !strings.Contains(out, want) {
		t.Errorf("output missing %q:\n%s", want, out)
	}
	if !strings.Contains(out, "Run run_1 SUCCEEDED (2 rows)") {
		t.Errorf("output missing run summary:\n%s", out)
	}

	calls := fake.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	if _, ok := calls[0].Payload["maxItems"]; ok {
		t.Errorf("maxItems = %#v, want omitted", calls[0].Payload["maxItems"])
	}
}

func TestSchema_TypeColumn(t *testing.T) {
	url, _ := startTestServer(t)

	out, err := runCLI(t, url, testToken, "schema", testActor)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "maxItems") && !strings.Contains(line, " integer ") {
			t.Errorf("maxItems row should name its type: %q", line)
		}
		if strings.HasPrefix(line, "debug") && !strings.Contains(line, " boolean ") {
			t.Errorf("debug row should name its type: %q", line)
		}
	}
}
