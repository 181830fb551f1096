package apify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/me/actorrun/pkg/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	cfg := DefaultConfig().
		WithBaseURL(ts.URL).
		WithToken("tok").
		WithRetries(2, time.Millisecond).
		WithPolling(0, 0, time.Second)
	cfg.PageSize = 2
	return NewClient(cfg, testLogger())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestVerifyToken(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		writeJSON(w, 200, map[string]any{"data": map[string]any{"id": "u1", "username": "jane"}})
	}))

	user, err := c.VerifyToken(context.Background())
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if user.Username != "jane" || user.ID != "u1" {
		t.Errorf("user = %+v", user)
	}
}

func TestVerifyToken_Unauthorized(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 401, map[string]any{"error": map[string]any{"type": "token-not-valid", "message": "Authentication token is not valid."}})
	}))

	_, err := c.VerifyToken(context.Background())
	if !IsAuthError(err) {
		t.Fatalf("IsAuthError(%v) = false", err)
	}
	if got := Message(err); got != "Authentication token is not valid." {
		t.Errorf("Message = %q", got)
	}
}

func TestNoToken(t *testing.T) {
	c := NewClient(DefaultConfig(), testLogger())
	_, err := c.ListActors(context.Background())
	if !errors.Is(err, ErrNotAuthenticated) || !IsAuthError(err) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestListActors_Paginates(t *testing.T) {
	all := []Actor{
		{ID: "a1", Name: "one", Username: "jane"},
		{ID: "a2", Name: "two", Username: "jane"},
		{ID: "a3", Name: "three", Username: "bob"},
	}
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("offset")
		var items []Actor
		switch offset {
		case "0":
			items = all[:2]
		case "2":
			items = all[2:]
		default:
			t.Errorf("unexpected offset %q", offset)
		}
		writeJSON(w, 200, map[string]any{"data": map[string]any{"total": 3, "items": items}})
	}))

	got, err := c.ListActors(context.Background())
	if err != nil {
		t.Fatalf("ListActors: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[2].FullName() != "bob/three" {
		t.Errorf("FullName = %q", got[2].FullName())
	}
}

func TestFetchSchema(t *testing.T) {
	schema := `{"title":"in","properties":{"startUrls":{"type":"array"},"maxItems":{"type":"integer"}}}`
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/acts/jane~crawler":
			writeJSON(w, 200, map[string]any{"data": map[string]any{"id": "x1", "name": "crawler"}})
		case "/acts/jane~crawler/builds/default":
			w.Write([]byte(`{"data":{"id":"b1","actorDefinition":{"input":` + schema + `}}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	doc, err := c.FetchSchema(context.Background(), "jane/crawler")
	if err != nil {
		t.Fatalf("FetchSchema: %v", err)
	}
	if doc.ActorID != "jane~crawler" || doc.BuildID != "b1" {
		t.Errorf("doc = %+v", doc)
	}
	if string(doc.Raw) != schema {
		t.Errorf("Raw = %s", doc.Raw)
	}
}

func TestFetchSchema_LegacyStringSchema(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/builds/default") {
			writeJSON(w, 200, map[string]any{"data": map[string]any{"id": "b2", "inputSchema": `{"properties":{"q":{"type":"string"}}}`}})
			return
		}
		writeJSON(w, 200, map[string]any{"data": map[string]any{"id": "x1"}})
	}))

	doc, err := c.FetchSchema(context.Background(), "x1")
	if err != nil {
		t.Fatalf("FetchSchema: %v", err)
	}
	if !strings.Contains(string(doc.Raw), `"q"`) {
		t.Errorf("Raw = %s", doc.Raw)
	}
}

func TestFetchSchema_NotFound(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 404, map[string]any{"error": map[string]any{"type": "record-not-found", "message": "Actor was not found"}})
	}))

	_, err := c.FetchSchema(context.Background(), "nobody/nothing")
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound(%v) = false", err)
	}
	if IsRetryable(err) {
		t.Error("404 should not be retryable")
	}
}

func TestFetchSchema_NoBuild(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/builds/default") {
			writeJSON(w, 404, map[string]any{"error": map[string]any{"type": "record-not-found", "message": "Build not found"}})
			return
		}
		writeJSON(w, 200, map[string]any{"data": map[string]any{"id": "x1"}})
	}))

	doc, err := c.FetchSchema(context.Background(), "x1")
	if err != nil {
		t.Fatalf("FetchSchema: %v", err)
	}
	if doc.Raw != nil {
		t.Errorf("Raw = %s, want nil", doc.Raw)
	}
}

func TestRunActor_PollsAndReadsDataset(t *testing.T) {
	var polls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/acts/jane~crawler/runs":
			var input map[string]any
			if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
				t.Errorf("decode input: %v", err)
			}
			if input["maxItems"] != float64(5) {
				t.Errorf("input = %v", input)
			}
			writeJSON(w, 201, map[string]any{"data": map[string]any{"id": "r1", "status": "READY", "defaultDatasetId": "d1"}})
		case r.URL.Path == "/actor-runs/r1":
			status := "RUNNING"
			if polls.Add(1) >= 2 {
				status = "SUCCEEDED"
			}
			writeJSON(w, 200, map[string]any{"data": map[string]any{"id": "r1", "status": status, "defaultDatasetId": "d1"}})
		case r.URL.Path == "/datasets/d1/items":
			if r.URL.Query().Get("offset") == "0" {
				w.Write([]byte(`[{"a":1},{"a":2}]`))
				return
			}
			w.Write([]byte(`[{"a":3}]`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))

	res, err := c.RunActor(context.Background(), "jane/crawler", map[string]any{"maxItems": 5})
	if err != nil {
		t.Fatalf("RunActor: %v", err)
	}
	if res.Run.Status != model.RunStatusSucceeded {
		t.Errorf("status = %s", res.Run.Status)
	}
	if len(res.Items) != 3 || string(res.Items[2]) != `{"a":3}` {
		t.Errorf("items = %s", res.Items)
	}
}

func TestRunActor_ValidationErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, 400, map[string]any{"error": map[string]any{"type": "invalid-input", "message": "Input is not valid: Field input.startUrls is required"}})
	}))

	_, err := c.RunActor(context.Background(), "x1", map[string]any{})
	if !IsValidationError(err) {
		t.Fatalf("IsValidationError(%v) = false", err)
	}
	if !strings.Contains(Message(err), "startUrls is required") {
		t.Errorf("Message = %q", Message(err))
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRunActor_StartNeverRetried(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.RunActor(context.Background(), "x1", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRunActor_RunWaitExceeded(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"data": map[string]any{"id": "r1", "status": "RUNNING"}})
	}))
	defer ts.Close()
	cfg := DefaultConfig().WithBaseURL(ts.URL).WithToken("tok").WithPolling(0, time.Millisecond, 20*time.Millisecond)
	c := NewClient(cfg, testLogger())

	_, err := c.RunActor(context.Background(), "x1", nil)
	if !errors.Is(err, ErrRunNotFinished) {
		t.Errorf("err = %v, want ErrRunNotFinished", err)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, 200, map[string]any{"data": map[string]any{"id": "u1", "username": "jane"}})
	}))

	if _, err := c.VerifyToken(context.Background()); err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestURLSafeActorID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"apify/web-scraper", "apify~web-scraper"},
		{"apify~web-scraper", "apify~web-scraper"},
		{"moJRLRc85AitArpNN", "moJRLRc85AitArpNN"},
		{" jane/x ", "jane~x"},
	}
	for _, tt := range tests {
		if got := URLSafeActorID(tt.in); got != tt.want {
			t.Errorf("URLSafeActorID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		auth       bool
		notFound   bool
		validation bool
		retryable  bool
	}{
		{"401", &Error{Op: "x", StatusCode: 401, Message: "bad token"}, true, false, false, false},
		{"404", &HTTPError{StatusCode: 404}, false, true, false, false},
		{"400", &Error{Op: "x", StatusCode: 400, Message: "invalid"}, false, false, true, false},
		{"503", &HTTPError{StatusCode: 503}, false, false, false, true},
		{"429", &Error{Op: "x", StatusCode: 429, Message: "slow down"}, false, false, false, true},
		{"wrapped 401", WrapError("op", &HTTPError{StatusCode: 401}), true, false, false, false},
		{"no token", WrapError("op", ErrNotAuthenticated), true, false, false, false},
		{"transport", &transportError{err: errors.New("reset")}, false, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthError(tt.err); got != tt.auth {
				t.Errorf("IsAuthError = %v", got)
			}
			if got := IsNotFound(tt.err); got != tt.notFound {
				t.Errorf("IsNotFound = %v", got)
			}
			if got := IsValidationError(tt.err); got != tt.validation {
				t.Errorf("IsValidationError = %v", got)
			}
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable = %v", got)
			}
		})
	}
}
