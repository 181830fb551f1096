package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/me/actorrun/internal/workbench"
)

type liveMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

type liveSnapshot struct {
	ActorID string `json:"actorId"`
	Loading bool   `json:"loading"`
	Running bool   `json:"running"`
	Widgets []struct {
		Key  string `json:"key"`
		Text string `json:"text"`
	} `json:"widgets"`
	Results *struct {
		Mode  string `json:"mode"`
		Count int    `json:"count"`
	} `json:"results"`
}

func dialLive(t *testing.T, e *testEnv) (*websocket.Conn, context.Context) {
	t.Helper()
	srv := httptest.NewServer(e.router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	c := e.login(t)
	header := http.Header{}
	header.Set("Cookie", c.String())
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/live", &websocket.DialOptions{HTTPHeader: header})
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn, ctx
}

// next reads until a message of type typ arrives.
func next(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) liveMessage {
	t.Helper()
	for {
		var msg liveMessage
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		if msg.Type == typ {
			return msg
		}
	}
}

// nextSnapshot reads snapshots until one satisfies ok.
func nextSnapshot(t *testing.T, ctx context.Context, conn *websocket.Conn, ok func(liveSnapshot) bool) liveSnapshot {
	t.Helper()
	for {
		msg := next(t, ctx, conn, msgSnapshot)
		var snap liveSnapshot
		require.NoError(t, json.Unmarshal(msg.Data, &snap))
		if ok(snap) {
			return snap
		}
	}
}

func TestLive_SelectEditSubmit(t *testing.T) {
	e := newTestEnv(t, Config{})
	conn, ctx := dialLive(t, e)

	first := nextSnapshot(t, ctx, conn, func(liveSnapshot) bool { return true })
	assert.Empty(t, first.ActorID)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{
		"type": "select", "id": "1", "data": map[string]any{"actorId": testActor},
	}))
	snap := nextSnapshot(t, ctx, conn, func(s liveSnapshot) bool { return !s.Loading && len(s.Widgets) > 0 })
	assert.Equal(t, testActor, snap.ActorID)
	require.Len(t, snap.Widgets, 3)
	assert.Equal(t, "startUrls", snap.Widgets[0].Key)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{
		"type": "edit", "id": "2", "data": map[string]any{"key": "maxItems", "value": "3"},
	}))
	nextSnapshot(t, ctx, conn, func(s liveSnapshot) bool { return len(s.Widgets) > 1 && s.Widgets[1].Text == "3" })

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{
		"type": "submit", "id": "3", "data": map[string]any{"values": map[string]any{"startUrls": "https://a.example"}},
	}))
	snap = nextSnapshot(t, ctx, conn, func(s liveSnapshot) bool { return s.Results != nil })
	assert.False(t, snap.Running)
	assert.Equal(t, "table", snap.Results.Mode)
	assert.Equal(t, 2, snap.Results.Count)

	// New notices follow the snapshot they appear in.
	notice := next(t, ctx, conn, msgNotice)
	var n workbench.Notice
	require.NoError(t, json.Unmarshal(notice.Data, &n))
	assert.Equal(t, workbench.MsgRunCompleted, n.Message)
	assert.Equal(t, workbench.LevelSuccess, n.Level)

	calls := e.fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(3), calls[0].Payload["maxItems"])
	assert.Equal(t, []string{"https://a.example"}, calls[0].Payload["startUrls"])
}

func TestLive_Errors(t *testing.T) {
	e := newTestEnv(t, Config{})
	conn, ctx := dialLive(t, e)
	next(t, ctx, conn, msgSnapshot)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"type": "ping", "id": "p1"}))
	pong := next(t, ctx, conn, msgPong)
	assert.Equal(t, "p1", pong.RequestID)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"type": "bogus", "id": "b1"}))
	msg := next(t, ctx, conn, msgError)
	assert.Equal(t, "b1", msg.RequestID)
	assert.Contains(t, string(msg.Data), "unknown_type")

	// Editing before any schema is loaded is refused.
	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{
		"type": "edit", "id": "e1", "data": map[string]any{"key": "maxItems", "value": "3"},
	}))
	msg = next(t, ctx, conn, msgError)
	assert.Equal(t, "e1", msg.RequestID)

	// Submitting without a schema produces a notice, not a run.
	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"type": "submit", "id": "s1"}))
	notice := next(t, ctx, conn, msgNotice)
	assert.Contains(t, string(notice.Data), "Select an actor before running.")
	assert.Empty(t, e.fake.Calls())
}

func TestLive_SubmitSkipsUnknownFields(t *testing.T) {
	e := newTestEnv(t, Config{})
	conn, ctx := dialLive(t, e)
	next(t, ctx, conn, msgSnapshot)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{
		"type": "select", "id": "1", "data": map[string]any{"actorId": testActor},
	}))
	nextSnapshot(t, ctx, conn, func(s liveSnapshot) bool { return !s.Loading && len(s.Widgets) > 0 })

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{
		"type": "submit", "id": "2", "data": map[string]any{"values": map[string]any{
			"colour":    "red",
			"maxItems":  "4",
			"startUrls": "https://a.example",
			"zzz":       "x",
		}},
	}))
	msg := next(t, ctx, conn, msgError)
	assert.Equal(t, "2", msg.RequestID)
	var ed errorData
	require.NoError(t, json.Unmarshal(msg.Data, &ed))
	assert.Equal(t, "ignored_fields", ed.Code)
	assert.Equal(t, "ignored unknown fields: colour, zzz", ed.Message)

	snap := nextSnapshot(t, ctx, conn, func(s liveSnapshot) bool { return s.Results != nil })
	assert.Equal(t, "4", snap.Widgets[1].Text)

	calls := e.fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(4), calls[0].Payload["maxItems"])
	assert.Equal(t, []string{"https://a.example"}, calls[0].Payload["startUrls"])
	assert.NotContains(t, calls[0].Payload, "colour")
}
