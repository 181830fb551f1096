package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/me/actorrun/internal/apify"
	"github.com/me/actorrun/internal/workbench"
)

// Live channel message types.
const (
	msgSelect  = "select"
	msgEdit    = "edit"
	msgSubmit  = "submit"
	msgDismiss = "dismiss"
	msgPing    = "ping"

	msgSnapshot = "snapshot"
	msgNotice   = "notice"
	msgPong     = "pong"
	msgError    = "error"
)

// clientMessage is the envelope for all client-to-server messages.
type clientMessage struct {
	Type string          `json:"type"` // "select", "edit", "submit", "dismiss", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

type selectData struct {
	ActorID string `json:"actorId"`
}

type editData struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type submitData struct {
	Values map[string]any `json:"values,omitempty"`
}

type dismissData struct {
	ID uint64 `json:"id"`
}

// serverMessage is the envelope for all server-to-client messages.
type serverMessage struct {
	Type      string `json:"type"`                 // "snapshot", "notice", "pong", "error"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

type errorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// liveConn is one websocket connection bound to a session's workbench.
type liveConn struct {
	ui       *UI
	conn     *websocket.Conn
	wb       *workbench.Workbench
	platform apify.Platform
	logger   *slog.Logger

	mu         sync.Mutex // serializes writes and lastNotice
	lastNotice uint64
}

// HandleLive upgrades to a websocket and drives the session's workbench
// from client messages. Schema fetches and runs complete in the background
// and are pushed as they land; completions for an older selection are
// dropped by the workbench.
func (ui *UI) HandleLive(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		ui.logger.Warn("websocket accept", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	lc := &liveConn{
		ui:       ui,
		conn:     conn,
		wb:       ui.benches.Get(sess.ID, sess.UserID),
		platform: ui.platforms(sess.Token),
		logger:   ui.logger.With("session", sess.ID),
	}
	lc.push(ctx, "")

	for {
		msg, err := lc.read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				lc.logger.Debug("live read", "error", err)
			}
			return
		}

		switch msg.Type {
		case msgSelect:
			lc.handleSelect(ctx, msg)
		case msgEdit:
			lc.handleEdit(ctx, msg)
		case msgSubmit:
			lc.handleSubmit(ctx, msg)
		case msgDismiss:
			var data dismissData
			if err := decode(msg.Data, &data); err != nil {
				lc.sendError(ctx, msg.ID, "invalid_data", "invalid dismiss data")
				continue
			}
			lc.wb.Dismiss(data.ID)
			lc.push(ctx, msg.ID)
		case "":
			lc.sendError(ctx, msg.ID, "invalid_message", "message must be a JSON object with a type")
		case msgPing:
			lc.send(ctx, serverMessage{Type: msgPong, RequestID: msg.ID})
		default:
			lc.sendError(ctx, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (lc *liveConn) read(ctx context.Context) (clientMessage, error) {
	var msg clientMessage
	_, data, err := lc.conn.Read(ctx)
	if err != nil {
		return msg, err
	}
	if err := decode(data, &msg); err != nil {
		return clientMessage{}, nil
	}
	return msg, nil
}

// decode unmarshals keeping numbers as json.Number so integer fields see
// the digits the client sent.
func decode(data []byte, v any) error {
	if len(data) == 0 {
		data = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func (lc *liveConn) handleSelect(ctx context.Context, msg clientMessage) {
	var data selectData
	if err := decode(msg.Data, &data); err != nil {
		lc.sendError(ctx, msg.ID, "invalid_data", "invalid select data")
		return
	}

	t := lc.wb.Select(data.ActorID)
	lc.push(ctx, msg.ID)
	if t.ActorID == "" {
		return
	}

	go func() {
		if lc.ui.runs.LoadSchema(context.WithoutCancel(ctx), lc.wb, lc.platform, t) {
			lc.push(ctx, msg.ID)
		}
	}()
}

func (lc *liveConn) handleEdit(ctx context.Context, msg clientMessage) {
	var data editData
	if err := decode(msg.Data, &data); err != nil {
		lc.sendError(ctx, msg.ID, "invalid_data", "invalid edit data")
		return
	}
	if err := lc.wb.Edit(data.Key, data.Value); err != nil {
		lc.sendError(ctx, msg.ID, "invalid_edit", err.Error())
		return
	}
	lc.push(ctx, msg.ID)
}

func (lc *liveConn) handleSubmit(ctx context.Context, msg clientMessage) {
	var data submitData
	if err := decode(msg.Data, &data); err != nil {
		lc.sendError(ctx, msg.ID, "invalid_data", "invalid submit data")
		return
	}
	// Unknown keys are skipped and reported; the rest still apply.
	var ignored []string
	for _, key := range slices.Sorted(maps.Keys(data.Values)) {
		err := lc.wb.Edit(key, data.Values[key])
		if err != nil && !errors.Is(err, workbench.ErrNoSchema) {
			ignored = append(ignored, key)
		}
	}
	if len(ignored) > 0 {
		lc.sendError(ctx, msg.ID, "ignored_fields", "ignored unknown fields: "+strings.Join(ignored, ", "))
	}

	sub, err := lc.wb.BeginRun()
	if err != nil {
		lc.wb.Reject(err)
		lc.push(ctx, msg.ID)
		return
	}
	lc.push(ctx, msg.ID)

	go func() {
		lc.ui.runs.Execute(context.WithoutCancel(ctx), lc.wb, lc.platform, sub)
		lc.push(ctx, msg.ID)
	}()
}

// push sends the current snapshot followed by any notices the client has
// not seen yet.
func (lc *liveConn) push(ctx context.Context, requestID string) {
	snap := lc.wb.Snapshot()
	snap.Widgets = lc.ui.widgets(snap.Widgets)

	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.write(ctx, serverMessage{Type: msgSnapshot, RequestID: requestID, Data: snap})
	for _, n := range snap.Notices {
		if n.ID <= lc.lastNotice {
			continue
		}
		lc.lastNotice = n.ID
		lc.write(ctx, serverMessage{Type: msgNotice, RequestID: requestID, Data: n})
	}
}

func (lc *liveConn) send(ctx context.Context, msg serverMessage) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.write(ctx, msg)
}

func (lc *liveConn) sendError(ctx context.Context, requestID, code, message string) {
	lc.send(ctx, serverMessage{
		Type:      msgError,
		RequestID: requestID,
		Data:      errorData{Code: code, Message: message},
	})
}

func (lc *liveConn) write(ctx context.Context, msg serverMessage) {
	if ctx.Err() != nil {
		return
	}
	if err := wsjson.Write(ctx, lc.conn, msg); err != nil {
		lc.logger.Debug("live write", "type", msg.Type, "error", err)
	}
}
