// Package workbench holds the per-user state of the actor runner: the
// selected actor, its schema and form state, the last result, and the
// notices shown to the user. Every platform call completes through a
// Ticket so that a response for an actor the user has since moved away
// from is dropped instead of overwriting newer state.
package workbench

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/me/actorrun/internal/apify"
	"github.com/me/actorrun/internal/form"
	"github.com/me/actorrun/internal/results"
	"github.com/me/actorrun/pkg/model"
)

var (
	// ErrNoSchema is returned when a run is requested with no schema loaded.
	ErrNoSchema = errors.New("no actor schema loaded")

	// ErrRunInFlight is returned when a run is requested while one is pending.
	ErrRunInFlight = errors.New("a run is already in progress")

	// ErrSchemaLoading is returned when a run is requested before the schema arrived.
	ErrSchemaLoading = errors.New("actor schema is still loading")
)

// Ticket identifies the selection an outstanding call belongs to.
type Ticket struct {
	Generation uint64 `json:"generation"`
	ActorID    string `json:"actorId"`
}

// Workbench is the state of one user's session. It is safe for concurrent use.
type Workbench struct {
	mu     sync.Mutex
	owner  string
	logger *slog.Logger

	gen       uint64
	actorID   string
	loading   bool
	running   bool
	schema    *form.Schema
	rawSchema json.RawMessage
	state     form.RawFormState
	view      *results.View
	run       *apify.Run
	notices   []Notice
	noticeSeq uint64

	lastActive time.Time
}

// New returns an empty workbench for owner (the platform user id).
func New(owner string, logger *slog.Logger) *Workbench {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Workbench{
		owner:      owner,
		logger:     logger.With("component", "workbench", "owner", owner),
		state:      form.RawFormState{},
		lastActive: time.Now(),
	}
}

// Owner returns the user id the workbench belongs to.
func (w *Workbench) Owner() string {
	return w.owner
}

// Select makes actorID the current actor. Schema, form state, results and
// notices are cleared before it returns, and any ticket issued earlier
// becomes stale. The returned ticket is used to complete the schema fetch.
func (w *Workbench) Select(actorID string) Ticket {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.gen++
	w.actorID = actorID
	w.schema = nil
	w.rawSchema = nil
	w.state = form.RawFormState{}
	w.view = nil
	w.run = nil
	w.notices = nil
	w.running = false
	w.loading = actorID != ""
	w.touch()

	w.logger.Debug("actor selected", "actor_id", actorID, "generation", w.gen)
	return Ticket{Generation: w.gen, ActorID: actorID}
}

// Current returns a ticket for the current selection.
func (w *Workbench) Current() Ticket {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Ticket{Generation: w.gen, ActorID: w.actorID}
}

func (w *Workbench) stale(t Ticket) bool {
	if t.Generation != w.gen {
		w.logger.Debug("stale completion dropped", "ticket", t.Generation, "generation", w.gen, "actor_id", t.ActorID)
		return true
	}
	return false
}

// ApplySchema completes a schema fetch. It reports false, changing nothing,
// when t is stale. A schema without usable properties leaves the form empty
// and adds a warning notice.
func (w *Workbench) ApplySchema(t Ticket, doc *apify.SchemaDocument) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stale(t) {
		return false
	}
	w.loading = false
	w.touch()

	var raw json.RawMessage
	if doc != nil {
		raw = doc.Raw
	}
	schema, state, err := form.Normalize(t.ActorID, raw)
	if err != nil {
		w.addNotice(LevelWarning, MsgNoUsableSchema, false)
		w.logger.Info("schema has no usable properties", "actor_id", t.ActorID)
		return true
	}
	w.schema = schema
	w.rawSchema = raw
	w.state = state
	w.logger.Debug("schema applied", "actor_id", t.ActorID, "fields", len(schema.Fields))
	return true
}

// FailSchema completes a failed schema fetch. The form stays empty.
func (w *Workbench) FailSchema(t Ticket, err error) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stale(t) {
		return false
	}
	w.loading = false
	w.touch()
	w.addError(err, MsgSchemaFailed)
	w.logger.Warn("schema fetch failed", "actor_id", t.ActorID, "error", err)
	return true
}

// Edit writes one raw value. Other keys are untouched.
func (w *Workbench) Edit(key string, value any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.schema == nil {
		return ErrNoSchema
	}
	w.touch()
	return w.state.Set(w.schema, key, value)
}

// ApplyForm writes the changed fields of a posted HTML form.
func (w *Workbench) ApplyForm(values url.Values) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.schema == nil {
		return nil
	}
	w.touch()
	return form.ApplyEdits(w.schema, w.state, values)
}

// Submission is what BeginRun hands to the caller for one run.
type Submission struct {
	Ticket  Ticket
	Payload form.Payload
	Issues  []*form.CoercionError
}

// BeginRun coerces the current form state and marks a run in flight. Nothing
// is submitted when no schema is loaded.
func (w *Workbench) BeginRun() (*Submission, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case w.running:
		return nil, ErrRunInFlight
	case w.loading:
		return nil, ErrSchemaLoading
	case w.schema == nil:
		return nil, ErrNoSchema
	}

	payload, issues := form.Coerce(w.schema, w.state, w.logger)
	w.running = true
	w.view = nil
	w.run = nil
	w.notices = nil
	w.touch()
	if len(issues) > 0 {
		w.addNotice(LevelWarning, issuesMessage(issues), false)
	}
	return &Submission{
		Ticket:  Ticket{Generation: w.gen, ActorID: w.actorID},
		Payload: payload,
		Issues:  issues,
	}, nil
}

// ApplyRun completes a run with its result rows.
func (w *Workbench) ApplyRun(t Ticket, res *apify.RunResult) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stale(t) {
		return false
	}
	w.running = false
	w.touch()
	if res == nil {
		res = &apify.RunResult{}
	}
	run := res.Run
	w.run = &run
	w.view = results.Interpret(res.Items)
	if run.Status == "" || run.Status == model.RunStatusSucceeded {
		w.addNotice(LevelSuccess, MsgRunCompleted, false)
	} else {
		w.addNotice(LevelWarning, runStatusMessage(run.Status), false)
	}
	w.logger.Info("run applied", "actor_id", t.ActorID, "run_id", run.ID, "status", run.Status, "rows", len(res.Items))
	return true
}

// FailRun completes a failed run. Form state is kept for correction.
func (w *Workbench) FailRun(t Ticket, err error) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stale(t) {
		return false
	}
	w.running = false
	w.touch()
	w.addError(err, MsgRunFailed)
	w.logger.Warn("run failed", "actor_id", t.ActorID, "error", err)
	return true
}

// Reject records a notice for a run request that could not start, such as
// one made with no schema loaded.
func (w *Workbench) Reject(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg, blocking := Describe(err, err.Error())
	w.addNotice(LevelWarning, msg, blocking)
}

// Dismiss removes a notice by id.
func (w *Workbench) Dismiss(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, n := range w.notices {
		if n.ID == id {
			w.notices = append(w.notices[:i], w.notices[i+1:]...)
			return
		}
	}
}

// Snapshot is a consistent copy of the workbench for rendering.
type Snapshot struct {
	Generation uint64            `json:"generation"`
	ActorID    string            `json:"actorId"`
	Loading    bool              `json:"loading"`
	Running    bool              `json:"running"`
	Schema     *form.Schema      `json:"schema,omitempty"`
	State      form.RawFormState `json:"state"`
	Widgets    []form.Widget     `json:"widgets"`
	Results    *results.View     `json:"results,omitempty"`
	Run        *apify.Run        `json:"run,omitempty"`
	Notices    []Notice          `json:"notices"`

	rawSchema json.RawMessage
}

// RawSchema returns the input schema document the form was built from.
func (s Snapshot) RawSchema() json.RawMessage {
	return s.rawSchema
}

// Snapshot returns the current state.
func (w *Workbench) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := Snapshot{
		Generation: w.gen,
		ActorID:    w.actorID,
		Loading:    w.loading,
		Running:    w.running,
		Schema:     w.schema,
		State:      w.state.Clone(),
		Widgets:    form.Render(w.schema, w.state),
		Results:    w.view,
		Run:        w.run,
		Notices:    append([]Notice{}, w.notices...),
		rawSchema:  w.rawSchema,
	}
	if snap.Widgets == nil {
		snap.Widgets = []form.Widget{}
	}
	return snap
}

// IdleSince reports when the workbench was last used.
func (w *Workbench) IdleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastActive
}

func (w *Workbench) touch() {
	w.lastActive = time.Now()
}
