package workbench

import (
	"errors"
	"fmt"
	"strings"

	"github.com/me/actorrun/internal/apify"
	"github.com/me/actorrun/internal/form"
	"github.com/me/actorrun/pkg/model"
)

// Level is the severity of a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// User-facing messages.
const (
	MsgNoUsableSchema = "No usable schema properties found for this actor."
	MsgSchemaFailed   = "Failed to fetch actor schema."
	MsgRunCompleted   = "Actor run completed!"
	MsgRunFailed      = "Actor run failed."
	MsgAuthFailed     = "Apify authentication failed. The API key is likely invalid."
	MsgNotAuth        = "Not authenticated. Please provide an API key first."
)

// Notice is a dismissible message. Blocking notices mean the session can
// no longer talk to the platform and the user must log in again.
type Notice struct {
	ID       uint64 `json:"id"`
	Level    Level  `json:"level"`
	Message  string `json:"message"`
	Blocking bool   `json:"blocking,omitempty"`
}

func (w *Workbench) addNotice(level Level, msg string, blocking bool) {
	w.noticeSeq++
	w.notices = append(w.notices, Notice{ID: w.noticeSeq, Level: level, Message: msg, Blocking: blocking})
}

func (w *Workbench) addError(err error, fallback string) {
	msg, blocking := Describe(err, fallback)
	w.addNotice(LevelError, msg, blocking)
}

// Describe maps a platform error to the message shown to the user and
// whether it blocks further use of the session.
func Describe(err error, fallback string) (string, bool) {
	switch {
	case errors.Is(err, apify.ErrNotAuthenticated):
		return MsgNotAuth, true
	case apify.IsAuthError(err):
		return MsgAuthFailed, true
	case errors.Is(err, ErrNoSchema):
		return "Select an actor before running.", false
	case apify.IsNotFound(err), apify.IsValidationError(err):
		return strings.TrimSuffix(fallback, ".") + ": " + apify.Message(err), false
	case errors.Is(err, apify.ErrRunNotFinished):
		return "The run is still going on the platform; check the Apify console for its results.", false
	}
	return fallback, false
}

func runStatusMessage(status model.RunStatus) string {
	return fmt.Sprintf("Actor run finished with status %s.", status)
}

func issuesMessage(issues []*form.CoercionError) string {
	keys := make([]string, len(issues))
	for i, e := range issues {
		keys[i] = e.Key
	}
	return "Some fields could not be converted and were left out: " + strings.Join(keys, ", ")
}
