package apify

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/me/actorrun/pkg/model"
)

// User is the account that owns a token (GET /users/me).
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Actor is one entry of the actor list (GET /acts).
type Actor struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Username   string    `json:"username"`
	Title      string    `json:"title,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// FullName returns the "username/name" form the platform displays.
func (a Actor) FullName() string {
	if a.Username == "" {
		return a.Name
	}
	return a.Username + "/" + a.Name
}

// Run is the platform's run object.
type Run struct {
	ID               string          `json:"id"`
	ActID            string          `json:"actId"`
	Status           model.RunStatus `json:"status"`
	StatusMessage    string          `json:"statusMessage,omitempty"`
	StartedAt        time.Time       `json:"startedAt"`
	FinishedAt       *time.Time      `json:"finishedAt"`
	DefaultDatasetID string          `json:"defaultDatasetId"`
	BuildID          string          `json:"buildId,omitempty"`
}

// SchemaDocument is an actor's input schema as published by its default build.
// Raw is nil when the build declares no input schema.
type SchemaDocument struct {
	ActorID string          `json:"actorId"`
	BuildID string          `json:"buildId,omitempty"`
	Raw     json.RawMessage `json:"inputSchema"`
}

// RunResult is a finished run with the rows of its default dataset, in order.
type RunResult struct {
	Run   Run               `json:"runInfo"`
	Items []json.RawMessage `json:"results"`
}

// build is the subset of GET /acts/{id}/builds/default we read.
type build struct {
	ID              string `json:"id"`
	ActorDefinition *struct {
		Input json.RawMessage `json:"input"`
	} `json:"actorDefinition"`
	// InputSchema is the legacy string-encoded schema.
	InputSchema string `json:"inputSchema"`
}

// schema returns the build's input schema document, preferring the
// structured actor definition over the legacy string.
func (b build) schema() json.RawMessage {
	if b.ActorDefinition != nil && len(b.ActorDefinition.Input) > 0 && string(b.ActorDefinition.Input) != "null" {
		return b.ActorDefinition.Input
	}
	if s := strings.TrimSpace(b.InputSchema); s != "" && json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	return nil
}

// list is the paginated list wrapper used by GET /acts.
type list[T any] struct {
	Total  int `json:"total"`
	Count  int `json:"count"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Items  []T `json:"items"`
}

// URLSafeActorID turns "username/name" into the "username~name" form the API
// accepts in paths. Plain actor ids pass through.
func URLSafeActorID(id string) string {
	return strings.Replace(strings.TrimSpace(id), "/", "~", 1)
}
