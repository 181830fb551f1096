// Package apifytest provides an in-memory apify.Platform for tests.
package apifytest

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/me/actorrun/internal/apify"
	"github.com/me/actorrun/pkg/model"
)

// Call is one recorded RunActor invocation.
type Call struct {
	Token   string
	ActorID string
	Payload map[string]any
}

// Fake is an in-memory platform. Configure its fields before use; the
// recorded calls are safe to read with Calls.
type Fake struct {
	// ValidToken, when set, is the only token the fake accepts. Any other
	// token gets a 401 from every operation.
	ValidToken string

	User    apify.User
	Actors  []apify.Actor
	Schemas map[string]string           // actor id -> raw input schema
	Results map[string]*apify.RunResult // actor id -> run outcome
	RunErr  error

	mu    sync.Mutex
	calls []Call
}

// New returns a fake that accepts token and knows one user.
func New(token string) *Fake {
	return &Fake{
		ValidToken: token,
		User:       apify.User{ID: "u1", Username: "jane"},
		Schemas:    map[string]string{},
		Results:    map[string]*apify.RunResult{},
	}
}

// Factory returns an apify.Factory whose platforms are backed by f.
func (f *Fake) Factory() apify.Factory {
	return func(token string) apify.Platform {
		return &bound{fake: f, token: token}
	}
}

// Calls returns the recorded runs.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Rows builds dataset rows from JSON literals.
func Rows(docs ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(docs))
	for i, d := range docs {
		out[i] = json.RawMessage(d)
	}
	return out
}

// Succeeded returns a successful run result with rows.
func Succeeded(runID string, rows ...string) *apify.RunResult {
	return &apify.RunResult{
		Run:   apify.Run{ID: runID, Status: model.RunStatusSucceeded, DefaultDatasetID: "ds_" + runID},
		Items: Rows(rows...),
	}
}

type bound struct {
	fake  *Fake
	token string
}

func (b *bound) check(op string) error {
	if b.token == "" {
		return apify.ErrNotAuthenticated
	}
	if b.fake.ValidToken != "" && b.token != b.fake.ValidToken {
		return &apify.Error{Op: op, StatusCode: http.StatusUnauthorized, Type: "token-not-valid", Message: "User was not found or authentication token is not valid"}
	}
	return nil
}

func (b *bound) VerifyToken(context.Context) (*apify.User, error) {
	if err := b.check("verify token"); err != nil {
		return nil, err
	}
	u := b.fake.User
	return &u, nil
}

func (b *bound) ListActors(context.Context) ([]apify.Actor, error) {
	if err := b.check("list actors"); err != nil {
		return nil, err
	}
	return append([]apify.Actor(nil), b.fake.Actors...), nil
}

func (b *bound) FetchSchema(_ context.Context, actorID string) (*apify.SchemaDocument, error) {
	if err := b.check("fetch schema"); err != nil {
		return nil, err
	}
	raw, ok := b.fake.Schemas[actorID]
	if !ok {
		return nil, &apify.Error{Op: "fetch schema", StatusCode: http.StatusNotFound, Type: "record-not-found", Message: "Actor was not found"}
	}
	doc := &apify.SchemaDocument{ActorID: actorID}
	if raw != "" {
		doc.Raw = json.RawMessage(raw)
	}
	return doc, nil
}

func (b *bound) RunActor(_ context.Context, actorID string, payload map[string]any) (*apify.RunResult, error) {
	if err := b.check("run actor"); err != nil {
		return nil, err
	}
	b.fake.mu.Lock()
	b.fake.calls = append(b.fake.calls, Call{Token: b.token, ActorID: actorID, Payload: payload})
	b.fake.mu.Unlock()

	if b.fake.RunErr != nil {
		return nil, b.fake.RunErr
	}
	if res, ok := b.fake.Results[actorID]; ok {
		return res, nil
	}
	return &apify.RunResult{Run: apify.Run{ID: "run_default", Status: model.RunStatusSucceeded}}, nil
}
