package workbench

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/me/actorrun/internal/apify"
)

// fakePlatform serves canned schemas and runs. A gate registered for an
// actor blocks FetchSchema until it is closed.
type fakePlatform struct {
	mu        sync.Mutex
	schemas   map[string]string
	schemaErr map[string]error
	gates     map[string]chan struct{}

	runResult *apify.RunResult
	runErr    error
	payloads  []map[string]any
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		schemas:   map[string]string{},
		schemaErr: map[string]error{},
		gates:     map[string]chan struct{}{},
	}
}

func (f *fakePlatform) VerifyToken(context.Context) (*apify.User, error) {
	return &apify.User{ID: "u1", Username: "jane"}, nil
}

func (f *fakePlatform) ListActors(context.Context) ([]apify.Actor, error) {
	return nil, nil
}

func (f *fakePlatform) FetchSchema(ctx context.Context, actorID string) (*apify.SchemaDocument, error) {
	f.mu.Lock()
	gate := f.gates[actorID]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.schemaErr[actorID]; err != nil {
		return nil, err
	}
	doc := &apify.SchemaDocument{ActorID: actorID}
	if s, ok := f.schemas[actorID]; ok {
		doc.Raw = json.RawMessage(s)
	}
	return doc, nil
}

func (f *fakePlatform) RunActor(_ context.Context, _ string, payload map[string]any) (*apify.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	if f.runErr != nil {
		return nil, f.runErr
	}
	return f.runResult, nil
}
