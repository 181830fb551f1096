package apify

import (
	"context"
	"log/slog"
)

// Platform is the remote automation platform as the rest of ActorRun sees it.
// *Client implements it; tests substitute fakes.
type Platform interface {
	// VerifyToken returns the account owning the configured token.
	VerifyToken(ctx context.Context) (*User, error)

	// ListActors returns the actors available to the token's account.
	ListActors(ctx context.Context) ([]Actor, error)

	// FetchSchema returns the input schema of an actor.
	FetchSchema(ctx context.Context, actorID string) (*SchemaDocument, error)

	// RunActor starts a run with payload as its input, waits for it to
	// finish, and returns the run with its dataset rows.
	RunActor(ctx context.Context, actorID string, payload map[string]any) (*RunResult, error)
}

// Factory returns a Platform bound to a token. Callers create one per
// request or session; tokens are never shared across users.
type Factory func(token string) Platform

// NewFactory returns a Factory producing HTTP clients configured from cfg.
func NewFactory(cfg Config, logger *slog.Logger) Factory {
	return func(token string) Platform {
		return NewClient(cfg.WithToken(token), logger)
	}
}

var _ Platform = (*Client)(nil)
