package store

import (
	"context"
	"time"

	"github.com/me/actorrun/pkg/model"
)

// Store defines the persistence layer for ActorRun: login sessions and
// run history. Run payloads and dataset rows are never stored.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, sess *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
	DeleteSessionsByUserID(ctx context.Context, userID string) (int64, error)

	// Run history
	CreateRunRecord(ctx context.Context, rec *model.RunRecord) error
	GetRunRecord(ctx context.Context, id string) (*model.RunRecord, error)
	ListRunRecords(ctx context.Context, userID string, opts model.ListOptions) ([]*model.RunRecord, int, error)
	DeleteRunRecordsBefore(ctx context.Context, before time.Time) (int64, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
