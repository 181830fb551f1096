package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/me/actorrun/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// Every connection to ":memory:" is its own database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Session operations ---

func (s *SQLiteStore) CreateSession(ctx context.Context, sess *model.Session) error {
	s.logger.Debug("sql", "op", "insert", "table", "sessions", "id", sess.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, username, token, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.Username, sess.Token,
		sess.CreatedAt.Unix(), sess.ExpiresAt.Unix(),
	)
	return err
}

// GetSession returns nil, nil when no session has the id.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	s.logger.Debug("sql", "op", "select", "table", "sessions", "id", id)

	var sess model.Session
	var createdAt, expiresAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, username, token, created_at, expires_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.UserID, &sess.Username, &sess.Token, &createdAt, &expiresAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.ExpiresAt = time.Unix(expiresAt, 0)
	return &sess, nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	s.logger.Debug("sql", "op", "delete", "table", "sessions", "id", id)

	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	s.logger.Debug("sql", "op", "delete_expired", "table", "sessions")

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *SQLiteStore) DeleteSessionsByUserID(ctx context.Context, userID string) (int64, error) {
	s.logger.Debug("sql", "op", "delete_by_user", "table", "sessions", "user_id", userID)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// --- Run history ---

const runRecordColumns = `id, run_id, actor_id, user_id, status, dataset_id, item_count, message, started_at, finished_at`

func (s *SQLiteStore) CreateRunRecord(ctx context.Context, rec *model.RunRecord) error {
	s.logger.Debug("sql", "op", "insert", "table", "run_records", "id", rec.ID)

	var finishedAt *string
	if rec.FinishedAt != nil {
		f := rec.FinishedAt.UTC().Format(timeFormat)
		finishedAt = &f
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_records (`+runRecordColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RunID, rec.ActorID, rec.UserID, string(rec.Status),
		rec.DatasetID, rec.ItemCount, rec.Message,
		rec.StartedAt.UTC().Format(timeFormat), finishedAt,
	)
	return err
}

// GetRunRecord returns nil, nil when no record has the id.
func (s *SQLiteStore) GetRunRecord(ctx context.Context, id string) (*model.RunRecord, error) {
	s.logger.Debug("sql", "op", "select", "table", "run_records", "id", id)

	row := s.db.QueryRowContext(ctx,
		`SELECT `+runRecordColumns+` FROM run_records WHERE id = ?`, id)
	rec, err := scanRunRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// ListRunRecords returns the runs of userID, newest first, with the total
// count matching the filter.
func (s *SQLiteStore) ListRunRecords(ctx context.Context, userID string, opts model.ListOptions) ([]*model.RunRecord, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "run_records", "user_id", userID, "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	whereClauses := []string{"user_id = ?"}
	countArgs := []any{userID}
	if opts.ActorID != "" {
		whereClauses = append(whereClauses, "actor_id = ?")
		countArgs = append(countArgs, opts.ActorID)
	}
	whereSQL := " WHERE " + strings.Join(whereClauses, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_records`+whereSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listArgs := append(countArgs, opts.Limit, opts.Offset)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runRecordColumns+` FROM run_records`+whereSQL+
			` ORDER BY started_at DESC LIMIT ? OFFSET ?`, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var recs []*model.RunRecord
	for rows.Next() {
		rec, err := scanRunRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		recs = append(recs, rec)
	}
	return recs, total, rows.Err()
}

// DeleteRunRecordsBefore prunes history older than before.
func (s *SQLiteStore) DeleteRunRecordsBefore(ctx context.Context, before time.Time) (int64, error) {
	s.logger.Debug("sql", "op", "delete_before", "table", "run_records", "before", before)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM run_records WHERE started_at < ?`, before.UTC().Format(timeFormat))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// timeFormat is fixed width so that stored timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

type scanner interface {
	Scan(dest ...any) error
}

func scanRunRecord(row scanner) (*model.RunRecord, error) {
	var rec model.RunRecord
	var status, startedAt string
	var finishedAt *string

	if err := row.Scan(&rec.ID, &rec.RunID, &rec.ActorID, &rec.UserID, &status,
		&rec.DatasetID, &rec.ItemCount, &rec.Message, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	rec.Status = model.RunStatus(status)
	rec.StartedAt, _ = time.Parse(timeFormat, startedAt)
	if finishedAt != nil {
		t, _ := time.Parse(timeFormat, *finishedAt)
		rec.FinishedAt = &t
	}
	return &rec, nil
}

var _ Store = (*SQLiteStore)(nil)
