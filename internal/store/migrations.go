package store

import (
	"context"
	"database/sql"
	"strings"
)

// schema contains the DDL for all ActorRun tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	// Sessions table for UI authentication. token is the user's Apify API token.
	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		username   TEXT NOT NULL,
		token      TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`,

	`CREATE TABLE IF NOT EXISTS run_records (
		id          TEXT PRIMARY KEY,
		run_id      TEXT NOT NULL DEFAULT '',
		actor_id    TEXT NOT NULL,
		user_id     TEXT NOT NULL,
		status      TEXT NOT NULL,
		dataset_id  TEXT NOT NULL DEFAULT '',
		item_count  INTEGER NOT NULL DEFAULT 0,
		started_at  TEXT NOT NULL,
		finished_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_run_records_user_started ON run_records(user_id, started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_run_records_actor_id ON run_records(actor_id)`,
}

// alterStatements add columns introduced after the first release.
var alterStatements = []struct {
	table    string
	column   string
	alterSQL string
	indexSQL string
}{
	{
		table:    "run_records",
		column:   "message",
		alterSQL: `ALTER TABLE run_records ADD COLUMN message TEXT NOT NULL DEFAULT ''`,
	},
}

// migrate runs all DDL statements against the database.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, ddl := range schema {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}

	// Execute ALTER TABLE statements idempotently.
	for _, alter := range alterStatements {
		if err := addColumnIfNotExists(ctx, db, alter.table, alter.column, alter.alterSQL); err != nil {
			return err
		}
		if alter.indexSQL != "" {
			if _, err := db.ExecContext(ctx, alter.indexSQL); err != nil {
				return err
			}
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(ctx context.Context, db *sql.DB, table, column, alterSQL string) error {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue *string
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, column) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = db.ExecContext(ctx, alterSQL)
	return err
}
