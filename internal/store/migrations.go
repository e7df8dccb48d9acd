package store

import (
	"fmt"
)

func (s *Store) migrate() error {
	if err := s.migrateV1(); err != nil {
		return err
	}
	return s.migrateV2()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS afk_users (
		user_id    INTEGER PRIMARY KEY,
		kind       TEXT NOT NULL DEFAULT 'text',
		away_since INTEGER NOT NULL,
		reason     TEXT,
		media_ref  TEXT
	);

	CREATE TABLE IF NOT EXISTS users (
		user_id    INTEGER PRIMARY KEY,
		username   TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_seen  INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);

	CREATE TABLE IF NOT EXISTS chat_groups (
		chat_id     INTEGER PRIMARY KEY,
		title       TEXT NOT NULL DEFAULT '',
		last_active INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS broadcast_drafts (
		id                TEXT PRIMARY KEY,
		command           TEXT NOT NULL,
		text              TEXT,
		source_chat_id    INTEGER,
		source_message_id INTEGER,
		origin_chat_id    INTEGER NOT NULL,
		origin_message_id INTEGER NOT NULL,
		options           TEXT NOT NULL DEFAULT '',
		created_at        INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_broadcast_created ON broadcast_drafts(created_at);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO meta(key, value) VALUES ('schema_version', '1');
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v1: %w", err)
	}

	return nil
}

func (s *Store) migrateV2() error {
	var version string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version)
	if err != nil || version >= "2" {
		return nil
	}

	schema := `
	CREATE TABLE IF NOT EXISTS chat_policies (
		chat_id           INTEGER PRIMARY KEY,
		enabled           INTEGER NOT NULL DEFAULT 0,
		retention_seconds INTEGER NOT NULL DEFAULT 300,
		created_at        INTEGER NOT NULL,
		updated_at        INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS deletion_tasks (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id    INTEGER NOT NULL,
		message_id INTEGER NOT NULL,
		due_at     INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE (chat_id, message_id)
	);

	CREATE INDEX IF NOT EXISTS idx_deletion_due ON deletion_tasks(due_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v2: %w", err)
	}

	if _, err := s.db.Exec(`INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '2')`); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	return nil
}
