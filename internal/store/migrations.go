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
	CREATE TABLE IF NOT EXISTS projects (
		id              TEXT PRIMARY KEY,
		session_id      TEXT NOT NULL DEFAULT '',
		project_name    TEXT NOT NULL,
		project_summary TEXT NOT NULL DEFAULT '',
		phases          TEXT NOT NULL,
		created_at      INTEGER NOT NULL,
		updated_at      INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_session ON projects(session_id);
	CREATE INDEX IF NOT EXISTS idx_projects_updated ON projects(updated_at);

	CREATE TABLE IF NOT EXISTS team_members (
		id         TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id),
		name       TEXT NOT NULL,
		role       TEXT NOT NULL DEFAULT '',
		email      TEXT NOT NULL DEFAULT '',
		loves      TEXT NOT NULL DEFAULT '[]',
		hates      TEXT NOT NULL DEFAULT '[]',
		tools      TEXT NOT NULL DEFAULT '[]',
		career     TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		UNIQUE (project_id, name)
	);

	CREATE INDEX IF NOT EXISTS idx_members_project ON team_members(project_id);

	CREATE TABLE IF NOT EXISTS artifacts (
		id            TEXT PRIMARY KEY,
		project_id    TEXT NOT NULL REFERENCES projects(id),
		phase_id      TEXT NOT NULL,
		phase_name    TEXT NOT NULL DEFAULT '',
		content       TEXT NOT NULL,
		uploaded_by   TEXT NOT NULL DEFAULT '',
		artifact_type TEXT NOT NULL DEFAULT 'text',
		created_at    INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_artifacts_project ON artifacts(project_id, phase_id);

	CREATE TABLE IF NOT EXISTS invites (
		id             TEXT PRIMARY KEY,
		project_id     TEXT NOT NULL REFERENCES projects(id),
		target_user    TEXT NOT NULL,
		target_email   TEXT NOT NULL DEFAULT '',
		invite_message TEXT NOT NULL DEFAULT '',
		reason         TEXT NOT NULL DEFAULT '',
		phase_id       TEXT NOT NULL,
		phase_name     TEXT NOT NULL DEFAULT '',
		matched        INTEGER NOT NULL DEFAULT 0,
		created_at     INTEGER NOT NULL,
		updated_at     INTEGER NOT NULL,
		UNIQUE (project_id, target_user, phase_id)
	);

	CREATE INDEX IF NOT EXISTS idx_invites_project ON invites(project_id);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '1');
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
	CREATE TABLE IF NOT EXISTS session_contexts (
		session_id TEXT PRIMARY KEY,
		nickname   TEXT NOT NULL,
		project_id TEXT,
		created_at INTEGER NOT NULL,
		last_used  INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_session_ctx_used ON session_contexts(last_used);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v2: %w", err)
	}

	if _, err := s.db.Exec(`INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '2')`); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	return nil
}
