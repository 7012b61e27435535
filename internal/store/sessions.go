package store

import (
	"database/sql"
	"fmt"
	"time"

	perrors "github.com/phaseflow/phaseflow/internal/errors"
)

// SessionContext binds an anonymous browser session to a nickname and its
// most recent project.
type SessionContext struct {
	SessionID string
	Nickname  string
	ProjectID string
	CreatedAt int64
	LastUsed  int64
}

// SaveSessionContext saves a session context.
func (s *Store) SaveSessionContext(sc *SessionContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	if sc.CreatedAt == 0 {
		sc.CreatedAt = now
	}
	if sc.LastUsed == 0 {
		sc.LastUsed = now
	}

	query := `
	INSERT OR REPLACE INTO session_contexts (
		session_id, nickname, project_id, created_at, last_used
	) VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		sc.SessionID, sc.Nickname,
		sql.NullString{String: sc.ProjectID, Valid: sc.ProjectID != ""},
		sc.CreatedAt, sc.LastUsed,
	)
	if err != nil {
		return fmt.Errorf("failed to save session context: %w", err)
	}
	return nil
}

// GetSessionContext retrieves a session context by ID.
func (s *Store) GetSessionContext(sessionID string) (*SessionContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc := &SessionContext{}
	var projectID sql.NullString

	err := s.db.QueryRow(`
	SELECT session_id, nickname, project_id, created_at, last_used
	FROM session_contexts WHERE session_id = ?
	`, sessionID).Scan(&sc.SessionID, &sc.Nickname, &projectID, &sc.CreatedAt, &sc.LastUsed)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: session %s", perrors.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session context: %w", err)
	}

	if projectID.Valid {
		sc.ProjectID = projectID.String
	}
	return sc, nil
}

// TouchSessionContext updates the last_used timestamp.
func (s *Store) TouchSessionContext(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(
		`UPDATE session_contexts SET last_used = ? WHERE session_id = ?`,
		time.Now().UnixMilli(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch session context: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: session %s", perrors.ErrNotFound, sessionID)
	}
	return nil
}

// PruneSessionContexts deletes sessions idle longer than maxIdle and returns
// how many were removed.
func (s *Store) PruneSessionContexts(maxIdle time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle).UnixMilli()
	result, err := s.db.Exec(`DELETE FROM session_contexts WHERE last_used < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune session contexts: %w", err)
	}
	return result.RowsAffected()
}
