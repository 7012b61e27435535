package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	perrors "github.com/phaseflow/phaseflow/internal/errors"
	"github.com/phaseflow/phaseflow/internal/plan"
)

// Project is a persisted project plan, owned by a session.
type Project struct {
	ID        string
	SessionID string
	Plan      plan.ProjectPlan
	CreatedAt int64
	UpdatedAt int64
}

// SaveProject inserts or replaces a project. A missing ID is assigned.
// Phases are serialized as a single JSON document so phase order and
// membership survive the round trip exactly.
func (s *Store) SaveProject(p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UnixMilli()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	phases, err := json.Marshal(p.Plan.Phases)
	if err != nil {
		return fmt.Errorf("failed to marshal phases: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO projects (
		id, session_id, project_name, project_summary, phases, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(query,
		p.ID, p.SessionID, p.Plan.ProjectName, p.Plan.ProjectSummary,
		string(phases), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.scanProject(s.db.QueryRow(`
	SELECT id, session_id, project_name, project_summary, phases, created_at, updated_at
	FROM projects WHERE id = ?
	`, id))
}

// ListProjects returns all projects for a session, most recently updated
// first. An empty sessionID lists everything.
func (s *Store) ListProjects(sessionID string) ([]*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
	SELECT id, session_id, project_name, project_summary, phases, created_at, updated_at
	FROM projects
	`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := s.scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProjectPlan replaces a project's plan wholesale. Refinement and
// phase-state changes always write the full plan; there is no partial merge.
func (s *Store) UpdateProjectPlan(id string, pl *plan.ProjectPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	phases, err := json.Marshal(pl.Phases)
	if err != nil {
		return fmt.Errorf("failed to marshal phases: %w", err)
	}

	query := `
	UPDATE projects SET project_name = ?, project_summary = ?, phases = ?, updated_at = ?
	WHERE id = ?
	`
	result, err := s.db.Exec(query,
		pl.ProjectName, pl.ProjectSummary, string(phases), time.Now().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: project %s", perrors.ErrNotFound, id)
	}
	return nil
}

// DeleteProject removes a project and its dependent rows.
func (s *Store) DeleteProject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM invites WHERE project_id = ?`,
		`DELETE FROM artifacts WHERE project_id = ?`,
		`DELETE FROM team_members WHERE project_id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("failed to delete project rows: %w", err)
		}
	}

	result, err := tx.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: project %s", perrors.ErrNotFound, id)
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanProject(row rowScanner) (*Project, error) {
	p := &Project{}
	var phases string

	err := row.Scan(
		&p.ID, &p.SessionID, &p.Plan.ProjectName, &p.Plan.ProjectSummary,
		&phases, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: project", perrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}

	if err := json.Unmarshal([]byte(phases), &p.Plan.Phases); err != nil {
		return nil, fmt.Errorf("failed to unmarshal phases: %w", err)
	}
	return p, nil
}
