package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Artifact is an uploaded work product attached to a project phase. The
// content is kept verbatim so re-analysis sees exactly what was uploaded.
type Artifact struct {
	ID         string
	ProjectID  string
	PhaseID    string
	PhaseName  string
	Content    string
	UploadedBy string
	Type       string
	CreatedAt  int64
}

// SaveArtifact records an uploaded artifact.
func (s *Store) SaveArtifact(a *Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Type == "" {
		a.Type = "text"
	}
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().UnixMilli()
	}

	query := `
	INSERT INTO artifacts (
		id, project_id, phase_id, phase_name, content, uploaded_by, artifact_type, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		a.ID, a.ProjectID, a.PhaseID, a.PhaseName, a.Content, a.UploadedBy, a.Type, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}
	return nil
}

// ListArtifacts returns a project's artifacts, newest first. A non-empty
// phaseID restricts the result to one phase.
func (s *Store) ListArtifacts(projectID, phaseID string) ([]*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
	SELECT id, project_id, phase_id, phase_name, content, uploaded_by, artifact_type, created_at
	FROM artifacts WHERE project_id = ?
	`
	args := []any{projectID}
	if phaseID != "" {
		query += ` AND phase_id = ?`
		args = append(args, phaseID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		a := &Artifact{}
		if err := rows.Scan(
			&a.ID, &a.ProjectID, &a.PhaseID, &a.PhaseName,
			&a.Content, &a.UploadedBy, &a.Type, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}
