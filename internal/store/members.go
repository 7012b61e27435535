package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/phaseflow/phaseflow/internal/team"
)

// UpsertMember saves a team member profile, keyed by (project, name). A
// repeat save for the same name updates the profile in place.
func (s *Store) UpsertMember(projectID string, m *team.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	loves, err := marshalList(m.Loves)
	if err != nil {
		return err
	}
	hates, err := marshalList(m.Hates)
	if err != nil {
		return err
	}
	tools, err := marshalList(m.Tools)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO team_members (
		id, project_id, name, role, email, loves, hates, tools, career, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (project_id, name) DO UPDATE SET
		role = excluded.role,
		email = excluded.email,
		loves = excluded.loves,
		hates = excluded.hates,
		tools = excluded.tools,
		career = excluded.career
	`

	_, err = s.db.Exec(query,
		m.ID, projectID, m.Name, m.Role, m.Email,
		loves, hates, tools, m.Career, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert member: %w", err)
	}
	return nil
}

// ListMembers returns a project's team profiles in insertion order.
func (s *Store) ListMembers(projectID string) ([]team.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
	SELECT id, name, role, email, loves, hates, tools, career
	FROM team_members WHERE project_id = ?
	ORDER BY created_at, name
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []team.Member
	for rows.Next() {
		var m team.Member
		var loves, hates, tools string
		if err := rows.Scan(&m.ID, &m.Name, &m.Role, &m.Email, &loves, &hates, &tools, &m.Career); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if m.Loves, err = unmarshalList(loves); err != nil {
			return nil, err
		}
		if m.Hates, err = unmarshalList(hates); err != nil {
			return nil, err
		}
		if m.Tools, err = unmarshalList(tools); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// DeleteMember removes one member profile by name.
func (s *Store) DeleteMember(projectID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM team_members WHERE project_id = ? AND name = ?`, projectID, name)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return nil
}

func marshalList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal list: %w", err)
	}
	return string(b), nil
}

func unmarshalList(s string) ([]string, error) {
	var v []string
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal list: %w", err)
	}
	return v, nil
}
