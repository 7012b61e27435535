package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/phaseflow/phaseflow/internal/plan"
)

// SaveInvites upserts a batch of generated invites for a project. Invite
// identity is (project, target user, phase): re-analyzing the same phase
// updates the message and reason of an existing invite instead of
// duplicating it.
func (s *Store) SaveInvites(projectID string, invites []plan.Invite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	query := `
	INSERT INTO invites (
		id, project_id, target_user, target_email, invite_message, reason,
		phase_id, phase_name, matched, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (project_id, target_user, phase_id) DO UPDATE SET
		target_email = excluded.target_email,
		invite_message = excluded.invite_message,
		reason = excluded.reason,
		phase_name = excluded.phase_name,
		matched = excluded.matched,
		updated_at = excluded.updated_at
	`

	for _, inv := range invites {
		id := inv.ID
		if id == "" {
			id = uuid.NewString()
		}
		matched := 0
		if inv.Matched {
			matched = 1
		}
		if _, err := tx.Exec(query,
			id, projectID, inv.TargetUser, inv.TargetEmail, inv.InviteMessage,
			inv.Reason, inv.PhaseID, inv.PhaseName, matched, now, now,
		); err != nil {
			return fmt.Errorf("failed to save invite: %w", err)
		}
	}

	return tx.Commit()
}

// ListInvites returns a project's outstanding invites, oldest first so the
// display order is stable across re-analysis.
func (s *Store) ListInvites(projectID string) ([]plan.Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
	SELECT id, target_user, target_email, invite_message, reason, phase_id, phase_name, matched
	FROM invites WHERE project_id = ?
	ORDER BY created_at, id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	defer rows.Close()

	var invites []plan.Invite
	for rows.Next() {
		var inv plan.Invite
		var matched int
		if err := rows.Scan(
			&inv.ID, &inv.TargetUser, &inv.TargetEmail, &inv.InviteMessage,
			&inv.Reason, &inv.PhaseID, &inv.PhaseName, &matched,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		inv.Matched = matched != 0
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

// DeleteInvite removes one invite by ID.
func (s *Store) DeleteInvite(projectID, inviteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM invites WHERE project_id = ? AND id = ?`, projectID, inviteID)
	if err != nil {
		return fmt.Errorf("failed to delete invite: %w", err)
	}
	return nil
}
