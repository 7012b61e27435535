// Package plan holds the PhaseFlow domain model: project plans, phases,
// invites, and work notifications, plus the shaping rules applied to
// validated model output before it becomes canonical state.
package plan

import (
	"fmt"
	"time"

	perrors "github.com/phaseflow/phaseflow/internal/errors"
	"github.com/phaseflow/phaseflow/internal/team"
)

// PhaseStatus is the lifecycle state of a phase.
type PhaseStatus string

const (
	StatusPending    PhaseStatus = "pending"
	StatusInProgress PhaseStatus = "in-progress"
	StatusCompleted  PhaseStatus = "completed"
)

// Phase is one ordered stage of a project plan.
type Phase struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Recommended []string    `json:"recommended"`
	Active      []string    `json:"active"`
	Milestone   string      `json:"milestone,omitempty"`
	Deadline    string      `json:"deadline,omitempty"`
	KPIs        []string    `json:"kpis,omitempty"`
	Status      PhaseStatus `json:"status,omitempty"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
}

// ProjectPlan is the full plan returned by project planning or refinement.
// Refinement replaces it wholesale; there is no partial merge.
type ProjectPlan struct {
	ProjectName    string  `json:"project_name"`
	ProjectSummary string  `json:"project_summary"`
	Phases         []Phase `json:"phases"`
}

// Invite is a generated recommendation that a specific person join a phase.
type Invite struct {
	ID            string `json:"id,omitempty"`
	TargetUser    string `json:"target_user"`
	TargetEmail   string `json:"target_email,omitempty"`
	InviteMessage string `json:"invite_message"`
	Reason        string `json:"reason"`
	PhaseID       string `json:"phase_id,omitempty"`
	PhaseName     string `json:"phase_name,omitempty"`
	// Matched records whether target_user resolved to a known profile name.
	// Unmatched invites are retained, not dropped; email resolution simply
	// fails for them later.
	Matched bool `json:"matched"`
}

// NotificationType classifies a work-canvas notification.
type NotificationType string

const (
	NotifyRecommendation NotificationType = "recommendation"
	NotifySelf           NotificationType = "self"
	NotifyWarning        NotificationType = "warning"
)

// Notification is the display-only sibling of Invite used by the single-phase
// work canvas.
type Notification struct {
	Type       NotificationType `json:"type"`
	TargetUser string           `json:"target_user"`
	Message    string           `json:"message"`
	Matched    bool             `json:"matched"`
}

// ApplyCreationDefaults assigns the defaults the model does not guarantee:
// the first phase is forced to in-progress with its recommended members
// activated, and every later phase starts pending with no active members.
func ApplyCreationDefaults(p *ProjectPlan) {
	for i := range p.Phases {
		ph := &p.Phases[i]
		if ph.Recommended == nil {
			ph.Recommended = []string{}
		}
		if i == 0 {
			ph.Status = StatusInProgress
			if len(ph.Active) == 0 {
				ph.Active = append([]string(nil), ph.Recommended...)
			}
		} else {
			ph.Status = StatusPending
			ph.Active = []string{}
		}
		ph.CompletedAt = nil
	}
}

// MigrateRefinement carries phase progress from the old plan into the
// refined one. The refined plan's ids are authoritative; where an id
// survives, its status, completion time, and active set are preserved.
// Phases with no surviving id get creation defaults, and if nothing ends up
// in progress the first non-completed phase is started.
func MigrateRefinement(old, refined *ProjectPlan) {
	prior := make(map[string]Phase, len(old.Phases))
	for _, ph := range old.Phases {
		prior[ph.ID] = ph
	}

	anyInProgress := false
	for i := range refined.Phases {
		ph := &refined.Phases[i]
		if ph.Recommended == nil {
			ph.Recommended = []string{}
		}
		if p, ok := prior[ph.ID]; ok && p.Status != "" {
			ph.Status = p.Status
			ph.CompletedAt = p.CompletedAt
			if len(ph.Active) == 0 {
				ph.Active = append([]string(nil), p.Active...)
			}
		} else {
			ph.Status = StatusPending
			if ph.Active == nil {
				ph.Active = []string{}
			}
		}
		if ph.Status == StatusInProgress {
			anyInProgress = true
		}
	}

	if !anyInProgress {
		for i := range refined.Phases {
			if refined.Phases[i].Status != StatusCompleted {
				refined.Phases[i].Status = StatusInProgress
				if len(refined.Phases[i].Active) == 0 {
					refined.Phases[i].Active = append([]string(nil), refined.Phases[i].Recommended...)
				}
				break
			}
		}
	}
}

// ValidateMemberNames rejects a plan whose recommended or active lists
// reference names absent from the profile set. A plan referencing unknown
// members must never be accepted silently.
func ValidateMemberNames(p *ProjectPlan, members []team.Member) error {
	known := team.Names(members)
	for _, ph := range p.Phases {
		for _, name := range append(append([]string(nil), ph.Recommended...), ph.Active...) {
			if _, ok := team.MatchName(known, name); !ok {
				return fmt.Errorf("%w: phase %s references unknown member %q",
					perrors.ErrInvalidPlanShape, ph.ID, name)
			}
		}
	}
	return nil
}

// MergeInvites merges a freshly generated invite batch into the outstanding
// set. Identity is (canonical target_user, phase_id): a repeat updates the
// existing invite's message and reason in place instead of duplicating it.
// Returns the merged list in stable order (existing first, new appended).
func MergeInvites(existing, incoming []Invite) []Invite {
	merged := append([]Invite(nil), existing...)
	index := make(map[string]int, len(merged))
	for i, inv := range merged {
		index[inviteKey(inv)] = i
	}

	for _, inv := range incoming {
		if i, ok := index[inviteKey(inv)]; ok {
			id := merged[i].ID
			merged[i] = inv
			merged[i].ID = id
			continue
		}
		index[inviteKey(inv)] = len(merged)
		merged = append(merged, inv)
	}
	return merged
}

func inviteKey(inv Invite) string {
	return inv.TargetUser + "\x00" + inv.PhaseID
}
