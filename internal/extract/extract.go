// Package extract pulls a single JSON value out of free-form model output
// and validates it against the shape each operation expects.
//
// Extraction and validation are deliberately split: ExtractCandidate finds
// the JSON-looking span, the Parse* functions parse and shape-check it. Each
// stage is independently testable, and the candidate strategy is swappable
// if the generation endpoint later supports structured output directly.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	perrors "github.com/phaseflow/phaseflow/internal/errors"
	"github.com/phaseflow/phaseflow/internal/plan"
	"github.com/phaseflow/phaseflow/internal/team"
)

var (
	fencedJSONRe = regexp.MustCompile("(?s)```json\\s*\\n(.*?)\\n\\s*```")
	fencedAnyRe  = regexp.MustCompile("(?s)```\\s*\\n(.*?)\\n\\s*```")
	arrayRe      = regexp.MustCompile(`(?s)\[.*\]`)
)

// ExtractCandidate returns the most likely JSON span in the response text:
// a ```json fenced block first, then any fenced block, then the whole text.
func ExtractCandidate(text string) string {
	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := fencedAnyRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// ParsePlan extracts and validates a plan-shaped response. Parse failure is
// ErrMalformedResponse; a parsed value that is not a usable plan is
// ErrInvalidPlanShape. There is no empty fallback for a plan — silently
// replacing a project with an empty one would destroy the user's state.
func ParsePlan(text string) (*plan.ProjectPlan, error) {
	candidate := ExtractCandidate(text)

	var p plan.ProjectPlan
	if err := json.Unmarshal([]byte(candidate), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", perrors.ErrMalformedResponse, err)
	}

	if p.ProjectName == "" {
		return nil, fmt.Errorf("%w: missing project_name", perrors.ErrInvalidPlanShape)
	}
	if len(p.Phases) == 0 {
		return nil, fmt.Errorf("%w: plan has no phases", perrors.ErrInvalidPlanShape)
	}
	seen := make(map[string]bool, len(p.Phases))
	for i, ph := range p.Phases {
		if ph.ID == "" || ph.Name == "" {
			return nil, fmt.Errorf("%w: phase %d missing id or name", perrors.ErrInvalidPlanShape, i)
		}
		if seen[ph.ID] {
			return nil, fmt.Errorf("%w: duplicate phase id %q", perrors.ErrInvalidPlanShape, ph.ID)
		}
		seen[ph.ID] = true
	}
	return &p, nil
}

// rawInvite tolerates the model omitting optional fields.
type rawInvite struct {
	TargetUser    string `json:"target_user"`
	TargetEmail   string `json:"target_email"`
	InviteMessage string `json:"invite_message"`
	Reason        string `json:"reason"`
}

// ParseInvites extracts an invite array from the response. List operations
// degrade to an empty slice on any parse or shape failure: "no
// recommendations found" is a legitimate outcome, not an error. An invite
// whose target_user does not loosely match a known profile name is retained
// but flagged unmatched rather than dropped — the model may use an alternate
// naming format.
func ParseInvites(text string, members []team.Member) []plan.Invite {
	raw := parseList[rawInvite](text)

	known := team.Names(members)
	invites := make([]plan.Invite, 0, len(raw))
	for _, r := range raw {
		if r.TargetUser == "" {
			continue
		}
		inv := plan.Invite{
			TargetUser:    r.TargetUser,
			InviteMessage: r.InviteMessage,
			Reason:        r.Reason,
		}
		if name, ok := team.MatchName(known, r.TargetUser); ok {
			inv.TargetUser = name
			inv.Matched = true
			if email, ok := team.ResolveEmail(members, name); ok {
				inv.TargetEmail = email
			}
		}
		invites = append(invites, inv)
	}
	return invites
}

type rawNotification struct {
	Type       string `json:"type"`
	TargetUser string `json:"target_user"`
	Message    string `json:"message"`
}

// ParseNotifications extracts a notification array from the response,
// degrading to an empty slice on failure like ParseInvites.
func ParseNotifications(text string, members []team.Member) []plan.Notification {
	raw := parseList[rawNotification](text)

	known := team.Names(members)
	notes := make([]plan.Notification, 0, len(raw))
	for _, r := range raw {
		if r.TargetUser == "" || r.Message == "" {
			continue
		}
		n := plan.Notification{
			Type:       plan.NotificationType(r.Type),
			TargetUser: r.TargetUser,
			Message:    r.Message,
		}
		switch n.Type {
		case plan.NotifyRecommendation, plan.NotifySelf, plan.NotifyWarning:
		default:
			n.Type = plan.NotifyRecommendation
		}
		if name, ok := team.MatchName(known, r.TargetUser); ok {
			n.TargetUser = name
			n.Matched = true
		}
		notes = append(notes, n)
	}
	return notes
}

// parseList parses a JSON array of T from the candidate span. If the fenced
// candidate fails, it falls back to the outermost bracketed span of the full
// text before giving up and returning nil.
func parseList[T any](text string) []T {
	candidate := ExtractCandidate(text)

	var out []T
	if err := json.Unmarshal([]byte(candidate), &out); err == nil {
		return out
	}
	if m := arrayRe.FindString(text); m != "" {
		if err := json.Unmarshal([]byte(m), &out); err == nil {
			return out
		}
	}
	return nil
}
