// Package team models team member profiles and name resolution.
//
// Profiles are authored once during onboarding and read by every generation
// call; the pipeline never mutates them.
package team

import (
	"fmt"
	"strings"
)

// Member is a single team member profile.
type Member struct {
	ID     string   `json:"id,omitempty"`
	Name   string   `json:"name"`
	Role   string   `json:"role"`
	Email  string   `json:"email,omitempty"`
	Loves  []string `json:"loves,omitempty"`
	Hates  []string `json:"hates,omitempty"`
	Tools  []string `json:"tools,omitempty"`
	Career string   `json:"career,omitempty"`
}

// RenderMarkdown formats a profile set as the Markdown block interpolated
// into generation prompts. The output is deterministic for a given input.
func RenderMarkdown(members []Member) string {
	var b strings.Builder
	b.WriteString("#### [Team Profiles]\n")
	for _, m := range members {
		b.WriteString("\n")
		fmt.Fprintf(&b, "* **%s (%s):**\n", m.Name, m.Role)
		fmt.Fprintf(&b, "    * **Loves:** %q\n", strings.Join(m.Loves, ", "))
		fmt.Fprintf(&b, "    * **Hates:** %q\n", strings.Join(m.Hates, ", "))
		fmt.Fprintf(&b, "    * **Tools:** %q\n", strings.Join(m.Tools, ", "))
		fmt.Fprintf(&b, "    * **Email:** %q\n", m.Email)
		fmt.Fprintf(&b, "    * **Career:** %q\n", m.Career)
	}
	return b.String()
}

// Names returns the member names in profile order.
func Names(members []Member) []string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Name
	}
	return names
}

// normalizeName strips the decorations the model tends to add around a name:
// a leading @, surrounding whitespace, and a trailing parenthesized role
// ("Sera (Designer/UX)" -> "Sera").
func normalizeName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "@")
	if i := strings.IndexAny(s, "(（"); i > 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// MatchName resolves a model-emitted target_user against the known profile
// names. Matching is loose: exact match first, then case-insensitive, then
// containment in either direction. Returns the canonical profile name.
func MatchName(known []string, target string) (string, bool) {
	t := normalizeName(target)
	if t == "" {
		return "", false
	}

	for _, name := range known {
		if name == t {
			return name, true
		}
	}
	lower := strings.ToLower(t)
	for _, name := range known {
		if strings.ToLower(name) == lower {
			return name, true
		}
	}
	for _, name := range known {
		nl := strings.ToLower(name)
		if strings.Contains(lower, nl) || strings.Contains(nl, lower) {
			return name, true
		}
	}
	return "", false
}

// ResolveEmail cross-references a model-emitted target_user with the profile
// set and returns the member's stored email. The model's own target_email
// output is unreliable, so it is always resolved here instead.
func ResolveEmail(members []Member, target string) (string, bool) {
	name, ok := MatchName(Names(members), target)
	if !ok {
		return "", false
	}
	for _, m := range members {
		if m.Name == name && m.Email != "" {
			return m.Email, true
		}
	}
	return "", false
}

// FindByName returns the member with the given canonical name.
func FindByName(members []Member, name string) (Member, bool) {
	for _, m := range members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}
