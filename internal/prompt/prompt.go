// Package prompt assembles the system and user prompts for each generation
// operation. Construction is pure and deterministic: identical inputs yield
// byte-identical prompts, which is what makes generation responses cacheable
// and the builder unit-testable without network access.
package prompt

import (
	"fmt"
	"strings"

	perrors "github.com/phaseflow/phaseflow/internal/errors"
	"github.com/phaseflow/phaseflow/internal/plan"
)

// Limits bounds the caller-supplied text interpolated into prompts. Inputs
// exceeding a limit are rejected before prompt construction to bound the
// cost and latency of the downstream call.
type Limits struct {
	MaxProfileChars     int
	MaxDescriptionChars int
	MaxArtifactChars    int
	MaxRefinementChars  int
}

// DefaultLimits returns the documented input ceilings.
func DefaultLimits() Limits {
	return Limits{
		MaxProfileChars:     10000,
		MaxDescriptionChars: 10000,
		MaxArtifactChars:    10000,
		MaxRefinementChars:  5000,
	}
}

// Prompt is a finalized system/user prompt pair ready for the generation
// client.
type Prompt struct {
	System string
	User   string
}

// Builder constructs prompts for the four generation operations.
type Builder struct {
	limits Limits
}

// NewBuilder creates a Builder with the given input limits.
func NewBuilder(limits Limits) *Builder {
	return &Builder{limits: limits}
}

func checkLen(field, value string, max int) error {
	if max > 0 && len(value) > max {
		return fmt.Errorf("%w: %s exceeds %d characters (got %d)",
			perrors.ErrValidation, field, max, len(value))
	}
	return nil
}

func checkNonEmpty(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", perrors.ErrValidation, field)
	}
	return nil
}

// PlanProject builds the project -> phases prompt.
func (b *Builder) PlanProject(description, profiles string) (Prompt, error) {
	if err := checkNonEmpty("project description", description); err != nil {
		return Prompt{}, err
	}
	if err := checkNonEmpty("team profiles", profiles); err != nil {
		return Prompt{}, err
	}
	if err := checkLen("project description", description, b.limits.MaxDescriptionChars); err != nil {
		return Prompt{}, err
	}
	if err := checkLen("team profiles", profiles, b.limits.MaxProfileChars); err != nil {
		return Prompt{}, err
	}

	var u strings.Builder
	u.WriteString("[Project Description]\n")
	u.WriteString(description)
	u.WriteString("\n\n[Team Profiles]\n")
	u.WriteString(profiles)
	u.WriteString("\n\n[Request]\nDesign the phase structure for this project and respond with JSON only.\n")

	return Prompt{System: planProjectSystem, User: u.String()}, nil
}

// AnalyzeArtifact builds the artifact -> invites prompt.
func (b *Builder) AnalyzeArtifact(profiles, phaseID, phaseName, artifact string) (Prompt, error) {
	if err := checkNonEmpty("team profiles", profiles); err != nil {
		return Prompt{}, err
	}
	if err := checkNonEmpty("artifact content", artifact); err != nil {
		return Prompt{}, err
	}
	if err := checkLen("team profiles", profiles, b.limits.MaxProfileChars); err != nil {
		return Prompt{}, err
	}
	if err := checkLen("artifact content", artifact, b.limits.MaxArtifactChars); err != nil {
		return Prompt{}, err
	}

	var u strings.Builder
	u.WriteString("[Team Profiles]\n")
	u.WriteString(profiles)
	fmt.Fprintf(&u, "\n\n[Current Phase]\n%s (%s)\n", phaseName, phaseID)
	u.WriteString("\n[Artifact]\n")
	u.WriteString(artifact)
	u.WriteString("\n\n[Request]\nAnalyze the artifact and respond with an invite JSON array only.\n")

	return Prompt{System: analyzeArtifactSystem, User: u.String()}, nil
}

// RefinePhases builds the refinement prompt. The current plan is rendered
// into the user prompt so the model returns a complete replacement.
func (b *Builder) RefinePhases(current *plan.ProjectPlan, profiles, userRequest string) (Prompt, error) {
	if current == nil || len(current.Phases) == 0 {
		return Prompt{}, fmt.Errorf("%w: current plan is required", perrors.ErrValidation)
	}
	if err := checkNonEmpty("refinement request", userRequest); err != nil {
		return Prompt{}, err
	}
	if err := checkLen("team profiles", profiles, b.limits.MaxProfileChars); err != nil {
		return Prompt{}, err
	}
	if err := checkLen("refinement request", userRequest, b.limits.MaxRefinementChars); err != nil {
		return Prompt{}, err
	}

	var u strings.Builder
	u.WriteString("[Current Project]\n")
	fmt.Fprintf(&u, "Project name: %s\n", current.ProjectName)
	fmt.Fprintf(&u, "Project summary: %s\n\n", current.ProjectSummary)
	u.WriteString("Existing phases:\n")
	for i, ph := range current.Phases {
		desc := ph.Description
		if desc == "" {
			desc = "(none)"
		}
		fmt.Fprintf(&u, "%d. %s (id: %s)\n   Description: %s\n   Recommended: %s\n   Active: %s\n",
			i+1, ph.Name, ph.ID, desc,
			strings.Join(ph.Recommended, ", "),
			strings.Join(ph.Active, ", "))
	}
	u.WriteString("\n[Team Profiles]\n")
	u.WriteString(profiles)
	u.WriteString("\n\n[User Request]\n")
	u.WriteString(userRequest)
	u.WriteString("\n\n[Request]\nReturn the complete updated project structure as JSON only.\n")

	return Prompt{System: refinePhasesSystem, User: u.String()}, nil
}

// AnalyzeWork builds the work-in-progress -> notifications prompt.
func (b *Builder) AnalyzeWork(profiles, work string) (Prompt, error) {
	if err := checkNonEmpty("team profiles", profiles); err != nil {
		return Prompt{}, err
	}
	if err := checkNonEmpty("work in progress", work); err != nil {
		return Prompt{}, err
	}
	if err := checkLen("team profiles", profiles, b.limits.MaxProfileChars); err != nil {
		return Prompt{}, err
	}
	if err := checkLen("work in progress", work, b.limits.MaxArtifactChars); err != nil {
		return Prompt{}, err
	}

	var u strings.Builder
	u.WriteString("[Team Profiles]\n")
	u.WriteString(profiles)
	u.WriteString("\n\n[Work In Progress]\n")
	u.WriteString(work)
	u.WriteString("\n\n[Request]\nAnalyze the text above and respond with a notification JSON array only.\n")

	return Prompt{System: analyzeWorkSystem, User: u.String()}, nil
}
