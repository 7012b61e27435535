package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/phaseflow/phaseflow/internal/errors"
	"github.com/phaseflow/phaseflow/internal/plan"
)

func TestPlanProject_Idempotent(t *testing.T) {
	b := NewBuilder(DefaultLimits())

	first, err := b.PlanProject("Build a recipe app", "* **Robin (Engineer):**")
	require.NoError(t, err)
	second, err := b.PlanProject("Build a recipe app", "* **Robin (Engineer):**")
	require.NoError(t, err)

	assert.Equal(t, first.System, second.System)
	assert.Equal(t, first.User, second.User)
}

func TestPlanProject_InterpolatesVerbatim(t *testing.T) {
	b := NewBuilder(DefaultLimits())

	p, err := b.PlanProject("Ship the \"beta\" <fast>", "profiles here")
	require.NoError(t, err)

	assert.Contains(t, p.User, "Ship the \"beta\" <fast>")
	assert.Contains(t, p.User, "[Team Profiles]\nprofiles here")
	assert.Contains(t, p.System, `"project_name"`)
}

func TestPlanProject_OversizeRejected(t *testing.T) {
	b := NewBuilder(DefaultLimits())

	big := strings.Repeat("x", 10001)
	_, err := b.PlanProject("desc", big)
	assert.ErrorIs(t, err, perrors.ErrValidation)

	_, err = b.PlanProject(big, "profiles")
	assert.ErrorIs(t, err, perrors.ErrValidation)

	// Exactly at the limit is accepted.
	_, err = b.PlanProject("desc", strings.Repeat("x", 10000))
	assert.NoError(t, err)
}

func TestPlanProject_EmptyInputRejected(t *testing.T) {
	b := NewBuilder(DefaultLimits())
	_, err := b.PlanProject("", "profiles")
	assert.ErrorIs(t, err, perrors.ErrValidation)
	_, err = b.PlanProject("desc", "   ")
	assert.ErrorIs(t, err, perrors.ErrValidation)
}

func TestAnalyzeArtifact(t *testing.T) {
	b := NewBuilder(DefaultLimits())

	p, err := b.AnalyzeArtifact("profiles", "phase2", "Phase 2: UX Research", "5 tests done")
	require.NoError(t, err)
	assert.Contains(t, p.User, "Phase 2: UX Research (phase2)")
	assert.Contains(t, p.User, "[Artifact]\n5 tests done")
	assert.Contains(t, p.System, "invite")
}

func TestRefinePhases(t *testing.T) {
	b := NewBuilder(DefaultLimits())
	current := &plan.ProjectPlan{
		ProjectName:    "Demo",
		ProjectSummary: "A demo",
		Phases: []plan.Phase{
			{ID: "phase1", Name: "Phase 1: Discovery", Recommended: []string{"Robin"}, Active: []string{"Robin"}},
			{ID: "phase2", Name: "Phase 2: Build"},
		},
	}

	p, err := b.RefinePhases(current, "profiles", "merge phases 1 and 2")
	require.NoError(t, err)
	assert.Contains(t, p.User, "1. Phase 1: Discovery (id: phase1)")
	assert.Contains(t, p.User, "Description: (none)")
	assert.Contains(t, p.User, "[User Request]\nmerge phases 1 and 2")
}

func TestRefinePhases_Limits(t *testing.T) {
	b := NewBuilder(DefaultLimits())
	current := &plan.ProjectPlan{Phases: []plan.Phase{{ID: "p1", Name: "Phase 1"}}}

	_, err := b.RefinePhases(current, "profiles", strings.Repeat("x", 5001))
	assert.ErrorIs(t, err, perrors.ErrValidation)

	_, err = b.RefinePhases(nil, "profiles", "request")
	assert.ErrorIs(t, err, perrors.ErrValidation)
}

func TestAnalyzeWork(t *testing.T) {
	b := NewBuilder(DefaultLimits())

	p, err := b.AnalyzeWork("profiles", "drafting marketing copy")
	require.NoError(t, err)
	assert.Contains(t, p.User, "[Work In Progress]\ndrafting marketing copy")
	assert.Contains(t, p.System, `"recommendation", "self", "warning"`)
}
