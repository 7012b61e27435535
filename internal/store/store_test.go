package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/phaseflow/phaseflow/internal/errors"
	"github.com/phaseflow/phaseflow/internal/plan"
	"github.com/phaseflow/phaseflow/internal/team"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func samplePlan() plan.ProjectPlan {
	done := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	return plan.ProjectPlan{
		ProjectName:    "Recipe App",
		ProjectSummary: "Meal planning for busy people",
		Phases: []plan.Phase{
			{ID: "phase1", Name: "Discovery", Recommended: []string{"Robin"}, Active: []string{"Robin"},
				Status: plan.StatusCompleted, CompletedAt: &done},
			{ID: "phase2", Name: "Build", Recommended: []string{"Sera", "Robin"}, Active: []string{"Sera"},
				Status: plan.StatusInProgress},
			{ID: "phase3", Name: "Launch", Recommended: []string{}, Active: []string{},
				Status: plan.StatusPending},
		},
	}
}

func TestProjectRoundTrip(t *testing.T) {
	s := newTestStore(t)

	p := &Project{SessionID: "sess-1", Plan: samplePlan()}
	require.NoError(t, s.SaveProject(p))
	require.NotEmpty(t, p.ID)

	got, err := s.GetProject(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, p.Plan.ProjectName, got.Plan.ProjectName)

	// Phase order, membership, and progress must survive unchanged.
	require.Len(t, got.Plan.Phases, 3)
	for i := range p.Plan.Phases {
		assert.Equal(t, p.Plan.Phases[i].ID, got.Plan.Phases[i].ID)
		assert.Equal(t, p.Plan.Phases[i].Recommended, got.Plan.Phases[i].Recommended)
		assert.Equal(t, p.Plan.Phases[i].Active, got.Plan.Phases[i].Active)
		assert.Equal(t, p.Plan.Phases[i].Status, got.Plan.Phases[i].Status)
	}
	require.NotNil(t, got.Plan.Phases[0].CompletedAt)
	assert.True(t, got.Plan.Phases[0].CompletedAt.Equal(*p.Plan.Phases[0].CompletedAt))
}

func TestGetProject_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetProject("missing")
	assert.ErrorIs(t, err, perrors.ErrNotFound)
}

func TestUpdateProjectPlan(t *testing.T) {
	s := newTestStore(t)

	p := &Project{Plan: samplePlan()}
	require.NoError(t, s.SaveProject(p))

	updated := samplePlan()
	updated.ProjectName = "Recipe App v2"
	updated.Phases = updated.Phases[:2]
	require.NoError(t, s.UpdateProjectPlan(p.ID, &updated))

	got, err := s.GetProject(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Recipe App v2", got.Plan.ProjectName)
	assert.Len(t, got.Plan.Phases, 2)

	err = s.UpdateProjectPlan("missing", &updated)
	assert.ErrorIs(t, err, perrors.ErrNotFound)
}

func TestListProjects_ScopedBySession(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveProject(&Project{SessionID: "a", Plan: samplePlan()}))
	require.NoError(t, s.SaveProject(&Project{SessionID: "b", Plan: samplePlan()}))

	got, err := s.ListProjects("a")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	all, err := s.ListProjects("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeleteProject_CascadesDependents(t *testing.T) {
	s := newTestStore(t)

	p := &Project{Plan: samplePlan()}
	require.NoError(t, s.SaveProject(p))
	require.NoError(t, s.UpsertMember(p.ID, &team.Member{Name: "Robin"}))
	require.NoError(t, s.SaveArtifact(&Artifact{ProjectID: p.ID, PhaseID: "phase1", Content: "notes"}))
	require.NoError(t, s.SaveInvites(p.ID, []plan.Invite{{TargetUser: "Sera", PhaseID: "phase2"}}))

	require.NoError(t, s.DeleteProject(p.ID))

	_, err := s.GetProject(p.ID)
	assert.ErrorIs(t, err, perrors.ErrNotFound)
	invites, err := s.ListInvites(p.ID)
	require.NoError(t, err)
	assert.Empty(t, invites)
}

func TestMemberRoundTrip(t *testing.T) {
	s := newTestStore(t)

	p := &Project{Plan: samplePlan()}
	require.NoError(t, s.SaveProject(p))

	m := &team.Member{
		Name:   "Robin",
		Role:   "Frontend",
		Email:  "robin@example.com",
		Loves:  []string{"TypeScript", "animation"},
		Hates:  []string{"CSS"},
		Tools:  []string{"Figma"},
		Career: "4 years at a design agency",
	}
	require.NoError(t, s.UpsertMember(p.ID, m))

	// Repeat upsert for the same name updates in place.
	m2 := &team.Member{Name: "Robin", Role: "Frontend Lead", Email: "robin@example.com"}
	require.NoError(t, s.UpsertMember(p.ID, m2))

	members, err := s.ListMembers(p.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "Frontend Lead", members[0].Role)
	assert.Empty(t, members[0].Loves)
}

func TestSaveInvites_UpsertByTargetAndPhase(t *testing.T) {
	s := newTestStore(t)

	p := &Project{Plan: samplePlan()}
	require.NoError(t, s.SaveProject(p))

	first := []plan.Invite{
		{TargetUser: "Sera", PhaseID: "phase2", PhaseName: "Build", InviteMessage: "join", Reason: "fit", Matched: true},
		{TargetUser: "Robin", PhaseID: "phase2", PhaseName: "Build", InviteMessage: "join", Reason: "frontend"},
	}
	require.NoError(t, s.SaveInvites(p.ID, first))

	// Re-analysis of the same phase updates Sera's invite instead of adding
	// a duplicate.
	second := []plan.Invite{
		{TargetUser: "Sera", PhaseID: "phase2", PhaseName: "Build", InviteMessage: "updated pitch", Reason: "design lead", Matched: true},
		{TargetUser: "Sera", PhaseID: "phase3", PhaseName: "Launch", InviteMessage: "later", Reason: "polish"},
	}
	require.NoError(t, s.SaveInvites(p.ID, second))

	invites, err := s.ListInvites(p.ID)
	require.NoError(t, err)
	require.Len(t, invites, 3)

	var sera *plan.Invite
	for i := range invites {
		if invites[i].TargetUser == "Sera" && invites[i].PhaseID == "phase2" {
			sera = &invites[i]
		}
	}
	require.NotNil(t, sera)
	assert.Equal(t, "updated pitch", sera.InviteMessage)
	assert.Equal(t, "design lead", sera.Reason)
}

func TestArtifacts(t *testing.T) {
	s := newTestStore(t)

	p := &Project{Plan: samplePlan()}
	require.NoError(t, s.SaveProject(p))

	require.NoError(t, s.SaveArtifact(&Artifact{
		ProjectID: p.ID, PhaseID: "phase1", PhaseName: "Discovery",
		Content: "interview notes", UploadedBy: "Robin",
	}))
	require.NoError(t, s.SaveArtifact(&Artifact{
		ProjectID: p.ID, PhaseID: "phase2", PhaseName: "Build", Content: "wireframes",
	}))

	all, err := s.ListArtifacts(p.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	phase1, err := s.ListArtifacts(p.ID, "phase1")
	require.NoError(t, err)
	require.Len(t, phase1, 1)
	assert.Equal(t, "interview notes", phase1[0].Content)
	assert.Equal(t, "text", phase1[0].Type)
}

func TestSessionContexts(t *testing.T) {
	s := newTestStore(t)

	sc := &SessionContext{SessionID: "sess-1", Nickname: "robin", ProjectID: "proj-1"}
	require.NoError(t, s.SaveSessionContext(sc))

	got, err := s.GetSessionContext("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "robin", got.Nickname)
	assert.Equal(t, "proj-1", got.ProjectID)

	require.NoError(t, s.TouchSessionContext("sess-1"))
	assert.ErrorIs(t, s.TouchSessionContext("missing"), perrors.ErrNotFound)

	// Nothing is idle long enough to prune.
	n, err := s.PruneSessionContexts(time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.PruneSessionContexts(-time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.GetSessionContext("sess-1")
	assert.ErrorIs(t, err, perrors.ErrNotFound)
}
