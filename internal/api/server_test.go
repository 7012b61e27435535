package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/phaseflow/phaseflow/internal/errors"
	"github.com/phaseflow/phaseflow/internal/health"
	"github.com/phaseflow/phaseflow/internal/llm"
	"github.com/phaseflow/phaseflow/internal/planner"
	"github.com/phaseflow/phaseflow/internal/retry"
	"github.com/phaseflow/phaseflow/internal/session"
	"github.com/phaseflow/phaseflow/internal/store"
)

// scriptedProvider returns queued responses or errors in order.
type scriptedProvider struct {
	calls     int
	responses []string
	errs      []error
}

func (p *scriptedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	text := ""
	if i < len(p.responses) {
		text = p.responses[i]
	}
	return &llm.CompletionResponse{Text: text, Model: "scripted"}, nil
}

func (p *scriptedProvider) ModelID() string { return "scripted" }

const testPlanJSON = "```json\n" + `{
  "project_name": "Recipe App",
  "project_summary": "Meal planning for busy people",
  "phases": [
    {"id": "phase1", "name": "Discovery", "recommended": ["Robin"]},
    {"id": "phase2", "name": "Build", "recommended": ["Sera"]}
  ]
}` + "\n```"

func newTestServer(t *testing.T, provider llm.Provider, authMode string) (*Server, *session.Manager) {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sessions, err := session.NewManager(st, "test-secret", time.Hour, zerolog.Nop())
	require.NoError(t, err)

	svc := planner.NewService(provider, planner.WithRetryPolicy(retry.Policy{
		MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond,
	}))

	srv := NewServer(
		ServerConfig{
			AuthConfig: AuthConfig{Mode: authMode, Sessions: sessions},
		},
		svc, st, sessions, health.NewChecker(zerolog.Nop()), nil,
		&RuntimeConfig{Environment: "test", AuthMode: authMode, GenerationBackend: "gateway"},
		zerolog.Nop(),
	)
	return srv, sessions
}

func doJSON(t *testing.T, srv *Server, method, path string, body any, token string) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.App().Test(req, 5000)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, raw
}

func memberBodies() []map[string]any {
	return []map[string]any{
		{"name": "Robin", "role": "Frontend", "email": "robin@example.com", "hates": []string{"CSS"}},
		{"name": "Sera", "role": "Designer", "email": "sera@example.com"},
	}
}

func createProject(t *testing.T, srv *Server) string {
	t.Helper()
	resp, raw := doJSON(t, srv, http.MethodPost, "/api/v1/projects", map[string]any{
		"description": "a recipe sharing app",
		"members":     memberBodies(),
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var out ProjectResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	require.NotEmpty(t, out.ID)
	return out.ID
}

func TestProbes(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedProvider{}, "none")

	resp, _ := doJSON(t, srv, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPlanProjectEndToEnd(t *testing.T) {
	p := &scriptedProvider{responses: []string{testPlanJSON}}
	srv, _ := newTestServer(t, p, "none")

	id := createProject(t, srv)
	assert.Equal(t, 1, p.calls)

	resp, raw := doJSON(t, srv, http.MethodGet, "/api/v1/projects/"+id, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out ProjectResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "Recipe App", out.Plan.ProjectName)
	require.Len(t, out.Plan.Phases, 2)
	assert.Equal(t, "in-progress", string(out.Plan.Phases[0].Status))
	assert.Equal(t, []string{"Robin"}, out.Plan.Phases[0].Active)

	// Members were persisted with the project.
	resp, raw = doJSON(t, srv, http.MethodGet, "/api/v1/projects/"+id+"/members", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var members MemberListResponse
	require.NoError(t, json.Unmarshal(raw, &members))
	assert.Equal(t, 2, members.Total)
}

func TestPlanProject_ValidationProblem(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedProvider{}, "none")

	resp, raw := doJSON(t, srv, http.MethodPost, "/api/v1/projects", map[string]any{
		"members": memberBodies(),
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(raw, &problem))
	assert.Equal(t, "missing_description", problem.Type)
}

func TestPlanProject_QuotaMapsTo402(t *testing.T) {
	p := &scriptedProvider{errs: []error{perrors.ErrQuotaExceeded}}
	srv, _ := newTestServer(t, p, "none")

	resp, raw := doJSON(t, srv, http.MethodPost, "/api/v1/projects", map[string]any{
		"description": "a recipe app",
		"members":     memberBodies(),
	}, "")
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(raw, &problem))
	assert.Equal(t, "quota_exceeded", problem.Type)
}

func TestAnalyzeArtifact_PersistsAndDedupes(t *testing.T) {
	inviteJSON := "```json\n" + `[{"target_user":"Sera","invite_message":"join","reason":"fit"}]` + "\n```"
	updatedJSON := "```json\n" + `[{"target_user":"Sera","invite_message":"updated","reason":"still a fit"}]` + "\n```"
	p := &scriptedProvider{responses: []string{testPlanJSON, inviteJSON, updatedJSON}}
	srv, _ := newTestServer(t, p, "none")
	id := createProject(t, srv)

	body := map[string]any{"phase_id": "phase2", "content": "wireframe notes", "uploaded_by": "Robin"}
	resp, raw := doJSON(t, srv, http.MethodPost, "/api/v1/projects/"+id+"/artifacts", body, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var invites InviteListResponse
	require.NoError(t, json.Unmarshal(raw, &invites))
	require.Equal(t, 1, invites.Total)
	assert.Equal(t, "phase2", invites.Invites[0].PhaseID)
	assert.Equal(t, "sera@example.com", invites.Invites[0].TargetEmail)

	// Re-analyzing the same phase updates the invite in place.
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/v1/projects/"+id+"/artifacts", body, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = doJSON(t, srv, http.MethodGet, "/api/v1/projects/"+id+"/invites", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &invites))
	require.Equal(t, 1, invites.Total)
	assert.Equal(t, "updated", invites.Invites[0].InviteMessage)
}

func TestAnalyzeArtifact_UnknownPhase(t *testing.T) {
	p := &scriptedProvider{responses: []string{testPlanJSON}}
	srv, _ := newTestServer(t, p, "none")
	id := createProject(t, srv)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/v1/projects/"+id+"/artifacts",
		map[string]any{"phase_id": "bogus", "content": "notes"}, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 1, p.calls)
}

func TestRefinePhases_FailureKeepsStoredPlan(t *testing.T) {
	p := &scriptedProvider{responses: []string{testPlanJSON, "{not valid json"}}
	srv, _ := newTestServer(t, p, "none")
	id := createProject(t, srv)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/v1/projects/"+id+"/refine",
		map[string]any{"request": "merge the phases"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Stored plan is untouched.
	_, raw := doJSON(t, srv, http.MethodGet, "/api/v1/projects/"+id, nil, "")
	var out ProjectResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Len(t, out.Plan.Phases, 2)
	assert.Equal(t, "Recipe App", out.Plan.ProjectName)
}

func TestRefinePhases_ReplacesPlan(t *testing.T) {
	refinedJSON := "```json\n" + `{
	  "project_name": "Recipe App",
	  "phases": [
	    {"id": "phase1", "name": "Discovery", "recommended": ["Robin"]},
	    {"id": "phase2", "name": "Build", "recommended": ["Sera"]},
	    {"id": "phase3", "name": "Launch", "recommended": ["Robin"]}
	  ]
	}` + "\n```"
	p := &scriptedProvider{responses: []string{testPlanJSON, refinedJSON}}
	srv, _ := newTestServer(t, p, "none")
	id := createProject(t, srv)

	resp, raw := doJSON(t, srv, http.MethodPost, "/api/v1/projects/"+id+"/refine",
		map[string]any{"request": "add a launch phase"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var out ProjectResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out.Plan.Phases, 3)
	// phase1 keeps the in-progress status it had before refinement.
	assert.Equal(t, "in-progress", string(out.Plan.Phases[0].Status))
	assert.Equal(t, "pending", string(out.Plan.Phases[2].Status))
}

func TestAnalyzeWork(t *testing.T) {
	noteJSON := "```json\n" + `[{"type":"warning","target_user":"Robin","message":"CSS-heavy work ahead"}]` + "\n```"
	p := &scriptedProvider{responses: []string{testPlanJSON, noteJSON}}
	srv, _ := newTestServer(t, p, "none")
	id := createProject(t, srv)

	resp, raw := doJSON(t, srv, http.MethodPost, "/api/v1/projects/"+id+"/work",
		map[string]any{"work": "restyling the landing page"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var notes NotificationListResponse
	require.NoError(t, json.Unmarshal(raw, &notes))
	require.Equal(t, 1, notes.Total)
	assert.Equal(t, "warning", string(notes.Notifications[0].Type))
}

func TestUpdatePhase_CompletionAdvancesNext(t *testing.T) {
	p := &scriptedProvider{responses: []string{testPlanJSON}}
	srv, _ := newTestServer(t, p, "none")
	id := createProject(t, srv)

	resp, raw := doJSON(t, srv, http.MethodPatch, "/api/v1/projects/"+id+"/phases/phase1",
		map[string]any{"status": "completed"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var out ProjectResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "completed", string(out.Plan.Phases[0].Status))
	assert.NotNil(t, out.Plan.Phases[0].CompletedAt)
	assert.Equal(t, "in-progress", string(out.Plan.Phases[1].Status))
	assert.Equal(t, []string{"Sera"}, out.Plan.Phases[1].Active)
}

func TestSessionAuthFlow(t *testing.T) {
	p := &scriptedProvider{responses: []string{testPlanJSON}}
	srv, _ := newTestServer(t, p, "session")

	// Unauthenticated requests are rejected.
	resp, _ := doJSON(t, srv, http.MethodGet, "/api/v1/projects", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Session bootstrap stays open.
	resp, raw := doJSON(t, srv, http.MethodPost, "/api/v1/sessions",
		map[string]any{"nickname": "robin"}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var started StartSessionResponse
	require.NoError(t, json.Unmarshal(raw, &started))
	require.NotEmpty(t, started.Token)

	resp, raw = doJSON(t, srv, http.MethodPost, "/api/v1/projects", map[string]any{
		"description": "a recipe sharing app",
		"members":     memberBodies(),
	}, started.Token)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	resp, raw = doJSON(t, srv, http.MethodGet, "/api/v1/sessions/me", nil, started.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me map[string]string
	require.NoError(t, json.Unmarshal(raw, &me))
	assert.Equal(t, "robin", me["nickname"])
	assert.NotEmpty(t, me["project_id"])

	// A second session cannot see the first session's project.
	resp, raw = doJSON(t, srv, http.MethodPost, "/api/v1/sessions",
		map[string]any{"nickname": "sera"}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var other StartSessionResponse
	require.NoError(t, json.Unmarshal(raw, &other))

	resp, raw = doJSON(t, srv, http.MethodGet, "/api/v1/projects/"+me["project_id"], nil, other.Token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, string(raw))
}

func TestGetConfig(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedProvider{}, "none")

	resp, raw := doJSON(t, srv, http.MethodGet, "/api/v1/config", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cfg ConfigResponse
	require.NoError(t, json.Unmarshal(raw, &cfg))
	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, "gateway", cfg.GenerationBackend)
}
