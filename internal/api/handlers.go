package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/phaseflow/phaseflow/internal/health"
	"github.com/phaseflow/phaseflow/internal/plan"
	"github.com/phaseflow/phaseflow/internal/planner"
	"github.com/phaseflow/phaseflow/internal/session"
	"github.com/phaseflow/phaseflow/internal/store"
	"github.com/phaseflow/phaseflow/internal/team"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	planner   *planner.Service
	store     *store.Store
	sessions  *session.Manager
	checker   *health.Checker
	logger    zerolog.Logger
	startTime time.Time

	runtimeConfig *RuntimeConfig
}

// RuntimeConfig holds the non-secret configuration exposed over the API.
type RuntimeConfig struct {
	Environment       string
	LogLevel          string
	ListenAddr        string
	GenerationBackend string
	Model             string
	AuthMode          string
	RateLimitRPS      int
	RateLimitBurst    int
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	svc *planner.Service,
	st *store.Store,
	sessions *session.Manager,
	checker *health.Checker,
	rtCfg *RuntimeConfig,
	logger zerolog.Logger,
) *Handlers {
	return &Handlers{
		planner:       svc,
		store:         st,
		sessions:      sessions,
		checker:       checker,
		logger:        logger.With().Str("component", "handlers").Logger(),
		startTime:     time.Now(),
		runtimeConfig: rtCfg,
	}
}

// currentSession returns the authenticated session context, if any.
func currentSession(c *fiber.Ctx) *store.SessionContext {
	sc, _ := c.Locals(sessionLocal).(*store.SessionContext)
	return sc
}

// StartSession handles POST /api/v1/sessions.
func (h *Handlers) StartSession(c *fiber.Ctx) error {
	if h.sessions == nil {
		return problemResponse(c, fiber.StatusNotFound,
			"sessions_disabled", "Not Found",
			"Session auth is not enabled on this server")
	}

	var req StartSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.Nickname == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_nickname", "Bad Request",
			"Nickname is required")
	}

	token, sc, err := h.sessions.Start(req.Nickname)
	if err != nil {
		return domainProblem(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(StartSessionResponse{
		Token:     token,
		SessionID: sc.SessionID,
		Nickname:  sc.Nickname,
	})
}

// GetSession handles GET /api/v1/sessions/me.
func (h *Handlers) GetSession(c *fiber.Ctx) error {
	sc := currentSession(c)
	if sc == nil {
		return problemResponse(c, fiber.StatusUnauthorized,
			"no_session", "Unauthorized", "No active session")
	}
	return c.JSON(fiber.Map{
		"session_id": sc.SessionID,
		"nickname":   sc.Nickname,
		"project_id": sc.ProjectID,
	})
}

// PlanProject handles POST /api/v1/projects: it generates a phase plan from
// the description and persists the project with its team profiles.
func (h *Handlers) PlanProject(c *fiber.Ctx) error {
	var req PlanProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.Description == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_description", "Bad Request",
			"Project description is required")
	}
	if len(req.Members) == 0 {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_members", "Bad Request",
			"At least one team member profile is required")
	}

	pl, err := h.planner.PlanProject(c.Context(), req.Description, req.Members)
	if err != nil {
		return domainProblem(c, err)
	}

	project := &store.Project{Plan: *pl}
	if sc := currentSession(c); sc != nil {
		project.SessionID = sc.SessionID
	}
	if err := h.store.SaveProject(project); err != nil {
		return domainProblem(c, err)
	}
	for i := range req.Members {
		if err := h.store.UpsertMember(project.ID, &req.Members[i]); err != nil {
			return domainProblem(c, err)
		}
	}
	if sc := currentSession(c); sc != nil {
		if err := h.sessions.BindProject(sc.SessionID, project.ID); err != nil {
			h.logger.Warn().Err(err).Str("project_id", project.ID).Msg("failed to bind session project")
		}
	}

	h.logger.Info().
		Str("project_id", project.ID).
		Int("phases", len(pl.Phases)).
		Msg("project planned")

	return c.Status(fiber.StatusCreated).JSON(projectResponse(project))
}

// ListProjects handles GET /api/v1/projects.
func (h *Handlers) ListProjects(c *fiber.Ctx) error {
	sessionID := ""
	if sc := currentSession(c); sc != nil {
		sessionID = sc.SessionID
	}

	projects, err := h.store.ListProjects(sessionID)
	if err != nil {
		return domainProblem(c, err)
	}

	out := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, projectResponse(p))
	}
	return c.JSON(ProjectListResponse{Projects: out, Total: len(out)})
}

// GetProject handles GET /api/v1/projects/:id.
func (h *Handlers) GetProject(c *fiber.Ctx) error {
	project, err := h.loadProject(c)
	if err != nil {
		return err
	}
	return c.JSON(projectResponse(project))
}

// DeleteProject handles DELETE /api/v1/projects/:id.
func (h *Handlers) DeleteProject(c *fiber.Ctx) error {
	project, err := h.loadProject(c)
	if err != nil {
		return err
	}
	if err := h.store.DeleteProject(project.ID); err != nil {
		return domainProblem(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RefinePhases handles POST /api/v1/projects/:id/refine. The refined plan
// replaces the stored one only after validation succeeds; any failure leaves
// the project exactly as it was.
func (h *Handlers) RefinePhases(c *fiber.Ctx) error {
	project, err := h.loadProject(c)
	if err != nil {
		return err
	}

	var req RefinePhasesRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.Request == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_request", "Bad Request",
			"Refinement request text is required")
	}

	members, err := h.store.ListMembers(project.ID)
	if err != nil {
		return domainProblem(c, err)
	}

	refined, err := h.planner.RefinePhases(c.Context(), &project.Plan, members, req.Request)
	if err != nil {
		return domainProblem(c, err)
	}

	if err := h.store.UpdateProjectPlan(project.ID, refined); err != nil {
		return domainProblem(c, err)
	}
	project.Plan = *refined

	h.logger.Info().
		Str("project_id", project.ID).
		Int("phases", len(refined.Phases)).
		Msg("project refined")

	return c.JSON(projectResponse(project))
}

// AnalyzeArtifact handles POST /api/v1/projects/:id/artifacts: it records
// the artifact, generates invites for its phase, and merges them into the
// project's outstanding set.
func (h *Handlers) AnalyzeArtifact(c *fiber.Ctx) error {
	project, err := h.loadProject(c)
	if err != nil {
		return err
	}

	var req AnalyzeArtifactRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.Content == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_content", "Bad Request",
			"Artifact content is required")
	}

	phase := findPhase(&project.Plan, req.PhaseID)
	if phase == nil {
		return problemResponse(c, fiber.StatusNotFound,
			"phase_not_found", "Not Found",
			"Phase not found: "+req.PhaseID)
	}

	members, err := h.store.ListMembers(project.ID)
	if err != nil {
		return domainProblem(c, err)
	}

	invites, err := h.planner.AnalyzeArtifact(c.Context(), members, phase.ID, phase.Name, req.Content)
	if err != nil {
		return domainProblem(c, err)
	}

	if err := h.store.SaveArtifact(&store.Artifact{
		ProjectID:  project.ID,
		PhaseID:    phase.ID,
		PhaseName:  phase.Name,
		Content:    req.Content,
		UploadedBy: req.UploadedBy,
		Type:       req.Type,
	}); err != nil {
		return domainProblem(c, err)
	}
	if len(invites) > 0 {
		if err := h.store.SaveInvites(project.ID, invites); err != nil {
			return domainProblem(c, err)
		}
	}

	h.logger.Info().
		Str("project_id", project.ID).
		Str("phase_id", phase.ID).
		Int("invites", len(invites)).
		Msg("artifact analyzed")

	return c.JSON(InviteListResponse{Invites: invites, Total: len(invites)})
}

// ListArtifacts handles GET /api/v1/projects/:id/artifacts.
func (h *Handlers) ListArtifacts(c *fiber.Ctx) error {
	project, err := h.loadProject(c)
	if err != nil {
		return err
	}

	artifacts, err := h.store.ListArtifacts(project.ID, c.Query("phase_id"))
	if err != nil {
		return domainProblem(c, err)
	}

	out := make([]ArtifactResponse, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, ArtifactResponse{
			ID:         a.ID,
			PhaseID:    a.PhaseID,
			PhaseName:  a.PhaseName,
			UploadedBy: a.UploadedBy,
			Type:       a.Type,
			CreatedAt:  a.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"artifacts": out, "total": len(out)})
}

// ListInvites handles GET /api/v1/projects/:id/invites.
func (h *Handlers) ListInvites(c *fiber.Ctx) error {
	project, err := h.loadProject(c)
	if err != nil {
		return err
	}

	invites, err := h.store.ListInvites(project.ID)
	if err != nil {
		return domainProblem(c, err)
	}
	if invites == nil {
		invites = []plan.Invite{}
	}
	return c.JSON(InviteListResponse{Invites: invites, Total: len(invites)})
}

// DeleteInvite handles DELETE /api/v1/projects/:id/invites/:inviteID.
func (h *Handlers) DeleteInvite(c *fiber.Ctx) error {
	project, err := h.loadProject(c)
	if err != nil {
		return err
	}
	if err := h.store.DeleteInvite(project.ID, c.Params("inviteID")); err != nil {
		return domainProblem(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AnalyzeWork handles POST /api/v1/projects/:id/work. Notifications are
// display-only and are not persisted.
func (h *Handlers) AnalyzeWork(c *fiber.Ctx) error {
	project, err := h.loadProject(c)
	if err != nil {
		return err
	}

	var req AnalyzeWorkRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.Work == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_work", "Bad Request",
			"Work in progress text is required")
	}

	members, err := h.store.ListMembers(project.ID)
	if err != nil {
		return domainProblem(c, err)
	}

	notes, err := h.planner.AnalyzeWork(c.Context(), members, req.Work)
	if err != nil {
		return domainProblem(c, err)
	}
	return c.JSON(NotificationListResponse{Notifications: notes, Total: len(notes)})
}

// UpdatePhase handles PATCH /api/v1/projects/:id/phases/:phaseID. Completing
// a phase stamps its completion time and starts the next pending phase.
func (h *Handlers) UpdatePhase(c *fiber.Ctx) error {
	project, err := h.loadProject(c)
	if err != nil {
		return err
	}

	var req UpdatePhaseRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	switch req.Status {
	case plan.StatusPending, plan.StatusInProgress, plan.StatusCompleted:
	default:
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_status", "Bad Request",
			"Unknown phase status: "+string(req.Status))
	}

	phaseID := c.Params("phaseID")
	idx := -1
	for i := range project.Plan.Phases {
		if project.Plan.Phases[i].ID == phaseID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return problemResponse(c, fiber.StatusNotFound,
			"phase_not_found", "Not Found",
			"Phase not found: "+phaseID)
	}

	ph := &project.Plan.Phases[idx]
	ph.Status = req.Status
	switch req.Status {
	case plan.StatusCompleted:
		now := time.Now().UTC()
		ph.CompletedAt = &now
		if next := idx + 1; next < len(project.Plan.Phases) &&
			project.Plan.Phases[next].Status == plan.StatusPending {
			np := &project.Plan.Phases[next]
			np.Status = plan.StatusInProgress
			if len(np.Active) == 0 {
				np.Active = append([]string(nil), np.Recommended...)
			}
		}
	default:
		ph.CompletedAt = nil
	}

	if err := h.store.UpdateProjectPlan(project.ID, &project.Plan); err != nil {
		return domainProblem(c, err)
	}
	return c.JSON(projectResponse(project))
}

// UpsertMember handles PUT /api/v1/projects/:id/members.
func (h *Handlers) UpsertMember(c *fiber.Ctx) error {
	project, err := h.loadProject(c)
	if err != nil {
		return err
	}

	var m team.Member
	if err := c.BodyParser(&m); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if m.Name == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_name", "Bad Request",
			"Member name is required")
	}

	if err := h.store.UpsertMember(project.ID, &m); err != nil {
		return domainProblem(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(m)
}

// ListMembers handles GET /api/v1/projects/:id/members.
func (h *Handlers) ListMembers(c *fiber.Ctx) error {
	project, err := h.loadProject(c)
	if err != nil {
		return err
	}

	members, err := h.store.ListMembers(project.ID)
	if err != nil {
		return domainProblem(c, err)
	}
	if members == nil {
		members = []team.Member{}
	}
	return c.JSON(MemberListResponse{Members: members, Total: len(members)})
}

// DeleteMember handles DELETE /api/v1/projects/:id/members/:name.
func (h *Handlers) DeleteMember(c *fiber.Ctx) error {
	project, err := h.loadProject(c)
	if err != nil {
		return err
	}
	if err := h.store.DeleteMember(project.ID, c.Params("name")); err != nil {
		return domainProblem(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HealthDetail handles GET /api/v1/health.
func (h *Handlers) HealthDetail(c *fiber.Ctx) error {
	results := h.checker.RunAll(c.Context())

	integrations := make(map[string]string, len(results))
	overall := "ok"
	for name, status := range results {
		integrations[name] = string(status)
		if status == health.StatusDown {
			overall = "degraded"
		}
	}

	return c.JSON(HealthDetailResponse{
		Status:       overall,
		Integrations: integrations,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Version:      "1.0.0",
	})
}

// GetConfig handles GET /api/v1/config.
func (h *Handlers) GetConfig(c *fiber.Ctx) error {
	cfg := h.runtimeConfig
	return c.JSON(ConfigResponse{
		Environment:       cfg.Environment,
		LogLevel:          cfg.LogLevel,
		ListenAddr:        cfg.ListenAddr,
		GenerationBackend: cfg.GenerationBackend,
		Model:             cfg.Model,
		AuthMode:          cfg.AuthMode,
		RateLimitRPS:      cfg.RateLimitRPS,
		RateLimitBurst:    cfg.RateLimitBurst,
	})
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	if !h.checker.IsReady(c.Context()) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
		})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

// loadProject resolves the :id route param, enforcing session ownership when
// the request carries a session.
func (h *Handlers) loadProject(c *fiber.Ctx) (*store.Project, error) {
	id := c.Params("id")
	project, err := h.store.GetProject(id)
	if err != nil {
		return nil, domainProblem(c, err)
	}
	if sc := currentSession(c); sc != nil && project.SessionID != "" && project.SessionID != sc.SessionID {
		// Hide other sessions' projects rather than admitting they exist.
		return nil, problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", "Project not found: "+id)
	}
	return project, nil
}

func findPhase(pl *plan.ProjectPlan, phaseID string) *plan.Phase {
	for i := range pl.Phases {
		if pl.Phases[i].ID == phaseID {
			return &pl.Phases[i]
		}
	}
	return nil
}

func projectResponse(p *store.Project) ProjectResponse {
	return ProjectResponse{
		ID:        p.ID,
		Plan:      p.Plan,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
