package api

import (
	"github.com/phaseflow/phaseflow/internal/plan"
	"github.com/phaseflow/phaseflow/internal/team"
)

// ProblemDetail is an RFC 7807 error response body.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// StartSessionRequest begins a nickname session.
type StartSessionRequest struct {
	Nickname string `json:"nickname"`
}

// StartSessionResponse carries the signed session token.
type StartSessionResponse struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Nickname  string `json:"nickname"`
}

// PlanProjectRequest asks for a phase plan from a description.
type PlanProjectRequest struct {
	Description string        `json:"description"`
	Members     []team.Member `json:"members,omitempty"`
}

// ProjectResponse wraps a persisted project.
type ProjectResponse struct {
	ID        string           `json:"id"`
	Plan      plan.ProjectPlan `json:"plan"`
	CreatedAt int64            `json:"created_at"`
	UpdatedAt int64            `json:"updated_at"`
}

// ProjectListResponse lists a session's projects.
type ProjectListResponse struct {
	Projects []ProjectResponse `json:"projects"`
	Total    int               `json:"total"`
}

// AnalyzeArtifactRequest submits an artifact for invite generation.
type AnalyzeArtifactRequest struct {
	PhaseID    string `json:"phase_id"`
	Content    string `json:"content"`
	UploadedBy string `json:"uploaded_by,omitempty"`
	Type       string `json:"type,omitempty"`
}

// InviteListResponse carries generated or stored invites.
type InviteListResponse struct {
	Invites []plan.Invite `json:"invites"`
	Total   int           `json:"total"`
}

// RefinePhasesRequest asks for a plan restructure.
type RefinePhasesRequest struct {
	Request string `json:"request"`
}

// AnalyzeWorkRequest submits in-progress work text for notifications.
type AnalyzeWorkRequest struct {
	Work string `json:"work"`
}

// NotificationListResponse carries generated notifications.
type NotificationListResponse struct {
	Notifications []plan.Notification `json:"notifications"`
	Total         int                 `json:"total"`
}

// UpdatePhaseRequest changes one phase's status.
type UpdatePhaseRequest struct {
	Status plan.PhaseStatus `json:"status"`
}

// MemberListResponse lists a project's team profiles.
type MemberListResponse struct {
	Members []team.Member `json:"members"`
	Total   int           `json:"total"`
}

// ArtifactResponse is a stored artifact without its full content.
type ArtifactResponse struct {
	ID         string `json:"id"`
	PhaseID    string `json:"phase_id"`
	PhaseName  string `json:"phase_name"`
	UploadedBy string `json:"uploaded_by,omitempty"`
	Type       string `json:"type"`
	CreatedAt  int64  `json:"created_at"`
}

// HealthDetailResponse is the detailed health report.
type HealthDetailResponse struct {
	Status       string            `json:"status"`
	Integrations map[string]string `json:"integrations"`
	Uptime       string            `json:"uptime"`
	Version      string            `json:"version"`
}

// ConfigResponse exposes the non-secret runtime configuration.
type ConfigResponse struct {
	Environment       string `json:"environment"`
	LogLevel          string `json:"log_level"`
	ListenAddr        string `json:"listen_addr"`
	GenerationBackend string `json:"generation_backend"`
	Model             string `json:"model"`
	AuthMode          string `json:"auth_mode"`
	RateLimitRPS      int    `json:"rate_limit_rps"`
	RateLimitBurst    int    `json:"rate_limit_burst"`
}
