// Package planner orchestrates the four generation operations: it builds the
// prompt, calls the provider under the retry policy, validates the response,
// and applies the shaping rules that turn raw model output into canonical
// domain state.
package planner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/phaseflow/phaseflow/internal/cache"
	perrors "github.com/phaseflow/phaseflow/internal/errors"
	"github.com/phaseflow/phaseflow/internal/extract"
	"github.com/phaseflow/phaseflow/internal/llm"
	"github.com/phaseflow/phaseflow/internal/metrics"
	"github.com/phaseflow/phaseflow/internal/plan"
	"github.com/phaseflow/phaseflow/internal/prompt"
	"github.com/phaseflow/phaseflow/internal/retry"
	"github.com/phaseflow/phaseflow/internal/team"
)

// Operation names used in logs, metrics, and GenerationError.
const (
	OpPlanProject     = "plan_project"
	OpAnalyzeArtifact = "analyze_artifact"
	OpRefinePhases    = "refine_phases"
	OpAnalyzeWork     = "analyze_work"
)

// Service runs the generation pipeline. All methods are safe for concurrent
// use; the service holds no per-request state.
type Service struct {
	provider llm.Provider
	builder  *prompt.Builder
	policy   retry.Policy
	metrics  *metrics.Metrics
	cache    *cache.Cache[string, string]
	logger   zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLimits overrides the default input ceilings.
func WithLimits(l prompt.Limits) Option {
	return func(s *Service) { s.builder = prompt.NewBuilder(l) }
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCache enables the response cache. Prompt construction is deterministic,
// so identical inputs hit the same key.
func WithCache(c *cache.Cache[string, string]) Option {
	return func(s *Service) { s.cache = c }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l.With().Str("component", "planner").Logger() }
}

// NewService creates a planner Service around the given provider.
func NewService(provider llm.Provider, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		builder:  prompt.NewBuilder(prompt.DefaultLimits()),
		policy:   retry.Default(),
		logger:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// PlanProject generates a phase plan for a project description against the
// team's profiles. The returned plan has creation defaults applied: the first
// phase is in progress, the rest are pending.
func (s *Service) PlanProject(ctx context.Context, description string, members []team.Member) (*plan.ProjectPlan, error) {
	profiles := team.RenderMarkdown(members)
	pr, err := s.builder.PlanProject(description, profiles)
	if err != nil {
		return nil, err
	}

	text, err := s.complete(ctx, OpPlanProject, pr)
	if err != nil {
		return nil, err
	}

	p, err := extract.ParsePlan(text)
	if err != nil {
		s.recordParseFailure(OpPlanProject, err)
		return nil, err
	}
	if err := plan.ValidateMemberNames(p, members); err != nil {
		s.recordParseFailure(OpPlanProject, err)
		return nil, err
	}

	plan.ApplyCreationDefaults(p)
	return p, nil
}

// AnalyzeArtifact generates phase invites for an uploaded artifact. Parse and
// shape failures degrade to an empty slice; only generation failures (quota,
// auth, exhausted retries) surface as errors.
func (s *Service) AnalyzeArtifact(ctx context.Context, members []team.Member, phaseID, phaseName, artifact string) ([]plan.Invite, error) {
	profiles := team.RenderMarkdown(members)
	pr, err := s.builder.AnalyzeArtifact(profiles, phaseID, phaseName, artifact)
	if err != nil {
		return nil, err
	}

	text, err := s.complete(ctx, OpAnalyzeArtifact, pr)
	if err != nil {
		return nil, err
	}

	invites := extract.ParseInvites(text, members)
	if len(invites) == 0 {
		s.recordParseFailure(OpAnalyzeArtifact, perrors.ErrMalformedResponse)
	}
	for i := range invites {
		invites[i].PhaseID = phaseID
		invites[i].PhaseName = phaseName
	}
	return invites, nil
}

// RefinePhases regenerates the plan structure from a user request. The
// refined plan replaces the current one wholesale, with phase progress
// migrated across surviving phase ids. On any error the caller's current
// plan is untouched.
func (s *Service) RefinePhases(ctx context.Context, current *plan.ProjectPlan, members []team.Member, userRequest string) (*plan.ProjectPlan, error) {
	profiles := team.RenderMarkdown(members)
	pr, err := s.builder.RefinePhases(current, profiles, userRequest)
	if err != nil {
		return nil, err
	}

	text, err := s.complete(ctx, OpRefinePhases, pr)
	if err != nil {
		return nil, err
	}

	refined, err := extract.ParsePlan(text)
	if err != nil {
		s.recordParseFailure(OpRefinePhases, err)
		return nil, err
	}
	if err := plan.ValidateMemberNames(refined, members); err != nil {
		s.recordParseFailure(OpRefinePhases, err)
		return nil, err
	}

	plan.MigrateRefinement(current, refined)
	return refined, nil
}

// AnalyzeWork generates notifications for in-progress work text. Like
// AnalyzeArtifact, unparseable output degrades to an empty slice.
func (s *Service) AnalyzeWork(ctx context.Context, members []team.Member, work string) ([]plan.Notification, error) {
	profiles := team.RenderMarkdown(members)
	pr, err := s.builder.AnalyzeWork(profiles, work)
	if err != nil {
		return nil, err
	}

	text, err := s.complete(ctx, OpAnalyzeWork, pr)
	if err != nil {
		return nil, err
	}

	notes := extract.ParseNotifications(text, members)
	if len(notes) == 0 {
		s.recordParseFailure(OpAnalyzeWork, perrors.ErrMalformedResponse)
	}
	return notes, nil
}

// complete runs one generation call under the retry policy, consulting the
// response cache first. Exhausted retries wrap the last cause in a
// GenerationError so callers can report how many attempts were spent.
func (s *Service) complete(ctx context.Context, operation string, pr prompt.Prompt) (string, error) {
	key := cacheKey(operation, pr)
	if s.cache != nil {
		if text, ok := s.cache.Get(key); ok {
			if s.metrics != nil {
				s.metrics.RecordCacheHit()
			}
			s.logger.Debug().Str("operation", operation).Msg("response cache hit")
			return text, nil
		}
	}

	start := time.Now()
	attempts := 0
	var text string

	err := s.policy.Do(ctx, func(ctx context.Context) error {
		attempts++
		if attempts > 1 && s.metrics != nil {
			s.metrics.RecordRetry(operation)
		}
		resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
			SystemPrompt: pr.System,
			UserPrompt:   pr.User,
		})
		if err != nil {
			s.logger.Warn().Err(err).
				Str("operation", operation).
				Int("attempt", attempts).
				Msg("generation attempt failed")
			return err
		}
		text = resp.Text
		return nil
	})

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.ObserveDuration(operation, elapsed.Seconds())
	}

	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordGeneration(operation, "error")
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", perrors.ErrTimeout, err)
		}
		return "", perrors.NewGenerationError(operation, attempts, err)
	}

	if s.metrics != nil {
		s.metrics.RecordGeneration(operation, "ok")
	}
	s.logger.Info().
		Str("operation", operation).
		Int("attempts", attempts).
		Dur("elapsed", elapsed).
		Msg("generation complete")

	if s.cache != nil {
		s.cache.Put(key, text)
	}
	return text, nil
}

func (s *Service) recordParseFailure(operation string, err error) {
	kind := "malformed"
	if errors.Is(err, perrors.ErrInvalidPlanShape) {
		kind = "shape"
	}
	if s.metrics != nil {
		s.metrics.RecordParseFailure(operation, kind)
	}
	s.logger.Warn().Err(err).Str("operation", operation).Msg("response failed validation")
}

func cacheKey(operation string, pr prompt.Prompt) string {
	h := sha256.New()
	h.Write([]byte(operation))
	h.Write([]byte{0})
	h.Write([]byte(pr.System))
	h.Write([]byte{0})
	h.Write([]byte(pr.User))
	return hex.EncodeToString(h.Sum(nil))
}
