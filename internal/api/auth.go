package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/phaseflow/phaseflow/internal/session"
)

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Mode     string // "session", "api-key", "none"
	APIKey   string
	Sessions *session.Manager
}

const sessionLocal = "session"

// NewAuthMiddleware returns a Fiber middleware that validates the
// Authorization header. In session mode a Bearer token is a signed session
// token; in api-key mode it is the shared key.
func NewAuthMiddleware(cfg AuthConfig, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.Mode == "none" {
			return c.Next()
		}

		// Probes and session bootstrap stay open.
		path := c.Path()
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return c.Next()
		}
		if cfg.Mode == "session" && path == "/api/v1/sessions" && c.Method() == fiber.MethodPost {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return problemResponse(c, fiber.StatusUnauthorized,
				"missing_auth", "Unauthorized",
				"Authorization header is required")
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_auth_scheme", "Unauthorized",
				"Authorization header must use Bearer scheme")
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		switch cfg.Mode {
		case "api-key":
			if cfg.APIKey != "" && token == cfg.APIKey {
				return c.Next()
			}
			logger.Warn().
				Str("path", path).
				Str("method", c.Method()).
				Msg("unauthorized request: invalid API key")
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_api_key", "Unauthorized", "Invalid API key")

		case "session":
			sc, err := cfg.Sessions.Validate(token)
			if err != nil {
				logger.Warn().
					Err(err).
					Str("path", path).
					Str("method", c.Method()).
					Msg("unauthorized request: invalid session token")
				return problemResponse(c, fiber.StatusUnauthorized,
					"invalid_session", "Unauthorized", "Invalid or expired session token")
			}
			c.Locals(sessionLocal, sc)
			return c.Next()

		default:
			return problemResponse(c, fiber.StatusUnauthorized,
				"auth_misconfigured", "Unauthorized",
				"Unknown auth mode: "+cfg.Mode)
		}
	}
}
