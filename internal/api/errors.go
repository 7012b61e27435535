package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	perrors "github.com/phaseflow/phaseflow/internal/errors"
)

// problemResponse returns an RFC 7807 Problem Detail error response.
func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}

// domainProblem maps a pipeline error onto its HTTP representation. Checks
// run through the unwrap chain, so a GenerationError wrapping a quota
// failure still surfaces as 402.
func domainProblem(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, perrors.ErrValidation):
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_input", "Bad Request", err.Error())
	case errors.Is(err, perrors.ErrQuotaExceeded):
		return problemResponse(c, fiber.StatusPaymentRequired,
			"quota_exceeded", "Payment Required",
			"Generation quota exhausted. Add credits and try again.")
	case errors.Is(err, perrors.ErrAuth):
		return problemResponse(c, fiber.StatusUnauthorized,
			"auth_failed", "Unauthorized", err.Error())
	case errors.Is(err, perrors.ErrNotFound):
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", err.Error())
	case errors.Is(err, perrors.ErrRateLimit):
		return problemResponse(c, fiber.StatusTooManyRequests,
			"rate_limit_exceeded", "Too Many Requests",
			"Generation rate limit hit. Please try again shortly.")
	case errors.Is(err, perrors.ErrMalformedResponse), errors.Is(err, perrors.ErrInvalidPlanShape):
		return problemResponse(c, fiber.StatusUnprocessableEntity,
			"unusable_response", "Unprocessable Entity",
			"The model did not return a usable plan. Try rephrasing the request.")
	case errors.Is(err, perrors.ErrUnavailable):
		return problemResponse(c, fiber.StatusServiceUnavailable,
			"upstream_unavailable", "Service Unavailable",
			"The generation service is unavailable. Please try again later.")
	case errors.Is(err, perrors.ErrTimeout):
		return problemResponse(c, fiber.StatusGatewayTimeout,
			"generation_timeout", "Gateway Timeout",
			"Generation did not finish in time.")
	}

	var genErr *perrors.GenerationError
	if errors.As(err, &genErr) {
		return problemResponse(c, fiber.StatusBadGateway,
			"generation_failed", "Bad Gateway", genErr.Error())
	}

	return problemResponse(c, fiber.StatusInternalServerError,
		"internal_error", "Internal Server Error", "An internal error occurred")
}
