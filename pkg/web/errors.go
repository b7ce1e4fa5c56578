package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/dukex/operion-drivelock/pkg/drivelock/client"
	"github.com/dukex/operion-drivelock/pkg/drivelock/rql"
	"github.com/dukex/operion-drivelock/pkg/nodes/drivelock"
	"github.com/dukex/operion-drivelock/pkg/registry"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleNodeError maps registry, node and client errors to problems.
func handleNodeError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, registry.ErrNodeNotRegistered):
		return notFound(c, err.Error())

	case errors.Is(err, registry.ErrInvalidConfig),
		errors.Is(err, drivelock.ErrInvalidParameter),
		errors.Is(err, rql.ErrInvalidFilter):
		return badRequest(c, err.Error())

	case errors.Is(err, client.ErrMissingCredentials):
		problem := problems.NewStatusProblem(503).
			WithInstance(c.Path()).
			WithType("missing_credentials").
			WithDetail("DriveLock credentials are not configured")

		return c.Status(fiber.StatusServiceUnavailable).JSON(problem)

	default:
		return internalError(c, err)
	}
}
