package web

import (
	"errors"

	"github.com/dukex/autoflow/pkg/blueprints"
	"github.com/dukex/autoflow/pkg/engine"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, problemType, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps service, engine and persistence errors to problems.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err), errors.Is(err, models.ErrUnknownTriggerType):
		return badRequest(c, err.Error())

	case persistence.IsWorkflowNotFound(err), errors.Is(err, engine.ErrWorkflowNotFound):
		return notFound(c, "workflow_not_found", "workflow not found")

	case persistence.IsExecutionNotFound(err):
		return notFound(c, "execution_not_found", "execution not found")

	case errors.Is(err, blueprints.ErrBlueprintNotFound):
		return notFound(c, "template_not_found", "template not found")

	case services.IsConflictError(err),
		errors.Is(err, engine.ErrWorkflowNotActive),
		errors.Is(err, engine.ErrExecutionNotPaused),
		errors.Is(err, engine.ErrNotAwaitingApproval):
		return conflict(c, err.Error())

	default:
		return internalError(c, err)
	}
}
