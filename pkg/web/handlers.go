// Package web provides HTTP handlers and REST API endpoints for workflow management.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/autoflow/pkg/blueprints"
	"github.com/dukex/autoflow/pkg/engine"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// WorkflowExecutor starts and resumes runs.
type WorkflowExecutor interface {
	ExecuteWorkflow(ctx context.Context, workflowID string, triggerData map[string]any, userID string) (*engine.Result, error)
	Approve(ctx context.Context, executionID, decidedBy string) (*engine.Result, error)
	Reject(ctx context.Context, executionID, decidedBy, reason string) (*engine.Result, error)
}

// EventEmitter accepts domain events for asynchronous routing.
type EventEmitter interface {
	Emit(ctx context.Context, triggerType models.TriggerType, entityData map[string]any, userID string) (string, error)
}

// Dependencies are the collaborators of the API handlers.
type Dependencies struct {
	Workflows  *services.Workflow
	Executions *services.Executions
	Channels   *services.Channels
	Executor   WorkflowExecutor
	Events     EventEmitter
	Templates  *blueprints.Catalog
	Validator  *validator.Validate
}

type APIHandlers struct {
	workflowService  *services.Workflow
	executionService *services.Executions
	channelService   *services.Channels
	executor         WorkflowExecutor
	events           EventEmitter
	templates        *blueprints.Catalog
	validator        *validator.Validate
}

func NewAPIHandlers(deps Dependencies) *APIHandlers {
	v := deps.Validator
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}

	return &APIHandlers{
		workflowService:  deps.Workflows,
		executionService: deps.Executions,
		channelService:   deps.Channels,
		executor:         deps.Executor,
		events:           deps.Events,
		templates:        deps.Templates,
		validator:        v,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Autoflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Autoflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	req := services.ListWorkflowsRequest{
		OwnerID:     c.Query("owner_id"),
		TriggerType: models.TriggerType(c.Query("trigger_type")),
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.WorkflowStatus(statusStr)
		req.Status = &status
	}

	workflows, err := h.workflowService.ListWorkflows(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req WorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), req.Workflow())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req WorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.workflowService.Update(c.Context(), c.Params("id"), req.Workflow())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

// DeleteWorkflow removes a workflow. ?purge_executions=true also deletes
// its execution history.
func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	purge := false

	if purgeStr := c.Query("purge_executions"); purgeStr != "" {
		var err error

		purge, err = strconv.ParseBool(purgeStr)
		if err != nil {
			return badRequest(c, "purge_executions must be a boolean")
		}
	}

	err := h.workflowService.Delete(c.Context(), c.Params("id"), purge)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ActivateWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.Activate(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) DeactivateWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.Deactivate(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}
