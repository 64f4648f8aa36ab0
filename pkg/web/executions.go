package web

import (
	"errors"

	"github.com/dukex/autoflow/pkg/engine"
	"github.com/gofiber/fiber/v3"
)

// ExecuteWorkflow runs an active workflow synchronously until it completes,
// fails or suspends. A run that started is reported with 200 whatever its
// outcome; the result carries the status and error.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	var req ExecuteWorkflowRequest

	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format: "+err.Error())
		}
	}

	result, err := h.executor.ExecuteWorkflow(c.Context(), c.Params("id"), req.TriggerData, req.UserID)

	return h.runResponse(c, result, err)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	executions, err := h.executionService.ListByWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions":  executions,
		"total_count": len(executions),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.executionService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) ApproveExecution(c fiber.Ctx) error {
	req, err := h.bindDecision(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.executor.Approve(c.Context(), c.Params("id"), req.DecidedBy)

	return h.runResponse(c, result, err)
}

func (h *APIHandlers) RejectExecution(c fiber.Ctx) error {
	req, err := h.bindDecision(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.executor.Reject(c.Context(), c.Params("id"), req.DecidedBy, req.Reason)

	return h.runResponse(c, result, err)
}

func (h *APIHandlers) bindDecision(c fiber.Ctx) (*ApprovalDecisionRequest, error) {
	var req ApprovalDecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return nil, errors.New("Invalid JSON format: " + err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return nil, err
	}

	return &req, nil
}

func (h *APIHandlers) runResponse(c fiber.Ctx, result *engine.Result, err error) error {
	if result != nil && result.ExecutionID != "" {
		return c.JSON(result)
	}

	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}
