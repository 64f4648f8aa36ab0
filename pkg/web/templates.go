package web

import "github.com/gofiber/fiber/v3"

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"templates": h.templates.List()})
}

// InstantiateTemplate stores a new inactive workflow built from a template.
func (h *APIHandlers) InstantiateTemplate(c fiber.Ctx) error {
	var req InstantiateTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.templates.Instantiate(c.Params("id"), req.Owner, req.Name)
	if err != nil {
		return handleServiceError(c, err)
	}

	created, err := h.workflowService.Create(c.Context(), workflow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}
