package web

import "github.com/gofiber/fiber/v3"

// EmitEvent accepts a domain event and routes it asynchronously.
func (h *APIHandlers) EmitEvent(c fiber.Ctx) error {
	var req EmitEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	eventID, err := h.events.Emit(c.Context(), req.EventType, req.EntityData, req.UserID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(EmitEventResponse{EventID: eventID, Status: "accepted"})
}
