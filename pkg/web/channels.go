package web

import (
	"github.com/dukex/autoflow/pkg/models"
	"github.com/gofiber/fiber/v3"
)

func (h *APIHandlers) GetChannels(c fiber.Ctx) error {
	config, err := h.channelService.Get(c.Context(), c.Params("userId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(config)
}

func (h *APIHandlers) PutChannels(c fiber.Ctx) error {
	var config models.ChannelConfig
	if err := c.Bind().JSON(&config); err != nil {
		return badRequest(c, "Invalid JSON format: "+err.Error())
	}

	saved, err := h.channelService.Save(c.Context(), c.Params("userId"), &config)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(saved)
}
