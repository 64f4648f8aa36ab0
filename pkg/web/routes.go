package web

import "github.com/gofiber/fiber/v3"

// RegisterRoutes mounts every endpoint on router.
func (h *APIHandlers) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HealthCheck)

	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/activate", h.ActivateWorkflow)
	w.Post("/:id/deactivate", h.DeactivateWorkflow)
	w.Post("/:id/execute", h.ExecuteWorkflow)
	w.Get("/:id/executions", h.GetWorkflowExecutions)

	e := router.Group("/executions")
	e.Get("/:id", h.GetExecution)
	e.Post("/:id/approve", h.ApproveExecution)
	e.Post("/:id/reject", h.RejectExecution)

	router.Post("/events", h.EmitEvent)

	t := router.Group("/templates")
	t.Get("/", h.GetTemplates)
	t.Post("/:id/instantiate", h.InstantiateTemplate)

	router.Get("/users/:userId/channels", h.GetChannels)
	router.Put("/users/:userId/channels", h.PutChannels)
}
