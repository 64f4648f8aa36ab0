// Package main provides the Autoflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/autoflow/pkg/blueprints"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/services"
	"github.com/dukex/autoflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	executor    web.WorkflowExecutor
	events      web.EventEmitter
	templates   *blueprints.Catalog
	graph       *services.GraphValidator
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	executor web.WorkflowExecutor,
	events web.EventEmitter,
	templates *blueprints.Catalog,
	graph *services.GraphValidator,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		executor:    executor,
		events:      events,
		templates:   templates,
		graph:       graph,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(web.Dependencies{
		Workflows:  services.NewWorkflow(a.persistence, a.graph),
		Executions: services.NewExecutions(a.persistence),
		Channels:   services.NewChannels(a.persistence.ChannelConfigRepository(), a.validate),
		Executor:   a.executor,
		Events:     a.events,
		Templates:  a.templates,
		Validator:  a.validate,
	})

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Autoflow API")
	})

	handlers.RegisterRoutes(app)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
