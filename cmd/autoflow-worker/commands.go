package main

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dukex/autoflow/pkg/blueprints"
	"github.com/dukex/autoflow/pkg/cmd"
	"github.com/dukex/autoflow/pkg/log"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/services"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

var ErrInvalidWorkflows = errors.New("invalid workflows found")

func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Consume domain events and resume delayed executions",
		Flags: slices.Concat([]cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Sources: cli.EnvVars("WORKER_ID"),
			},
		}, cmd.RuntimeFlags(), cmd.LogFlags()),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule(serviceName).With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Autoflow worker")

			rt, err := cmd.NewRuntime(ctx, logger, cmd.OptionsFromCommand(command, serviceName))
			if err != nil {
				return err
			}

			defer func() {
				err := rt.Close(context.WithoutCancel(ctx))
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
				}
			}()

			err = rt.Start(ctx)
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Worker started")

			<-ctx.Done()

			logger.InfoContext(ctx, "Shutting down worker")

			return nil
		},
	}
}

func databaseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "database-url",
		Usage:    "Persistence URL: postgres://... or file://<dir>",
		Required: true,
		Sources:  cli.EnvVars("DATABASE_URL"),
	}
}

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate every stored workflow graph",
		Flags:   []cli.Flag{databaseFlag()},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule(serviceName).With("action", "validate")

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() { _ = store.Close(ctx) }()

			invalid, err := validateStored(ctx, store, cmd.NewGraphValidator(logger, store.EntityStore()))
			if err != nil {
				return err
			}

			for id, problem := range invalid {
				logger.ErrorContext(ctx, "Invalid workflow", "workflow_id", id, "error", problem)
			}

			if len(invalid) > 0 {
				return fmt.Errorf("%w: %d", ErrInvalidWorkflows, len(invalid))
			}

			logger.InfoContext(ctx, "All workflows are valid")

			return nil
		},
	}
}

// validateStored returns the validation error of every invalid workflow by id.
func validateStored(ctx context.Context, store persistence.Persistence, graph *services.GraphValidator) (map[string]error, error) {
	workflows, err := store.WorkflowRepository().ListWorkflows(ctx, persistence.ListWorkflowsOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	invalid := make(map[string]error)

	for _, workflow := range workflows {
		err := graph.Validate(workflow)
		if err != nil {
			invalid[workflow.ID] = err
		}
	}

	return invalid, nil
}

func NewImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Aliases:   []string{"i"},
		Usage:     "Create workflows from blueprint files (YAML or JSON)",
		ArgsUsage: "<file>...",
		Flags: []cli.Flag{
			databaseFlag(),
			&cli.StringFlag{
				Name:     "owner",
				Usage:    "Owner of the imported workflows",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "activate",
				Usage: "Activate workflows after import",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule(serviceName).With("action", "import")

			if command.Args().Len() == 0 {
				return errors.New("at least one blueprint file is required")
			}

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() { _ = store.Close(ctx) }()

			service := services.NewWorkflow(store, cmd.NewGraphValidator(logger, store.EntityStore()))

			for _, path := range command.Args().Slice() {
				workflow, err := importBlueprint(ctx, service, path, command.String("owner"), command.Bool("activate"))
				if err != nil {
					return err
				}

				logger.InfoContext(ctx, "Workflow imported",
					"file", path,
					"workflow_id", workflow.ID,
					"status", workflow.Status)
			}

			return nil
		},
	}
}

func importBlueprint(ctx context.Context, service *services.Workflow, path, owner string, activate bool) (*models.Workflow, error) {
	bp, err := blueprints.ParseFile(path)
	if err != nil {
		return nil, err
	}

	workflow, err := service.Create(ctx, bp.Workflow(owner))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if !activate {
		return workflow, nil
	}

	return service.Activate(ctx, workflow.ID)
}
