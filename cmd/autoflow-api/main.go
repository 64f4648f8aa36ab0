package main

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"

	"github.com/dukex/autoflow/pkg/blueprints"
	"github.com/dukex/autoflow/pkg/cmd"
	"github.com/dukex/autoflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort = 9091
	serviceName = "autoflow-api"
)

func main() {
	flags := slices.Concat([]cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
	}, cmd.RuntimeFlags(), cmd.LogFlags())

	command := &cli.Command{
		Name:                  serviceName,
		Usage:                 "Manage and run business workflows",
		EnableShellCompletion: true,
		Flags:                 flags,
		Action:                run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := command.Run(ctx, os.Args)
	if err != nil {
		log.WithModule("api").Error("Autoflow API stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	logger := log.WithModule("api")

	logger.InfoContext(ctx, "Initializing Autoflow API")

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

	templates, err := blueprints.Load()
	if err != nil {
		return err
	}

	api := NewAPI(logger, rt.Persistence, rt.Executor, rt.Emitter, templates, rt.Graph)
	app := api.App()

	go func() {
		<-ctx.Done()

		err := app.ShutdownWithContext(context.WithoutCancel(ctx))
		if err != nil {
			logger.ErrorContext(ctx, "Failed to shut down HTTP server", "error", err)
		}
	}()

	port := command.Int("port")
	logger.InfoContext(ctx, "Autoflow API listening", "port", port)

	return app.Listen(":" + strconv.Itoa(port))
}
