// Package main provides the Autoflow worker: it routes domain events from the
// bus to workflows and resumes delayed executions.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/autoflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const serviceName = "autoflow-worker"

func main() {
	command := &cli.Command{
		Name:                  serviceName,
		EnableShellCompletion: true,
		Usage:                 "Run workflows triggered by domain events",
		Commands: []*cli.Command{
			NewRunCommand(),
			NewValidateCommand(),
			NewImportCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := command.Run(ctx, os.Args)
	if err != nil {
		log.WithModule(serviceName).Error("Command failed", "error", err)
		os.Exit(1)
	}
}
