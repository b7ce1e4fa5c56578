package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/operion-drivelock/pkg/cmd"
	"github.com/dukex/operion-drivelock/pkg/log"
)

const defaultPort = 9091

func main() {
	if err := cmd.LoadEnv(); err != nil {
		panic(err)
	}

	app := &cli.Command{
		Name:                  "drivelock-api",
		Usage:                 "Serve DriveLock nodes and the filter builder over HTTP",
		EnableShellCompletion: true,
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
		}, cmd.CommonFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			shutdown, err := cmd.Setup(ctx, command, "drivelock-api")
			if err != nil {
				return err
			}
			defer shutdown()

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing DriveLock API")

			api := NewAPI(logger, cmd.NewRegistry(command, logger))

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API", "error", err)

				return err
			}

			return nil
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
