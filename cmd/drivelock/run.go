package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/operion-drivelock/pkg/cmd"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Execute a node configuration file over input items",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML or JSON node configuration", Required: true},
			&cli.StringFlag{Name: "items", Aliases: []string{"i"}, Usage: "YAML or JSON list of items, - for stdin"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			var config map[string]any
			if err := cmd.DecodeFile(command.String("config"), os.Stdin, &config); err != nil {
				return err
			}

			var items []map[string]any
			if path := command.String("items"); path != "" {
				if err := cmd.DecodeFile(path, os.Stdin, &items); err != nil {
					return err
				}
			}

			data, err := runNode(ctx, command, config, items)
			if err != nil {
				return err
			}

			return writeJSON(command.Root().Writer, data)
		},
	}
}
