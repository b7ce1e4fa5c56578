package main

import (
	"context"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/operion-drivelock/pkg/cmd"
	"github.com/dukex/operion-drivelock/pkg/drivelock/customprops"
)

func schemaFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "schema",
		Usage:    "Custom schema, one of " + strings.Join(customprops.Schemas, ", "),
		Required: true,
	}
}

func customPropsCommand() *cli.Command {
	return &cli.Command{
		Name:    "customprops",
		Aliases: []string{"cp"},
		Usage:   "Check, list and locate custom property definitions",
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Compare definitions from a file against a schema",
				Flags: []cli.Flag{
					schemaFlag(),
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "YAML or JSON list of definitions, - for stdin", Required: true},
					&cli.BoolFlag{Name: "create", Usage: "Create or update definitions that differ"},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					var definitions []map[string]any
					if err := cmd.DecodeFile(command.String("file"), os.Stdin, &definitions); err != nil {
						return err
					}

					return runAndPrint(ctx, command, map[string]any{
						"resource":                       "customProperty",
						"operation":                      "check",
						"schema":                         command.String("schema"),
						"custom_properties":              definitions,
						"create_or_update_if_not_exists": command.Bool("create"),
					})
				},
			},
			{
				Name:  "extensions",
				Usage: "List extension property names of a schema",
				Flags: []cli.Flag{schemaFlag()},
				Action: func(ctx context.Context, command *cli.Command) error {
					return runAndPrint(ctx, command, map[string]any{
						"resource":  "customProperty",
						"operation": "listExtensions",
						"schema":    command.String("schema"),
					})
				},
			},
			{
				Name:  "find",
				Usage: "List the extension groups that already define a property",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "property", Aliases: []string{"p"}, Usage: "Property name", Required: true},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					owners, err := customprops.NewService(cmd.NewClient(command)).Owners(ctx, command.String("property"))
					if err != nil {
						return err
					}

					return writeJSON(command.Root().Writer, map[string]any{
						"property":   command.String("property"),
						"extensions": owners,
					})
				},
			},
		},
	}
}
