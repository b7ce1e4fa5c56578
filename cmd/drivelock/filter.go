package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/operion-drivelock/pkg/cmd"
	"github.com/dukex/operion-drivelock/pkg/drivelock/rql"
)

func filterCommand() *cli.Command {
	return &cli.Command{
		Name:  "filter",
		Usage: "Build RQL expressions offline",
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "Print the RQL expression of a filter file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "YAML or JSON filter, - for stdin", Required: true},
					&cli.BoolFlag{Name: "no-escape", Usage: "Write values without percent-encoding"},
				},
				Action: filterBuild,
			},
			{
				Name:  "fields",
				Usage: "List the known filterable fields of an entity",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "entity", Aliases: []string{"e"}, Usage: "Entity name, all entities when empty"},
				},
				Action: filterFields,
			},
		},
	}
}

func filterBuild(_ context.Context, command *cli.Command) error {
	var filter rql.Filter
	if err := cmd.DecodeFile(command.String("file"), os.Stdin, &filter); err != nil {
		return err
	}

	if filter.Mode == "" {
		filter.Mode = rql.ModeBuilder
	}

	if filter.Combinator == "" {
		filter.Combinator = rql.And
	}

	if filter.Mode != rql.ModeRaw {
		if err := rql.Validate(filter.Combinator, filter.Groups); err != nil {
			return err
		}
	}

	builder := rql.Builder{Escape: !command.Bool("no-escape")}

	query, ok := builder.Build(filter.Mode, filter.Raw, filter.Combinator, filter.Groups)
	if !ok {
		return nil
	}

	_, err := fmt.Fprintln(command.Root().Writer, query)

	return err
}

func filterFields(_ context.Context, command *cli.Command) error {
	entity := command.String("entity")
	if entity == "" {
		_, err := fmt.Fprintln(command.Root().Writer, strings.Join(rql.Entities(), "\n"))

		return err
	}

	fields := rql.FieldsFor(entity)
	if fields == nil {
		return fmt.Errorf("no known fields for entity %q", entity)
	}

	return writeJSON(command.Root().Writer, fields)
}
