package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/operion-drivelock/pkg/cmd"
)

func entityFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "entity",
		Aliases:  []string{"e"},
		Usage:    "Entity collection, e.g. Computers",
		Required: true,
	}
}

func entityCommand() *cli.Command {
	return &cli.Command{
		Name:  "entity",
		Usage: "Read entity collections",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List entities, optionally filtered",
				Flags: []cli.Flag{
					entityFlag(),
					&cli.StringFlag{Name: "filter", Usage: "YAML or JSON file holding a structured filter"},
					&cli.StringFlag{Name: "query", Usage: "Raw RQL expression, ignored when --filter is given"},
					&cli.StringFlag{Name: "select", Usage: "Comma separated properties to return"},
					&cli.StringFlag{Name: "sort-by", Usage: "Sort expression, prefix with - for descending"},
					&cli.IntFlag{Name: "take", Usage: "Page size"},
					&cli.IntFlag{Name: "skip", Usage: "Items to skip"},
					&cli.BoolFlag{Name: "total", Usage: "Request the total count"},
					&cli.BoolFlag{Name: "all", Usage: "Fetch every page"},
				},
				Action: entityList,
			},
			{
				Name:  "count",
				Usage: "Count entities",
				Flags: []cli.Flag{
					entityFlag(),
					&cli.StringFlag{Name: "query", Usage: "Raw RQL expression"},
					&cli.StringFlag{Name: "group-by", Usage: "Property to group counts by"},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					fields := map[string]any{}
					setIf(fields, "query", command.String("query"))
					setIf(fields, "group_by", command.String("group-by"))

					return runAndPrint(ctx, command, map[string]any{
						"resource":          "entity",
						"operation":         "getCount",
						"entity_name":       command.String("entity"),
						"additional_fields": fields,
					})
				},
			},
			{
				Name:  "get",
				Usage: "Get one entity by ID",
				Flags: []cli.Flag{
					entityFlag(),
					&cli.StringFlag{Name: "id", Usage: "Entity ID", Required: true},
					&cli.BoolFlag{Name: "linked", Usage: "Include linked objects"},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					return runAndPrint(ctx, command, map[string]any{
						"resource":               "entity",
						"operation":              "getById",
						"entity_name":            command.String("entity"),
						"entity_id":              command.String("id"),
						"include_linked_objects": command.Bool("linked"),
					})
				},
			},
			{
				Name:  "export",
				Usage: "Export entities as a file",
				Flags: []cli.Flag{
					entityFlag(),
					&cli.StringFlag{Name: "format", Usage: "Export format", Value: "csv"},
					&cli.StringFlag{Name: "query", Usage: "Raw RQL expression"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file, stdout when empty"},
				},
				Action: entityExport,
			},
		},
	}
}

func entityList(ctx context.Context, command *cli.Command) error {
	fields := map[string]any{}
	setIf(fields, "query", command.String("query"))
	setIf(fields, "select", command.String("select"))
	setIf(fields, "sort_by", command.String("sort-by"))

	if command.IsSet("take") {
		fields["take"] = command.Int("take")
	}

	if command.IsSet("skip") {
		fields["skip"] = command.Int("skip")
	}

	if command.Bool("total") {
		fields["get_total_count"] = true
	}

	config := map[string]any{
		"resource":          "entity",
		"operation":         "getList",
		"entity_name":       command.String("entity"),
		"return_all":        command.Bool("all"),
		"additional_fields": fields,
	}

	if path := command.String("filter"); path != "" {
		var filter map[string]any
		if err := cmd.DecodeFile(path, os.Stdin, &filter); err != nil {
			return err
		}

		config["filter"] = filter
	}

	return runAndPrint(ctx, command, config)
}

func entityExport(ctx context.Context, command *cli.Command) error {
	fields := map[string]any{}
	setIf(fields, "query", command.String("query"))

	data, err := runNode(ctx, command, map[string]any{
		"resource":          "entity",
		"operation":         "export",
		"entity_name":       command.String("entity"),
		"export_format":     command.String("format"),
		"additional_fields": fields,
	}, nil)
	if err != nil {
		return err
	}

	result, _ := firstItem(data).(map[string]any)

	content, ok := result["data"].(string)
	if !ok {
		return writeJSON(command.Root().Writer, result)
	}

	out := command.String("out")
	if out == "" {
		_, err := fmt.Fprint(command.Root().Writer, content)

		return err
	}

	return os.WriteFile(out, []byte(content), 0o600)
}
