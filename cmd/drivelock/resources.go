package main

import (
	"context"

	cli "github.com/urfave/cli/v3"
)

func binariesCommand() *cli.Command {
	return &cli.Command{
		Name:  "binaries",
		Usage: "Read application control binaries",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List binaries, newest VirusTotal fetch first",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "property", Usage: "Binary property to select, repeatable"},
					&cli.StringSliceFlag{Name: "extension", Usage: "Extension property to select, repeatable"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of binaries", Value: 50},
					&cli.BoolFlag{Name: "all", Usage: "Fetch every page"},
					&cli.BoolFlag{Name: "full", Usage: "Return full objects"},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					config := map[string]any{
						"resource":        "binaries",
						"operation":       "getAll",
						"limit":           command.Int("limit"),
						"return_all":      command.Bool("all"),
						"get_full_object": command.Bool("full"),
					}

					if props := command.StringSlice("property"); len(props) > 0 {
						config["properties"] = props
					}

					if ext := command.StringSlice("extension"); len(ext) > 0 {
						config["extension_properties"] = ext
					}

					return runAndPrint(ctx, command, config)
				},
			},
		},
	}
}

func computerCommand() *cli.Command {
	return &cli.Command{
		Name:  "computer",
		Usage: "Manage computers",
		Commands: []*cli.Command{
			{
				Name:  "actions",
				Usage: "Queue agent actions on computers",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "ids", Usage: "Comma separated computer IDs", Required: true},
					&cli.StringFlag{Name: "actions", Usage: "JSON array of actions", Required: true},
					&cli.BoolFlag{Name: "notify", Usage: "Notify the agent immediately"},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					return runAndPrint(ctx, command, map[string]any{
						"resource":     "computer",
						"operation":    "executeActions",
						"computer_ids": command.String("ids"),
						"actions":      command.String("actions"),
						"notify_agent": command.Bool("notify"),
					})
				},
			},
		},
	}
}

func policyCommand() *cli.Command {
	return &cli.Command{
		Name:  "policy",
		Usage: "Read policies",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Get a policy, or its assignments",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Policy ID", Required: true},
					&cli.BoolFlag{Name: "assignments", Usage: "Get the policy's group assignments"},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					operation := "get"
					if command.Bool("assignments") {
						operation = "getAssignments"
					}

					return runAndPrint(ctx, command, map[string]any{
						"resource":  "policy",
						"operation": operation,
						"policy_id": command.String("id"),
					})
				},
			},
		},
	}
}
